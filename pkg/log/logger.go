package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	mlerrors "github.com/YuminosukeSato/automl/pkg/errors"
)

const (
	ErrAttrKey = "error"
)

// Options configures a ZerologProvider.
type Options struct {
	// Writer receives log records. Defaults to os.Stderr.
	Writer io.Writer

	// Format is "json" (default) or "console".
	Format string

	// Level is the minimum emitted level.
	Level Level
}

// ZerologProvider is the default LoggerProvider, backed by zerolog.
// The level is checked at emit time, so SetLevel also affects loggers that
// were handed out earlier.
type ZerologProvider struct {
	mu    sync.RWMutex
	level Level
	base  zerolog.Logger
}

// NewZerologProvider creates a JSON provider writing to stderr.
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithOptions(Options{Level: level})
}

// NewZerologProviderWithOptions creates a provider from Options.
func NewZerologProviderWithOptions(opts Options) *ZerologProvider {
	var out io.Writer = opts.Writer
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(opts.Format, "console") || strings.EqualFold(opts.Format, "pretty") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return &ZerologProvider{
		level: opts.Level,
		base:  zerolog.New(out).With().Timestamp().Logger(),
	}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{provider: p, zl: p.base}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{provider: p, zl: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

func (p *ZerologProvider) enabled(level Level) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return level >= p.level
}

// RouteWarnings forwards warnings raised through pkg/errors.Warn, such as
// ConvergenceWarning, to this provider at warn level.
func (p *ZerologProvider) RouteWarnings() {
	logger := p.GetLoggerWithName("warnings")
	mlerrors.SetZerologWarnFunc(func(w error) {
		logger.Warn(w.Error(), ErrorTypeKey, fmt.Sprintf("%T", w), "warning", w)
	})
}

type zerologLogger struct {
	provider *ZerologProvider
	zl       zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(LevelDebug, msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any) { l.emit(LevelInfo, msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any) { l.emit(LevelWarn, msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(LevelError, msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			ctx = ctx.Interface("!BADKEY", fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ctx = ctx.Str(key, v.Error())
		case zerolog.LogObjectMarshaler:
			ctx = ctx.Object(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &zerologLogger{provider: l.provider, zl: ctx.Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.provider.enabled(level)
}

func (l *zerologLogger) emit(level Level, msg string, fields []any) {
	if !l.provider.enabled(level) {
		return
	}
	ev := l.zl.WithLevel(toZerologLevel(level))
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = appendError(ev, err)
			fields = fields[1:]
		}
	}
	appendFields(ev, fields).Msg(msg)
}

func appendFields(ev *zerolog.Event, fields []any) *zerolog.Event {
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			ev = ev.Interface("!BADKEY", fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			if key == ErrAttrKey {
				ev = appendError(ev, v)
			} else {
				ev = ev.Str(key, v.Error())
			}
		case zerolog.LogObjectMarshaler:
			ev = ev.Object(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}

// appendError records err with its type, structured details and stack trace.
func appendError(ev *zerolog.Event, err error) *zerolog.Event {
	ev = ev.Str(ErrAttrKey, err.Error())

	cause := errors.UnwrapAll(err)
	ev = ev.Str(ErrorTypeKey, fmt.Sprintf("%T", cause))
	if m, ok := cause.(zerolog.LogObjectMarshaler); ok {
		ev = ev.Object(ErrorDetailKey, m)
	}
	if st := extractStacktrace(err); st != "" {
		ev = ev.Str(StacktraceKey, st)
	}
	return ev
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level >= LevelError:
		return zerolog.ErrorLevel
	case level >= LevelWarn:
		return zerolog.WarnLevel
	case level >= LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// ParseLevel converts a level name into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// ToLogLevel is ParseLevel that falls back to LevelInfo for unknown names.
func ToLogLevel(level string) Level {
	l, err := ParseLevel(level)
	if err != nil {
		return LevelInfo
	}
	return l
}

// nopLogger discards every record.
type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
func (n nopLogger) With(...any) Logger { return n }
func (nopLogger) Enabled(context.Context, Level) bool { return false }

var (
	globalMu       sync.RWMutex
	globalProvider LoggerProvider
)

// SetProvider replaces the process-wide provider used by GetLogger and
// GetLoggerWithName.
func SetProvider(p LoggerProvider) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalProvider = p
}

// Provider returns the process-wide provider, creating an info-level zerolog
// provider on first use.
func Provider() LoggerProvider {
	globalMu.RLock()
	p := globalProvider
	globalMu.RUnlock()
	if p != nil {
		return p
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalProvider == nil {
		globalProvider = NewZerologProvider(LevelInfo)
	}
	return globalProvider
}

// GetLogger returns the default logger of the process-wide provider.
func GetLogger() Logger {
	return Provider().GetLogger()
}

// GetLoggerWithName returns a component logger of the process-wide provider.
func GetLoggerWithName(name string) Logger {
	return Provider().GetLoggerWithName(name)
}
