package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mlerrors "github.com/YuminosukeSato/automl/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestZerologProvider_LevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProviderWithOptions(Options{Writer: &buf, Level: LevelInfo})
	logger := provider.GetLoggerWithName("automl").With(ModelNameKey, "lightgbm")

	logger.Debug("hidden")
	logger.Info("final fit completed", SamplesKey, 80, LossKey, 0.5)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "final fit completed", entries[0]["message"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "automl", entries[0][ComponentKey])
	assert.Equal(t, "lightgbm", entries[0][ModelNameKey])
	assert.Equal(t, 80.0, entries[0][SamplesKey])
	assert.Equal(t, 0.5, entries[0][LossKey])

	provider.SetLevel(LevelDebug)
	assert.True(t, logger.Enabled(context.Background(), LevelDebug))
	logger.Debug("now visible")
	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestZerologProvider_ErrorDetails(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProviderWithOptions(Options{Writer: &buf, Level: LevelDebug})
	logger := provider.GetLogger()

	err := mlerrors.NewModelNotFoundError("catboost", []string{"lightgbm"})
	logger.Error("lookup failed", err, OperationKey, "resolve")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "error", entry["level"])
	assert.Contains(t, entry[ErrAttrKey], "catboost")
	assert.Equal(t, "*errors.ModelNotFoundError", entry[ErrorTypeKey])
	assert.Equal(t, "resolve", entry[OperationKey])

	detail, ok := entry[ErrorDetailKey].(map[string]interface{})
	require.True(t, ok, "structured error detail expected")
	assert.Equal(t, "ModelNotFoundError", detail["type"])
}

func TestZerologProvider_RouteWarnings(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProviderWithOptions(Options{Writer: &buf, Level: LevelInfo})
	provider.RouteWarnings()
	defer mlerrors.SetZerologWarnFunc(nil)

	mlerrors.Warn(mlerrors.NewConvergenceWarning("CoordinateDescent", 5, ""))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "warnings", entries[0][ComponentKey])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, LevelInfo, ToLogLevel("nonsense"))
}

func TestGlobalProvider(t *testing.T) {
	provider, buf := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	defer SetProvider(nil)

	GetLoggerWithName("registry").Info("registered", ModelNameKey, "xgboost")

	assert.Contains(t, buf.String(), `"component":"registry"`)
	assert.True(t, provider.Logger().ContainsField(ModelNameKey, "xgboost"))
}

func TestTestLogger(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	logger.Debug("dropped")
	child := logger.With(RunIDKey, "r-1")
	child.Warn("candidate failed", mlerrors.New("boom"), FoldKey, 2)

	assert.False(t, logger.ContainsMessage("dropped"))
	assert.True(t, logger.ContainsField(RunIDKey, "r-1"))
	assert.True(t, logger.ContainsField(FoldKey, 2.0))
	assert.True(t, logger.ContainsField(ErrAttrKey, "boom"))
	assert.Equal(t, 1, logger.CountMessages("candidate failed"))

	logger.Clear()
	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("nothing")
	assert.False(t, l.With("a", 1).Enabled(context.Background(), LevelError))
}
