package models

import (
	"sync"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Factory constructs a Config. A factory that fails (for example because a
// backend is unavailable) leaves its model out of the registry.
type Factory struct {
	Name string
	New  func() (Config, error)
}

// Registry maps model names to configurations, in registration order.
type Registry struct {
	mu      sync.RWMutex
	logger  log.Logger
	configs map[string]Config
	order   []string
}

// NewRegistry builds a registry from factories. Failing or panicking
// factories are logged at warn level and skipped.
func NewRegistry(logger log.Logger, factories ...Factory) *Registry {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	r := &Registry{
		logger:  logger,
		configs: make(map[string]Config),
	}
	for _, f := range factories {
		var cfg Config
		err := errors.SafeExecute("models.discover."+f.Name, func() error {
			var err error
			cfg, err = f.New()
			return err
		})
		if err == nil && cfg == nil {
			err = errors.Newf("factory %s returned no configuration", f.Name)
		}
		if err == nil {
			err = r.Register(cfg)
		}
		if err != nil {
			logger.Warn("Model unavailable, skipping", err, log.ModelNameKey, f.Name)
			continue
		}
		logger.Debug("Model registered", log.ModelNameKey, cfg.Name())
	}
	return r
}

// Register adds cfg. Names must be unique.
func (r *Registry) Register(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := cfg.Name()
	if _, dup := r.configs[name]; dup {
		return errors.NewConfigurationError("models", "model already registered", name)
	}
	r.configs[name] = cfg
	r.order = append(r.order, name)
	return nil
}

// ListModels returns the registered names in registration order.
func (r *Registry) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// GetModelConfig returns the configuration for name or a
// ModelNotFoundError naming the available models.
func (r *Registry) GetModelConfig(name string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[name]
	if !ok {
		return nil, errors.NewModelNotFoundError(name, append([]string(nil), r.order...))
	}
	return cfg, nil
}

// Resolve returns the configurations for names in the given order. An empty
// list means every registered model. The first unknown name fails the call.
func (r *Registry) Resolve(names []string) ([]Config, error) {
	if len(names) == 0 {
		names = r.ListModels()
	}
	out := make([]Config, 0, len(names))
	for _, name := range names {
		cfg, err := r.GetModelConfig(name)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// DefaultFactories returns the built-in model families.
func DefaultFactories() []Factory {
	return []Factory{
		{Name: LinearRegressionName, New: func() (Config, error) { return NewLinearRegressionConfig(), nil }},
		{Name: LightGBMName, New: func() (Config, error) { return NewLightGBMConfig(), nil }},
		{Name: XGBoostName, New: func() (Config, error) { return NewXGBoostConfig(), nil }},
	}
}

// DefaultRegistry registers linear_regression, lightgbm and xgboost.
func DefaultRegistry(logger log.Logger) *Registry {
	return NewRegistry(logger, DefaultFactories()...)
}

// Names returns the names of configs in order.
func Names(configs []Config) []string {
	out := make([]string, len(configs))
	for i, c := range configs {
		out[i] = c.Name()
	}
	return out
}
