package automl

import (
	"strings"

	"github.com/YuminosukeSato/automl/feature_selection"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/model_selection"
	"github.com/YuminosukeSato/automl/models"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// StrategyNone disables feature selection or tuning. An empty string means
// the same.
const StrategyNone = "none"

// Options configures one Run. Start from DefaultOptions; NSplits, TestSplit
// and Seed are used exactly as given.
type Options struct {
	// TargetColumn is the column to predict. Required.
	TargetColumn string
	// DateColumn, when set, orders the rows and is excluded from the features.
	DateColumn string

	// FeatureSelection is "", "none", "backward" or "forward".
	FeatureSelection string
	// MaxFeatures caps forward selection (0 = no cap).
	MaxFeatures int

	// Tuning is "", "none", "grid", "line" or "random".
	Tuning string

	// ModelsToRun restricts the run to these registry names, in this order.
	// Empty means every registered model.
	ModelsToRun []string

	// Loss scores every candidate and picks the best model. Required.
	Loss loss.Loss

	NSplits   int
	TestSplit float64
	// ParamAmount is the grid size label ("small", "big", "custom").
	ParamAmount string

	RandomIterations int
	LinePasses       int
	Seed             uint64

	// Workers bounds the concurrent CV folds of one candidate (default 1).
	Workers int

	// ConfigHash is copied into the bundle metadata.
	ConfigHash string
}

// DefaultOptions returns the documented defaults. TargetColumn and Loss must
// still be set.
func DefaultOptions() Options {
	return Options{
		NSplits:          5,
		TestSplit:        0.2,
		ParamAmount:      models.GridSmall,
		RandomIterations: 10,
		LinePasses:       2,
		Seed:             42,
		Workers:          1,
	}
}

// normalize lower-cases strategy names and fills the soft defaults.
func (o Options) normalize() Options {
	o.FeatureSelection = normalizeStrategy(o.FeatureSelection)
	o.Tuning = normalizeStrategy(o.Tuning)
	if o.ParamAmount == "" {
		o.ParamAmount = models.GridSmall
	}
	if o.Workers == 0 {
		o.Workers = 1
	}
	o.ModelsToRun = append([]string(nil), o.ModelsToRun...)
	return o
}

func normalizeStrategy(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StrategyNone
	}
	return s
}

func (o Options) selecting() bool { return o.FeatureSelection != StrategyNone }
func (o Options) tuning() bool    { return o.Tuning != StrategyNone }

// Validate checks everything that does not depend on the data.
func (o Options) Validate() error {
	return o.normalize().validate()
}

func (o Options) validate() error {
	if o.Loss == nil {
		return errors.NewConfigurationError("loss_fn", "a loss function is required", nil)
	}
	if o.TargetColumn == "" {
		return errors.NewConfigurationError("target_column", "a target column is required", o.TargetColumn)
	}
	switch o.FeatureSelection {
	case StrategyNone, feature_selection.StrategyBackward, feature_selection.StrategyForward:
	default:
		return errors.NewConfigurationError("feature_selection_strategy",
			"must be one of none, backward, forward", o.FeatureSelection)
	}
	switch o.Tuning {
	case StrategyNone, model_selection.StrategyGrid, model_selection.StrategyLine, model_selection.StrategyRandom:
	default:
		return errors.NewConfigurationError("hypertuning_strategy",
			"must be one of none, grid, line, random", o.Tuning)
	}
	if o.NSplits < 2 {
		return errors.NewConfigurationError("n_splits", "must be at least 2", o.NSplits)
	}
	if !(o.TestSplit > 0 && o.TestSplit < 1) {
		return errors.NewConfigurationError("test_split", "must be in the open interval (0, 1)", o.TestSplit)
	}
	if o.MaxFeatures < 0 {
		return errors.NewConfigurationError("max_features", "must be non-negative", o.MaxFeatures)
	}
	if o.Workers < 0 {
		return errors.NewConfigurationError("workers", "must be non-negative", o.Workers)
	}
	return nil
}

// Option configures an AutoML.
type Option func(*AutoML)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(a *AutoML) {
		if logger != nil {
			a.logger = logger
		}
	}
}
