// Package feature_selection provides greedy wrapper feature selection.
// Candidate subsets are scored with model_selection.CrossValScore, so every
// fold is scaled and fitted independently.
package feature_selection

import (
	"context"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/model_selection"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Strategies
const (
	StrategyBackward = "backward"
	StrategyForward  = "forward"
)

// Selector chooses a subset of feature columns.
type Selector interface {
	Fit(X *dataset.Frame, y mat.Matrix) error
	Transform(X *dataset.Frame) (*dataset.Frame, error)
	FitTransform(X *dataset.Frame, y mat.Matrix) (*dataset.Frame, error)
	SelectedFeatures() ([]string, error)
	BestScore() (float64, error)
	Result() (*SelectionResult, error)
}

// StepScore is one scored candidate subset.
type StepScore struct {
	Iteration int
	// Candidate is the feature removed (backward) or added (forward); empty
	// for the all-features baseline.
	Candidate string
	Features  []string
	Score     float64
	// Accepted marks the candidate that became the new current subset.
	Accepted bool
}

// SelectionResult is the outcome of one Fit.
type SelectionResult struct {
	Strategy  string
	Selected  []string
	BestScore float64
	Steps     []StepScore
}

func (r *SelectionResult) clone() *SelectionResult {
	out := *r
	out.Selected = append([]string(nil), r.Selected...)
	out.Steps = make([]StepScore, len(r.Steps))
	for i, s := range r.Steps {
		s.Features = append([]string(nil), s.Features...)
		out.Steps[i] = s
	}
	return &out
}

// Options configures a selector.
type Options struct {
	// MaxFeatures caps forward selection (0 = no cap). Ignored by backward.
	MaxFeatures int
	// Workers is passed to CrossValScore (default 1).
	Workers int
	Logger  log.Logger
	Context context.Context
}

// New resolves a strategy name ("backward", "forward").
func New(strategy string, est model.Estimator, lossFn loss.Loss, cv model_selection.Splitter, opts Options) (Selector, error) {
	switch strings.ToLower(strategy) {
	case StrategyBackward:
		return NewBackward(est, lossFn, cv, opts), nil
	case StrategyForward:
		return NewForward(est, lossFn, cv, opts), nil
	default:
		return nil, errors.NewConfigurationError("feature_selection_strategy",
			"must be one of backward, forward", strategy)
	}
}

// selector holds the state shared by both strategies.
type selector struct {
	strategy string
	est      model.Estimator
	lossFn   loss.Loss
	cv       model_selection.Splitter
	opts     Options
	logger   log.Logger

	result *SelectionResult

	// fitting state
	X       *dataset.Frame
	y       mat.Matrix
	steps   []StepScore
	started time.Time
}

func newSelector(strategy string, est model.Estimator, lossFn loss.Loss, cv model_selection.Splitter, opts Options) selector {
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return selector{
		strategy: strategy,
		est:      est,
		lossFn:   lossFn,
		cv:       cv,
		opts:     opts,
		logger:   opts.Logger.With(log.StrategyKey, strategy),
	}
}

func (s *selector) begin(X *dataset.Frame, y mat.Matrix) error {
	if s.lossFn == nil {
		return errors.NewConfigurationError("loss", "loss function is required", nil)
	}
	if s.est == nil {
		return errors.NewConfigurationError("estimator", "estimator is required", nil)
	}
	if s.cv == nil {
		return errors.NewConfigurationError("cv", "CV splitter is required", nil)
	}
	if X == nil {
		return errors.NewModelError("feature_selection.Fit", "nil frame", errors.ErrEmptyData)
	}
	rows, cols := X.Dims()
	if cols == 0 {
		return errors.NewConfigurationError("features", "no feature columns to select from", nil)
	}
	yRows, _ := y.Dims()
	if yRows != rows {
		return errors.NewDimensionError("feature_selection.Fit", rows, yRows, 0)
	}

	s.result = nil
	s.X, s.y = X, y
	s.steps = nil
	s.started = time.Now()
	s.logger.Info("Feature selection started",
		log.OperationKey, log.OperationSelect,
		log.FeaturesKey, cols,
		log.SamplesKey, rows,
		log.NSplitsKey, s.cv.NSplits(),
		log.LossNameKey, s.lossFn.Name(),
	)
	return nil
}

// score evaluates the CV score of the given columns and records the step.
func (s *selector) score(iteration int, candidate string, features []string) (float64, error) {
	sub, err := s.X.Select(features)
	if err != nil {
		return 0, err
	}
	cv, err := model_selection.CrossValScore(s.est, nil, sub.Matrix(), s.y, s.cv, s.lossFn,
		model_selection.WithWorkers(s.opts.Workers), model_selection.WithContext(s.opts.Context))
	if err != nil {
		return 0, errors.Wrapf(err, "%s selection candidate %v", s.strategy, features)
	}
	s.steps = append(s.steps, StepScore{
		Iteration: iteration,
		Candidate: candidate,
		Features:  append([]string(nil), features...),
		Score:     cv.Mean,
	})
	s.logger.Debug("Feature subset scored",
		log.IterationKey, iteration,
		log.CandidateKey, candidate,
		log.NFeaturesKey, len(features),
		log.ScoreKey, cv.Mean,
	)
	return cv.Mean, nil
}

// accept marks the step at index i as accepted.
func (s *selector) accept(i int) {
	s.steps[i].Accepted = true
}

func (s *selector) finish(selected []string, score float64) {
	s.result = &SelectionResult{
		Strategy:  s.strategy,
		Selected:  append([]string(nil), selected...),
		BestScore: score,
		Steps:     s.steps,
	}
	s.X, s.y, s.steps = nil, nil, nil
	s.logger.Info("Feature selection completed",
		log.SelectedFeaturesKey, selected,
		log.NFeaturesKey, len(selected),
		log.ScoreKey, score,
		log.DurationMsKey, time.Since(s.started).Milliseconds(),
	)
}

func (s *selector) name() string {
	if s.strategy == StrategyBackward {
		return "BackwardSelector"
	}
	return "ForwardSelector"
}

// Transform restricts X to the selected columns.
func (s *selector) Transform(X *dataset.Frame) (*dataset.Frame, error) {
	if s.result == nil {
		return nil, errors.NewNotFittedError(s.name(), "Transform")
	}
	return X.Select(s.result.Selected)
}

// SelectedFeatures returns the selected column names in column order.
func (s *selector) SelectedFeatures() ([]string, error) {
	if s.result == nil {
		return nil, errors.NewNotFittedError(s.name(), "SelectedFeatures")
	}
	return append([]string(nil), s.result.Selected...), nil
}

// BestScore returns the CV score of the selected subset.
func (s *selector) BestScore() (float64, error) {
	if s.result == nil {
		return 0, errors.NewNotFittedError(s.name(), "BestScore")
	}
	return s.result.BestScore, nil
}

// Result returns a copy of the selection diagnostics.
func (s *selector) Result() (*SelectionResult, error) {
	if s.result == nil {
		return nil, errors.NewNotFittedError(s.name(), "Result")
	}
	return s.result.clone(), nil
}

// without returns names minus the element at i, as a new slice.
func without(names []string, i int) []string {
	out := make([]string, 0, len(names)-1)
	out = append(out, names[:i]...)
	return append(out, names[i+1:]...)
}

// inColumnOrder returns the members of set ordered as in columns.
func inColumnOrder(columns []string, set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for _, c := range columns {
		if set[c] {
			out = append(out, c)
		}
	}
	return out
}
