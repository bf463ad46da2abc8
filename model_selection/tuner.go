package model_selection

import (
	"context"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Search strategies
const (
	StrategyGrid   = "grid"
	StrategyLine   = "line"
	StrategyRandom = "random"
)

// Tuner searches a ParamSpace for the hyperparameters with the best
// fold-scored loss.
type Tuner interface {
	Fit(X, y mat.Matrix) error
	BestParams() (map[string]interface{}, error)
	BestScore() (float64, error)
	Result() (*SearchResult, error)
}

// CandidateScore is the CV score of one evaluated parameter set.
type CandidateScore struct {
	Params     map[string]interface{}
	Score      float64
	Std        float64
	FoldScores []float64
}

// SearchResult is the outcome of one Tuner.Fit.
type SearchResult struct {
	Strategy   string
	BestParams map[string]interface{}
	BestScore  float64
	Candidates []CandidateScore
}

func (r *SearchResult) clone() *SearchResult {
	out := &SearchResult{
		Strategy:   r.Strategy,
		BestParams: model.CopyParams(r.BestParams),
		BestScore:  r.BestScore,
		Candidates: make([]CandidateScore, len(r.Candidates)),
	}
	for i, c := range r.Candidates {
		out.Candidates[i] = CandidateScore{
			Params:     model.CopyParams(c.Params),
			Score:      c.Score,
			Std:        c.Std,
			FoldScores: append([]float64(nil), c.FoldScores...),
		}
	}
	return out
}

// TunerOptions holds the settings shared by all strategies. Zero values
// select the defaults.
type TunerOptions struct {
	// MaxPasses bounds line search (default 2).
	MaxPasses int
	// NIter is the number of random search draws (default 10).
	NIter int
	// Seed seeds random search (default 42). Use SeedSet to request seed 0.
	Seed    uint64
	SeedSet bool
	// Workers is passed to CrossValScore (default 1).
	Workers int
	Logger  log.Logger
	Context context.Context
}

const (
	defaultMaxPasses = 2
	defaultNIter     = 10
	defaultSeed      = 42
)

func (o TunerOptions) withDefaults() TunerOptions {
	if o.MaxPasses <= 0 {
		o.MaxPasses = defaultMaxPasses
	}
	if o.NIter <= 0 {
		o.NIter = defaultNIter
	}
	if !o.SeedSet && o.Seed == 0 {
		o.Seed = defaultSeed
	}
	if o.Workers == 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = log.NewNopLogger()
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	return o
}

// NewTuner resolves a strategy name ("grid", "line", "random").
func NewTuner(strategy string, est model.Estimator, lossFn loss.Loss, space *ParamSpace,
	cv Splitter, opts TunerOptions) (Tuner, error) {
	switch strings.ToLower(strategy) {
	case StrategyGrid:
		return NewGridSearch(est, lossFn, space, cv, opts), nil
	case StrategyLine:
		return NewLineSearch(est, lossFn, space, cv, opts), nil
	case StrategyRandom:
		return NewRandomSearch(est, lossFn, space, cv, opts), nil
	default:
		return nil, errors.NewConfigurationError("hypertuning_strategy",
			"must be one of grid, line, random", strategy)
	}
}

// search holds the state shared by the three tuners.
type search struct {
	strategy string
	est      model.Estimator
	lossFn   loss.Loss
	space    *ParamSpace
	cv       Splitter
	opts     TunerOptions
	logger   log.Logger

	result *SearchResult

	// fitting state
	X, y      mat.Matrix
	cache     map[string]*CVScore
	bestIdx   int
	started   time.Time
	candidate []CandidateScore
}

func newSearch(strategy string, est model.Estimator, lossFn loss.Loss, space *ParamSpace, cv Splitter, opts TunerOptions) search {
	opts = opts.withDefaults()
	if space == nil {
		space = NewParamSpace()
	}
	return search{
		strategy: strategy,
		est:      est,
		lossFn:   lossFn,
		space:    space,
		cv:       cv,
		opts:     opts,
		logger:   opts.Logger.With(log.StrategyKey, strategy),
	}
}

func (s *search) begin(X, y mat.Matrix, candidates int) error {
	if s.lossFn == nil {
		return errors.NewConfigurationError("loss", "loss function is required", nil)
	}
	if s.est == nil {
		return errors.NewConfigurationError("estimator", "estimator is required", nil)
	}
	if s.cv == nil {
		return errors.NewConfigurationError("cv", "CV splitter is required", nil)
	}
	if err := s.space.Validate(); err != nil {
		return err
	}
	s.result = nil
	s.X, s.y = X, y
	s.cache = make(map[string]*CVScore)
	s.bestIdx = -1
	s.candidate = nil
	s.started = time.Now()

	rows, cols := X.Dims()
	s.logger.Info("Hyperparameter search started",
		log.OperationKey, log.OperationTune,
		log.CandidatesKey, candidates,
		log.NSplitsKey, s.cv.NSplits(),
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.LossNameKey, s.lossFn.Name(),
	)
	return nil
}

// score evaluates params through CrossValScore, reusing earlier results for
// an identical parameter set, and records the candidate.
func (s *search) score(params map[string]interface{}) (float64, error) {
	key := model.FormatParams(params)
	cv, ok := s.cache[key]
	if !ok {
		var err error
		cv, err = CrossValScore(s.est, params, s.X, s.y, s.cv, s.lossFn,
			WithWorkers(s.opts.Workers), WithContext(s.opts.Context))
		if err != nil {
			return 0, errors.Wrapf(err, "%s search candidate {%s}", s.strategy, key)
		}
		s.cache[key] = cv
	}

	s.candidate = append(s.candidate, CandidateScore{
		Params:     model.CopyParams(params),
		Score:      cv.Mean,
		Std:        cv.Std,
		FoldScores: append([]float64(nil), cv.FoldScores...),
	})
	idx := len(s.candidate) - 1
	if s.bestIdx < 0 || loss.IsBetter(s.lossFn, cv.Mean, s.candidate[s.bestIdx].Score) {
		s.bestIdx = idx
	}

	s.logger.Debug("Candidate scored",
		log.CandidateKey, key,
		log.ScoreKey, cv.Mean,
		"cached", ok,
	)
	return cv.Mean, nil
}

func (s *search) finish() {
	best := s.candidate[s.bestIdx]
	s.result = &SearchResult{
		Strategy:   s.strategy,
		BestParams: model.CopyParams(best.Params),
		BestScore:  best.Score,
		Candidates: s.candidate,
	}
	s.X, s.y, s.cache, s.candidate = nil, nil, nil, nil

	s.logger.Info("Hyperparameter search completed",
		log.HyperParamsKey, model.FormatParams(best.Params),
		log.ScoreKey, best.Score,
		log.CandidatesKey, len(s.result.Candidates),
		log.DurationMsKey, time.Since(s.started).Milliseconds(),
	)
}

func (s *search) BestParams() (map[string]interface{}, error) {
	if s.result == nil {
		return nil, errors.NewNotFittedError(s.name(), "BestParams")
	}
	return model.CopyParams(s.result.BestParams), nil
}

func (s *search) BestScore() (float64, error) {
	if s.result == nil {
		return 0, errors.NewNotFittedError(s.name(), "BestScore")
	}
	return s.result.BestScore, nil
}

func (s *search) Result() (*SearchResult, error) {
	if s.result == nil {
		return nil, errors.NewNotFittedError(s.name(), "Result")
	}
	return s.result.clone(), nil
}

func (s *search) name() string {
	switch s.strategy {
	case StrategyGrid:
		return "GridSearch"
	case StrategyLine:
		return "LineSearch"
	default:
		return "RandomSearch"
	}
}
