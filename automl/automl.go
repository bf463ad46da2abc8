// Package automl runs the model search: for every configured model family it
// optionally selects features, optionally tunes hyperparameters on
// time-ordered CV folds, fits the final model on the training partition and
// scores it on the held-out tail of the data.
//
// A failing model never aborts the run. Its error is recorded in its
// RunResult and the remaining models continue. Run fails only on
// configuration errors, which are detected before any training, or when
// every model failed.
//
// 使用例:
//
//	aml := automl.New(models.DefaultRegistry(logger), automl.WithLogger(logger))
//	opts := automl.DefaultOptions()
//	opts.TargetColumn = "price"
//	opts.Loss = loss.MAE()
//	res, err := aml.Run(df, opts)
package automl

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/feature_selection"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/model_selection"
	"github.com/YuminosukeSato/automl/models"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/preprocessing"
)

// AutoML is the orchestrator. Runs on one AutoML must not overlap; the
// accessors are safe to call concurrently.
type AutoML struct {
	registry *models.Registry
	logger   log.Logger

	mu      sync.RWMutex
	results *Results
	bundle  *Bundle
}

// New creates an orchestrator over registry.
func New(registry *models.Registry, opts ...Option) *AutoML {
	a := &AutoML{
		registry: registry,
		logger:   log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// plan is the validated, split input shared read-only by every model.
type plan struct {
	opts    Options
	configs []models.Config
	names   *dataset.NameMapping
	cv      *model_selection.TimeSeriesSplit

	Xtrain, Xtest *dataset.Frame // sanitized column names
	ytrain, ytest *mat.Dense
}

// Run trains every requested model on df and returns the aggregated results.
// Configuration errors are returned before any model is trained. When every
// model fails Run returns a NoValidModelError; the partial Results stay
// available through Results.
func (a *AutoML) Run(df *dataset.Frame, opts Options) (*Results, error) {
	a.mu.Lock()
	a.results, a.bundle = nil, nil
	a.mu.Unlock()

	p, err := a.prepare(df, opts.normalize())
	if err != nil {
		return nil, err
	}
	opts = p.opts

	res := &Results{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Loss:      opts.Loss.Name(),
		Models:    make(map[string]*RunResult, len(p.configs)),
		DataInfo: DataInfo{
			TrainSize:            p.Xtrain.Len(),
			TestSize:             p.Xtest.Len(),
			OriginalFeatures:     len(p.Xtrain.Columns()),
			FeatureSelectionUsed: opts.selecting(),
			HypertuningUsed:      opts.tuning(),
			ModelsTrained:        len(p.configs),
			NSplits:              opts.NSplits,
			TestSplit:            opts.TestSplit,
		},
		lossFn: opts.Loss,
	}
	logger := a.logger.With(log.RunIDKey, res.RunID)
	logger.Info("AutoML run started",
		log.PhaseKey, log.PhaseSplitting,
		log.TrainSizeKey, res.DataInfo.TrainSize,
		log.TestSizeKey, res.DataInfo.TestSize,
		log.FeaturesKey, res.DataInfo.OriginalFeatures,
		log.NSplitsKey, opts.NSplits,
		log.LossNameKey, res.Loss,
		"models", models.Names(p.configs),
	)

	for _, cfg := range p.configs {
		name := cfg.Name()
		mlog := logger.With(log.ModelNameKey, name)
		start := time.Now()

		var rr *RunResult
		err := errors.SafeExecute("automl.model."+name, func() error {
			var err error
			rr, err = a.runModel(cfg, p, mlog)
			return err
		})
		if err != nil {
			rr = &RunResult{
				ModelName:        name,
				OriginalFeatures: res.DataInfo.OriginalFeatures,
				Err:              err.Error(),
			}
			mlog.Error("Model training failed", err)
		}
		rr.Duration = time.Since(start)
		if !rr.Failed() {
			mlog.Info("Model training completed",
				log.LossKey, rr.Metrics.TestLoss,
				log.RMSEKey, rr.Metrics.TestRMSE,
				log.R2ScoreKey, rr.Metrics.TestR2,
				log.NFeaturesKey, rr.NFeaturesSelected,
				log.DurationMsKey, rr.Duration.Milliseconds(),
			)
		}
		res.Models[name] = rr
		res.Order = append(res.Order, name)
	}

	res.BestModel = res.pickBest()

	a.mu.Lock()
	a.results = res
	a.mu.Unlock()

	if res.BestModel == "" {
		err := errors.NewNoValidModelError(res.Failures())
		logger.Error("No model trained successfully", err, log.PhaseKey, log.PhaseAggregate)
		return nil, err
	}

	bundle := newBundle(res, p)
	a.mu.Lock()
	a.bundle = bundle
	a.mu.Unlock()

	best := res.Best()
	logger.Info("AutoML run completed",
		log.PhaseKey, log.PhaseAggregate,
		"best_model", res.BestModel,
		log.LossKey, best.Metrics.TestLoss,
		"failed", len(res.Failed()),
		log.DurationMsKey, time.Since(res.StartedAt).Milliseconds(),
	)
	return res, nil
}

// prepare validates opts against df and performs the holdout split.
func (a *AutoML) prepare(df *dataset.Frame, opts Options) (*plan, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if a.registry == nil {
		return nil, errors.NewConfigurationError("registry", "a model registry is required", nil)
	}
	configs, err := a.registry.Resolve(opts.ModelsToRun)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, errors.NewConfigurationError("models_to_run", "no models are registered", nil)
	}
	if df == nil || df.Len() == 0 {
		return nil, errors.NewConfigurationError("data", "the dataset has no rows", nil)
	}

	var exclude []string
	if opts.DateColumn != "" {
		if !df.Has(opts.DateColumn) {
			return nil, errors.NewConfigurationError("date_column", "column not found in data", opts.DateColumn)
		}
		if df, err = df.SortBy(opts.DateColumn); err != nil {
			return nil, err
		}
		exclude = append(exclude, opts.DateColumn)
	}
	X, y, err := df.XY(opts.TargetColumn, exclude...)
	if err != nil {
		return nil, err
	}

	names := dataset.SanitizeNames(X.Columns())
	if X, err = X.Rename(names.Forward()); err != nil {
		return nil, err
	}

	split, err := dataset.HoldoutSplit(X.Len(), opts.TestSplit)
	if err != nil {
		return nil, err
	}
	p := &plan{
		opts:    opts,
		configs: configs,
		names:   names,
		cv:      model_selection.NewTimeSeriesSplit(opts.NSplits),
		ytrain:  mat.DenseCopyOf(y.Slice(0, split, 0, 1)),
		ytest:   mat.DenseCopyOf(y.Slice(split, X.Len(), 0, 1)),
	}
	if p.Xtrain, err = X.Slice(0, split); err != nil {
		return nil, err
	}
	if p.Xtest, err = X.Slice(split, X.Len()); err != nil {
		return nil, err
	}

	if opts.selecting() || opts.tuning() {
		if _, err := p.cv.Split(split); err != nil {
			return nil, errors.NewConfigurationError("n_splits",
				fmt.Sprintf("%d training rows cannot be split into %d CV folds", split, opts.NSplits), opts.NSplits)
		}
	}
	return p, nil
}

// runModel performs selection, tuning and the final fit of one model.
func (a *AutoML) runModel(cfg models.Config, p *plan, logger log.Logger) (*RunResult, error) {
	opts := p.opts
	Xtrain, Xtest := p.Xtrain.Clone(), p.Xtest.Clone()
	rr := &RunResult{
		ModelName:        cfg.Name(),
		OriginalFeatures: len(Xtrain.Columns()),
	}
	logger.Info("Model training started", log.OperationKey, log.OperationFit)

	if opts.selecting() {
		logger.Debug("Running feature selection", log.PhaseKey, log.PhaseFeatureSelection, log.StrategyKey, opts.FeatureSelection)
		est, err := cfg.NewModel(opts.Loss, nil)
		if err != nil {
			return nil, err
		}
		sel, err := feature_selection.New(opts.FeatureSelection, est, opts.Loss, p.cv, feature_selection.Options{
			MaxFeatures: opts.MaxFeatures,
			Workers:     opts.Workers,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		if Xtrain, err = sel.FitTransform(Xtrain, p.ytrain); err != nil {
			return nil, errors.Wrap(err, "feature selection")
		}
		if Xtest, err = sel.Transform(Xtest); err != nil {
			return nil, errors.Wrap(err, "feature selection")
		}
		rr.Selector = sel
	}

	params := map[string]interface{}{}
	if opts.tuning() {
		logger.Debug("Running hyperparameter tuning", log.PhaseKey, log.PhaseTuning, log.StrategyKey, opts.Tuning)
		est, err := cfg.NewModel(opts.Loss, nil)
		if err != nil {
			return nil, err
		}
		tuner, err := model_selection.NewTuner(opts.Tuning, est, opts.Loss, cfg.ParamGrid(opts.ParamAmount), p.cv,
			model_selection.TunerOptions{
				MaxPasses: opts.LinePasses,
				NIter:     opts.RandomIterations,
				Seed:      opts.Seed,
				SeedSet:   true,
				Workers:   opts.Workers,
				Logger:    logger,
			})
		if err != nil {
			return nil, err
		}
		if err := tuner.Fit(Xtrain.Matrix(), p.ytrain); err != nil {
			return nil, errors.Wrap(err, "hyperparameter tuning")
		}
		if params, err = tuner.BestParams(); err != nil {
			return nil, err
		}
		score, err := tuner.BestScore()
		if err != nil {
			return nil, err
		}
		rr.CVScore = &score
	}

	logger.Debug("Fitting final model", log.PhaseKey, log.PhaseFinalFit, log.HyperParamsKey, model.FormatParams(params))
	scaledTrain, scaledTest, scaler, err := preprocessing.Scale(Xtrain.Matrix(), Xtest.Matrix())
	if err != nil {
		return nil, errors.Wrap(err, "scaling")
	}
	est, testPred, err := models.TrainAndPredict(cfg, opts.Loss, params, scaledTrain, p.ytrain, scaledTest)
	if err != nil {
		return nil, err
	}
	if namer, ok := est.(model.FeatureNamer); ok {
		if err := namer.SetFeatureNames(Xtrain.Columns()); err != nil {
			return nil, err
		}
	}
	trainPred, err := est.Predict(scaledTrain)
	if err != nil {
		return nil, errors.Wrapf(err, "%s predict", cfg.Name())
	}

	metrics, err := computeMetrics(opts.Loss, p.ytrain, trainPred, p.ytest, testPred)
	if err != nil {
		return nil, err
	}

	rr.Model = est
	rr.Scaler = scaler
	rr.Params = params
	rr.Metrics = metrics
	rr.SanitizedFeatures = Xtrain.Columns()
	rr.SelectedFeatures = p.names.OriginalNames(rr.SanitizedFeatures)
	rr.NFeaturesSelected = len(rr.SanitizedFeatures)
	return rr, nil
}

// computeMetrics scores the final predictions. A non-finite loss fails the
// model.
func computeMetrics(lossFn loss.Loss, ytrain, trainPred, ytest, testPred mat.Matrix) (*Metrics, error) {
	yTr, pTr := mat.Col(nil, 0, ytrain), mat.Col(nil, 0, trainPred)
	yTe, pTe := mat.Col(nil, 0, ytest), mat.Col(nil, 0, testPred)

	var (
		m   Metrics
		err error
	)
	eval := func(l loss.Loss, yTrue, yPred []float64, dst *float64) {
		if err != nil {
			return
		}
		*dst, err = l.Evaluate(yTrue, yPred)
	}
	rmse, r2 := loss.RMSE(), loss.R2()
	eval(lossFn, yTr, pTr, &m.TrainLoss)
	eval(lossFn, yTe, pTe, &m.TestLoss)
	eval(rmse, yTr, pTr, &m.TrainRMSE)
	eval(rmse, yTe, pTe, &m.TestRMSE)
	eval(r2, yTr, pTr, &m.TrainR2)
	eval(r2, yTe, pTe, &m.TestR2)
	if err != nil {
		return nil, err
	}
	if err := errors.CheckScalar("automl.test_loss", m.TestLoss, 0); err != nil {
		return nil, err
	}
	return &m, nil
}

// Results returns the results of the last Run, or nil before the first Run.
// After a NoValidModelError it holds the per-model failures.
func (a *AutoML) Results() *Results {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.results
}

// BestModel returns the best entry of the last successful Run.
func (a *AutoML) BestModel() (*RunResult, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.results == nil || a.results.BestModel == "" {
		return nil, errors.NewNotFittedError("AutoML", "BestModel")
	}
	return a.results.Best(), nil
}

// Bundle returns the deployable artifact of the best model.
func (a *AutoML) Bundle() (*Bundle, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.bundle == nil {
		return nil, errors.NewNotFittedError("AutoML", "Bundle")
	}
	return a.bundle, nil
}
