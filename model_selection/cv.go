package model_selection

import (
	"context"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/preprocessing"
)

// CVScore is the fold-scored value of one candidate.
type CVScore struct {
	Mean       float64
	Std        float64 // population standard deviation of FoldScores
	FoldScores []float64
}

type cvConfig struct {
	ctx     context.Context
	workers int
}

// CVOption configures CrossValScore.
type CVOption func(*cvConfig)

// WithWorkers sets how many folds are evaluated at once. The default is 1
// (sequential); 0 means one worker per CPU.
func WithWorkers(n int) CVOption {
	return func(c *cvConfig) { c.workers = n }
}

// WithContext makes CrossValScore stop scheduling folds once ctx is done.
func WithContext(ctx context.Context) CVOption {
	return func(c *cvConfig) { c.ctx = ctx }
}

// CrossValScore scores one candidate: for every fold it clones est, applies
// params, standardizes the fold with a scaler fitted on the fold's training
// rows only, fits, predicts the validation rows and evaluates lossFn. The
// score is the arithmetic mean over folds.
//
// Folds never share an estimator or a scaler, so the result does not depend
// on the number of workers.
func CrossValScore(est model.Estimator, params map[string]interface{}, X, y mat.Matrix,
	cv Splitter, lossFn loss.Loss, opts ...CVOption) (*CVScore, error) {
	cfg := cvConfig{ctx: context.Background(), workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if lossFn == nil {
		return nil, errors.NewConfigurationError("loss", "loss function is required", nil)
	}

	n, _ := X.Dims()
	yRows, _ := y.Dims()
	if yRows != n {
		return nil, errors.NewDimensionError("model_selection.CrossValScore", n, yRows, 0)
	}
	folds, err := cv.Split(n)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	err = parallel.ForEach(cfg.ctx, len(folds), cfg.workers, func(_ context.Context, i int) error {
		score, err := scoreFold(est, params, X, y, folds[i], lossFn)
		if err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}
		scores[i] = score
		return nil
	})
	if err != nil {
		return nil, err
	}

	mean, std := stat.PopMeanStdDev(scores, nil)
	return &CVScore{Mean: mean, Std: std, FoldScores: scores}, nil
}

func scoreFold(est model.Estimator, params map[string]interface{}, X, y mat.Matrix, fold Fold, lossFn loss.Loss) (float64, error) {
	m := est.Clone()
	if len(params) > 0 {
		if err := m.SetParams(params); err != nil {
			return 0, err
		}
	}

	trainX, trainY := subsetRows(X, fold.TrainIndices), subsetRows(y, fold.TrainIndices)
	valX, valY := subsetRows(X, fold.TestIndices), subsetRows(y, fold.TestIndices)

	scaledTrain, scaledVal, _, err := preprocessing.Scale(trainX, valX)
	if err != nil {
		return 0, err
	}
	if err := m.Fit(scaledTrain, trainY); err != nil {
		return 0, err
	}
	pred, err := m.Predict(scaledVal)
	if err != nil {
		return 0, err
	}
	return lossFn.Evaluate(mat.Col(nil, 0, valY), mat.Col(nil, 0, pred))
}

// subsetRows copies the given rows of m, in order.
func subsetRows(m mat.Matrix, idx []int) *mat.Dense {
	_, c := m.Dims()
	if len(idx) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), c, nil)
	for k, i := range idx {
		for j := 0; j < c; j++ {
			out.Set(k, j, m.At(i, j))
		}
	}
	return out
}
