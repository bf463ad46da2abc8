// Package models adapts each model family to one Config contract and keeps
// them in an explicitly populated Registry.
//
// A Config holds no fitted state: NewModel always returns a fresh estimator,
// and ParamGrid is a fixed table keyed by a coarseness label.
package models

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/model_selection"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Grid sizes
const (
	GridSmall  = "small"
	GridBig    = "big"
	GridCustom = "custom"
)

// Config is the adapter of one model family.
type Config interface {
	// Name is the registry key, e.g. "lightgbm".
	Name() string

	// NewModel returns a fresh, unfitted estimator. When the family supports
	// several objectives, lossFn (which may be nil) picks the closest one.
	// params override the defaults.
	NewModel(lossFn loss.Loss, params map[string]interface{}) (model.Estimator, error)

	// ParamGrid returns the search space for a size label. Unknown labels
	// fall back to "small".
	ParamGrid(size string) *model_selection.ParamSpace
}

// TrainAndPredict builds a model from cfg, fits it on the training rows and
// predicts the test rows.
func TrainAndPredict(cfg Config, lossFn loss.Loss, params map[string]interface{},
	Xtrain, ytrain, Xtest mat.Matrix) (model.Estimator, mat.Matrix, error) {
	est, err := cfg.NewModel(lossFn, params)
	if err != nil {
		return nil, nil, err
	}
	if err := est.Fit(Xtrain, ytrain); err != nil {
		return nil, nil, errors.Wrapf(err, "%s fit", cfg.Name())
	}
	pred, err := est.Predict(Xtest)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s predict", cfg.Name())
	}
	return est, pred, nil
}

// newEstimator applies params on top of an estimator built with objective
// defaults. Explicit params always win.
func newEstimator(est model.Estimator, defaults, params map[string]interface{}) (model.Estimator, error) {
	merged := model.MergeParams(defaults, params)
	if len(merged) > 0 {
		if err := est.SetParams(merged); err != nil {
			return nil, err
		}
	}
	return est, nil
}

// gridFor returns grids[size], falling back to the small grid.
func gridFor(grids map[string]func() *model_selection.ParamSpace, size string) *model_selection.ParamSpace {
	if build, ok := grids[size]; ok {
		return build()
	}
	return grids[GridSmall]()
}
