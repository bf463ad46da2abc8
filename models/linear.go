package models

import (
	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/linear"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/model_selection"
)

// LinearRegressionName is the registry key of the linear family.
const LinearRegressionName = "linear_regression"

// LinearRegressionConfig wraps linear.Regressor. The loss is ignored because
// every variant minimises squared error.
type LinearRegressionConfig struct{}

// NewLinearRegressionConfig returns the linear family adapter.
func NewLinearRegressionConfig() *LinearRegressionConfig { return &LinearRegressionConfig{} }

// Name implements Config.
func (c *LinearRegressionConfig) Name() string { return LinearRegressionName }

// NewModel implements Config.
func (c *LinearRegressionConfig) NewModel(_ loss.Loss, params map[string]interface{}) (model.Estimator, error) {
	return newEstimator(linear.NewRegressor(), nil, params)
}

var linearGrids = map[string]func() *model_selection.ParamSpace{
	GridSmall: func() *model_selection.ParamSpace {
		return model_selection.NewParamSpace().
			Add("model_type", linear.TypeLinear, linear.TypeRidge).
			Add("alpha", 0.1, 1.0, 10.0).
			Add("fit_intercept", true)
	},
	GridBig: func() *model_selection.ParamSpace {
		return model_selection.NewParamSpace().
			Add("model_type", linear.TypeLinear, linear.TypeRidge, linear.TypeLasso, linear.TypeElastic).
			Add("alpha", 0.01, 0.1, 1.0, 10.0, 100.0).
			Add("l1_ratio", 0.1, 0.5, 0.7, 0.9).
			Add("fit_intercept", true, false)
	},
	GridCustom: func() *model_selection.ParamSpace {
		return model_selection.NewParamSpace().
			Add("model_type", linear.TypeRidge, linear.TypeLasso).
			Add("alpha", 0.1, 1.0, 10.0)
	},
}

// ParamGrid implements Config.
func (c *LinearRegressionConfig) ParamGrid(size string) *model_selection.ParamSpace {
	return gridFor(linearGrids, size)
}
