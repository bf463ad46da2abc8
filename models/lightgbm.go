package models

import (
	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/ensemble/lightgbm"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/model_selection"
)

// LightGBMName is the registry key of the leaf-wise boosting family.
const LightGBMName = "lightgbm"

// LightGBMConfig wraps lightgbm.Regressor.
type LightGBMConfig struct{}

// NewLightGBMConfig returns the lightgbm adapter.
func NewLightGBMConfig() *LightGBMConfig { return &LightGBMConfig{} }

// Name implements Config.
func (c *LightGBMConfig) Name() string { return LightGBMName }

// LightGBMObjective maps a loss to the closest LightGBM objective.
func LightGBMObjective(lossFn loss.Loss) string {
	if lossFn == nil {
		return lightgbm.ObjectiveRegression
	}
	switch lossFn.Name() {
	case "mae":
		return lightgbm.ObjectiveRegressionL1
	case "rmse", "mse":
		return lightgbm.ObjectiveRegressionL2
	case "mape":
		return lightgbm.ObjectiveMAPE
	default:
		return lightgbm.ObjectiveRegression
	}
}

// NewModel implements Config.
func (c *LightGBMConfig) NewModel(lossFn loss.Loss, params map[string]interface{}) (model.Estimator, error) {
	defaults := map[string]interface{}{"objective": LightGBMObjective(lossFn)}
	return newEstimator(lightgbm.NewRegressor(), defaults, params)
}

var lightgbmGrids = map[string]func() *model_selection.ParamSpace{
	GridSmall: func() *model_selection.ParamSpace {
		return model_selection.NewParamSpace().
			Add("n_estimators", 100, 200).
			Add("learning_rate", 0.05, 0.1).
			Add("num_leaves", 20, 31, 40)
	},
	GridBig: func() *model_selection.ParamSpace {
		return model_selection.NewParamSpace().
			Add("n_estimators", 100, 200, 500, 1000).
			Add("learning_rate", 0.01, 0.05, 0.1).
			Add("max_depth", -1, 10, 20).
			Add("num_leaves", 31, 50, 100).
			Add("subsample", 0.8, 1.0).
			Add("colsample_bytree", 0.8, 1.0)
	},
	GridCustom: func() *model_selection.ParamSpace {
		return model_selection.NewParamSpace().
			Add("n_estimators", 100, 300, 600).
			Add("learning_rate", 0.01, 0.05, 0.1).
			Add("num_leaves", 31, 40, 50)
	},
}

// ParamGrid implements Config.
func (c *LightGBMConfig) ParamGrid(size string) *model_selection.ParamSpace {
	return gridFor(lightgbmGrids, size)
}
