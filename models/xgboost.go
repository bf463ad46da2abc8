package models

import (
	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/ensemble/xgboost"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/model_selection"
)

// XGBoostName is the registry key of the depth-wise boosting family.
const XGBoostName = "xgboost"

// XGBoostConfig wraps xgboost.Regressor.
type XGBoostConfig struct{}

// NewXGBoostConfig returns the xgboost adapter.
func NewXGBoostConfig() *XGBoostConfig { return &XGBoostConfig{} }

// Name implements Config.
func (c *XGBoostConfig) Name() string { return XGBoostName }

// XGBoostObjective maps a loss to the closest XGBoost objective.
func XGBoostObjective(lossFn loss.Loss) string {
	if lossFn != nil && lossFn.Name() == "mae" {
		return xgboost.ObjectiveAbsoluteError
	}
	return xgboost.ObjectiveSquaredError
}

// NewModel implements Config.
func (c *XGBoostConfig) NewModel(lossFn loss.Loss, params map[string]interface{}) (model.Estimator, error) {
	defaults := map[string]interface{}{"objective": XGBoostObjective(lossFn)}
	return newEstimator(xgboost.NewRegressor(), defaults, params)
}

var xgboostGrids = map[string]func() *model_selection.ParamSpace{
	GridSmall: func() *model_selection.ParamSpace {
		return model_selection.NewParamSpace().
			Add("n_estimators", 100, 200).
			Add("learning_rate", 0.05, 0.1).
			Add("max_depth", 3, 6, 9)
	},
	GridBig: func() *model_selection.ParamSpace {
		return model_selection.NewParamSpace().
			Add("n_estimators", 100, 200, 300, 750).
			Add("learning_rate", 0.01, 0.05, 0.1, 0.2).
			Add("max_depth", 3, 6, 9).
			Add("subsample", 0.8, 1.0).
			Add("colsample_bytree", 0.8, 1.0)
	},
	GridCustom: func() *model_selection.ParamSpace {
		return model_selection.NewParamSpace().
			Add("n_estimators", 100, 300, 600).
			Add("learning_rate", 0.01, 0.05, 0.1).
			Add("max_depth", 3, 6, 9)
	},
}

// ParamGrid implements Config.
func (c *XGBoostConfig) ParamGrid(size string) *model_selection.ParamSpace {
	return gridFor(xgboostGrids, size)
}
