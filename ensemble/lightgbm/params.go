package lightgbm

import (
	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/ensemble/tree"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Objectives
const (
	ObjectiveRegression   = "regression"
	ObjectiveRegressionL2 = "regression_l2"
	ObjectiveRegressionL1 = "regression_l1"
	ObjectiveHuber        = "huber"
	ObjectiveMAPE         = "mape"
)

var paramNames = []string{
	"n_estimators", "learning_rate", "num_leaves", "max_depth",
	"min_child_samples", "min_child_weight", "reg_lambda", "reg_alpha",
	"min_split_gain", "subsample", "subsample_freq", "colsample_bytree",
	"max_bin", "random_state", "objective",
}

// LightGBM 本家の別名を scikit-learn API の名前に寄せる
var paramAliases = map[string]string{
	"num_iterations":    "n_estimators",
	"num_iteration":     "n_estimators",
	"num_trees":         "n_estimators",
	"num_boost_round":   "n_estimators",
	"shrinkage_rate":    "learning_rate",
	"eta":               "learning_rate",
	"max_leaves":        "num_leaves",
	"min_data_in_leaf":  "min_child_samples",
	"min_sum_hessian":   "min_child_weight",
	"lambda_l2":         "reg_lambda",
	"lambda_l1":         "reg_alpha",
	"min_gain_to_split": "min_split_gain",
	"bagging_fraction":  "subsample",
	"bagging_freq":      "subsample_freq",
	"feature_fraction":  "colsample_bytree",
	"seed":              "random_state",
}

// Params are the hyperparameters of a Regressor.
type Params struct {
	NEstimators     int
	LearningRate    float64
	NumLeaves       int
	MaxDepth        int // <= 0 means no limit
	MinChildSamples int
	MinChildWeight  float64
	RegLambda       float64
	RegAlpha        float64
	MinSplitGain    float64
	Subsample       float64
	SubsampleFreq   int
	ColsampleBytree float64
	MaxBin          int
	RandomState     int
	Objective       string
}

// DefaultParams returns the LightGBM scikit-learn defaults.
func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		LearningRate:    0.1,
		NumLeaves:       31,
		MaxDepth:        -1,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		Subsample:       1.0,
		ColsampleBytree: 1.0,
		MaxBin:          255,
		RandomState:     42,
		Objective:       ObjectiveRegression,
	}
}

func (p Params) toMap() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      p.NEstimators,
		"learning_rate":     p.LearningRate,
		"num_leaves":        p.NumLeaves,
		"max_depth":         p.MaxDepth,
		"min_child_samples": p.MinChildSamples,
		"min_child_weight":  p.MinChildWeight,
		"reg_lambda":        p.RegLambda,
		"reg_alpha":         p.RegAlpha,
		"min_split_gain":    p.MinSplitGain,
		"subsample":         p.Subsample,
		"subsample_freq":    p.SubsampleFreq,
		"colsample_bytree":  p.ColsampleBytree,
		"max_bin":           p.MaxBin,
		"random_state":      p.RandomState,
		"objective":         p.Objective,
	}
}

// apply returns p updated with params. p itself is not modified.
func (p Params) apply(params map[string]interface{}) (Params, error) {
	for key, v := range params {
		if canonical, ok := paramAliases[key]; ok {
			key = canonical
		}
		var err error
		switch key {
		case "n_estimators":
			p.NEstimators, err = model.ParamInt(key, v)
		case "learning_rate":
			p.LearningRate, err = model.ParamFloat(key, v)
		case "num_leaves":
			p.NumLeaves, err = model.ParamInt(key, v)
		case "max_depth":
			p.MaxDepth, err = model.ParamInt(key, v)
		case "min_child_samples":
			p.MinChildSamples, err = model.ParamInt(key, v)
		case "min_child_weight":
			p.MinChildWeight, err = model.ParamFloat(key, v)
		case "reg_lambda":
			p.RegLambda, err = model.ParamFloat(key, v)
		case "reg_alpha":
			p.RegAlpha, err = model.ParamFloat(key, v)
		case "min_split_gain":
			p.MinSplitGain, err = model.ParamFloat(key, v)
		case "subsample":
			p.Subsample, err = model.ParamFloat(key, v)
		case "subsample_freq":
			p.SubsampleFreq, err = model.ParamInt(key, v)
		case "colsample_bytree":
			p.ColsampleBytree, err = model.ParamFloat(key, v)
		case "max_bin":
			p.MaxBin, err = model.ParamInt(key, v)
		case "random_state":
			p.RandomState, err = model.ParamInt(key, v)
		case "objective":
			p.Objective, err = model.ParamString(key, v)
		default:
			return p, model.UnknownParam(modelName, key, paramNames)
		}
		if err != nil {
			return p, err
		}
	}
	return p, p.validate()
}

func (p Params) validate() error {
	switch {
	case p.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be at least 1", p.NEstimators)
	case p.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be positive", p.LearningRate)
	case p.NumLeaves < 2:
		return errors.NewValidationError("num_leaves", "must be at least 2", p.NumLeaves)
	case p.MinChildSamples < 1:
		return errors.NewValidationError("min_child_samples", "must be at least 1", p.MinChildSamples)
	case p.MinChildWeight < 0:
		return errors.NewValidationError("min_child_weight", "must be non-negative", p.MinChildWeight)
	case p.RegLambda < 0:
		return errors.NewValidationError("reg_lambda", "must be non-negative", p.RegLambda)
	case p.RegAlpha < 0:
		return errors.NewValidationError("reg_alpha", "must be non-negative", p.RegAlpha)
	case p.MinSplitGain < 0:
		return errors.NewValidationError("min_split_gain", "must be non-negative", p.MinSplitGain)
	case p.Subsample <= 0 || p.Subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", p.Subsample)
	case p.SubsampleFreq < 0:
		return errors.NewValidationError("subsample_freq", "must be non-negative", p.SubsampleFreq)
	case p.ColsampleBytree <= 0 || p.ColsampleBytree > 1:
		return errors.NewValidationError("colsample_bytree", "must be in (0, 1]", p.ColsampleBytree)
	case p.MaxBin < 2:
		return errors.NewValidationError("max_bin", "must be at least 2", p.MaxBin)
	}
	_, err := objectiveFor(p.Objective)
	return err
}

// objectiveFor maps a LightGBM objective name to a tree objective.
func objectiveFor(name string) (tree.Objective, error) {
	switch name {
	case ObjectiveRegression, ObjectiveRegressionL2, "l2", "mse":
		return tree.SquaredError{}, nil
	case ObjectiveRegressionL1, "l1", "mae":
		return tree.AbsoluteError{}, nil
	case ObjectiveHuber:
		return tree.Huber{Delta: 1.0}, nil
	case ObjectiveMAPE:
		return tree.PercentageError{}, nil
	default:
		return nil, errors.NewValidationError("objective",
			"must be one of regression, regression_l2, regression_l1, huber, mape", name)
	}
}
