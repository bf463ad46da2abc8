package xgboost

import (
	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/ensemble/tree"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Objectives
const (
	ObjectiveSquaredError    = "reg:squarederror"
	ObjectiveAbsoluteError   = "reg:absoluteerror"
	ObjectivePseudoHuberLoss = "reg:pseudohubererror"
)

// BaseScoreAuto は base_score を目的関数から推定することを表す
const BaseScoreAuto = "auto"

var paramNames = []string{
	"n_estimators", "learning_rate", "max_depth", "min_child_weight",
	"gamma", "reg_lambda", "reg_alpha", "subsample", "colsample_bytree",
	"random_state", "base_score", "huber_slope", "objective",
}

var paramAliases = map[string]string{
	"eta":             "learning_rate",
	"num_boost_round": "n_estimators",
	"min_split_loss":  "gamma",
	"lambda":          "reg_lambda",
	"alpha":           "reg_alpha",
	"seed":            "random_state",
}

// Params are the hyperparameters of a Regressor.
type Params struct {
	NEstimators     int
	LearningRate    float64
	MaxDepth        int // 0 means no limit
	MinChildWeight  float64
	Gamma           float64
	RegLambda       float64
	RegAlpha        float64
	Subsample       float64
	ColsampleBytree float64
	RandomState     int
	// BaseScore is used only when AutoBaseScore is false.
	BaseScore     float64
	AutoBaseScore bool
	HuberSlope    float64
	Objective     string
}

// DefaultParams returns the defaults used by the model search.
func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        6,
		MinChildWeight:  1,
		RegLambda:       1,
		Subsample:       1,
		ColsampleBytree: 1,
		RandomState:     42,
		AutoBaseScore:   true,
		HuberSlope:      1,
		Objective:       ObjectiveSquaredError,
	}
}

func (p Params) toMap() map[string]interface{} {
	var base interface{} = BaseScoreAuto
	if !p.AutoBaseScore {
		base = p.BaseScore
	}
	return map[string]interface{}{
		"n_estimators":     p.NEstimators,
		"learning_rate":    p.LearningRate,
		"max_depth":        p.MaxDepth,
		"min_child_weight": p.MinChildWeight,
		"gamma":            p.Gamma,
		"reg_lambda":       p.RegLambda,
		"reg_alpha":        p.RegAlpha,
		"subsample":        p.Subsample,
		"colsample_bytree": p.ColsampleBytree,
		"random_state":     p.RandomState,
		"base_score":       base,
		"huber_slope":      p.HuberSlope,
		"objective":        p.Objective,
	}
}

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
		case "max_depth":
			p.MaxDepth, err = model.ParamInt(key, v)
		case "min_child_weight":
			p.MinChildWeight, err = model.ParamFloat(key, v)
		case "gamma":
			p.Gamma, err = model.ParamFloat(key, v)
		case "reg_lambda":
			p.RegLambda, err = model.ParamFloat(key, v)
		case "reg_alpha":
			p.RegAlpha, err = model.ParamFloat(key, v)
		case "subsample":
			p.Subsample, err = model.ParamFloat(key, v)
		case "colsample_bytree":
			p.ColsampleBytree, err = model.ParamFloat(key, v)
		case "random_state":
			p.RandomState, err = model.ParamInt(key, v)
		case "base_score":
			if v == nil || v == BaseScoreAuto {
				p.AutoBaseScore = true
				continue
			}
			p.BaseScore, err = model.ParamFloat(key, v)
			p.AutoBaseScore = false
		case "huber_slope":
			p.HuberSlope, err = model.ParamFloat(key, v)
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
	case p.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be non-negative", p.MaxDepth)
	case p.MinChildWeight < 0:
		return errors.NewValidationError("min_child_weight", "must be non-negative", p.MinChildWeight)
	case p.Gamma < 0:
		return errors.NewValidationError("gamma", "must be non-negative", p.Gamma)
	case p.RegLambda < 0:
		return errors.NewValidationError("reg_lambda", "must be non-negative", p.RegLambda)
	case p.RegAlpha < 0:
		return errors.NewValidationError("reg_alpha", "must be non-negative", p.RegAlpha)
	case p.Subsample <= 0 || p.Subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", p.Subsample)
	case p.ColsampleBytree <= 0 || p.ColsampleBytree > 1:
		return errors.NewValidationError("colsample_bytree", "must be in (0, 1]", p.ColsampleBytree)
	case p.HuberSlope <= 0:
		return errors.NewValidationError("huber_slope", "must be positive", p.HuberSlope)
	}
	_, err := p.objective()
	return err
}

func (p Params) objective() (tree.Objective, error) {
	switch p.Objective {
	case ObjectiveSquaredError, "reg:linear":
		return tree.SquaredError{}, nil
	case ObjectiveAbsoluteError:
		return tree.AbsoluteError{}, nil
	case ObjectivePseudoHuberLoss:
		return tree.PseudoHuber{Slope: p.HuberSlope}, nil
	default:
		return nil, errors.NewValidationError("objective",
			"must be one of reg:squarederror, reg:absoluteerror, reg:pseudohubererror", p.Objective)
	}
}
