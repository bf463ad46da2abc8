package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// LineSearch is a coordinate search: starting from the first value of every
// dimension, it sweeps one dimension at a time with the others fixed and
// adopts the best value when it strictly improves the running score.
//
// The starting point is scored before the first pass, so every pass,
// including the first, has a baseline. A pass without any improvement ends
// the search; otherwise it runs for MaxPasses passes.
type LineSearch struct {
	search
}

// NewLineSearch returns a line search over space.
func NewLineSearch(est model.Estimator, lossFn loss.Loss, space *ParamSpace, cv Splitter, opts TunerOptions) *LineSearch {
	return &LineSearch{search: newSearch(StrategyLine, est, lossFn, space, cv, opts)}
}

// Fit implements Tuner.
func (l *LineSearch) Fit(X, y mat.Matrix) error {
	if !l.space.Enumerable() {
		return errors.NewValidationError("param_space",
			"line search needs point-list dimensions only", l.space.Names())
	}
	estimate := 1
	for _, d := range l.space.Dimensions {
		estimate += len(d.Values) - 1
	}
	if err := l.begin(X, y, estimate*l.opts.MaxPasses); err != nil {
		return err
	}

	current := l.space.Initial()
	currentScore, err := l.score(current)
	if err != nil {
		return err
	}

	for pass := 1; pass <= l.opts.MaxPasses; pass++ {
		improved := false
		for _, d := range l.space.Dimensions {
			bestValue, bestScore, found := d.Values[0], 0.0, false
			for _, v := range d.Values {
				if v == current[d.Name] {
					continue
				}
				// current は書き換えず、候補ごとにコピーを作る
				candidate := model.MergeParams(current, map[string]interface{}{d.Name: v})
				s, err := l.score(candidate)
				if err != nil {
					return err
				}
				if !found || loss.IsBetter(l.lossFn, s, bestScore) {
					bestValue, bestScore, found = v, s, true
				}
			}
			if found && loss.IsBetter(l.lossFn, bestScore, currentScore) {
				current = model.MergeParams(current, map[string]interface{}{d.Name: bestValue})
				currentScore = bestScore
				improved = true
			}
		}

		l.logger.Debug("Line search pass completed",
			log.PassKey, pass,
			log.ScoreKey, currentScore,
			log.HyperParamsKey, model.FormatParams(current),
		)
		if !improved {
			break
		}
	}

	l.finish()
	return nil
}
