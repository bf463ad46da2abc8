package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/loss"
)

// GridSearch scores every point of the Cartesian product exactly once, in
// enumeration order. Ties keep the earlier point.
type GridSearch struct {
	search
}

// NewGridSearch returns a grid search over space.
func NewGridSearch(est model.Estimator, lossFn loss.Loss, space *ParamSpace, cv Splitter, opts TunerOptions) *GridSearch {
	return &GridSearch{search: newSearch(StrategyGrid, est, lossFn, space, cv, opts)}
}

// Fit implements Tuner.
func (g *GridSearch) Fit(X, y mat.Matrix) error {
	grid, err := g.space.Grid()
	if err != nil {
		return err
	}
	if err := g.begin(X, y, len(grid)); err != nil {
		return err
	}
	for _, params := range grid {
		if _, err := g.score(params); err != nil {
			return err
		}
	}
	g.finish()
	return nil
}
