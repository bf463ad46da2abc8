package model_selection

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// RandomSearch scores NIter parameter sets drawn from the space. The draws
// depend only on the seed and the space, so identical inputs give identical
// results.
type RandomSearch struct {
	search
}

// NewRandomSearch returns a random search over space.
func NewRandomSearch(est model.Estimator, lossFn loss.Loss, space *ParamSpace, cv Splitter, opts TunerOptions) *RandomSearch {
	return &RandomSearch{search: newSearch(StrategyRandom, est, lossFn, space, cv, opts)}
}

// Fit implements Tuner.
func (r *RandomSearch) Fit(X, y mat.Matrix) error {
	if err := r.begin(X, y, r.opts.NIter); err != nil {
		return err
	}
	r.logger.Debug("Random search seeded", log.RandomSeedKey, r.opts.Seed)

	rng := rand.New(rand.NewPCG(r.opts.Seed, r.opts.Seed))
	for i := 0; i < r.opts.NIter; i++ {
		if _, err := r.score(r.space.Sample(rng)); err != nil {
			return err
		}
	}
	r.finish()
	return nil
}
