package feature_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/model_selection"
)

// Backward is backward elimination. Starting from all features, each round
// scores every single-feature removal and drops the feature whose removal
// scores best, as long as that strictly improves the current score.
type Backward struct {
	selector
}

// NewBackward returns a backward elimination selector.
func NewBackward(est model.Estimator, lossFn loss.Loss, cv model_selection.Splitter, opts Options) *Backward {
	return &Backward{selector: newSelector(StrategyBackward, est, lossFn, cv, opts)}
}

// Fit implements Selector.
func (b *Backward) Fit(X *dataset.Frame, y mat.Matrix) error {
	if err := b.begin(X, y); err != nil {
		return err
	}

	current := X.Columns()
	currentScore, err := b.score(0, "", current)
	if err != nil {
		return err
	}
	b.accept(0)

	for iter := 1; len(current) > 1; iter++ {
		first := len(b.steps)
		scores := make([]float64, len(current))
		for i, feature := range current {
			if scores[i], err = b.score(iter, feature, without(current, i)); err != nil {
				return err
			}
		}

		idx, best := loss.Best(b.lossFn, scores)
		if idx < 0 || !loss.IsBetter(b.lossFn, best, currentScore) {
			break
		}
		b.accept(first + idx)
		current = without(current, idx)
		currentScore = best
	}

	b.finish(current, currentScore)
	return nil
}

// FitTransform fits and returns X restricted to the selected columns.
func (b *Backward) FitTransform(X *dataset.Frame, y mat.Matrix) (*dataset.Frame, error) {
	if err := b.Fit(X, y); err != nil {
		return nil, err
	}
	return b.Transform(X)
}
