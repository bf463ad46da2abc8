package feature_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/model_selection"
)

// Forward is forward construction. Starting from no features, each round
// scores adding every remaining feature and keeps the best addition. The
// first addition is always accepted since an empty subset cannot be scored;
// later ones only on strict improvement. Options.MaxFeatures caps the size.
type Forward struct {
	selector
}

// NewForward returns a forward construction selector.
func NewForward(est model.Estimator, lossFn loss.Loss, cv model_selection.Splitter, opts Options) *Forward {
	return &Forward{selector: newSelector(StrategyForward, est, lossFn, cv, opts)}
}

// Fit implements Selector.
func (f *Forward) Fit(X *dataset.Frame, y mat.Matrix) error {
	if err := f.begin(X, y); err != nil {
		return err
	}

	columns := X.Columns()
	selected := map[string]bool{}
	remaining := columns
	currentScore := loss.Worst(f.lossFn)

	for iter := 1; len(remaining) > 0; iter++ {
		if f.opts.MaxFeatures > 0 && len(selected) >= f.opts.MaxFeatures {
			break
		}

		first := len(f.steps)
		scores := make([]float64, len(remaining))
		for i, c := range remaining {
			trial := map[string]bool{c: true}
			for k := range selected {
				trial[k] = true
			}
			s, err := f.score(iter, c, inColumnOrder(columns, trial))
			if err != nil {
				return err
			}
			scores[i] = s
		}

		idx, best := loss.Best(f.lossFn, scores)
		if idx < 0 || (iter > 1 && !loss.IsBetter(f.lossFn, best, currentScore)) {
			break
		}
		f.accept(first + idx)
		selected[remaining[idx]] = true
		remaining = without(remaining, idx)
		currentScore = best
	}

	f.finish(inColumnOrder(columns, selected), currentScore)
	return nil
}

// FitTransform fits and returns X restricted to the selected columns.
func (f *Forward) FitTransform(X *dataset.Frame, y mat.Matrix) (*dataset.Frame, error) {
	if err := f.Fit(X, y); err != nil {
		return nil, err
	}
	return f.Transform(X)
}
