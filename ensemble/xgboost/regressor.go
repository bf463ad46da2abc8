// Package xgboost provides an exact-greedy, depth-wise gradient boosted tree
// regressor with XGBoost's regularised objective.
//
// Split gain is ½[G_L²/(H_L+λ) + G_R²/(H_R+λ) − G²/(H+λ)] − γ and the leaf
// weight is −T_α(G)/(H+λ), where T_α is soft thresholding.
package xgboost

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/ensemble/tree"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

const modelName = "XGBRegressor"

const parallelThreshold = 4096

// Regressor is an XGBoost-style gradient boosted tree regressor.
type Regressor struct {
	model.StateManager

	Params   Params
	Ensemble tree.Ensemble
	Names    []string
}

// NewRegressor returns a regressor with DefaultParams.
func NewRegressor() *Regressor {
	return &Regressor{Params: DefaultParams()}
}

// Fit trains the booster.
func (r *Regressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "xgboost.Fit")

	n, p := X.Dims()
	yRows, yCols := y.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("xgboost.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != n {
		return errors.NewDimensionError("xgboost.Fit", n, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("xgboost.Fit", "y must be a column vector")
	}
	if err := errors.CheckMatrix("xgboost.Fit", X, n, p); err != nil {
		return err
	}
	if err := errors.CheckMatrix("xgboost.Fit", y, n, 1); err != nil {
		return err
	}
	if err := r.Params.validate(); err != nil {
		return err
	}
	if len(r.Names) > 0 && len(r.Names) != p {
		return errors.NewDimensionError("xgboost.Fit", len(r.Names), p, 1)
	}

	r.Reset()
	params := r.Params
	obj, _ := params.objective()
	renewer, renew := obj.(tree.LeafRenewer)

	cols := make([][]float64, p)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}
	target := mat.Col(nil, 0, y)
	b := newExactBuilder(params, cols)

	base := params.BaseScore
	if params.AutoBaseScore {
		base = obj.InitScore(target)
	}
	ens := tree.Ensemble{BaseScore: base, NFeatures: p}
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = base
	}

	seed := uint64(params.RandomState)
	rng := rand.New(rand.NewPCG(seed, seed))
	row := make([]float64, p)

	for iter := 0; iter < params.NEstimators; iter++ {
		parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
			for i := start; i < end; i++ {
				b.grad[i], b.hess[i] = obj.Gradient(pred[i], target[i])
			}
		})

		rows := sample(rng, n, params.Subsample)
		features := sample(rng, p, params.ColsampleBytree)

		t, leafRows := b.build(rows, features)
		if len(t.Nodes) == 1 {
			break
		}
		if renew {
			for node, idx := range leafRows {
				residuals := make([]float64, len(idx))
				targets := make([]float64, len(idx))
				for k, i := range idx {
					residuals[k] = target[i] - pred[i]
					targets[k] = target[i]
				}
				t.Nodes[node].Value = renewer.RenewLeaf(residuals, targets)
			}
		}
		t.ScaleLeaves(params.LearningRate)

		leaves := make([]float64, 0, len(t.Nodes))
		for i := range t.Nodes {
			if t.Nodes[i].IsLeaf() {
				leaves = append(leaves, t.Nodes[i].Value)
			}
		}
		if err := errors.CheckNumericalStability("xgboost.leaf_weight", leaves, iter); err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			for j := 0; j < p; j++ {
				row[j] = cols[j][i]
			}
			pred[i] += t.PredictRow(row)
		}
		ens.Trees = append(ens.Trees, t)
	}

	r.Ensemble = ens
	r.SetDimensions(p, n)
	r.SetFitted()
	return nil
}

// sample returns max(1, round(fraction*n)) sorted indices drawn without
// replacement.
func sample(rng *rand.Rand, n int, fraction float64) []int {
	if fraction >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := int(fraction*float64(n) + 0.5)
	if k < 1 {
		k = 1
	}
	idx := rng.Perm(n)[:k]
	sort.Ints(idx)
	return idx
}

// Predict returns an n×1 matrix of predictions.
func (r *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.RequireFitted(modelName, "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := r.CheckFeatures("xgboost.Predict", cols); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, errors.NewModelError("xgboost.Predict", "empty data", errors.ErrEmptyData)
	}
	return r.Ensemble.Predict(X), nil
}

func (r *Regressor) GetParams() map[string]interface{} {
	return r.Params.toMap()
}

// SetParams updates hyperparameters. Nothing is changed on error.
func (r *Regressor) SetParams(params map[string]interface{}) error {
	next, err := r.Params.apply(params)
	if err != nil {
		return err
	}
	r.Params = next
	return nil
}

func (r *Regressor) Clone() model.Estimator {
	return &Regressor{Params: r.Params}
}

// SetFeatureNames records feature names. XGBoost refuses names containing
// '[', ']' or '<'; here every name must match [A-Za-z0-9_].
func (r *Regressor) SetFeatureNames(names []string) error {
	for _, name := range names {
		if !dataset.IsSanitized(name) {
			return errors.NewValidationError("feature_names",
				"feature_names must be string, and may not contain [, ] or <", name)
		}
	}
	r.Names = append([]string(nil), names...)
	return nil
}

func (r *Regressor) FeatureNames() []string {
	return append([]string(nil), r.Names...)
}

// NumTrees returns the number of boosted trees.
func (r *Regressor) NumTrees() int {
	return len(r.Ensemble.Trees)
}

// FeatureImportance returns "gain" (total) or "weight" (split count)
// importance per feature.
func (r *Regressor) FeatureImportance(kind string) ([]float64, error) {
	if err := r.RequireFitted(modelName, "FeatureImportance"); err != nil {
		return nil, err
	}
	if kind == "weight" {
		kind = "split"
	}
	return r.Ensemble.FeatureImportance(kind), nil
}

func (r *Regressor) String() string {
	return fmt.Sprintf("XGBRegressor(%s)", model.FormatParams(r.GetParams()))
}
