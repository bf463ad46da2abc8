// Package lightgbm はヒストグラムベース・葉ごと成長 (leaf-wise) の勾配ブースティング回帰を提供します。
//
// LightGBM の scikit-learn API と同じハイパーパラメータ名を使います。
//
//	reg := lightgbm.NewRegressor()
//	_ = reg.SetParams(map[string]interface{}{"n_estimators": 200, "num_leaves": 40})
//	err := reg.Fit(X, y)
//	pred, err := reg.Predict(Xtest)
package lightgbm

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

const modelName = "LGBMRegressor"

// 勾配計算を並列化する行数の閾値
const parallelThreshold = 4096

// Regressor is a LightGBM-style gradient boosted tree regressor.
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

// Fit はモデルを訓練データで学習させる
func (r *Regressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "lightgbm.Fit")

	n, p := X.Dims()
	yRows, yCols := y.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("lightgbm.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != n {
		return errors.NewDimensionError("lightgbm.Fit", n, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("lightgbm.Fit", "y must be a column vector")
	}
	if err := errors.CheckMatrix("lightgbm.Fit", X, n, p); err != nil {
		return err
	}
	if err := errors.CheckMatrix("lightgbm.Fit", y, n, 1); err != nil {
		return err
	}
	if err := r.Params.validate(); err != nil {
		return err
	}
	if len(r.Names) > 0 && len(r.Names) != p {
		return errors.NewDimensionError("lightgbm.Fit", len(r.Names), p, 1)
	}

	r.Reset()
	params := r.Params
	obj, _ := objectiveFor(params.Objective)
	renewer, renew := obj.(tree.LeafRenewer)

	Xd := mat.DenseCopyOf(X)
	target := mat.Col(nil, 0, y)

	g := &grower{
		params: params,
		bins:   make([][]uint16, p),
		bounds: make([][]float64, p),
		grad:   make([]float64, n),
		hess:   make([]float64, n),
	}
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, Xd)
		g.bounds[j] = findBinBounds(col, params.MaxBin)
		g.bins[j] = binColumn(col, g.bounds[j])
	}

	seed := uint64(params.RandomState)
	rng := rand.New(rand.NewPCG(seed, seed))

	ens := tree.Ensemble{BaseScore: obj.InitScore(target), NFeatures: p}
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = ens.BaseScore
	}

	bag := allRows(n)
	for iter := 0; iter < params.NEstimators; iter++ {
		parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
			for i := start; i < end; i++ {
				g.grad[i], g.hess[i] = obj.Gradient(pred[i], target[i])
			}
		})

		if params.Subsample < 1 && params.SubsampleFreq > 0 && iter%params.SubsampleFreq == 0 {
			bag = sampleSorted(rng, n, params.Subsample)
		}
		g.features = sampleSorted(rng, p, params.ColsampleBytree)

		t, leafRows := g.grow(bag)
		if len(t.Nodes) == 1 {
			// これ以上分割できない
			break
		}
		if renew {
			for node, rows := range leafRows {
				residuals := make([]float64, len(rows))
				targets := make([]float64, len(rows))
				for k, i := range rows {
					residuals[k] = target[i] - pred[i]
					targets[k] = target[i]
				}
				t.Nodes[node].Value = renewer.RenewLeaf(residuals, targets)
			}
		}
		t.ScaleLeaves(params.LearningRate)
		if err := checkLeaves(&t, iter); err != nil {
			return err
		}

		parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
			for i := start; i < end; i++ {
				pred[i] += t.PredictRow(Xd.RawRowView(i))
			}
		})
		ens.Trees = append(ens.Trees, t)
	}

	r.Ensemble = ens
	r.SetDimensions(p, n)
	r.SetFitted()
	return nil
}

func checkLeaves(t *tree.Tree, iter int) error {
	values := make([]float64, 0, len(t.Nodes))
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			values = append(values, t.Nodes[i].Value)
		}
	}
	return errors.CheckNumericalStability("lightgbm.leaf_output", values, iter)
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// sampleSorted draws max(1, round(fraction*n)) distinct indices without
// replacement and returns them in ascending order. fraction >= 1 returns all.
func sampleSorted(rng *rand.Rand, n int, fraction float64) []int {
	if fraction >= 1 {
		return allRows(n)
	}
	k := int(fraction*float64(n) + 0.5)
	if k < 1 {
		k = 1
	}
	idx := rng.Perm(n)[:k]
	sort.Ints(idx)
	return idx
}

// Predict は入力データに対する予測を行う
func (r *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.RequireFitted(modelName, "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := r.CheckFeatures("lightgbm.Predict", cols); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, errors.NewModelError("lightgbm.Predict", "empty data", errors.ErrEmptyData)
	}
	return r.Ensemble.Predict(X), nil
}

// GetParams implements model.Estimator.
func (r *Regressor) GetParams() map[string]interface{} {
	return r.Params.toMap()
}

// SetParams accepts the scikit-learn names and the common LightGBM aliases
// (e.g. num_iterations, feature_fraction). Nothing is changed on error.
func (r *Regressor) SetParams(params map[string]interface{}) error {
	next, err := r.Params.apply(params)
	if err != nil {
		return err
	}
	r.Params = next
	return nil
}

// Clone implements model.Estimator.
func (r *Regressor) Clone() model.Estimator {
	return &Regressor{Params: r.Params}
}

// SetFeatureNames records feature names. Names must only contain
// [A-Za-z0-9_].
func (r *Regressor) SetFeatureNames(names []string) error {
	for _, name := range names {
		if !dataset.IsSanitized(name) {
			return errors.NewValidationError("feature_names",
				"LightGBM does not support special JSON characters in feature name", name)
		}
	}
	r.Names = append([]string(nil), names...)
	return nil
}

// FeatureNames implements model.FeatureNamer.
func (r *Regressor) FeatureNames() []string {
	return append([]string(nil), r.Names...)
}

// NumTrees returns the number of boosted trees.
func (r *Regressor) NumTrees() int {
	return len(r.Ensemble.Trees)
}

// FeatureImportance returns per-feature importance, "split" or "gain".
func (r *Regressor) FeatureImportance(kind string) ([]float64, error) {
	if err := r.RequireFitted(modelName, "FeatureImportance"); err != nil {
		return nil, err
	}
	return r.Ensemble.FeatureImportance(kind), nil
}

// String はモデルの文字列表現を返す
func (r *Regressor) String() string {
	return fmt.Sprintf("LGBMRegressor(%s)", model.FormatParams(r.GetParams()))
}
