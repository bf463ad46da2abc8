package lightgbm

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// y = 0 (x < 50), 10 (x >= 50)
func stepData() (*mat.Dense, *mat.Dense) {
	n := 100
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		if i >= 50 {
			y.Set(i, 0, 10)
		}
	}
	return X, y
}

func randomData(n, p int, seed uint64) (*mat.Dense, *mat.Dense) {
	r := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, p, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			X.Set(i, j, r.Float64()*10)
		}
		y.Set(i, 0, 2*X.At(i, 0)+math.Sin(X.At(i, 1))+0.1*r.NormFloat64())
	}
	return X, y
}

func predictAt(t *testing.T, reg *Regressor, x float64) float64 {
	t.Helper()
	pred, err := reg.Predict(mat.NewDense(1, 1, []float64{x}))
	require.NoError(t, err)
	return pred.At(0, 0)
}

func TestRegressorLearnsStep(t *testing.T) {
	X, y := stepData()
	reg := NewRegressor()
	require.NoError(t, reg.Fit(X, y))

	assert.InDelta(t, 0.0, predictAt(t, reg, 10), 0.05)
	assert.InDelta(t, 10.0, predictAt(t, reg, 90), 0.05)
	assert.Greater(t, reg.NumTrees(), 0)
	assert.LessOrEqual(t, reg.NumTrees(), 100)
	assert.InDelta(t, 5.0, reg.Ensemble.BaseScore, 1e-12)
}

func TestRegressorConstantTargetStopsEarly(t *testing.T) {
	X, _ := stepData()
	y := mat.NewDense(100, 1, nil)
	for i := 0; i < 100; i++ {
		y.Set(i, 0, 7)
	}

	reg := NewRegressor()
	require.NoError(t, reg.Fit(X, y))
	assert.Equal(t, 0, reg.NumTrees())
	assert.Equal(t, 7.0, predictAt(t, reg, 42))
}

func TestL1ObjectiveIgnoresOutlier(t *testing.T) {
	X, y := stepData()
	y.Set(99, 0, 1000)

	l2 := NewRegressor()
	require.NoError(t, l2.Fit(X, y))

	l1 := NewRegressor()
	require.NoError(t, l1.SetParams(map[string]interface{}{"objective": ObjectiveRegressionL1}))
	require.NoError(t, l1.Fit(X, y))

	assert.Greater(t, predictAt(t, l2, 90), 20.0)
	assert.InDelta(t, 10.0, predictAt(t, l1, 90), 0.1)
	assert.InDelta(t, 0.0, predictAt(t, l1, 10), 0.1)
}

func TestRegressorSamplingIsDeterministic(t *testing.T) {
	X, y := randomData(300, 4, 7)
	params := map[string]interface{}{
		"n_estimators":     30,
		"subsample":        0.7,
		"subsample_freq":   1,
		"colsample_bytree": 0.5,
		"random_state":     3,
	}

	fit := func() mat.Matrix {
		reg := NewRegressor()
		require.NoError(t, reg.SetParams(params))
		require.NoError(t, reg.Fit(X, y))
		pred, err := reg.Predict(X)
		require.NoError(t, err)
		return pred
	}

	assert.True(t, mat.Equal(fit(), fit()))
}

func TestRegressorFitsSmoothSignal(t *testing.T) {
	X, y := randomData(400, 3, 11)
	reg := NewRegressor()
	require.NoError(t, reg.Fit(X, y))

	pred, err := reg.Predict(X)
	require.NoError(t, err)

	var sse, sst, mean float64
	for i := 0; i < 400; i++ {
		mean += y.At(i, 0) / 400
	}
	for i := 0; i < 400; i++ {
		d := y.At(i, 0) - pred.At(i, 0)
		sse += d * d
		m := y.At(i, 0) - mean
		sst += m * m
	}
	assert.Greater(t, 1-sse/sst, 0.9)

	imp, err := reg.FeatureImportance("gain")
	require.NoError(t, err)
	assert.Greater(t, imp[0], imp[2])
}

func TestMaxDepthAndNumLeavesBoundTrees(t *testing.T) {
	X, y := randomData(500, 3, 5)
	reg := NewRegressor()
	require.NoError(t, reg.SetParams(map[string]interface{}{
		"n_estimators":      10,
		"num_leaves":        8,
		"max_depth":         2,
		"min_child_samples": 5,
	}))
	require.NoError(t, reg.Fit(X, y))

	for i := range reg.Ensemble.Trees {
		tr := &reg.Ensemble.Trees[i]
		assert.LessOrEqual(t, tr.NumLeaves(), 4)
		assert.LessOrEqual(t, tr.Depth(), 2)
	}
}

func TestSetParams(t *testing.T) {
	reg := NewRegressor()

	require.NoError(t, reg.SetParams(map[string]interface{}{
		"num_iterations":   5,
		"feature_fraction": 0.8,
		"learning_rate":    0.05,
	}))
	got := reg.GetParams()
	assert.Equal(t, 5, got["n_estimators"])
	assert.Equal(t, 0.8, got["colsample_bytree"])
	assert.Equal(t, 0.05, got["learning_rate"])

	err := reg.SetParams(map[string]interface{}{"n_estimators": 50, "bogus": 1})
	var vErr *errors.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 5, reg.Params.NEstimators, "failed SetParams must not change anything")

	tests := []map[string]interface{}{
		{"subsample": 1.5},
		{"num_leaves": 1},
		{"objective": "poisson"},
		{"learning_rate": 0.0},
	}
	for _, params := range tests {
		assert.Error(t, reg.SetParams(params), "%v", params)
	}
	assert.Equal(t, ObjectiveRegression, reg.Params.Objective)
}

func TestRegressorErrors(t *testing.T) {
	reg := NewRegressor()
	_, err := reg.Predict(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, y := stepData()
	require.NoError(t, reg.Fit(X, y))
	_, err = reg.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	bad := mat.DenseCopyOf(X)
	bad.Set(3, 0, math.NaN())
	assert.Error(t, NewRegressor().Fit(bad, y))

	assert.Error(t, NewRegressor().Fit(X, mat.NewDense(99, 1, nil)))
}

func TestFeatureNames(t *testing.T) {
	reg := NewRegressor()
	require.NoError(t, reg.SetFeatureNames([]string{"lag_1", "temp_c"}))
	assert.Equal(t, []string{"lag_1", "temp_c"}, reg.FeatureNames())

	assert.Error(t, reg.SetFeatureNames([]string{"price [usd]"}))
	assert.Equal(t, []string{"lag_1", "temp_c"}, reg.FeatureNames())
}

func TestCloneIsUnfitted(t *testing.T) {
	X, y := stepData()
	reg := NewRegressor()
	require.NoError(t, reg.SetParams(map[string]interface{}{"n_estimators": 7}))
	require.NoError(t, reg.Fit(X, y))

	clone := reg.Clone().(*Regressor)
	assert.False(t, clone.IsFitted())
	assert.Equal(t, 7, clone.Params.NEstimators)
	assert.Empty(t, clone.Ensemble.Trees)
}

func TestRegressorPersistence(t *testing.T) {
	X, y := randomData(200, 2, 9)
	reg := NewRegressor()
	require.NoError(t, reg.SetParams(map[string]interface{}{"n_estimators": 20}))
	require.NoError(t, reg.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(reg, &buf))

	var loaded Regressor
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))
	assert.True(t, loaded.IsFitted())

	want, err := reg.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestFindBinBounds(t *testing.T) {
	bounds := findBinBounds([]float64{3, 1, 2, 2, 1}, 255)
	assert.Equal(t, []float64{1.5, 2.5, math.Inf(1)}, bounds)
	assert.Equal(t, []uint16{2, 0, 1, 1, 0}, binColumn([]float64{3, 1, 2, 2, 1}, bounds))

	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i)
	}
	bounds = findBinBounds(values, 16)
	assert.LessOrEqual(t, len(bounds), 16)
	assert.True(t, math.IsInf(bounds[len(bounds)-1], 1))
	assert.Equal(t, []float64{math.Inf(1)}, findBinBounds([]float64{4, 4, 4}, 255))
}
