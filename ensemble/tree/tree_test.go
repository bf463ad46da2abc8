package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// x0 <= 1.5 → -1, otherwise x1 <= 0 → 2, else 5
func stumpTree() Tree {
	t := NewLeafTree(0, 10)
	left, right := t.Split(0, 0, 1.5, 3.0, 4, 6)
	t.Nodes[left].Value = -1
	rl, rr := t.Split(right, 1, 0, 1.0, 3, 3)
	t.Nodes[rl].Value = 2
	t.Nodes[rr].Value = 5
	return t
}

func TestTreeStructure(t *testing.T) {
	tr := stumpTree()

	assert.Equal(t, 3, tr.NumLeaves())
	assert.Equal(t, 2, tr.Depth())
	assert.False(t, tr.Nodes[0].IsLeaf())

	tests := []struct {
		row  []float64
		want float64
	}{
		{[]float64{1, 10}, -1},
		{[]float64{1.5, 10}, -1},
		{[]float64{2, -1}, 2},
		{[]float64{2, 0}, 2},
		{[]float64{2, 0.1}, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tr.PredictRow(tt.row), "row %v", tt.row)
	}

	tr.ScaleLeaves(0.5)
	assert.Equal(t, 2.5, tr.PredictRow([]float64{3, 3}))
	assert.Equal(t, 0.0, tr.Nodes[0].Value)
}

func TestEnsemblePredict(t *testing.T) {
	ens := Ensemble{BaseScore: 10, Trees: []Tree{stumpTree(), stumpTree()}, NFeatures: 2}
	X := mat.NewDense(3, 2, []float64{
		0, 0,
		2, -1,
		2, 1,
	})

	pred := ens.Predict(X)
	r, c := pred.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 1, c)
	assert.Equal(t, []float64{8, 14, 20}, mat.Col(nil, 0, pred))

	assert.Equal(t, []float64{6, 2}, ens.FeatureImportance("gain"))
	assert.Equal(t, []float64{2, 2}, ens.FeatureImportance("split"))
}

func TestLeafOutput(t *testing.T) {
	tests := []struct {
		name              string
		g, h, lambda, l1  float64
		wantOut, wantGain float64
	}{
		{"newton step", -10, 4, 0, 0, 2.5, 25},
		{"l2", -10, 4, 1, 0, 2, 20},
		{"l1 shrinks", -10, 4, 1, 2, 1.6, 12.8},
		{"l1 zeroes", 1, 4, 0, 2, 0, 0},
		{"no hessian", 3, 0, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantOut, LeafOutput(tt.g, tt.h, tt.lambda, tt.l1), 1e-12)
			assert.InDelta(t, tt.wantGain, LeafGain(tt.g, tt.h, tt.lambda, tt.l1), 1e-12)
		})
	}
}

func TestObjectiveGradients(t *testing.T) {
	tests := []struct {
		name       string
		obj        Objective
		pred, y    float64
		grad, hess float64
	}{
		{"squared", SquaredError{}, 3, 1, 2, 1},
		{"absolute", AbsoluteError{}, 1, 3, -1, 1},
		{"absolute exact", AbsoluteError{}, 2, 2, 0, 1},
		{"huber inside", Huber{Delta: 1}, 0.5, 0, 0.5, 1},
		{"huber outside", Huber{Delta: 1}, 3, 0, 1, 1},
		{"pseudo huber at zero", PseudoHuber{Slope: 1}, 0, 0, 0, 1},
		{"percentage", PercentageError{}, 0, 10, -0.1, 0.1},
		{"percentage small target", PercentageError{}, 1, 0.5, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, h := tt.obj.Gradient(tt.pred, tt.y)
			assert.InDelta(t, tt.grad, g, 1e-12)
			assert.InDelta(t, tt.hess, h, 1e-12)
			assert.GreaterOrEqual(t, tt.obj.Loss(tt.pred, tt.y), 0.0)
		})
	}
}

func TestInitScores(t *testing.T) {
	targets := []float64{1, 2, 3, 100}
	assert.InDelta(t, 26.5, SquaredError{}.InitScore(targets), 1e-12)
	assert.Equal(t, 2.0, AbsoluteError{}.InitScore(targets))
	assert.Equal(t, 0.0, SquaredError{}.InitScore(nil))

	_, ok := Objective(AbsoluteError{}).(LeafRenewer)
	assert.True(t, ok)
	_, ok = Objective(SquaredError{}).(LeafRenewer)
	assert.False(t, ok)
}

func TestWeightedMedian(t *testing.T) {
	assert.Equal(t, 2.0, WeightedMedian([]float64{3, 1, 2}, nil))
	assert.Equal(t, 2.0, WeightedMedian([]float64{4, 3, 2, 1}, nil))
	assert.Equal(t, 3.0, WeightedMedian([]float64{3, 1, 2}, []float64{10, 1, 1}))
	assert.Equal(t, 0.0, WeightedMedian(nil, nil))

	values := []float64{3, 1, 2}
	WeightedMedian(values, nil)
	assert.Equal(t, []float64{3, 1, 2}, values, "input must not be reordered")
}

func TestThresholdL1(t *testing.T) {
	assert.Equal(t, 1.0, ThresholdL1(3, 2))
	assert.Equal(t, -1.0, ThresholdL1(-3, 2))
	assert.Equal(t, 0.0, ThresholdL1(1.5, 2))
	assert.False(t, math.IsNaN(ThresholdL1(0, 0)))
}
