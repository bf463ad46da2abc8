package preprocessing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	s := NewStandardScalerDefault()
	Xs, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, 1.118033988749895, s.Scale[0], 1e-12)
	// 定数列はスケール 1 のまま平均だけ引かれる
	assert.Equal(t, 1.0, s.Scale[1])
	for i := 0; i < 4; i++ {
		assert.Equal(t, 0.0, Xs.At(i, 1))
	}

	back, err := s.InverseTransform(Xs)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScalerDefault()

	_, err := s.Transform(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "StandardScaler", nf.ModelName)

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestScaleUsesTrainStatisticsOnly(t *testing.T) {
	train := mat.NewDense(3, 1, []float64{0, 1, 2})
	test := mat.NewDense(2, 1, []float64{100, 101})

	trainS, testS, scaler, err := Scale(train, test)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, scaler.Mean[0], 1e-12)
	assert.InDelta(t, 0.0, trainS.At(1, 0), 1e-12)
	// test は train の平均・標準偏差で変換される
	assert.InDelta(t, (100-1)/scaler.Scale[0], testS.At(0, 0), 1e-9)

	// 呼び出しごとに独立したスケーラーが作られる
	_, _, other, err := Scale(test, train)
	require.NoError(t, err)
	assert.NotEqual(t, scaler.Mean[0], other.Mean[0])
}

func TestScaleWidthMismatch(t *testing.T) {
	_, _, _, err := Scale(mat.NewDense(2, 2, nil), mat.NewDense(2, 3, nil))
	assert.Error(t, err)
}

func TestStandardScalerPersistence(t *testing.T) {
	s := NewStandardScalerDefault()
	require.NoError(t, s.Fit(mat.NewDense(3, 1, []float64{1, 2, 3})))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(s, &buf))

	var loaded StandardScaler
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))
	assert.True(t, loaded.IsFitted())

	out, err := loaded.Transform(mat.NewDense(1, 1, []float64{2}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out.At(0, 0), 1e-12)
}
