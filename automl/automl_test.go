package automl

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/loss"
	"github.com/YuminosukeSato/automl/model_selection"
	"github.com/YuminosukeSato/automl/models"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// offsetModel predicts the training mean plus offset. fail and panics make
// Fit misbehave.
type offsetModel struct {
	offset float64
	fail   bool
	panics bool
	mean   float64
	fitted bool
}

func (m *offsetModel) Fit(_, y mat.Matrix) error {
	if m.panics {
		panic("boom")
	}
	if m.fail {
		return errors.New("fit exploded")
	}
	r, _ := y.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		sum += y.At(i, 0)
	}
	m.mean = sum / float64(r)
	m.fitted = true
	return nil
}

func (m *offsetModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !m.fitted {
		return nil, errors.NewNotFittedError("offsetModel", "Predict")
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, m.mean+m.offset)
	}
	return out, nil
}

func (m *offsetModel) GetParams() map[string]interface{} {
	return map[string]interface{}{"offset": m.offset}
}

func (m *offsetModel) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		if k != "offset" {
			return model.UnknownParam("offsetModel", k, []string{"offset"})
		}
		f, err := model.ParamFloat(k, v)
		if err != nil {
			return err
		}
		m.offset = f
	}
	return nil
}

func (m *offsetModel) Clone() model.Estimator {
	return &offsetModel{offset: m.offset, fail: m.fail, panics: m.panics}
}

type offsetConfig struct {
	name   string
	offset float64
	fail   bool
	panics bool
	built  *atomic.Int64
}

func (c *offsetConfig) Name() string { return c.name }

func (c *offsetConfig) NewModel(_ loss.Loss, params map[string]interface{}) (model.Estimator, error) {
	if c.built != nil {
		c.built.Add(1)
	}
	m := &offsetModel{offset: c.offset, fail: c.fail, panics: c.panics}
	if err := m.SetParams(params); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *offsetConfig) ParamGrid(string) *model_selection.ParamSpace {
	return model_selection.NewParamSpace().Add("offset", 0.0, 1.0)
}

func registryOf(configs ...models.Config) *models.Registry {
	r := models.NewRegistry(nil)
	for _, c := range configs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// linearFrame returns n rows of y = 2*x0 - 3*x1 + noise with an unused x2.
func linearFrame(t *testing.T, n int, columns []string) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 11))
	x0, x1, x2, y := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		x0[i] = rng.Float64() * 10
		x1[i] = rng.Float64() * 10
		x2[i] = rng.Float64() * 10
		y[i] = 2*x0[i] - 3*x1[i] + rng.NormFloat64()*0.1
	}
	df, err := dataset.FromColumns(columns, [][]float64{x0, x1, x2, y})
	require.NoError(t, err)
	return df
}

// constFrame has random features and a constant target of 5, so the MAE of
// an offsetModel is exactly |offset|.
func constFrame(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewPCG(3, 5))
	cols := make([][]float64, 4)
	for j := range cols {
		cols[j] = make([]float64, n)
		for i := range cols[j] {
			cols[j][i] = rng.Float64()
		}
	}
	for i := range cols[3] {
		cols[3][i] = 5
	}
	df, err := dataset.FromColumns([]string{"x0", "x1", "x2", "y"}, cols)
	require.NoError(t, err)
	return df
}

func baseOptions() Options {
	opts := DefaultOptions()
	opts.TargetColumn = "y"
	opts.Loss = loss.MAE()
	opts.NSplits = 3
	return opts
}

func TestRunEndToEnd(t *testing.T) {
	df := linearFrame(t, 100, []string{"x0", "x1", "x2", "y"})
	logger, _ := log.NewTestLogger(log.LevelInfo)
	aml := New(models.DefaultRegistry(logger), WithLogger(logger))

	res, err := aml.Run(df, baseOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"linear_regression", "lightgbm", "xgboost"}, res.Order)
	assert.Equal(t, DataInfo{
		TrainSize:        80,
		TestSize:         20,
		OriginalFeatures: 3,
		ModelsTrained:    3,
		NSplits:          3,
		TestSplit:        0.2,
	}, res.DataInfo)
	assert.Equal(t, "mae", res.Loss)
	assert.NotEmpty(t, res.RunID)

	best := res.Best()
	require.NotNil(t, best)
	for _, name := range res.Order {
		rr := res.Models[name]
		require.False(t, rr.Failed(), "%s: %s", name, rr.Err)
		require.NotNil(t, rr.Metrics)
		assert.GreaterOrEqual(t, rr.Metrics.TestLoss, best.Metrics.TestLoss)
		assert.Equal(t, []string{"x0", "x1", "x2"}, rr.SelectedFeatures)
		assert.Equal(t, 3, rr.NFeaturesSelected)
		assert.Nil(t, rr.CVScore)
		assert.Nil(t, rr.Selector)
		assert.Empty(t, rr.Params)
	}
	// 線形の真のモデルなので線形回帰が最良になる
	assert.Equal(t, "linear_regression", res.BestModel)
	assert.Less(t, best.Metrics.TestLoss, 0.2)
	assert.Greater(t, best.Metrics.TestR2, 0.99)

	got, err := aml.BestModel()
	require.NoError(t, err)
	assert.Same(t, best, got)
	assert.Same(t, res, aml.Results())

	assert.Equal(t, 3, logger.CountMessages("Model training completed"))
	assert.True(t, logger.ContainsField(log.RunIDKey, res.RunID))
	assert.True(t, logger.ContainsField("best_model", "linear_regression"))
}

func TestRunIsolatesFailingModels(t *testing.T) {
	df := constFrame(t, 60)
	logger, _ := log.NewTestLogger(log.LevelInfo)
	aml := New(registryOf(
		&offsetConfig{name: "far", offset: 5},
		&offsetConfig{name: "broken", fail: true},
		&offsetConfig{name: "near", offset: 1},
		&offsetConfig{name: "panicky", panics: true},
	), WithLogger(logger))

	res, err := aml.Run(df, baseOptions())
	require.NoError(t, err)

	assert.Len(t, res.Successful(), 2)
	require.Len(t, res.Failed(), 2)
	assert.Contains(t, res.Models["broken"].Err, "fit exploded")
	assert.Contains(t, res.Models["panicky"].Err, "boom")
	assert.Nil(t, res.Models["broken"].Metrics)
	assert.Equal(t, "near", res.BestModel)
	assert.Equal(t, map[string]string{
		"broken":  res.Models["broken"].Err,
		"panicky": res.Models["panicky"].Err,
	}, res.Failures())

	assert.Equal(t, 2, logger.CountMessages("Model training failed"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "panicky"))
}

func TestRunBestModelDirection(t *testing.T) {
	df := constFrame(t, 60)
	// 予測値の平均が大きいほど良いという人工的な指標
	meanPred := loss.New("mean_prediction", true, func(_, yPred []float64) (float64, error) {
		var s float64
		for _, v := range yPred {
			s += v
		}
		return s / float64(len(yPred)), nil
	})
	reg := registryOf(
		&offsetConfig{name: "low", offset: -1},
		&offsetConfig{name: "high", offset: 3},
		&offsetConfig{name: "high_again", offset: 3},
	)

	opts := baseOptions()
	opts.Loss = meanPred
	res, err := New(reg).Run(df, opts)
	require.NoError(t, err)
	assert.Equal(t, "high", res.BestModel)

	opts.Loss = loss.MAE()
	res, err = New(reg).Run(df, opts)
	require.NoError(t, err)
	assert.Equal(t, "low", res.BestModel)
}

func TestRunAllModelsFail(t *testing.T) {
	df := constFrame(t, 60)
	aml := New(registryOf(
		&offsetConfig{name: "a", fail: true},
		&offsetConfig{name: "b", panics: true},
	))

	res, err := aml.Run(df, baseOptions())
	require.Error(t, err)
	assert.Nil(t, res)

	var noValid *errors.NoValidModelError
	require.True(t, errors.As(err, &noValid))
	assert.Len(t, noValid.Failures, 2)
	assert.Contains(t, noValid.Failures["a"], "fit exploded")

	partial := aml.Results()
	require.NotNil(t, partial)
	assert.Len(t, partial.Failed(), 2)
	assert.Empty(t, partial.BestModel)

	_, err = aml.BestModel()
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))
	_, err = aml.Bundle()
	assert.True(t, errors.As(err, &notFitted))
}

func TestRunConfigurationErrors(t *testing.T) {
	df := constFrame(t, 20)
	onlyTarget, err := df.Select([]string{"y"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		data   *dataset.Frame
		modify func(*Options)
		field  string
	}{
		{"nil loss", df, func(o *Options) { o.Loss = nil }, "loss_fn"},
		{"no target", df, func(o *Options) { o.TargetColumn = "" }, "target_column"},
		{"missing target", df, func(o *Options) { o.TargetColumn = "price" }, "target_column"},
		{"missing date column", df, func(o *Options) { o.DateColumn = "date" }, "date_column"},
		{"unknown selection", df, func(o *Options) { o.FeatureSelection = "stepwise" }, "feature_selection_strategy"},
		{"unknown tuning", df, func(o *Options) { o.Tuning = "bayesian" }, "hypertuning_strategy"},
		{"one split", df, func(o *Options) { o.NSplits = 1 }, "n_splits"},
		{"zero test split", df, func(o *Options) { o.TestSplit = 0 }, "test_split"},
		{"zero test rows", df, func(o *Options) { o.TestSplit = 1e-18 }, "test_split"},
		{"whole data as test", df, func(o *Options) { o.TestSplit = 1 }, "test_split"},
		{"negative max features", df, func(o *Options) { o.MaxFeatures = -1 }, "max_features"},
		{"too few rows for cv", df, func(o *Options) { o.NSplits = 16; o.Tuning = "grid" }, "n_splits"},
		{"no feature columns", onlyTarget, func(*Options) {}, "features"},
		{"no rows", nil, func(*Options) {}, "data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built := &atomic.Int64{}
			aml := New(registryOf(&offsetConfig{name: "m", built: built}))
			opts := baseOptions()
			tt.modify(&opts)

			_, err := aml.Run(tt.data, opts)
			var cfgErr *errors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Zero(t, built.Load(), "no model may be built before validation passes")
			assert.Nil(t, aml.Results())
		})
	}

	// 探索なしなら CV の分割数は学習行数に制約されない
	opts := baseOptions()
	opts.NSplits = 16
	_, err = New(registryOf(&offsetConfig{name: "m"})).Run(df, opts)
	assert.NoError(t, err)
}

func TestRunUnknownModel(t *testing.T) {
	df := linearFrame(t, 20, []string{"x0", "x1", "x2", "y"})
	opts := baseOptions()
	opts.ModelsToRun = []string{"linear_regression", "catboost"}

	_, err := New(models.DefaultRegistry(nil)).Run(df, opts)
	var notFound *errors.ModelNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "catboost", notFound.Name)
}

func TestRunModelsSubsetAndDateColumn(t *testing.T) {
	n := 50
	df := linearFrame(t, n, []string{"x0", "x1", "x2", "y"})
	// 日付は逆順に並べる。並べ替え後は元の末尾の行が先頭に来る
	date := make([]float64, n)
	for i := range date {
		date[i] = float64(n - i)
	}
	cols := make([][]float64, 0, 5)
	for _, c := range df.Columns() {
		v, err := df.Col(c)
		require.NoError(t, err)
		cols = append(cols, v)
	}
	withDate, err := dataset.FromColumns(append(df.Columns(), "date"), append(cols, date))
	require.NoError(t, err)

	opts := baseOptions()
	opts.DateColumn = "date"
	opts.ModelsToRun = []string{"linear_regression"}
	res, err := New(models.DefaultRegistry(nil)).Run(withDate, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"linear_regression"}, res.Order)
	assert.Equal(t, 3, res.DataInfo.OriginalFeatures)
	assert.Equal(t, []string{"x0", "x1", "x2"}, res.Best().SelectedFeatures)
	assert.NotContains(t, res.Best().SelectedFeatures, "date")
}

func TestRunWithSelectionAndTuning(t *testing.T) {
	df := linearFrame(t, 80, []string{"x-0", "x 1", "x2", "y"})
	opts := baseOptions()
	opts.ModelsToRun = []string{"linear_regression"}
	opts.FeatureSelection = "Forward"
	opts.MaxFeatures = 2
	opts.Tuning = "grid"
	opts.ConfigHash = "abc123"

	aml := New(models.DefaultRegistry(nil))
	res, err := aml.Run(df, opts)
	require.NoError(t, err)
	assert.True(t, res.DataInfo.FeatureSelectionUsed)
	assert.True(t, res.DataInfo.HypertuningUsed)

	rr := res.Best()
	require.NotNil(t, rr)
	assert.Equal(t, []string{"x-0", "x 1"}, rr.SelectedFeatures)
	assert.Equal(t, []string{"x_0", "x_1"}, rr.SanitizedFeatures)
	assert.Equal(t, 2, rr.NFeaturesSelected)
	assert.Equal(t, 3, rr.OriginalFeatures)
	require.NotNil(t, rr.Selector)
	require.NotNil(t, rr.CVScore)
	assert.Contains(t, rr.Params, "model_type")
	assert.Contains(t, rr.Params, "alpha")

	bundle, err := aml.Bundle()
	require.NoError(t, err)
	require.NotNil(t, bundle.Selector)
	assert.Equal(t, "forward", bundle.Selector.Strategy)
	assert.Equal(t, []string{"x-0", "x 1"}, bundle.Selector.Selected)
	assert.Equal(t, "abc123", bundle.Metadata.ConfigHash)
	assert.Equal(t, *rr.CVScore, *bundle.Metadata.CVScore)
	assert.Equal(t, "y", bundle.TargetColumn)
}

func TestBundlePredictAndPersistence(t *testing.T) {
	df := linearFrame(t, 100, []string{"x0", "x1", "x2", "y"})
	opts := baseOptions()

	for _, name := range []string{"linear_regression", "lightgbm", "xgboost"} {
		t.Run(name, func(t *testing.T) {
			opts.ModelsToRun = []string{name}
			aml := New(models.DefaultRegistry(nil))
			res, err := aml.Run(df, opts)
			require.NoError(t, err)

			bundle, err := aml.Bundle()
			require.NoError(t, err)
			assert.Equal(t, name, bundle.Metadata.ModelName)
			assert.Equal(t, res.RunID, bundle.Metadata.RunID)
			assert.Equal(t, *res.Best().Metrics, bundle.Metadata.Metrics)

			test, err := df.Slice(80, 100)
			require.NoError(t, err)
			pred, err := bundle.Predict(test)
			require.NoError(t, err)

			yTest, err := test.Col("y")
			require.NoError(t, err)
			mae, err := loss.MAE().Evaluate(yTest, mat.Col(nil, 0, pred))
			require.NoError(t, err)
			assert.InDelta(t, res.Best().Metrics.TestLoss, mae, 1e-9)

			var buf bytes.Buffer
			require.NoError(t, SaveBundle(&buf, bundle))
			loaded, err := LoadBundle(&buf)
			require.NoError(t, err)
			assert.Equal(t, bundle.FeatureColumns, loaded.FeatureColumns)
			assert.Empty(t, loaded.Metadata.Params)

			again, err := loaded.Predict(test)
			require.NoError(t, err)
			assert.InDeltaSlice(t, mat.Col(nil, 0, pred), mat.Col(nil, 0, again), 1e-12)
		})
	}
}

func TestBundlePredictMissingColumn(t *testing.T) {
	df := linearFrame(t, 40, []string{"x0", "x1", "x2", "y"})
	aml := New(models.DefaultRegistry(nil))
	opts := baseOptions()
	opts.ModelsToRun = []string{"linear_regression"}
	_, err := aml.Run(df, opts)
	require.NoError(t, err)

	bundle, err := aml.Bundle()
	require.NoError(t, err)
	partial, err := df.Select([]string{"x0", "x1"})
	require.NoError(t, err)
	_, err = bundle.Predict(partial)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))

	_, err = (&Bundle{}).Predict(df)
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))
}

func TestResultsJSON(t *testing.T) {
	df := constFrame(t, 60)
	aml := New(registryOf(
		&offsetConfig{name: "ok", offset: 1},
		&offsetConfig{name: "broken", fail: true},
	))
	res, err := aml.Run(df, baseOptions())
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "ok", decoded["best_model"])

	entries := decoded["models"].(map[string]interface{})
	broken := entries["broken"].(map[string]interface{})
	assert.Len(t, broken, 2)
	assert.Equal(t, "broken", broken["model_name"])
	assert.Contains(t, broken["error"], "fit exploded")

	ok := entries["ok"].(map[string]interface{})
	assert.NotContains(t, ok, "error")
	metrics := ok["metrics"].(map[string]interface{})
	assert.InDelta(t, res.Models["ok"].Metrics.TestLoss, metrics["test_loss"].(float64), 1e-12)
	assert.NotContains(t, ok, "cv_score")
}

func TestComputeMetricsRejectsNonFiniteLoss(t *testing.T) {
	nanLoss := loss.New("nan", false, func(_, _ []float64) (float64, error) { return math.NaN(), nil })
	y := mat.NewDense(2, 1, []float64{1, 2})
	_, err := computeMetrics(nanLoss, y, y, y, y)
	var numErr *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &numErr))
}
