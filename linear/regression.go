// Package linear は正則化付き線形回帰（OLS / Ridge / Lasso / ElasticNet）を提供します。
package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

const modelName = "LinearRegression"

// Model types
const (
	TypeLinear  = "linear"
	TypeRidge   = "ridge"
	TypeLasso   = "lasso"
	TypeElastic = "elastic"
)

var paramNames = []string{"model_type", "alpha", "l1_ratio", "fit_intercept", "max_iter", "tol"}

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// Regressor は線形回帰モデル
//
// ModelType で損失の正則化項を切り替える:
//   - linear:  最小二乗 (QR分解)
//   - ridge:   (XᵀX + αI)w = Xᵀy (Cholesky分解)
//   - lasso:   座標降下法, 1/(2n)||y-Xw||² + α||w||₁
//   - elastic: 座標降下法, 1/(2n)||y-Xw||² + αρ||w||₁ + α(1-ρ)/2||w||²
type Regressor struct {
	model.StateManager

	// Hyperparameters
	ModelType    string
	Alpha        float64
	L1Ratio      float64
	FitIntercept bool
	MaxIter      int
	Tol          float64

	// Learned state
	Coef      []float64 // 係数
	Intercept float64   // 切片
	NIter     int       // 座標降下法の反復回数 (linear / ridge では 0)
	Names     []string  // 学習時の特徴量名
}

// NewRegressor は新しい線形回帰モデルを作成する
//
// 使用例:
//
//	reg := linear.NewRegressor(linear.WithModelType("ridge"), linear.WithAlpha(10))
//	err := reg.Fit(X, y)
func NewRegressor(opts ...Option) *Regressor {
	r := &Regressor{
		ModelType:    TypeLinear,
		Alpha:        1.0,
		L1Ratio:      0.5,
		FitIntercept: true,
		MaxIter:      2000,
		Tol:          1e-4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fit はモデルを訓練データで学習させる
func (r *Regressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Regressor.Fit")

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("Regressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != nSamples {
		return errors.NewDimensionError("Regressor.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("Regressor.Fit", "y must be a column vector")
	}
	if err := errors.CheckMatrix("Regressor.Fit", X, nSamples, nFeatures); err != nil {
		return err
	}
	if err := errors.CheckMatrix("Regressor.Fit", y, yRows, 1); err != nil {
		return err
	}
	if err := r.validate(); err != nil {
		return err
	}

	r.Reset()
	d := newDesign(X, y, r.FitIntercept)

	var coef []float64
	switch r.ModelType {
	case TypeLinear:
		coef, err = solveLeastSquares(d)
	case TypeRidge:
		coef, err = solveRidge(d, r.Alpha)
	case TypeLasso:
		coef, r.NIter, err = coordinateDescent(d, r.Alpha, 1.0, r.MaxIter, r.Tol)
	case TypeElastic:
		coef, r.NIter, err = coordinateDescent(d, r.Alpha, r.L1Ratio, r.MaxIter, r.Tol)
	}
	if err != nil {
		return err
	}
	if err := errors.CheckNumericalStability("Regressor.Fit", coef, r.NIter); err != nil {
		return err
	}

	r.Coef = coef
	r.Intercept = d.intercept(coef)
	r.SetDimensions(nFeatures, nSamples)
	r.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (r *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.RequireFitted(modelName, "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := r.CheckFeatures("Regressor.Predict", cols); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, errors.NewModelError("Regressor.Predict", "empty data", errors.ErrEmptyData)
	}

	// 予測: y = X * coef + intercept
	predictions := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			pred := r.Intercept
			for j := 0; j < cols; j++ {
				pred += X.At(i, j) * r.Coef[j]
			}
			predictions.Set(i, 0, pred)
		}
	})
	return predictions, nil
}

// GetParams はハイパーパラメータを返す
func (r *Regressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"model_type":    r.ModelType,
		"alpha":         r.Alpha,
		"l1_ratio":      r.L1Ratio,
		"fit_intercept": r.FitIntercept,
		"max_iter":      r.MaxIter,
		"tol":           r.Tol,
	}
}

// SetParams はハイパーパラメータを設定する。値はすべて検証してから反映する
func (r *Regressor) SetParams(params map[string]interface{}) error {
	next := r.paramsOnly()
	for key, v := range params {
		var err error
		switch key {
		case "model_type":
			next.ModelType, err = model.ParamString(key, v)
		case "alpha":
			next.Alpha, err = model.ParamFloat(key, v)
		case "l1_ratio":
			next.L1Ratio, err = model.ParamFloat(key, v)
		case "fit_intercept":
			next.FitIntercept, err = model.ParamBool(key, v)
		case "max_iter":
			next.MaxIter, err = model.ParamInt(key, v)
		case "tol":
			next.Tol, err = model.ParamFloat(key, v)
		default:
			return model.UnknownParam(modelName, key, paramNames)
		}
		if err != nil {
			return err
		}
	}
	if err := next.validate(); err != nil {
		return err
	}

	r.ModelType = next.ModelType
	r.Alpha = next.Alpha
	r.L1Ratio = next.L1Ratio
	r.FitIntercept = next.FitIntercept
	r.MaxIter = next.MaxIter
	r.Tol = next.Tol
	return nil
}

// Clone は同じハイパーパラメータを持つ未学習のモデルを返す
func (r *Regressor) Clone() model.Estimator {
	return r.paramsOnly()
}

// SetFeatureNames は特徴量名を記録する
func (r *Regressor) SetFeatureNames(names []string) error {
	r.Names = append([]string(nil), names...)
	return nil
}

// FeatureNames は記録された特徴量名を返す
func (r *Regressor) FeatureNames() []string {
	return append([]string(nil), r.Names...)
}

// Coefficients は学習された係数のコピーを返す
func (r *Regressor) Coefficients() []float64 {
	return append([]float64(nil), r.Coef...)
}

// String はモデルの文字列表現を返す
func (r *Regressor) String() string {
	return fmt.Sprintf("Regressor(%s)", model.FormatParams(r.GetParams()))
}

func (r *Regressor) paramsOnly() *Regressor {
	return &Regressor{
		ModelType:    r.ModelType,
		Alpha:        r.Alpha,
		L1Ratio:      r.L1Ratio,
		FitIntercept: r.FitIntercept,
		MaxIter:      r.MaxIter,
		Tol:          r.Tol,
	}
}

func (r *Regressor) validate() error {
	switch r.ModelType {
	case TypeLinear, TypeRidge, TypeLasso, TypeElastic:
	default:
		return errors.NewValidationError("model_type", "must be one of linear, ridge, lasso, elastic", r.ModelType)
	}
	if r.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.Alpha)
	}
	if r.L1Ratio < 0 || r.L1Ratio > 1 {
		return errors.NewValidationError("l1_ratio", "must be in [0, 1]", r.L1Ratio)
	}
	if r.MaxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", r.MaxIter)
	}
	if r.Tol <= 0 {
		return errors.NewValidationError("tol", "must be positive", r.Tol)
	}
	return nil
}
