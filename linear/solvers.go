package linear

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// design は学習用に列方向へ展開した X と y。
// fit_intercept の場合は X と y を中心化しておき、切片は平均から復元する。
type design struct {
	cols  [][]float64
	y     []float64
	xMean []float64
	yMean float64
	n     int
}

func newDesign(X, y mat.Matrix, center bool) *design {
	n, p := X.Dims()
	d := &design{
		cols:  make([][]float64, p),
		y:     mat.Col(nil, 0, y),
		xMean: make([]float64, p),
		n:     n,
	}
	for j := 0; j < p; j++ {
		d.cols[j] = mat.Col(nil, j, X)
	}
	if center {
		for j, col := range d.cols {
			d.xMean[j] = stat.Mean(col, nil)
			floats.AddConst(-d.xMean[j], col)
		}
		d.yMean = stat.Mean(d.y, nil)
		floats.AddConst(-d.yMean, d.y)
	}
	return d
}

func (d *design) matrix() *mat.Dense {
	m := mat.NewDense(d.n, len(d.cols), nil)
	for j, col := range d.cols {
		m.SetCol(j, col)
	}
	return m
}

// intercept = ȳ - Σ x̄_j w_j (中心化していなければ 0)
func (d *design) intercept(coef []float64) float64 {
	return d.yMean - floats.Dot(d.xMean, coef)
}

// solveLeastSquares は QR 分解で最小二乗解を求める。
// ランク落ちで QR が解けない場合は、わずかな対角成分を加えた正規方程式で解く。
func solveLeastSquares(d *design) ([]float64, error) {
	X := d.matrix()
	yVec := mat.NewVecDense(d.n, d.y)

	if d.n >= len(d.cols) {
		var qr mat.QR
		qr.Factorize(X)
		var w mat.VecDense
		if err := qr.SolveVecTo(&w, false, yVec); err == nil {
			out := mat.Col(nil, 0, &w)
			if errors.CheckNumericalStability("linear.QR", out, 0) == nil {
				return out, nil
			}
		}
	}
	return solveRidge(d, 1e-10)
}

// solveRidge は (XᵀX + αI)w = Xᵀy を Cholesky 分解で解く。
func solveRidge(d *design, alpha float64) ([]float64, error) {
	p := len(d.cols)
	gram := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := floats.Dot(d.cols[i], d.cols[j])
			if i == j {
				v += alpha
			}
			gram.SetSym(i, j, v)
		}
	}
	xty := mat.NewVecDense(p, nil)
	for j, col := range d.cols {
		xty.SetVec(j, floats.Dot(col, d.y))
	}

	var chol mat.Cholesky
	if !chol.Factorize(gram) {
		// 定数列などで半正定値になった場合は微小な正則化を足す
		jitter := 1e-10 * (1 + mat.Trace(gram)/float64(p))
		for i := 0; i < p; i++ {
			gram.SetSym(i, i, gram.At(i, i)+jitter)
		}
		if !chol.Factorize(gram) {
			return nil, errors.NewModelError("linear.solveRidge", "singular matrix", errors.ErrSingularMatrix)
		}
	}

	var w mat.VecDense
	if err := chol.SolveVecTo(&w, xty); err != nil {
		return nil, errors.NewModelError("linear.solveRidge", "cholesky solve failed", err)
	}
	return mat.Col(nil, 0, &w), nil
}

// coordinateDescent は scikit-learn の ElasticNet と同じ目的関数を巡回座標降下法で最小化する。
//
//	1/(2n)||y - Xw||² + α·ρ·||w||₁ + α(1-ρ)/2·||w||²
//
// 収束判定は 1 巡あたりの最大更新量 / 最大係数 < tol。
// maxIter で打ち切った場合は ConvergenceWarning を出して現在の解を返す。
func coordinateDescent(d *design, alpha, l1Ratio float64, maxIter int, tol float64) ([]float64, int, error) {
	p := len(d.cols)
	n := float64(d.n)
	l1 := alpha * l1Ratio * n
	l2 := alpha * (1 - l1Ratio) * n

	w := make([]float64, p)
	residual := append([]float64(nil), d.y...)
	norms := make([]float64, p)
	for j, col := range d.cols {
		norms[j] = floats.Dot(col, col)
	}

	for iter := 1; iter <= maxIter; iter++ {
		maxDelta, maxW := 0.0, 0.0
		for j, col := range d.cols {
			if norms[j] == 0 {
				continue
			}
			old := w[j]
			if old != 0 {
				// residual += X_j * w_j
				floats.AddScaled(residual, old, col)
			}
			rho := floats.Dot(col, residual)
			w[j] = softThreshold(rho, l1) / (norms[j] + l2)
			if w[j] != 0 {
				floats.AddScaled(residual, -w[j], col)
			}

			maxDelta = math.Max(maxDelta, math.Abs(w[j]-old))
			maxW = math.Max(maxW, math.Abs(w[j]))
		}
		if err := errors.CheckNumericalStability("linear.coordinateDescent", w, iter); err != nil {
			return nil, iter, err
		}
		if maxW == 0 || maxDelta/maxW < tol {
			return w, iter, nil
		}
	}

	errors.Warn(errors.NewConvergenceWarning("CoordinateDescent", maxIter,
		"increase max_iter or tol"))
	return w, maxIter, nil
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}
