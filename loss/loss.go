// Package loss は探索全体で使う損失関数（評価指標）の抽象を提供します。
//
// Loss は名前、向き（大きいほど良いかどうか）、評価関数の組です。
// 特徴量選択・チューニング・最終モデル選択はすべて IsBetter と Worst を通して
// 比較するため、向きの判定はこのパッケージにだけ存在します。
package loss

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/metrics"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Loss is a scoring metric with a known direction.
type Loss interface {
	// Name returns the identifier used in logs and results, e.g. "mae".
	Name() string

	// HigherIsBetter reports whether larger values mean a better model.
	HigherIsBetter() bool

	// ScoringDirection returns +1 when HigherIsBetter is true, otherwise -1.
	ScoringDirection() int

	// Evaluate computes the metric. Both slices must be non-empty and have the same length.
	Evaluate(yTrue, yPred []float64) (float64, error)
}

// Direction は Loss 実装に埋め込んで ScoringDirection を一箇所で導出する。
type Direction bool

// HigherIsBetter implements Loss.HigherIsBetter.
func (d Direction) HigherIsBetter() bool { return bool(d) }

// ScoringDirection implements Loss.ScoringDirection.
func (d Direction) ScoringDirection() int {
	if d {
		return 1
	}
	return -1
}

// Func is the signature of a raw metric.
type Func func(yTrue, yPred []float64) (float64, error)

type funcLoss struct {
	Direction
	name string
	fn   Func
}

// New builds a Loss from a metric function.
//
//	medae := loss.New("medae", false, medianAbsoluteError)
func New(name string, higherIsBetter bool, fn Func) Loss {
	return &funcLoss{Direction: Direction(higherIsBetter), name: name, fn: fn}
}

func (l *funcLoss) Name() string { return l.name }

func (l *funcLoss) Evaluate(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.NewValueError(l.name, "empty input")
	}
	if len(yTrue) != len(yPred) {
		return 0, errors.NewDimensionError(l.name, len(yTrue), len(yPred), 0)
	}
	v, err := l.fn(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrapf(err, "loss %s", l.name)
	}
	if err := errors.CheckScalar(l.name, v, 0); err != nil {
		return 0, err
	}
	return v, nil
}

// vecMetric adapts a metrics function on gonum vectors. Inputs are already
// validated as non-empty and of equal length.
func vecMetric(fn func(yTrue, yPred *mat.VecDense) (float64, error)) Func {
	return func(yTrue, yPred []float64) (float64, error) {
		return fn(mat.NewVecDense(len(yTrue), yTrue), mat.NewVecDense(len(yPred), yPred))
	}
}

// MAE は平均絶対誤差。小さいほど良い。
func MAE() Loss { return New("mae", false, vecMetric(metrics.MAE)) }

// MAPE は平均絶対パーセンテージ誤差（比率）。小さいほど良い。
func MAPE() Loss { return New("mape", false, vecMetric(metrics.MAPE)) }

// RMSE は平方根平均二乗誤差。小さいほど良い。
func RMSE() Loss { return New("rmse", false, vecMetric(metrics.RMSE)) }

// MSE は平均二乗誤差。小さいほど良い。
func MSE() Loss { return New("mse", false, vecMetric(metrics.MSE)) }

// R2 は決定係数。大きいほど良い。
func R2() Loss { return New("r2", true, vecMetric(metrics.R2Score)) }

var builtins = map[string]func() Loss{
	"mae":  MAE,
	"mape": MAPE,
	"rmse": RMSE,
	"mse":  MSE,
	"r2":   R2,
}

// Names returns the built-in loss names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName resolves a built-in loss. Matching is case-insensitive.
func ByName(name string) (Loss, error) {
	ctor, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.NewConfigurationError("loss",
			"unknown loss function (valid: "+strings.Join(Names(), ", ")+")", name)
	}
	return ctor(), nil
}

// IsBetter reports whether candidate is strictly better than incumbent under l.
// NaN is never better than anything.
func IsBetter(l Loss, candidate, incumbent float64) bool {
	if math.IsNaN(candidate) {
		return false
	}
	if math.IsNaN(incumbent) {
		return true
	}
	if l.HigherIsBetter() {
		return candidate > incumbent
	}
	return candidate < incumbent
}

// Worst returns the score every real score improves on: +Inf for
// lower-is-better losses, -Inf otherwise.
func Worst(l Loss) float64 {
	return math.Inf(-l.ScoringDirection())
}

// Best returns the index and value of the best score. Ties go to the earliest
// index. It returns (-1, Worst(l)) for an empty slice or when every score is NaN.
func Best(l Loss, scores []float64) (int, float64) {
	idx, best := -1, Worst(l)
	for i, s := range scores {
		if (idx == -1 && !math.IsNaN(s)) || IsBetter(l, s, best) {
			idx, best = i, s
		}
	}
	return idx, best
}
