package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Objective defines the per-sample loss a booster minimises.
type Objective interface {
	// Name returns the objective name used in logs.
	Name() string

	// Gradient returns the first and second derivative of the loss with
	// respect to the prediction.
	Gradient(prediction, target float64) (grad, hess float64)

	// Loss returns the per-sample loss.
	Loss(prediction, target float64) float64

	// InitScore returns the constant prediction that minimises the loss.
	InitScore(targets []float64) float64
}

// LeafRenewer is implemented by objectives whose Newton step is a poor leaf
// value (absolute and percentage error). After a tree is grown, each leaf
// output is replaced by RenewLeaf over the residuals of its rows.
type LeafRenewer interface {
	RenewLeaf(residuals, targets []float64) float64
}

// SquaredError は二乗誤差 ½(p-y)²
type SquaredError struct{}

func (SquaredError) Name() string { return "squared_error" }

func (SquaredError) Gradient(prediction, target float64) (float64, float64) {
	return prediction - target, 1.0
}

func (SquaredError) Loss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (SquaredError) InitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	return stat.Mean(targets, nil)
}

// AbsoluteError は絶対誤差 |p-y|。葉の値は残差の中央値で更新する。
type AbsoluteError struct{}

func (AbsoluteError) Name() string { return "absolute_error" }

func (AbsoluteError) Gradient(prediction, target float64) (float64, float64) {
	return sign(prediction - target), 1.0
}

func (AbsoluteError) Loss(prediction, target float64) float64 {
	return math.Abs(prediction - target)
}

func (AbsoluteError) InitScore(targets []float64) float64 {
	return WeightedMedian(targets, nil)
}

func (AbsoluteError) RenewLeaf(residuals, _ []float64) float64 {
	return WeightedMedian(residuals, nil)
}

// Huber は |p-y| <= Delta で二乗、それ以外で線形になる損失
type Huber struct {
	Delta float64
}

func (o Huber) Name() string { return "huber" }

func (o Huber) Gradient(prediction, target float64) (float64, float64) {
	diff := prediction - target
	if math.Abs(diff) <= o.Delta {
		return diff, 1.0
	}
	return o.Delta * sign(diff), 1.0
}

func (o Huber) Loss(prediction, target float64) float64 {
	diff := math.Abs(prediction - target)
	if diff <= o.Delta {
		return 0.5 * diff * diff
	}
	return o.Delta * (diff - 0.5*o.Delta)
}

func (o Huber) InitScore(targets []float64) float64 {
	return SquaredError{}.InitScore(targets)
}

// PseudoHuber は δ²(√(1+(r/δ)²) - 1)。Slope が δ。
type PseudoHuber struct {
	Slope float64
}

func (o PseudoHuber) Name() string { return "pseudo_huber" }

func (o PseudoHuber) Gradient(prediction, target float64) (float64, float64) {
	r := prediction - target
	z := 1 + (r/o.Slope)*(r/o.Slope)
	sqrtZ := math.Sqrt(z)
	return r / sqrtZ, 1 / (z * sqrtZ)
}

func (o PseudoHuber) Loss(prediction, target float64) float64 {
	r := (prediction - target) / o.Slope
	return o.Slope * o.Slope * (math.Sqrt(1+r*r) - 1)
}

func (o PseudoHuber) InitScore(targets []float64) float64 {
	return SquaredError{}.InitScore(targets)
}

// PercentageError は |p-y| / max(1, |y|)。
// 重み 1/max(1,|y|) 付きの絶対誤差として扱い、葉の値は重み付き中央値で更新する。
type PercentageError struct{}

func (PercentageError) Name() string { return "mape" }

func percentageWeight(target float64) float64 {
	return 1 / math.Max(1, math.Abs(target))
}

func (PercentageError) Gradient(prediction, target float64) (float64, float64) {
	w := percentageWeight(target)
	return sign(prediction-target) * w, w
}

func (PercentageError) Loss(prediction, target float64) float64 {
	return math.Abs(prediction-target) * percentageWeight(target)
}

func (PercentageError) InitScore(targets []float64) float64 {
	return WeightedMedian(targets, percentageWeights(targets))
}

func (PercentageError) RenewLeaf(residuals, targets []float64) float64 {
	return WeightedMedian(residuals, percentageWeights(targets))
}

func percentageWeights(targets []float64) []float64 {
	w := make([]float64, len(targets))
	for i, t := range targets {
		w[i] = percentageWeight(t)
	}
	return w
}

// WeightedMedian returns the weighted empirical median of values. nil
// weights mean equal weights. An empty input yields 0.
func WeightedMedian(values, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	x := append([]float64(nil), values...)
	var w []float64
	if weights != nil {
		w = append([]float64(nil), weights...)
		sort.Sort(byValue{x, w})
	} else {
		sort.Float64s(x)
	}
	return stat.Quantile(0.5, stat.Empirical, x, w)
}

type byValue struct {
	x, w []float64
}

func (b byValue) Len() int           { return len(b.x) }
func (b byValue) Less(i, j int) bool { return b.x[i] < b.x[j] }
func (b byValue) Swap(i, j int) {
	b.x[i], b.x[j] = b.x[j], b.x[i]
	b.w[i], b.w[j] = b.w[j], b.w[i]
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
