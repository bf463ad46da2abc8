package lightgbm

import (
	"math"
	"sort"
)

// findBinBounds は特徴量の値を最大 maxBin 個のビンに分ける上限値を返す。
// ビン b は (bounds[b-1], bounds[b]] の値を持ち、最後の上限は +Inf。
// 異なる値が maxBin 以下なら隣接する値の中点で区切り、
// それより多ければ出現頻度がほぼ等しくなるように区切る。
func findBinBounds(values []float64, maxBin int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	distinct := make([]float64, 0, len(sorted))
	counts := make([]int, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
			counts = append(counts, 0)
		}
		counts[len(counts)-1]++
	}

	bounds := make([]float64, 0, maxBin)
	if len(distinct) <= maxBin {
		for i := 0; i+1 < len(distinct); i++ {
			bounds = append(bounds, midpoint(distinct[i], distinct[i+1]))
		}
	} else {
		perBin := float64(len(sorted)) / float64(maxBin)
		acc := 0
		for i := 0; i+1 < len(distinct) && len(bounds) < maxBin-1; i++ {
			acc += counts[i]
			if float64(acc) >= perBin*float64(len(bounds)+1) {
				bounds = append(bounds, midpoint(distinct[i], distinct[i+1]))
			}
		}
	}
	return append(bounds, math.Inf(1))
}

func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	if m >= b {
		// 隣接する浮動小数点数の場合は下側の値をそのまま境界にする
		return a
	}
	return m
}

// binColumn maps every value of a column to its bin index.
func binColumn(values, bounds []float64) []uint16 {
	out := make([]uint16, len(values))
	for i, v := range values {
		out[i] = uint16(sort.SearchFloat64s(bounds, v))
	}
	return out
}
