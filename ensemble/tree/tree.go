// Package tree は勾配ブースティング系モデルが共有する決定木の表現、予測、目的関数を提供します。
//
// 木の構造はすべて公開フィールドで表現しているため、学習済みモデルは gob でそのまま保存できます。
package tree

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/parallel"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 512

// Node is a node of a binary regression tree. Internal nodes send a row to
// Left when row[Feature] <= Threshold, otherwise to Right.
type Node struct {
	Left      int // -1 for a leaf
	Right     int // -1 for a leaf
	Feature   int
	Threshold float64
	Value     float64 // leaf output, learning rate already applied
	Gain      float64 // split gain (internal nodes)
	Count     int     // training rows that reached the node
	Depth     int
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool {
	return n.Left < 0
}

// Tree is a regression tree stored as a flat node slice with the root at 0.
type Tree struct {
	Nodes []Node
}

// NewLeafTree returns a tree with a single leaf.
func NewLeafTree(value float64, count int) Tree {
	return Tree{Nodes: []Node{{Left: -1, Right: -1, Value: value, Count: count}}}
}

// AddNode appends a node and returns its index.
func (t *Tree) AddNode(n Node) int {
	t.Nodes = append(t.Nodes, n)
	return len(t.Nodes) - 1
}

// Split turns leaf idx into an internal node with two new leaves and returns
// their indices.
func (t *Tree) Split(idx, feature int, threshold, gain float64, leftCount, rightCount int) (left, right int) {
	depth := t.Nodes[idx].Depth + 1
	left = t.AddNode(Node{Left: -1, Right: -1, Count: leftCount, Depth: depth})
	right = t.AddNode(Node{Left: -1, Right: -1, Count: rightCount, Depth: depth})

	n := &t.Nodes[idx]
	n.Left, n.Right = left, right
	n.Feature = feature
	n.Threshold = threshold
	n.Gain = gain
	n.Value = 0
	return left, right
}

// Leaf returns the index of the leaf that row falls into.
func (t *Tree) Leaf(row []float64) int {
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.IsLeaf() {
			return idx
		}
		if row[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// PredictRow returns the leaf value for a single row.
func (t *Tree) PredictRow(row []float64) float64 {
	return t.Nodes[t.Leaf(row)].Value
}

// NumLeaves returns the number of leaves.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// Depth returns the depth of the deepest leaf (a single leaf has depth 0).
func (t *Tree) Depth() int {
	depth := 0
	for i := range t.Nodes {
		if t.Nodes[i].Depth > depth {
			depth = t.Nodes[i].Depth
		}
	}
	return depth
}

// ScaleLeaves multiplies every leaf value by factor.
func (t *Tree) ScaleLeaves(factor float64) {
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			t.Nodes[i].Value *= factor
		}
	}
}

// Ensemble is an additive model: BaseScore + Σ tree outputs.
type Ensemble struct {
	BaseScore float64
	Trees     []Tree
	NFeatures int
}

// PredictRow returns the ensemble output for one row.
func (e *Ensemble) PredictRow(row []float64) float64 {
	pred := e.BaseScore
	for i := range e.Trees {
		pred += e.Trees[i].PredictRow(row)
	}
	return pred
}

// Predict returns an n×1 matrix of predictions. Rows are processed in
// parallel for large inputs.
func (e *Ensemble) Predict(X mat.Matrix) *mat.Dense {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, parallelThreshold, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			out.Set(i, 0, e.PredictRow(row))
		}
	})
	return out
}

// FeatureImportance returns the total split gain ("gain") or the number of
// splits ("split") per feature.
func (e *Ensemble) FeatureImportance(kind string) []float64 {
	imp := make([]float64, e.NFeatures)
	for i := range e.Trees {
		for _, n := range e.Trees[i].Nodes {
			if n.IsLeaf() {
				continue
			}
			if kind == "split" {
				imp[n.Feature]++
			} else {
				imp[n.Feature] += n.Gain
			}
		}
	}
	return imp
}

// ThresholdL1 is the soft-thresholding operator used for L1 regularization
// of leaf outputs.
func ThresholdL1(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	default:
		return 0
	}
}

// LeafOutput returns the optimal leaf value −T_α(G)/(H+λ).
func LeafOutput(sumGrad, sumHess, lambda, alpha float64) float64 {
	denom := sumHess + lambda
	if denom <= 0 {
		return 0
	}
	return -ThresholdL1(sumGrad, alpha) / denom
}

// LeafGain returns T_α(G)²/(H+λ), the score of a leaf.
func LeafGain(sumGrad, sumHess, lambda, alpha float64) float64 {
	denom := sumHess + lambda
	if denom <= 0 {
		return 0
	}
	g := ThresholdL1(sumGrad, alpha)
	return g * g / denom
}
