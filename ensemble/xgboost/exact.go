package xgboost

import (
	"sort"

	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/ensemble/tree"
)

// nodeStat は節点に落ちた行の勾配統計
type nodeStat struct {
	grad  float64
	hess  float64
	count int
}

type split struct {
	valid     bool
	feature   int
	threshold float64
	gain      float64
	left      nodeStat
}

// exactBuilder は全ての分割候補を列挙する exact greedy 法で木を深さ優先ではなく
// レベルごとに成長させる。各特徴量の行順序は学習開始時に一度だけソートしておく。
type exactBuilder struct {
	params Params
	cols   [][]float64 // [feature][row]
	sorted [][]int     // [feature] row indices by ascending value
	grad   []float64
	hess   []float64
}

func newExactBuilder(params Params, cols [][]float64) *exactBuilder {
	n := 0
	if len(cols) > 0 {
		n = len(cols[0])
	}
	b := &exactBuilder{
		params: params,
		cols:   cols,
		sorted: make([][]int, len(cols)),
		grad:   make([]float64, n),
		hess:   make([]float64, n),
	}
	parallel.Parallelize(len(cols), func(start, end int) {
		for f := start; f < end; f++ {
			idx := make([]int, n)
			for i := range idx {
				idx[i] = i
			}
			col := cols[f]
			sort.SliceStable(idx, func(a, c int) bool { return col[idx[a]] < col[idx[c]] })
			b.sorted[f] = idx
		}
	})
	return b
}

// build grows one tree on rows using the given features. Leaf values are the
// unscaled Newton steps; the rows of each leaf are returned keyed by node.
func (b *exactBuilder) build(rows, features []int) (tree.Tree, map[int][]int) {
	p := b.params
	n := len(b.grad)

	pos := make([]int, n)
	for i := range pos {
		pos[i] = -1
	}
	root := nodeStat{count: len(rows)}
	for _, r := range rows {
		pos[r] = 0
		root.grad += b.grad[r]
		root.hess += b.hess[r]
	}

	t := tree.NewLeafTree(0, len(rows))
	stats := map[int]nodeStat{0: root}
	frontier := []int{0}

	for depth := 0; len(frontier) > 0 && (p.MaxDepth == 0 || depth < p.MaxDepth); depth++ {
		slot := make([]int, len(t.Nodes))
		for i := range slot {
			slot[i] = -1
		}
		for s, node := range frontier {
			slot[node] = s
		}
		best := b.findSplits(frontier, slot, pos, stats, features)

		var next []int
		children := make(map[int][2]int)
		for s, node := range frontier {
			sp := best[s]
			if !sp.valid {
				continue
			}
			parent := stats[node]
			right := nodeStat{
				grad:  parent.grad - sp.left.grad,
				hess:  parent.hess - sp.left.hess,
				count: parent.count - sp.left.count,
			}
			l, r := t.Split(node, sp.feature, sp.threshold, sp.gain, sp.left.count, right.count)
			stats[l], stats[r] = sp.left, right
			children[node] = [2]int{l, r}
			next = append(next, l, r)
		}
		if len(next) == 0 {
			break
		}
		for _, r := range rows {
			c, ok := children[pos[r]]
			if !ok {
				continue
			}
			nd := &t.Nodes[pos[r]]
			if b.cols[nd.Feature][r] <= nd.Threshold {
				pos[r] = c[0]
			} else {
				pos[r] = c[1]
			}
		}
		frontier = next
	}

	leafRows := make(map[int][]int)
	for _, r := range rows {
		leafRows[pos[r]] = append(leafRows[pos[r]], r)
	}
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			s := stats[i]
			t.Nodes[i].Value = tree.LeafOutput(s.grad, s.hess, p.RegLambda, p.RegAlpha)
		}
	}
	return t, leafRows
}

// findSplits scans every feature once per level, accumulating the left-hand
// statistics of all frontier nodes in a single pass over the sorted rows.
func (b *exactBuilder) findSplits(frontier, slot, pos []int, stats map[int]nodeStat, features []int) []split {
	perFeature := make([][]split, len(features))
	parallel.Parallelize(len(features), func(start, end int) {
		for k := start; k < end; k++ {
			perFeature[k] = b.scanFeature(features[k], frontier, slot, pos, stats)
		}
	})

	// 同じゲインなら特徴量番号が小さい方を採用する
	best := make([]split, len(frontier))
	for k := range features {
		for s := range frontier {
			if c := perFeature[k][s]; c.valid && (!best[s].valid || c.gain > best[s].gain) {
				best[s] = c
			}
		}
	}
	return best
}

func (b *exactBuilder) scanFeature(f int, frontier, slot, pos []int, stats map[int]nodeStat) []split {
	p := b.params
	col := b.cols[f]

	left := make([]nodeStat, len(frontier))
	last := make([]float64, len(frontier))
	seen := make([]bool, len(frontier))
	best := make([]split, len(frontier))
	parentGain := make([]float64, len(frontier))
	for s, node := range frontier {
		st := stats[node]
		parentGain[s] = tree.LeafGain(st.grad, st.hess, p.RegLambda, p.RegAlpha)
	}

	for _, r := range b.sorted[f] {
		node := pos[r]
		if node < 0 || node >= len(slot) || slot[node] < 0 {
			continue
		}
		s := slot[node]
		v := col[r]
		if seen[s] && v != last[s] {
			total := stats[node]
			l := left[s]
			rh := total.hess - l.hess
			if l.hess >= p.MinChildWeight && rh >= p.MinChildWeight {
				gain := 0.5*(tree.LeafGain(l.grad, l.hess, p.RegLambda, p.RegAlpha)+
					tree.LeafGain(total.grad-l.grad, rh, p.RegLambda, p.RegAlpha)-
					parentGain[s]) - p.Gamma
				if gain > 0 && gain > best[s].gain {
					best[s] = split{valid: true, feature: f, threshold: midpoint(last[s], v), gain: gain, left: l}
				}
			}
		}
		left[s].grad += b.grad[r]
		left[s].hess += b.hess[r]
		left[s].count++
		last[s] = v
		seen[s] = true
	}
	return best
}

func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	if m >= b {
		return a
	}
	return m
}
