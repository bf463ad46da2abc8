package lightgbm

import (
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/ensemble/tree"
)

// histBin は 1 つのビンに落ちた行の勾配・ヘシアンの和
type histBin struct {
	grad  float64
	hess  float64
	count int
}

type splitCandidate struct {
	valid     bool
	feature   int
	bin       int
	gain      float64
	leftGrad  float64
	leftHess  float64
	leftCount int
}

type leafState struct {
	node    int
	rows    []int
	hist    [][]histBin // indexed by feature; nil for features outside the tree's sample
	sumGrad float64
	sumHess float64
	depth   int
	best    splitCandidate
}

// grower はヒストグラムを使って 1 本の木を葉ごと (best-first) に成長させる。
type grower struct {
	params   Params
	bins     [][]uint16  // [feature][row]
	bounds   [][]float64 // [feature][bin] upper bounds
	grad     []float64
	hess     []float64
	features []int // features sampled for the current tree
}

// 行数がこれ以上ならヒストグラムを特徴量方向に並列で作る
const histParallelRows = 2048

func (g *grower) buildHist(rows []int) [][]histBin {
	hist := make([][]histBin, len(g.bins))
	build := func(start, end int) {
		for k := start; k < end; k++ {
			f := g.features[k]
			h := make([]histBin, len(g.bounds[f]))
			col := g.bins[f]
			for _, r := range rows {
				b := &h[col[r]]
				b.grad += g.grad[r]
				b.hess += g.hess[r]
				b.count++
			}
			hist[f] = h
		}
	}
	if len(rows) >= histParallelRows {
		parallel.Parallelize(len(g.features), build)
	} else {
		build(0, len(g.features))
	}
	return hist
}

// subtractHist returns parent - child. LightGBM のヒストグラム減算と同じく、
// 大きい方の子は小さい方の子から導出する。
func (g *grower) subtractHist(parent, child [][]histBin) [][]histBin {
	out := make([][]histBin, len(parent))
	for _, f := range g.features {
		h := make([]histBin, len(parent[f]))
		for b := range h {
			h[b] = histBin{
				grad:  parent[f][b].grad - child[f][b].grad,
				hess:  parent[f][b].hess - child[f][b].hess,
				count: parent[f][b].count - child[f][b].count,
			}
		}
		out[f] = h
	}
	return out
}

func (g *grower) newLeaf(node int, rows []int, hist [][]histBin, depth int) *leafState {
	leaf := &leafState{node: node, rows: rows, hist: hist, depth: depth}
	for _, r := range rows {
		leaf.sumGrad += g.grad[r]
		leaf.sumHess += g.hess[r]
	}
	leaf.best = g.findBestSplit(leaf)
	return leaf
}

func (g *grower) findBestSplit(leaf *leafState) splitCandidate {
	p := g.params
	best := splitCandidate{gain: p.MinSplitGain}
	if p.MaxDepth > 0 && leaf.depth >= p.MaxDepth {
		return best
	}
	if len(leaf.rows) < 2*p.MinChildSamples {
		return best
	}

	parentGain := tree.LeafGain(leaf.sumGrad, leaf.sumHess, p.RegLambda, p.RegAlpha)
	total := len(leaf.rows)
	for _, f := range g.features {
		h := leaf.hist[f]
		var lg, lh float64
		lc := 0
		for b := 0; b+1 < len(h); b++ {
			lg += h[b].grad
			lh += h[b].hess
			lc += h[b].count
			if h[b].count == 0 {
				continue
			}
			rc := total - lc
			if lc < p.MinChildSamples {
				continue
			}
			if rc < p.MinChildSamples {
				break
			}
			rg, rh := leaf.sumGrad-lg, leaf.sumHess-lh
			if lh < p.MinChildWeight || rh < p.MinChildWeight {
				continue
			}
			gain := tree.LeafGain(lg, lh, p.RegLambda, p.RegAlpha) +
				tree.LeafGain(rg, rh, p.RegLambda, p.RegAlpha) - parentGain
			if gain > best.gain {
				best = splitCandidate{
					valid: true, feature: f, bin: b, gain: gain,
					leftGrad: lg, leftHess: lh, leftCount: lc,
				}
			}
		}
	}
	return best
}

// grow builds one tree on rows. It returns the tree with unscaled leaf
// values and the rows of every leaf, keyed by node index.
func (g *grower) grow(rows []int) (tree.Tree, map[int][]int) {
	p := g.params
	t := tree.NewLeafTree(0, len(rows))
	leaves := []*leafState{g.newLeaf(0, rows, g.buildHist(rows), 0)}

	for len(leaves) < p.NumLeaves {
		pick := -1
		for i, l := range leaves {
			if l.best.valid && (pick == -1 || l.best.gain > leaves[pick].best.gain) {
				pick = i
			}
		}
		if pick == -1 {
			break
		}

		leaf := leaves[pick]
		s := leaf.best
		col := g.bins[s.feature]
		left := make([]int, 0, s.leftCount)
		right := make([]int, 0, len(leaf.rows)-s.leftCount)
		for _, r := range leaf.rows {
			if int(col[r]) <= s.bin {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}

		var leftHist, rightHist [][]histBin
		if len(left) <= len(right) {
			leftHist = g.buildHist(left)
			rightHist = g.subtractHist(leaf.hist, leftHist)
		} else {
			rightHist = g.buildHist(right)
			leftHist = g.subtractHist(leaf.hist, rightHist)
		}

		ln, rn := t.Split(leaf.node, s.feature, g.bounds[s.feature][s.bin], s.gain, len(left), len(right))
		leaves[pick] = g.newLeaf(ln, left, leftHist, leaf.depth+1)
		leaves = append(leaves, g.newLeaf(rn, right, rightHist, leaf.depth+1))
	}

	leafRows := make(map[int][]int, len(leaves))
	for _, l := range leaves {
		t.Nodes[l.node].Value = tree.LeafOutput(l.sumGrad, l.sumHess, p.RegLambda, p.RegAlpha)
		leafRows[l.node] = l.rows
	}
	return t, leafRows
}
