package model

import (
	"container/heap"
	"sort"
)

// Node is one node of a regression tree. Leaves carry Value; internal nodes
// route on Feature <= Threshold (left) vs greater (right).
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// Tree is a regression tree stored as a flat node array, root at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict routes one sample to its leaf value.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeParams bound a single tree's growth.
type treeParams struct {
	maxLeaves      int
	minLeafSamples int
}

// split is a candidate split of one leaf, scored by variance-reduction gain.
type split struct {
	nodeIdx   int
	feature   int
	threshold float64
	gain      float64
	leftRows  []int
	rightRows []int
}

type splitQueue []*split

func (q splitQueue) Len() int            { return len(q) }
func (q splitQueue) Less(i, j int) bool  { return q[i].gain > q[j].gain }
func (q splitQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *splitQueue) Push(x any)         { *q = append(*q, x.(*split)) }
func (q *splitQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// growTree fits one regression tree to the residuals, growing leaf-wise:
// the leaf with the highest gain splits first, until the leaf budget or the
// gain runs out.
// importance, when non-nil, accumulates each applied split's gain per feature.
func growTree(X [][]float64, residuals []float64, rows []int, features []int, p treeParams, importance []float64) *Tree {
	t := &Tree{}
	root := t.addLeaf(meanOf(residuals, rows))

	q := &splitQueue{}
	if s := bestSplit(X, residuals, rows, features, p); s != nil {
		s.nodeIdx = root
		heap.Push(q, s)
	}

	leaves := 1
	for leaves < p.maxLeaves && q.Len() > 0 {
		s := heap.Pop(q).(*split)

		left := t.addLeaf(meanOf(residuals, s.leftRows))
		right := t.addLeaf(meanOf(residuals, s.rightRows))
		t.Nodes[s.nodeIdx] = Node{
			Feature:   s.feature,
			Threshold: s.threshold,
			Left:      left,
			Right:     right,
		}
		if importance != nil {
			importance[s.feature] += s.gain
		}
		leaves++

		if ls := bestSplit(X, residuals, s.leftRows, features, p); ls != nil {
			ls.nodeIdx = left
			heap.Push(q, ls)
		}
		if rs := bestSplit(X, residuals, s.rightRows, features, p); rs != nil {
			rs.nodeIdx = right
			heap.Push(q, rs)
		}
	}
	return t
}

func (t *Tree) addLeaf(value float64) int {
	t.Nodes = append(t.Nodes, Node{Leaf: true, Value: value})
	return len(t.Nodes) - 1
}

// bestSplit finds the best (feature, threshold) for the given rows, or nil
// when no split improves on the parent.
func bestSplit(X [][]float64, residuals []float64, rows []int, features []int, p treeParams) *split {
	if len(rows) < 2*p.minLeafSamples {
		return nil
	}

	var parentSum float64
	for _, r := range rows {
		parentSum += residuals[r]
	}
	parentScore := parentSum * parentSum / float64(len(rows))

	var best *split
	sorted := make([]int, len(rows))
	for _, f := range features {
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool { return X[sorted[i]][f] < X[sorted[j]][f] })

		var leftSum float64
		for i := 0; i < len(sorted)-1; i++ {
			leftSum += residuals[sorted[i]]
			n := i + 1
			if n < p.minLeafSamples || len(sorted)-n < p.minLeafSamples {
				continue
			}
			// No split between equal feature values.
			if X[sorted[i]][f] == X[sorted[i+1]][f] {
				continue
			}

			rightSum := parentSum - leftSum
			score := leftSum*leftSum/float64(n) + rightSum*rightSum/float64(len(sorted)-n)
			gain := score - parentScore
			if gain <= 1e-12 {
				continue
			}
			if best == nil || gain > best.gain {
				best = &split{
					feature:   f,
					threshold: (X[sorted[i]][f] + X[sorted[i+1]][f]) / 2,
					gain:      gain,
					leftRows:  append([]int(nil), sorted[:n]...),
					rightRows: append([]int(nil), sorted[n:]...),
				}
			}
		}
	}
	return best
}

func meanOf(values []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += values[r]
	}
	return sum / float64(len(rows))
}
