// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package forest

import (
	"sort"
)

const impurityEpsilon = 1e-12

// Node of a regression tree. Leaves have Feature < 0.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	NSamples  int
}

func (n *Node) IsLeaf() bool {
	return n.Feature < 0
}

// Tree is a CART regression tree grown with the squared error criterion. Rows
// go left when x[Feature] <= Threshold.
type Tree struct {
	Nodes      []Node
	importance []float64
}

// Predict walks the tree from the root to a leaf.
func (t *Tree) Predict(x []float64) float64 {
	node := &t.Nodes[0]
	for !node.IsLeaf() {
		if x[node.Feature] <= node.Threshold {
			node = &t.Nodes[node.Left]
		} else {
			node = &t.Nodes[node.Right]
		}
	}
	return node.Value
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var depth func(i int) int
	depth = func(i int) int {
		if t.Nodes[i].IsLeaf() {
			return 0
		}
		return 1 + max(depth(t.Nodes[i].Left), depth(t.Nodes[i].Right))
	}
	return depth(0)
}

type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
}

// treeBuilder grows a tree over a sample of rows. Every feature keeps the sample
// slots sorted by feature value, and each split stably partitions these orders so
// that a node always owns the same range [start, end) in all of them.
type treeBuilder struct {
	treeConfig
	x       [][]float64
	y       []float64
	samples []int
	orders  [][]int
	goLeft  []bool
	buffer  []int
	tree    *Tree
}

func buildTree(x [][]float64, y []float64, samples []int, config treeConfig) *Tree {
	nFeatures := len(x[0])
	b := &treeBuilder{
		treeConfig: config,
		x:          x,
		y:          y,
		samples:    samples,
		orders:     make([][]int, nFeatures),
		goLeft:     make([]bool, len(samples)),
		buffer:     make([]int, len(samples)),
		tree:       &Tree{importance: make([]float64, nFeatures)},
	}
	for f := range b.orders {
		order := make([]int, len(samples))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			return b.value(order[i], f) < b.value(order[j], f)
		})
		b.orders[f] = order
	}
	b.grow(0, len(samples), 0)
	return b.tree
}

func (b *treeBuilder) value(slot, feature int) float64 {
	return b.x[b.samples[slot]][feature]
}

func (b *treeBuilder) target(slot int) float64 {
	return b.y[b.samples[slot]]
}

type split struct {
	feature   int
	threshold float64
	pos       int
	proxy     float64
}

// grow adds the node owning [start, end) and its subtree, and returns its index.
func (b *treeBuilder) grow(start, end, depth int) int {
	n := end - start
	var sum, sumSq float64
	for _, slot := range b.orders[0][start:end] {
		v := b.target(slot)
		sum += v
		sumSq += v * v
	}
	mean := sum / float64(n)
	index := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Feature: -1, Value: mean, NSamples: n})

	impurity := sumSq/float64(n) - mean*mean
	if n < b.minSamplesSplit || n < 2*b.minSamplesLeaf ||
		(b.maxDepth > 0 && depth >= b.maxDepth) || impurity <= impurityEpsilon {
		return index
	}
	best, ok := b.bestSplit(start, end, sum)
	if !ok {
		return index
	}

	// impurity decrease weighted by the number of samples
	b.tree.importance[best.feature] += best.proxy - sum*sum/float64(n)

	for i, slot := range b.orders[best.feature][start:end] {
		b.goLeft[slot] = i < best.pos
	}
	for _, order := range b.orders {
		b.partition(order[start:end])
	}
	mid := start + best.pos
	left := b.grow(start, mid, depth+1)
	right := b.grow(mid, end, depth+1)
	b.tree.Nodes[index].Feature = best.feature
	b.tree.Nodes[index].Threshold = best.threshold
	b.tree.Nodes[index].Left = left
	b.tree.Nodes[index].Right = right
	return index
}

// bestSplit maximizes sumL^2/nL + sumR^2/nR, which minimizes the squared error of
// the children. Thresholds are midpoints between consecutive distinct values.
func (b *treeBuilder) bestSplit(start, end int, sum float64) (split, bool) {
	n := end - start
	best := split{feature: -1}
	for f, order := range b.orders {
		var sumLeft float64
		for i := 1; i < n; i++ {
			sumLeft += b.target(order[start+i-1])
			if i < b.minSamplesLeaf || n-i < b.minSamplesLeaf {
				continue
			}
			prev, cur := b.value(order[start+i-1], f), b.value(order[start+i], f)
			if !(prev < cur) {
				continue
			}
			sumRight := sum - sumLeft
			proxy := sumLeft*sumLeft/float64(i) + sumRight*sumRight/float64(n-i)
			if best.feature < 0 || proxy > best.proxy {
				threshold := prev + (cur-prev)/2
				if threshold >= cur {
					threshold = prev
				}
				best = split{feature: f, threshold: threshold, pos: i, proxy: proxy}
			}
		}
	}
	return best, best.feature >= 0
}

// partition moves left slots before right slots, keeping their relative order.
func (b *treeBuilder) partition(order []int) {
	buffer := b.buffer[:0]
	k := 0
	for _, slot := range order {
		if b.goLeft[slot] {
			order[k] = slot
			k++
		} else {
			buffer = append(buffer, slot)
		}
	}
	copy(order[k:], buffer)
}
