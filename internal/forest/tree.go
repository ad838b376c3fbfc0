// Package forest implements a deterministic random-forest classifier.
package forest

import (
	"math/rand/v2"
	"sort"
)

const leaf = -1

// Node is one node of a flattened decision tree. Leaves carry a class
// probability distribution in Value.
type Node struct {
	Value     []float64 `json:"value,omitempty"`
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      int       `json:"left,omitempty"`
	Right     int       `json:"right,omitempty"`
}

// Tree is a CART classification tree grown on weighted samples.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

type treeBuilder struct {
	x           [][]float64
	y           []int
	weights     []float64
	rng         *rand.Rand
	nodes       []Node
	numClasses  int
	maxDepth    int
	maxFeatures int
}

func growTree(x [][]float64, y []int, weights []float64, samples []int, numClasses, maxDepth, maxFeatures int, rng *rand.Rand) *Tree {
	b := &treeBuilder{
		x:           x,
		y:           y,
		weights:     weights,
		rng:         rng,
		numClasses:  numClasses,
		maxDepth:    maxDepth,
		maxFeatures: maxFeatures,
	}
	b.build(samples, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *treeBuilder) classWeights(samples []int) ([]float64, float64) {
	dist := make([]float64, b.numClasses)
	var total float64
	for _, s := range samples {
		dist[b.y[s]] += b.weights[s]
		total += b.weights[s]
	}
	return dist, total
}

func (b *treeBuilder) build(samples []int, depth int) int {
	dist, total := b.classWeights(samples)
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: leaf})

	if depth >= b.maxDepth || len(samples) < 2 || isPure(dist) {
		b.nodes[idx].Value = normalize(dist, total)
		return idx
	}

	feature, threshold, ok := b.bestSplit(samples, dist, total)
	if !ok {
		b.nodes[idx].Value = normalize(dist, total)
		return idx
	}

	var left, right []int
	for _, s := range samples {
		if b.x[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[idx].Feature = feature
	b.nodes[idx].Threshold = threshold
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// bestSplit draws candidate features in random order and evaluates them until
// maxFeatures non-constant ones have been tried.
func (b *treeBuilder) bestSplit(samples []int, dist []float64, total float64) (int, float64, bool) {
	width := len(b.x[samples[0]])
	order := b.rng.Perm(width)

	parent := gini(dist, total)
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, len(samples))
	leftDist := make([]float64, b.numClasses)
	rightDist := make([]float64, b.numClasses)

	tried := 0
	for _, f := range order {
		if tried >= b.maxFeatures {
			break
		}
		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})
		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue
		}
		tried++

		for c := range leftDist {
			leftDist[c] = 0
			rightDist[c] = dist[c]
		}
		var leftTotal float64
		for i := 0; i < len(sorted)-1; i++ {
			s := sorted[i]
			w := b.weights[s]
			leftDist[b.y[s]] += w
			rightDist[b.y[s]] -= w
			leftTotal += w

			cur, next := b.x[s][f], b.x[sorted[i+1]][f]
			if cur == next {
				continue
			}
			rightTotal := total - leftTotal
			if leftTotal <= 0 || rightTotal <= 0 {
				continue
			}
			impurity := (leftTotal*gini(leftDist, leftTotal) + rightTotal*gini(rightDist, rightTotal)) / total
			gain := parent - impurity
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// Predict returns the class distribution of the leaf x falls into.
func (t *Tree) Predict(x []float64) []float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature == leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func gini(dist []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, w := range dist {
		p := w / total
		sum += p * p
	}
	return 1 - sum
}

func isPure(dist []float64) bool {
	nonZero := 0
	for _, w := range dist {
		if w > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func normalize(dist []float64, total float64) []float64 {
	out := make([]float64, len(dist))
	if total <= 0 {
		return out
	}
	for i, w := range dist {
		out[i] = w / total
	}
	return out
}
