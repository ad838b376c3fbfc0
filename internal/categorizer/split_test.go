package categorizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStratifiedSplit(t *testing.T) {
	var labels []string
	for i := 0; i < 10; i++ {
		labels = append(labels, "a")
	}
	for i := 0; i < 5; i++ {
		labels = append(labels, "b")
	}
	labels = append(labels, "c", "d", "d")

	train, test := stratifiedSplit(labels, 0.2, 42)

	assert.Len(t, append(append([]int{}, train...), test...), len(labels))
	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d assigned twice", i)
		seen[i] = true
	}

	count := func(idx []int, label string) int {
		n := 0
		for _, i := range idx {
			if labels[i] == label {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 2, count(test, "a"))
	assert.Equal(t, 1, count(test, "b"))
	assert.Equal(t, 0, count(test, "c"))
	assert.Equal(t, 1, count(test, "d"))
	assert.Equal(t, 1, count(train, "d"))
	assert.Equal(t, 1, count(train, "c"))

	train2, test2 := stratifiedSplit(labels, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestRank(t *testing.T) {
	pred := rank([]string{"a", "b", "c", "d"}, []float64{0.25, 0.25, 0.4, 0.1})

	assert.Equal(t, "c", pred.Category)
	assert.InDelta(t, 0.4, pred.Confidence, 1e-12)
	assert.Len(t, pred.Alternatives, 3)
	assert.Equal(t, "a", pred.Alternatives[1].Category)
	assert.Equal(t, "b", pred.Alternatives[2].Category)

	single := rank([]string{"only"}, []float64{1})
	assert.Len(t, single.Alternatives, 1)
}
