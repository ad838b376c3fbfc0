package categorizer

import (
	"math"
	"math/rand/v2"
	"sort"
)

// stratifiedSplit partitions sample indices into train and test sets so that
// every label with at least two samples lands in both. Labels seen only once
// stay in train. Both results are sorted ascending.
func stratifiedSplit(labels []string, testFraction float64, seed uint64) (train, test []int) {
	groups := make(map[string][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	names := make([]string, 0, len(groups))
	for l := range groups {
		names = append(names, l)
	}
	sort.Strings(names)

	rng := rand.New(rand.NewPCG(seed, seed))
	for _, l := range names {
		idx := groups[l]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := 0
		if len(idx) >= 2 {
			nTest = int(math.Round(testFraction * float64(len(idx))))
			nTest = min(max(nTest, 1), len(idx)-1)
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

func pickRows(rows [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

func pickLabels(labels []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}
