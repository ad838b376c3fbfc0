package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// ErrNotFitted is returned when predicting with an unfitted forest.
var ErrNotFitted = errors.New("forest not fitted")

// Config controls forest growth.
type Config struct {
	Trees          int    `json:"trees"`
	MaxDepth       int    `json:"max_depth"`
	Seed           uint64 `json:"seed"`
	BalanceClasses bool   `json:"balance_classes"`
}

// DefaultConfig returns 100 trees of depth 10, class-balanced, seeded with 42.
func DefaultConfig() Config {
	return Config{
		Trees:          100,
		MaxDepth:       10,
		Seed:           42,
		BalanceClasses: true,
	}
}

// Forest is a bagged ensemble of decision trees over a fixed, sorted label set.
type Forest struct {
	Classes []string `json:"classes"`
	Trees   []*Tree  `json:"trees"`
	Width   int      `json:"width"`
	Config  Config   `json:"config"`
}

// New creates an unfitted forest.
func New(cfg Config) *Forest {
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultConfig().Trees
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	return &Forest{Config: cfg}
}

// Fitted reports whether Fit has completed.
func (f *Forest) Fitted() bool {
	return len(f.Trees) > 0 && len(f.Classes) > 0
}

// Fit grows the ensemble on rows x labeled by labels. Each tree sees a
// bootstrap sample; sample weights combine bootstrap counts with balanced
// class weights n / (k * count_c).
func (f *Forest) Fit(x [][]float64, labels []string) error {
	if len(x) == 0 {
		return fmt.Errorf("fit forest: no samples")
	}
	if len(x) != len(labels) {
		return fmt.Errorf("fit forest: %d rows but %d labels", len(x), len(labels))
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return fmt.Errorf("fit forest: row %d has %d features, want %d", i, len(row), width)
		}
	}

	classes := uniqueSorted(labels)
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	y := make([]int, len(labels))
	counts := make([]float64, len(classes))
	for i, l := range labels {
		y[i] = classIndex[l]
		counts[y[i]]++
	}

	classWeight := make([]float64, len(classes))
	for c := range classWeight {
		classWeight[c] = 1
		if f.Config.BalanceClasses {
			classWeight[c] = float64(len(labels)) / (float64(len(classes)) * counts[c])
		}
	}

	maxFeatures := int(math.Sqrt(float64(width)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	rng := rand.New(rand.NewPCG(f.Config.Seed, f.Config.Seed^0x9e3779b97f4a7c15))
	n := len(x)
	trees := make([]*Tree, 0, f.Config.Trees)
	for t := 0; t < f.Config.Trees; t++ {
		treeRng := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))

		boot := make([]float64, n)
		for i := 0; i < n; i++ {
			boot[treeRng.IntN(n)]++
		}
		weights := make([]float64, n)
		samples := make([]int, 0, n)
		for i := 0; i < n; i++ {
			if boot[i] == 0 {
				continue
			}
			weights[i] = boot[i] * classWeight[y[i]]
			samples = append(samples, i)
		}

		trees = append(trees, growTree(x, y, weights, samples, len(classes), f.Config.MaxDepth, maxFeatures, treeRng))
	}

	f.Classes = classes
	f.Trees = trees
	f.Width = width
	return nil
}

// PredictProba averages the class distributions of every tree. The result is
// indexed like Classes.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if !f.Fitted() {
		return nil, ErrNotFitted
	}
	if len(x) != f.Width {
		return nil, fmt.Errorf("predict: got %d features, want %d", len(x), f.Width)
	}
	proba := make([]float64, len(f.Classes))
	for _, t := range f.Trees {
		for c, p := range t.Predict(x) {
			proba[c] += p
		}
	}
	for c := range proba {
		proba[c] /= float64(len(f.Trees))
	}
	return proba, nil
}

// Predict returns the most probable class; ties go to the earlier class.
func (f *Forest) Predict(x []float64) (string, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return "", err
	}
	return f.Classes[argmax(proba)], nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
