package text

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultMaxFeatures caps the fitted vocabulary size.
const DefaultMaxFeatures = 100

// ErrNotFitted is returned when Transform is called before Fit.
var ErrNotFitted = errors.New("vectorizer not fitted")

// Vectorizer computes TF-IDF relevance scores over a vocabulary of unigrams
// and bigrams learned once by Fit. The vocabulary and idf weights are frozen
// until the next Fit.
type Vectorizer struct {
	Index       map[string]int `json:"index"`
	Vocabulary  []string       `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	MaxFeatures int            `json:"max_features"`
}

// NewVectorizer creates an unfitted vectorizer keeping at most maxFeatures terms.
func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Vectorizer{MaxFeatures: maxFeatures}
}

// Fitted reports whether the vocabulary has been learned.
func (v *Vectorizer) Fitted() bool {
	return v.Vocabulary != nil
}

// Width is the number of features Transform emits per document.
func (v *Vectorizer) Width() int {
	return len(v.Vocabulary)
}

// Fit learns the vocabulary and idf weights from descriptions.
// Terms are ranked by total corpus frequency; ties resolve alphabetically.
func (v *Vectorizer) Fit(descriptions []string) error {
	if len(descriptions) == 0 {
		return fmt.Errorf("fit vectorizer: no documents")
	}

	counts := make(map[string]int)
	docFreq := make(map[string]int)
	for _, d := range descriptions {
		seen := make(map[string]struct{})
		for _, term := range Terms(d) {
			counts[term]++
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				docFreq[term]++
			}
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > v.MaxFeatures {
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(descriptions))
	v.Vocabulary = terms
	v.Index = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	for i, term := range terms {
		v.Index[term] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	return nil
}

// Transform maps each description onto the fitted vocabulary. Rows are
// L2-normalized; unseen terms contribute nothing.
func (v *Vectorizer) Transform(descriptions []string) ([][]float64, error) {
	if !v.Fitted() {
		return nil, ErrNotFitted
	}
	if v.Index == nil {
		v.rebuildIndex()
	}

	rows := make([][]float64, len(descriptions))
	for r, d := range descriptions {
		row := make([]float64, len(v.Vocabulary))
		for _, term := range Terms(d) {
			if i, ok := v.Index[term]; ok {
				row[i]++
			}
		}
		var norm float64
		for i := range row {
			row[i] *= v.IDF[i]
			norm += row[i] * row[i]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for i := range row {
				row[i] /= norm
			}
		}
		rows[r] = row
	}
	return rows, nil
}

func (v *Vectorizer) rebuildIndex() {
	v.Index = make(map[string]int, len(v.Vocabulary))
	for i, term := range v.Vocabulary {
		v.Index[term] = i
	}
}
