package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/Veraticus/spice-ml/internal/text"
)

// ErrFeatureWidth signals a feature vector whose length differs from the fitted width.
var ErrFeatureWidth = errors.New("feature width mismatch")

// Extractor combines TF-IDF description features with standardized amount and
// time features. Whether time features are used is decided once at fit time.
type Extractor struct {
	Vectorizer *text.Vectorizer `json:"vectorizer"`
	Scaler     *Scaler          `json:"scaler"`
	UseDates   bool             `json:"use_dates"`
}

// NewExtractor creates an unfitted extractor.
func NewExtractor(maxFeatures int) *Extractor {
	return &Extractor{
		Vectorizer: text.NewVectorizer(maxFeatures),
		Scaler:     &Scaler{},
	}
}

// Fitted reports whether both the vectorizer and the scaler are fitted.
func (e *Extractor) Fitted() bool {
	return e.Vectorizer != nil && e.Vectorizer.Fitted() && e.Scaler != nil && e.Scaler.Fitted()
}

// Width is the frozen feature vector length.
func (e *Extractor) Width() int {
	return e.Vectorizer.Width() + e.Scaler.Width()
}

// FitTransform learns the vocabulary and scaling statistics from txns and
// returns their feature matrix.
func (e *Extractor) FitTransform(txns []model.Transaction) ([][]float64, error) {
	e.UseDates = false
	for i := range txns {
		if txns[i].HasDate() {
			e.UseDates = true
			break
		}
	}

	if err := e.Vectorizer.Fit(descriptions(txns)); err != nil {
		return nil, err
	}
	if err := e.Scaler.Fit(e.numeric(txns)); err != nil {
		return nil, err
	}
	return e.Transform(txns)
}

// Transform builds the feature matrix for txns using the frozen state.
func (e *Extractor) Transform(txns []model.Transaction) ([][]float64, error) {
	if !e.Fitted() {
		return nil, text.ErrNotFitted
	}
	textRows, err := e.Vectorizer.Transform(descriptions(txns))
	if err != nil {
		return nil, err
	}
	numRows, err := e.Scaler.Transform(e.numeric(txns))
	if err != nil {
		return nil, err
	}

	width := e.Width()
	rows := make([][]float64, len(txns))
	for i := range txns {
		row := make([]float64, 0, width)
		row = append(row, textRows[i]...)
		row = append(row, numRows[i]...)
		if len(row) != width {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureWidth, len(row), width)
		}
		rows[i] = row
	}
	return rows, nil
}

// numeric returns amount and, in dates mode, hour, weekday (Monday = 0),
// day of month and month. Undated records get NaN time features.
func (e *Extractor) numeric(txns []model.Transaction) [][]float64 {
	rows := make([][]float64, len(txns))
	for i := range txns {
		t := &txns[i]
		if !e.UseDates {
			rows[i] = []float64{t.Amount}
			continue
		}
		if !t.HasDate() {
			nan := math.NaN()
			rows[i] = []float64{t.Amount, nan, nan, nan, nan}
			continue
		}
		rows[i] = []float64{
			t.Amount,
			float64(t.Date.Hour()),
			float64((int(t.Date.Weekday()) + 6) % 7),
			float64(t.Date.Day()),
			float64(t.Date.Month()),
		}
	}
	return rows
}

func descriptions(txns []model.Transaction) []string {
	out := make([]string, len(txns))
	for i := range txns {
		out[i] = txns[i].Description
	}
	return out
}
