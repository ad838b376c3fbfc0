// Package features builds the categorizer's numeric feature matrix.
package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrScalerNotFitted is returned when Transform is called before Fit.
var ErrScalerNotFitted = errors.New("scaler not fitted")

// Scaler standardizes columns to zero mean and unit variance using statistics
// learned at fit time. Missing values (NaN) are ignored while fitting and
// imputed with the column mean while transforming.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Var   []float64 `json:"var"`
	Scale []float64 `json:"scale"`
}

// Fitted reports whether statistics have been learned.
func (s *Scaler) Fitted() bool {
	return s.Mean != nil
}

// Width is the number of columns the scaler was fitted on.
func (s *Scaler) Width() int {
	return len(s.Mean)
}

// Fit learns per-column mean and population variance.
func (s *Scaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("fit scaler: no rows")
	}
	width := len(rows[0])
	s.Mean = make([]float64, width)
	s.Var = make([]float64, width)
	s.Scale = make([]float64, width)

	col := make([]float64, 0, len(rows))
	for j := 0; j < width; j++ {
		col = col[:0]
		for i, row := range rows {
			if len(row) != width {
				return fmt.Errorf("fit scaler: row %d has %d columns, want %d", i, len(row), width)
			}
			if !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		if len(col) == 0 {
			s.Scale[j] = 1
			continue
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Var[j] = variance
		if variance > 0 {
			s.Scale[j] = math.Sqrt(variance)
		} else {
			s.Scale[j] = 1
		}
	}
	return nil
}

// Transform standardizes rows with the fitted statistics.
func (s *Scaler) Transform(rows [][]float64) ([][]float64, error) {
	if !s.Fitted() {
		return nil, ErrScalerNotFitted
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("%w: scaler expects %d columns, got %d", ErrFeatureWidth, len(s.Mean), len(row))
		}
		scaled := make([]float64, len(row))
		for j, x := range row {
			if math.IsNaN(x) {
				continue
			}
			scaled[j] = (x - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}
