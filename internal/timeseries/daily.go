// Package timeseries aggregates transactions into daily series for forecasting.
package timeseries

import (
	"math"
	"sort"
	"time"

	"github.com/Veraticus/spice-ml/internal/model"
	"gonum.org/v1/gonum/stat"
)

// Point is one aggregated day. Value is the absolute daily sum.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Daily groups txns by calendar day and returns one point per distinct day,
// sorted ascending. When category is non-empty only matching transactions are
// used. Undated transactions are dropped and missing days are not filled.
func Daily(txns []model.Transaction, category string) []Point {
	sums := make(map[time.Time]float64)
	for i := range txns {
		t := &txns[i]
		if !t.HasDate() {
			continue
		}
		if category != "" && t.Category != category {
			continue
		}
		sums[t.Day()] += t.Amount
	}

	points := make([]Point, 0, len(sums))
	for day, sum := range sums {
		points = append(points, Point{Date: day, Value: math.Abs(sum)})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

// Values returns the point values in order.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// Span returns the number of days between the first and last point.
func Span(points []Point) int {
	if len(points) < 2 {
		return 0
	}
	return int(points[len(points)-1].Date.Sub(points[0].Date).Hours() / 24)
}

// Stats summarizes a series. Std is the sample standard deviation and is
// zero for fewer than two points.
func Stats(points []Point) model.CategoryStats {
	values := Values(points)
	s := model.CategoryStats{DaysOfData: len(values)}
	if len(values) == 0 {
		return s
	}
	s.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		s.Std = stat.StdDev(values, nil)
	}
	s.Min, s.Max = values[0], values[0]
	for _, v := range values[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	return s
}
