// Package insights turns forecast results into short readable summaries.
package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/spice-ml/internal/model"
)

// Fixed insight texts.
const (
	KeepTracking  = "Continue tracking your expenses for more personalized insights"
	DecemberNote  = "December typically sees increased spending on Entertainment and Shopping"
	SummerNote    = "Summer months often have higher Travel and Entertainment expenses"
	volatileRatio = 0.5
)

// Generate derives insights from forecasts, which are expected in category
// iteration order. The top spender comes first, then volatility warnings in
// input order, then a seasonal note for the month of now.
func Generate(forecasts []model.CategoryForecast, now time.Time) []string {
	if len(forecasts) == 0 {
		return []string{KeepTracking}
	}

	var out []string

	ranked := make([]model.CategoryForecast, len(forecasts))
	copy(ranked, forecasts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MonthlyTotal > ranked[j].MonthlyTotal
	})
	top := ranked[0]
	out = append(out, fmt.Sprintf(
		"Your highest predicted expense is %s at $%.2f for the next month",
		top.Category, top.MonthlyTotal))

	for _, f := range forecasts {
		if isVolatile(f.Statistics) {
			out = append(out, fmt.Sprintf(
				"%s spending shows high variability - consider setting a flexible budget",
				f.Category))
		}
	}

	if note := seasonalNote(now.Month()); note != "" {
		out = append(out, note)
	}

	return out
}

// isVolatile treats missing statistics as a zero deviation around a mean of one.
func isVolatile(stats *model.CategoryStats) bool {
	if stats == nil {
		return false
	}
	return stats.Std > stats.Mean*volatileRatio
}

func seasonalNote(month time.Month) string {
	switch month {
	case time.December:
		return DecemberNote
	case time.June, time.July, time.August:
		return SummerNote
	default:
		return ""
	}
}
