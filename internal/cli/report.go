package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// RenderCategorizerResult summarizes a categorizer training run.
func RenderCategorizerResult(r *model.CategorizerTrainingResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transactions: %d\n", r.NumTransactions)
	fmt.Fprintf(&b, "Categories:   %d\n", r.NumCategories)
	fmt.Fprintf(&b, "Accuracy:     %.1f%%\n", r.Accuracy*100)
	b.WriteString(SubtleStyle.Render("Trained at " + r.TrainedAt.Format("2006-01-02 15:04:05")))
	return RenderBox("Categorizer trained", b.String())
}

// RenderForecasterResult lists the per-category outcome of a training run.
func RenderForecasterResult(r *model.ForecasterTrainingResult) string {
	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		switch res.Status {
		case model.StatusTrained:
			rows = append(rows, []string{
				res.Category,
				SuccessStyle.Render(string(res.Status)),
				fmt.Sprintf("%d days", res.DaysOfData),
				fmt.Sprintf("$%.2f/day", res.MeanDailyExpense),
			})
		default:
			rows = append(rows, []string{
				res.Category,
				WarningStyle.Render(string(res.Status)),
				fmt.Sprintf("%d days", res.DaysAvailable),
				"",
			})
		}
	}

	summary := fmt.Sprintf("%d of %d categories trained", r.CategoriesTrained, r.TotalCategories)
	return RenderBox("Forecaster trained", lipgloss.JoinVertical(lipgloss.Left,
		renderTable([]string{"Category", "Status", "History", "Mean"}, rows),
		"",
		summary,
	))
}

// RenderPredictions shows each transaction with its predicted category and
// ranked alternatives.
func RenderPredictions(txns []model.Transaction, preds []model.Prediction) string {
	rows := make([][]string, 0, len(preds))
	for i, p := range preds {
		alts := make([]string, 0, len(p.Alternatives))
		for _, a := range p.Alternatives[min(1, len(p.Alternatives)):] {
			alts = append(alts, fmt.Sprintf("%s %.0f%%", a.Category, a.Confidence*100))
		}
		desc := ""
		if i < len(txns) {
			desc = txns[i].Description
		}
		rows = append(rows, []string{
			desc,
			BoldStyle.Render(p.Category),
			confidenceStyle(p.Confidence).Render(fmt.Sprintf("%.0f%%", p.Confidence*100)),
			SubtleStyle.Render(strings.Join(alts, ", ")),
		})
	}
	return renderTable([]string{"Description", "Category", "Confidence", "Alternatives"}, rows)
}

// RenderCategoryForecast shows the daily forecast of one category.
func RenderCategoryForecast(fc model.CategoryForecast) string {
	if fc.Status != model.StatusSuccess {
		return FormatWarning(fmt.Sprintf("No forecast model for %q", fc.Category))
	}
	rows := make([][]string, 0, len(fc.DailyForecast))
	for _, d := range fc.DailyForecast {
		rows = append(rows, []string{
			d.Date,
			fmt.Sprintf("$%.2f", d.PredictedAmount),
			SubtleStyle.Render(fmt.Sprintf("$%.2f to $%.2f", d.LowerBound, d.UpperBound)),
		})
	}
	total := BoldStyle.Render(fmt.Sprintf("Total over %d days: $%.2f", fc.ForecastDays, fc.MonthlyTotal))
	return RenderBox(fc.Category, lipgloss.JoinVertical(lipgloss.Left,
		renderTable([]string{"Date", "Predicted", "80% interval"}, rows),
		"",
		total,
	))
}

// RenderForecastSummary shows per-category totals followed by insights.
func RenderForecastSummary(s *model.ForecastSummary) string {
	rows := make([][]string, 0, len(s.CategoryOrder))
	for _, name := range s.CategoryOrder {
		fc := s.Categories[name]
		mean := ""
		if fc.Statistics != nil {
			mean = fmt.Sprintf("$%.2f/day", fc.Statistics.Mean)
		}
		rows = append(rows, []string{name, fmt.Sprintf("$%.2f", fc.MonthlyTotal), SubtleStyle.Render(mean)})
	}

	var insights strings.Builder
	for _, line := range s.Insights {
		insights.WriteString(FormatInfo(line) + "\n")
	}

	title := fmt.Sprintf("Forecast for the next %d days", s.ForecastPeriodDays)
	return RenderBox(title, lipgloss.JoinVertical(lipgloss.Left,
		renderTable([]string{"Category", "Predicted", "Historical mean"}, rows),
		"",
		BoldStyle.Render(fmt.Sprintf("Total: $%.2f", s.TotalPredictedExpense)),
		"",
		strings.TrimRight(insights.String(), "\n"),
	))
}

// RenderStatus reports the trained state of both model families.
func RenderStatus(s model.ModelStatus) string {
	line := func(name string, fs model.FamilyStatus) string {
		if !fs.Trained {
			return FormatWarning(name + ": not trained")
		}
		return FormatSuccess(fmt.Sprintf("%s: trained (%s)", name, strings.Join(fs.Categories, ", ")))
	}
	return RenderBox("Models for "+s.UserID, lipgloss.JoinVertical(lipgloss.Left,
		line("Categorizer", s.Categorizer),
		line("Forecaster", s.Forecaster),
	))
}

func confidenceStyle(c float64) lipgloss.Style {
	switch {
	case c >= 0.8:
		return SuccessStyle
	case c >= 0.5:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// renderTable lays out rows under header with columns padded to the widest
// cell.
func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	render := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = TableCellStyle.Render(style.Width(widths[i]).Render(cell))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	lines := []string{render(header, TableHeaderStyle.UnsetBorderBottom().Bold(true))}
	for _, row := range rows {
		lines = append(lines, render(row, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
