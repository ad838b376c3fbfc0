package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/schollz/progressbar/v3"
)

// TrainingProgress draws a progress bar advanced once per trained category.
type TrainingProgress struct {
	bar *progressbar.ProgressBar
}

// NewTrainingProgress creates a bar expecting total categories. A negative
// total renders a spinner.
func NewTrainingProgress(w io.Writer, total int) *TrainingProgress {
	p := &TrainingProgress{}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Fitting category models...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Observe advances the bar. It matches the forecaster progress callback.
func (p *TrainingProgress) Observe(result model.CategoryTrainingResult) {
	p.bar.Describe(fmt.Sprintf("[cyan][bold]Fitting category models...[reset] %s", result.Category))
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar.
func (p *TrainingProgress) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}
