package main

import (
	"fmt"

	"github.com/Veraticus/spice-ml/internal/cli"
	"github.com/Veraticus/spice-ml/internal/engine"
	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/spf13/cobra"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast daily spending per category",
		Long: `Forecast spending for every trained category, or for one category with
--category. --next-month forecasts through the last day of next calendar month.`,
		Args: cobra.NoArgs,
		RunE: runForecast,
	}
	cmd.Flags().IntP("periods", "p", engine.DefaultPeriods, "number of days to forecast (1-365)")
	cmd.Flags().StringP("category", "c", "", "forecast a single category")
	cmd.Flags().Bool("next-month", false, "forecast through the end of next month")
	cmd.MarkFlagsMutuallyExclusive("next-month", "category")
	cmd.MarkFlagsMutuallyExclusive("next-month", "periods")
	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	periods, _ := cmd.Flags().GetInt("periods")
	category, _ := cmd.Flags().GetString("category")
	nextMonth, _ := cmd.Flags().GetBool("next-month")

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession(s)

	out := cmd.OutOrStdout()

	if category != "" {
		fc, err := s.engine.ForecastCategory(ctx, s.userID, category, periods)
		if err != nil {
			return explain(err)
		}
		if jsonOutput() {
			return writeJSON(out, fc)
		}
		fmt.Fprintln(out, cli.RenderCategoryForecast(fc))
		return nil
	}

	var summary *model.ForecastSummary
	if nextMonth {
		summary, err = s.engine.ForecastNextMonth(ctx, s.userID)
	} else {
		summary, err = s.engine.Forecast(ctx, s.userID, periods)
	}
	if err != nil {
		return explain(err)
	}
	if jsonOutput() {
		return writeJSON(out, summary)
	}
	fmt.Fprintln(out, cli.RenderForecastSummary(summary))
	return nil
}
