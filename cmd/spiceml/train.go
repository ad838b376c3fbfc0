package main

import (
	"fmt"

	"github.com/Veraticus/spice-ml/internal/cli"
	"github.com/Veraticus/spice-ml/internal/engine"
	"github.com/Veraticus/spice-ml/internal/importer"
	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/spf13/cobra"
)

const (
	familyCategorizer = "categorizer"
	familyForecaster  = "forecaster"
	familyAll         = "all"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train {categorizer|forecaster|all} FILE...",
		Short: "Retrain a user's models from transaction files",
		Long: `Retrain the categorizer, the forecaster or both from scratch.

Input files may be JSON (an array of {description, amount, date, category}
records), CSV with a header row, or OFX/QFX bank exports. Amounts are signed:
negative values are money leaving the account. Use "-" to read JSON from stdin.`,
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: []string{familyCategorizer, familyForecaster, familyAll},
		RunE:      runTrain,
	}
	cmd.Flags().Bool("no-progress", false, "do not draw a progress bar while fitting forecasts")
	return cmd
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	family, paths := args[0], args[1:]
	switch family {
	case familyCategorizer, familyForecaster, familyAll:
	default:
		return fmt.Errorf("unknown model family %q (want categorizer, forecaster or all)", family)
	}

	txns, err := importer.LoadFiles(ctx, paths...)
	if err != nil {
		return err
	}

	var opts []engine.Option
	var progress *cli.TrainingProgress
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	if family != familyCategorizer && !noProgress && !jsonOutput() {
		progress = cli.NewTrainingProgress(cmd.ErrOrStderr(), countCategories(txns))
		opts = append(opts, engine.WithForecastProgress(progress.Observe))
	}

	s, err := openSession(ctx, opts...)
	if err != nil {
		return err
	}
	defer closeSession(s)

	out := cmd.OutOrStdout()
	results := map[string]any{}

	if family == familyCategorizer || family == familyAll {
		result, err := s.engine.TrainCategorizer(ctx, s.userID, txns)
		if err != nil {
			return explain(err)
		}
		results[familyCategorizer] = result
		if !jsonOutput() {
			fmt.Fprintln(out, cli.RenderCategorizerResult(result))
		}
	}

	if family == familyForecaster || family == familyAll {
		result, err := s.engine.TrainForecaster(ctx, s.userID, txns)
		if progress != nil {
			progress.Finish()
		}
		if err != nil {
			return explain(err)
		}
		results[familyForecaster] = result
		if !jsonOutput() {
			fmt.Fprintln(out, cli.RenderForecasterResult(result))
		}
	}

	if jsonOutput() {
		return writeJSON(out, results)
	}
	return nil
}

func countCategories(txns []model.Transaction) int {
	seen := make(map[string]bool)
	for i := range txns {
		if txns[i].IsLabeled() {
			seen[txns[i].Category] = true
		}
	}
	return len(seen)
}
