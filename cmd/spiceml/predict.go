package main

import (
	"fmt"

	"github.com/Veraticus/spice-ml/internal/cli"
	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/importer"
	"github.com/Veraticus/spice-ml/internal/model"
	"github.com/spf13/cobra"
)

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict categories for transactions",
		Long: `Predict the category of a single transaction given on the command line,
or of every transaction in a file with --batch.`,
		Args: cobra.NoArgs,
		RunE: runPredict,
	}
	cmd.Flags().StringP("description", "d", "", "transaction description")
	cmd.Flags().Float64P("amount", "a", 0, "signed transaction amount (negative for spending)")
	cmd.Flags().String("date", "", "transaction date (2006-01-02 or RFC 3339)")
	cmd.Flags().StringP("batch", "b", "", "file of transactions to predict")
	return cmd
}

func runPredict(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	txns, err := predictInput(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession(s)

	preds, err := s.engine.PredictBatch(ctx, s.userID, txns)
	if err != nil {
		return explain(err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		if len(txns) == 1 && cmd.Flags().Changed("description") {
			return writeJSON(out, preds[0])
		}
		return writeJSON(out, preds)
	}
	fmt.Fprintln(out, cli.RenderPredictions(txns, preds))
	return nil
}

func predictInput(cmd *cobra.Command) ([]model.Transaction, error) {
	batch, _ := cmd.Flags().GetString("batch")
	if batch != "" {
		return importer.LoadFile(cmd.Context(), batch)
	}

	description, _ := cmd.Flags().GetString("description")
	if description == "" {
		return nil, common.NewUserError("either --description or --batch is required", nil)
	}
	amount, _ := cmd.Flags().GetFloat64("amount")
	rawDate, _ := cmd.Flags().GetString("date")
	date, err := importer.ParseDate(rawDate)
	if err != nil {
		return nil, common.NewUserError("invalid --date", err)
	}
	return []model.Transaction{{Description: description, Amount: amount, Date: date}}, nil
}
