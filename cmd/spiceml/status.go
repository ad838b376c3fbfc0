package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ml/internal/cli"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which models are trained for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(s)

			status, err := s.engine.Status(ctx, s.userID)
			if err != nil {
				return explain(err)
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderStatus(status))
			return nil
		},
	}
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users with saved models in the configured storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeSession(s)

			users, err := s.engine.Users(ctx)
			if err != nil {
				return explain(err)
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), users)
			}
			body := strings.Join(users, "\n")
			if len(users) == 0 {
				body = "No saved models"
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Users", body))
			return nil
		},
	}
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories the user's categorizer can assign",
		Long: `List the labels learned by the user's categorizer. Before the first
training run the configured default categories are listed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(s)

			categories, err := s.engine.SuggestedCategories(ctx, s.userID)
			if err != nil {
				return explain(err)
			}
			if jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), categories)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Categories", strings.Join(categories, "\n")))
			return nil
		},
	}
}
