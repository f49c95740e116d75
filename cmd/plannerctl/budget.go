package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"feestplanner/internal/budget"
	"feestplanner/internal/planner"
)

func budgetCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect client budgets",
	}
	cmd.AddCommand(budgetShowCmd(get))
	cmd.AddCommand(budgetExportCmd(get))
	return cmd
}

func budgetShowCmd(get func() *app) *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the budget items of a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return get().planner.Do(cmd.Context(), clientID, func(_ context.Context, ws *planner.Workspace) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tVENDOR\tCOST")
				for _, it := range ws.Ledger.Items() {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Name, it.ProviderID, budget.FormatCost(it.EstimatedCost))
				}
				fmt.Fprintf(tw, "\t\tTOTAL\t%s\n", budget.FormatCost(ws.Ledger.Total()))
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client id, e.g. tg:12345")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

func budgetExportCmd(get func() *app) *cobra.Command {
	var clientID, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the plain-text budget summary of a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			var text string
			err := a.planner.Do(cmd.Context(), clientID, func(_ context.Context, ws *planner.Workspace) error {
				text = ws.Ledger.ExportText(a.ledgerTitle)
				return nil
			})
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client id, e.g. tg:12345")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "file to write instead of stdout (e.g. "+budget.ExportName+")")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}
