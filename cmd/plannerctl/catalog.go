package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"feestplanner/internal/budget"
	"feestplanner/internal/catalog"
	"feestplanner/internal/planner"
)

func catalogCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect vendor catalogs",
	}
	cmd.AddCommand(catalogListCmd(get))
	cmd.AddCommand(catalogValidateCmd())
	return cmd
}

func catalogListCmd(get func() *app) *cobra.Command {
	var clientID string
	q := catalog.DefaultQuery()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vendors of a client, or of the seed catalog when no client is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			out := cmd.OutOrStdout()
			if clientID == "" {
				writeVendors(out, catalog.Filter(a.seed, q), nil)
				return nil
			}
			return a.planner.Do(cmd.Context(), clientID, func(_ context.Context, ws *planner.Workspace) error {
				views := ws.Browse(q)
				vendors := make([]catalog.Vendor, len(views))
				marks := make([]string, len(views))
				for i, v := range views {
					vendors[i] = v.Vendor
					marks[i] = viewMarks(v)
				}
				writeVendors(out, vendors, marks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client id, e.g. tg:12345")
	cmd.Flags().StringVar(&q.Search, "search", "", "substring of name or description")
	cmd.Flags().StringVar(&q.Category, "category", catalog.AllCategories, "exact category")
	cmd.Flags().Float64Var(&q.MaxPrice, "max-price", catalog.DefaultMaxPrice, "upper bound on the starting price")
	cmd.Flags().StringVar(&q.SharedID, "id", "", "show only this vendor id")
	return cmd
}

func catalogValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <seed.yaml>",
		Short: "Check a seed catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vendors, err := catalog.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d vendors, categories: %s\n",
				len(vendors), strings.Join(catalog.Categories(vendors), ", "))
			return nil
		},
	}
}

func viewMarks(v planner.VendorView) string {
	var m []string
	if v.Favorite {
		m = append(m, "fav")
	}
	if v.InBudget {
		m = append(m, "budget")
	}
	if v.UserVote > 0 {
		m = append(m, fmt.Sprintf("vote=%d", v.UserVote))
	}
	return strings.Join(m, ",")
}

func writeVendors(out io.Writer, vendors []catalog.Vendor, marks []string) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tLOCATION\tFROM\tRATING\tMARKS")
	for i, v := range vendors {
		mark := ""
		if marks != nil {
			mark = marks[i]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.1f\t%s\n",
			v.ID, v.Name, v.Category, v.Location, budget.FormatCost(v.PriceStart), v.Rating, mark)
	}
	_ = tw.Flush()
}
