package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func clientCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Inspect or reset stored client state",
	}
	cmd.AddCommand(clientStateCmd(get))
	cmd.AddCommand(clientResetCmd(get))
	return cmd
}

func clientStateCmd(get func() *app) *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:   "state",
		Short: "List the state keys stored in the database for a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := get().store.ListState(cmd.Context(), clientID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tBYTES\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Key, len(e.Value), e.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client id, e.g. tg:12345")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

func clientResetCmd(get func() *app) *cobra.Command {
	var clientID string
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop the catalog, budget and marks of a client",
		Long:  `Drop the catalog, budget and marks of a client. The next visit starts from the seed catalog.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			a := get()
			if err := a.planner.Reset(cmd.Context(), clientID); err != nil {
				return err
			}
			a.logger.Info().Str("client_id", clientID).Msg("client state reset")
			fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", clientID)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client id, e.g. tg:12345")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}
