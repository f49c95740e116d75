package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"feestplanner/internal/interaction"
	"feestplanner/internal/storage"
)

var errNoKeyring = errors.New("no master key configured (MASTER_KEY_B64 or MASTER_KEYS_JSON)")

func outboxCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and maintain stored contact requests",
	}
	cmd.AddCommand(outboxListCmd(get))
	cmd.AddCommand(outboxMarkCmd(get))
	cmd.AddCommand(outboxRekeyCmd(get))
	return cmd
}

func outboxListCmd(get func() *app) *cobra.Command {
	var status string
	var limit uint64
	var decrypt bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contact requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if decrypt && a.keyring == nil {
				return errNoKeyring
			}
			rows, err := a.store.ListContactRequests(cmd.Context(), status, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if decrypt {
				fmt.Fprintln(tw, "ID\tCLIENT\tVENDOR\tSTATUS\tFROM\tREPLY TO")
			} else {
				fmt.Fprintln(tw, "ID\tCLIENT\tVENDOR\tSTATUS\tCREATED")
			}
			for _, r := range rows {
				if !decrypt {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.ClientID, r.VendorID, r.Status, r.CreatedAt.Format("2006-01-02 15:04"))
					continue
				}
				var f interaction.Form
				if err := a.keyring.OpenJSON(r.EncPayload, r.ClientID, &f); err != nil {
					a.logger.Warn().Err(err).Int64("id", r.ID).Msg("cannot open contact request")
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t?\t?\n", r.ID, r.ClientID, r.VendorID, r.Status)
					continue
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.ClientID, r.VendorID, r.Status, f.Name, f.Email)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", storage.ContactPending, "pending, delivered, failed or empty for all")
	cmd.Flags().Uint64Var(&limit, "limit", 50, "maximum rows")
	cmd.Flags().BoolVar(&decrypt, "decrypt", false, "show sender name and email")
	return cmd
}

func outboxMarkCmd(get func() *app) *cobra.Command {
	var id int64
	var status string
	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Set the delivery status of a contact request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch status {
			case storage.ContactPending, storage.ContactDelivered, storage.ContactFailed:
			default:
				return fmt.Errorf("unknown status %q", status)
			}
			if err := get().store.SetContactStatus(cmd.Context(), id, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "request %d marked %s\n", id, status)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "contact request id")
	cmd.Flags().StringVar(&status, "status", storage.ContactDelivered, "new status")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func outboxRekeyCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rekey",
		Short: "Re-encrypt stored contact requests under the current master key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if a.keyring == nil {
				return errNoKeyring
			}
			rows, err := a.store.ListContactRequests(cmd.Context(), "", 0)
			if err != nil {
				return err
			}
			var changed, failed int
			for _, r := range rows {
				next, ok, err := a.keyring.Reseal(r.EncPayload, r.ClientID)
				if err != nil {
					failed++
					a.logger.Error().Err(err).Int64("id", r.ID).Msg("reseal contact request failed")
					continue
				}
				if !ok {
					continue
				}
				if err := a.store.UpdateContactPayload(cmd.Context(), r.ID, next); err != nil {
					return err
				}
				changed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rekeyed %d of %d requests to %s\n", changed, len(rows), a.keyring.CurrentKeyID())
			if failed > 0 {
				return fmt.Errorf("%d requests could not be opened", failed)
			}
			return nil
		},
	}
}
