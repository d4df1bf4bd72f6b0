package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newAuditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent session events",
		Long: `Lists the newest events from the audit log. Only a shared log (redis)
outlives a single command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.AuditLog == nil {
				return errors.New("audit log is disabled")
			}

			events, err := app.AuditLog.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			NewOutput(settings.Output, cmd.OutOrStdout()).Print(events)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events (0 for all)")

	return cmd
}
