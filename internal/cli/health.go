package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mcoot/teachkit/internal/gateway"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			if _, err := app.Gateway.Client().Get(cmd.Context(), "/health", &result); err != nil {
				return errors.New(gateway.UserMessage(err))
			}

			NewOutput(settings.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
