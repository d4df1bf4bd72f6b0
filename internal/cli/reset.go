package cli

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/teachkit/internal/flow"
)

func newResetCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset a forgotten password interactively",
		Long: `Walks through the password reset: requests a code for the email address,
asks for the code that was mailed, then for the new password.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			prompt := cmd.ErrOrStderr()
			out := NewOutput(settings.Output, cmd.OutOrStdout())

			states := make(chan flow.ResetState, 16)
			unsubscribe := app.Reset.OnChange(func(st flow.ResetState) {
				select {
				case states <- st:
				default:
				}
			})
			defer unsubscribe()

			// Wait slightly longer than the flow's own step delay
			wait := app.Config.Flow.StepAdvanceDelay + 5*time.Second

			app.Reset.Open()

			for {
				var err error
				switch app.Reset.State().Step {
				case flow.StepRequestCode:
					if email == "" {
						if email, err = readLine(in, prompt, "E-Mail: "); err != nil {
							return err
						}
					}
					err = app.Reset.RequestCode(ctx, email)
					email = ""
					if err == nil {
						fmt.Fprintln(prompt, app.Reset.State().Success)
						err = waitForStep(ctx, states, flow.StepVerifyCode, wait)
					}

				case flow.StepVerifyCode:
					code, rerr := readLine(in, prompt, "Code: ")
					if rerr != nil {
						return rerr
					}
					err = app.Reset.VerifyCode(ctx, code)
					if err == nil {
						fmt.Fprintln(prompt, app.Reset.State().Success)
						err = waitForStep(ctx, states, flow.StepSetPassword, wait)
					}

				case flow.StepSetPassword:
					password, rerr := readLine(in, prompt, "Neues Passwort: ")
					if rerr != nil {
						return rerr
					}
					confirm, rerr := readLine(in, prompt, "Passwort wiederholen: ")
					if rerr != nil {
						return rerr
					}
					err = app.Reset.SetNewPassword(ctx, password, confirm)
					if err == nil {
						out.PrintMessage(app.Reset.State().Success)
						return nil
					}

				default:
					return fmt.Errorf("password reset closed unexpectedly")
				}

				if err != nil {
					msg := app.Reset.State().Error
					if msg == "" {
						return err
					}
					// Validation and backend rejections are retryable at the same step
					fmt.Fprintln(prompt, msg)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address (prompted if omitted)")

	return cmd
}

// waitForStep blocks until the flow reports step
func waitForStep(ctx context.Context, states <-chan flow.ResetState, step flow.Step, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		select {
		case st := <-states:
			if st.Step == step {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for step %s", step)
		}
	}
}
