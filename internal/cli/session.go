package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/teachkit/internal/flow"
	"github.com/mcoot/teachkit/internal/gateway"
	"github.com/mcoot/teachkit/internal/model"
)

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the current session and its capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.Lifecycle.Check(cmd.Context())
			if err != nil {
				return errors.New(gateway.UserMessage(err))
			}

			NewOutput(settings.Output, cmd.OutOrStdout()).Print(newSessionView(sess))
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with username and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := readLine(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(), "Passwort: ")
				if err != nil {
					return err
				}
				password = p
			}

			if err := app.SignIn.Open(flow.TabLogin); err != nil {
				return err
			}
			if err := app.SignIn.SubmitLogin(cmd.Context(), username, password); err != nil {
				return flowError(app.SignIn.State().Error, err)
			}

			if err := SaveCookies(settings.CookieFile, app.Gateway.Client().Cookies()); err != nil {
				return fmt.Errorf("failed to save session cookie: %w", err)
			}

			NewOutput(settings.Output, cmd.OutOrStdout()).Print(newSessionView(app.Store.GetSession()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted if omitted)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func newRegisterCmd() *cobra.Command {
	var fields flow.RegisterFields

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fields.PasswordConfirm == "" {
				fields.PasswordConfirm = fields.Password
			}

			if err := app.SignIn.Open(flow.TabRegister); err != nil {
				return err
			}
			if err := app.SignIn.SubmitRegister(cmd.Context(), fields); err != nil {
				return flowError(app.SignIn.State().Error, err)
			}

			NewOutput(settings.Output, cmd.OutOrStdout()).PrintMessage(app.SignIn.State().Success)
			return nil
		},
	}

	cmd.Flags().StringVarP(&fields.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&fields.Email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&fields.Password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&fields.PasswordConfirm, "confirm", "", "Password confirmation (defaults to --password)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Lifecycle.Logout(cmd.Context())
			if err := RemoveCookies(settings.CookieFile); err != nil {
				return fmt.Errorf("failed to remove cookie file: %w", err)
			}

			NewOutput(settings.Output, cmd.OutOrStdout()).PrintMessage("Abgemeldet")
			return nil
		},
	}
}

func newCanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "can <capability>",
		Short: "Check whether the current session holds a capability",
		Long: `Checks a capability against the session as the backend reports it now.
Exits non-zero when the capability is denied. If the backend cannot be
reached the check runs as guest.

Capabilities: play, feedback, editor, stats, user_management`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			required, ok := model.ParseCapability(args[0])
			if !ok {
				return fmt.Errorf("unknown capability %q", args[0])
			}

			// A failed check leaves the store empty, so the answer is the guest's
			_, _ = app.Lifecycle.Check(cmd.Context())

			err := app.Enforcer.Authorize(required)
			NewOutput(settings.Output, cmd.OutOrStdout()).Print(CanResult{
				Capability: required.String(),
				Role:       string(app.Store.GetRole()),
				Allowed:    err == nil,
			})
			return err
		},
	}
}

// flowError prefers the message the flow shows the user
func flowError(shown string, err error) error {
	if shown != "" {
		return errors.New(shown)
	}
	return err
}

// readLine prompts on w and reads one trimmed line from r
func readLine(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
