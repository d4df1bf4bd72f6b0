// Package cli implements the teachkit command line client. It drives the
// session core against a live backend: checking and ending sessions, the
// sign-in and password reset flows, and capability checks.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/teachkit/internal/config"
	"github.com/mcoot/teachkit/internal/factory"
)

var (
	settings *Settings
	app      *factory.App
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	settings = DefaultSettings()

	rootCmd := &cobra.Command{
		Use:   "teachkit",
		Short: "Session and capability client for the teaching tools",
		Long: `teachkit talks to the teaching tools backend the way the browser bundle does.

It checks and ends sessions, runs the login, registration and password reset
flows, and answers which capabilities the current session holds.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			core, err := config.Load(settings.ConfigFile)
			if err != nil {
				return err
			}
			if settings.ServerURL != "" {
				core.Gateway.BaseURL = settings.ServerURL
			}

			level := core.SlogLevel()
			if settings.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			app, err = factory.New(factory.Config{Core: core, Logger: logger})
			if err != nil {
				return err
			}

			cookies, err := LoadCookies(settings.CookieFile)
			if err != nil {
				return fmt.Errorf("failed to read cookie file: %w", err)
			}
			app.Gateway.Client().SetCookies(cookies)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&settings.ConfigFile, "config", settings.ConfigFile, "YAML config file (env: TEACHKIT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&settings.ServerURL, "server", settings.ServerURL, "Backend URL (env: "+config.EnvServer+")")
	rootCmd.PersistentFlags().StringVar(&settings.CookieFile, "cookie-file", settings.CookieFile, "Session cookie file (env: TEACHKIT_COOKIE_FILE)")
	rootCmd.PersistentFlags().StringVarP(&settings.Output, "output", "o", settings.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&settings.Verbose, "verbose", "v", settings.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newCanCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
