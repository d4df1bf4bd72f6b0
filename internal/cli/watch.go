package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mcoot/teachkit/internal/enforce"
	"github.com/mcoot/teachkit/internal/model"
)

func newWatchCmd() *cobra.Command {
	var (
		refresh     time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the session and print capability changes",
		Long: `Registers one surface per capability and prints whenever a surface is shown
or hidden. The session is re-checked against the backend every --refresh;
the enforcer's own poll runs at the configured poll interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refresh <= 0 {
				return fmt.Errorf("--refresh must be positive, got %s", refresh)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			printer := newChangePrinter(NewOutput(settings.Output, cmd.OutOrStdout()))
			for _, c := range model.Capabilities {
				surface := c.String()
				app.Enforcer.RegisterSurface(surface, c, func(d enforce.Decision) {
					printer.apply(surface, d)
				})
			}

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						slog.Error("metrics server failed", slog.String("error", err.Error()))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			go func() {
				_ = app.Enforcer.Run(ctx)
			}()

			ticker := time.NewTicker(refresh)
			defer ticker.Stop()
			for {
				// Failures drop to guest; the next tick tries again
				_, _ = app.Lifecycle.Check(ctx)

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", 30*time.Second, "Session re-check interval")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

// changePrinter prints a surface only when its decision differs from the last
// one printed; poll passes re-apply unchanged decisions on every tick
type changePrinter struct {
	mu   sync.Mutex
	out  *Output
	last map[string]enforce.Decision
}

func newChangePrinter(out *Output) *changePrinter {
	return &changePrinter{out: out, last: make(map[string]enforce.Decision)}
}

func (p *changePrinter) apply(surface string, d enforce.Decision) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.last[surface]; ok && prev == d {
		return
	}
	p.last[surface] = d
	p.out.Print(SurfaceChange{Surface: surface, Decision: d})
}
