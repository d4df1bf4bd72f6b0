package flow

import (
	"log/slog"

	"github.com/mcoot/teachkit/internal/audit"
	"github.com/mcoot/teachkit/internal/dependencies/clock"
	"github.com/mcoot/teachkit/internal/metrics"
)

// Options carries the collaborators shared by all flows
type Options struct {
	Config    Config
	Scheduler clock.Scheduler
	Recorder  *audit.Recorder
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	o.Config = o.Config.withDefaults()
	if o.Scheduler == nil {
		o.Scheduler = clock.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
