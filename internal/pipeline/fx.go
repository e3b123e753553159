package pipeline

import (
	"context"

	"github.com/smallbiznis/vendora/internal/config"
	"go.uber.org/fx"
)

// ProvideConfig maps app configuration onto pipeline defaults.
func ProvideConfig(cfg config.Config) Config {
	c := DefaultConfig()
	if cfg.PipelineInterval > 0 {
		c.RunInterval = cfg.PipelineInterval
	}
	return c
}

var Module = fx.Module("pipeline",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
)

// RunModule additionally starts the interval loop; the API process wires
// only Module so triggers stay cron-driven there.
var RunModule = fx.Module("pipeline.run",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(startLoop),
)

func startLoop(lc fx.Lifecycle, o *Orchestrator) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go o.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
