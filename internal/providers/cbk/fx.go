package cbk

import (
	"github.com/smallbiznis/vendora/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewFromConfig picks the live HTTP adapter or the sandbox depending on the
// configured mode.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.IsLive() {
		return NewHTTPProvider(cfg, log)
	}
	log.Warn("provider running in sandbox mode, no aggregator traffic will be sent")
	return NewSandboxProvider(log)
}

var Module = fx.Module("providers.cbk",
	fx.Provide(NewFromConfig),
)
