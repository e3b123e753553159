package rates

import (
	"github.com/smallbiznis/vendora/internal/rates/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rates",
	fx.Provide(service.New),
)
