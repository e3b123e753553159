package settlement

import (
	"github.com/smallbiznis/vendora/internal/settlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settlement",
	fx.Provide(service.New),
)
