package catalog

import (
	"github.com/smallbiznis/vendora/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(service.New),
)
