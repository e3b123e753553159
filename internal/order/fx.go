package order

import (
	"github.com/smallbiznis/vendora/internal/order/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("order",
	fx.Provide(repository.New),
)
