package wallet

import (
	"github.com/smallbiznis/vendora/internal/wallet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("wallet",
	fx.Provide(service.New),
)
