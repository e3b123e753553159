// Command vendora runs the monolith: HTTP surface plus the pipeline loop in
// one process. The split deployments live under apps/.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/cache"
	"github.com/smallbiznis/vendora/internal/catalog"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/fulfillment"
	"github.com/smallbiznis/vendora/internal/migration"
	"github.com/smallbiznis/vendora/internal/observability"
	"github.com/smallbiznis/vendora/internal/order"
	"github.com/smallbiznis/vendora/internal/pipeline"
	"github.com/smallbiznis/vendora/internal/providers/cbk"
	"github.com/smallbiznis/vendora/internal/rates"
	"github.com/smallbiznis/vendora/internal/server"
	"github.com/smallbiznis/vendora/internal/settlement"
	"github.com/smallbiznis/vendora/internal/subscription"
	"github.com/smallbiznis/vendora/internal/tenant"
	"github.com/smallbiznis/vendora/internal/wallet"
	"github.com/smallbiznis/vendora/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		cache.Module,
		clock.Module,
		migration.Module,

		cbk.Module,
		order.Module,
		tenant.Module,
		wallet.Module,
		subscription.Module,
		rates.Module,
		catalog.Module,
		fulfillment.Module,
		settlement.Module,
		pipeline.RunModule,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
