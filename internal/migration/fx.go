package migration

import (
	catalogdomain "github.com/smallbiznis/vendora/internal/catalog/domain"
	"github.com/smallbiznis/vendora/internal/config"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"github.com/smallbiznis/vendora/internal/pipeline"
	ratesdomain "github.com/smallbiznis/vendora/internal/rates/domain"
	"github.com/smallbiznis/vendora/internal/seed"
	settlementdomain "github.com/smallbiznis/vendora/internal/settlement/domain"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	tenantdomain "github.com/smallbiznis/vendora/internal/tenant/domain"
	walletdomain "github.com/smallbiznis/vendora/internal/wallet/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// sqlite and mysql are dev/test targets; gorm's schema sync is
			// enough there and keeps the versioned migrations postgres-only.
			if err := conn.AutoMigrate(
				&tenantdomain.Brand{},
				&tenantdomain.User{},
				&subscriptiondomain.Package{},
				&subscriptiondomain.Subscription{},
				&walletdomain.Wallet{},
				&catalogdomain.Product{},
				&orderdomain.Order{},
				&settlementdomain.Payment{},
				&settlementdomain.Payout{},
				&settlementdomain.Trade{},
				&ratesdomain.ExchangeRate{},
				&ratesdomain.RevenueRate{},
				&pipeline.PipelineRun{},
			); err != nil {
				return err
			}
			return seed.EnsureDefaults(conn, cfg)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		return seed.EnsureDefaults(conn, cfg)
	}),
)
