package pipeline

import (
	"context"

	"github.com/gosimple/slug"
	catalogdomain "github.com/smallbiznis/vendora/internal/catalog/domain"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"go.uber.org/zap"
)

// migrateDataJob converges derived columns that older rows predate: the
// settled flag on completed orders and missing product slugs.
func (o *Orchestrator) migrateDataJob(ctx context.Context) (int, error) {
	processed := 0

	result := o.db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Where("status = ?", orderdomain.OrderStatusCompleted).
		Where("settled = ?", false).
		Update("settled", true)
	if result.Error != nil {
		return processed, result.Error
	}
	processed += int(result.RowsAffected)

	var products []catalogdomain.Product
	err := o.db.WithContext(ctx).
		Where("slug = ?", "").
		Limit(o.cfg.ImportBatchSize).
		Find(&products).Error
	if err != nil {
		return processed, err
	}
	for _, product := range products {
		err := o.db.WithContext(ctx).
			Model(&catalogdomain.Product{}).
			Where("id = ?", product.ID).
			Update("slug", slug.Make(product.Type+"-"+product.Name)).Error
		if err != nil {
			return processed, err
		}
		processed++
	}

	if processed > 0 {
		o.log.Info("pipeline.migrate_data", zap.Int("processed_count", processed))
	}
	return processed, nil
}
