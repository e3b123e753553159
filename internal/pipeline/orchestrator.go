// Package pipeline sequences the fulfillment and settlement stages behind a
// cron-style trigger. Stages are isolated: one failing, panicking or timing
// out never costs the remaining stages their turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/vendora/internal/catalog/domain"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/fulfillment"
	obscontext "github.com/smallbiznis/vendora/internal/observability/context"
	obslogger "github.com/smallbiznis/vendora/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/vendora/internal/observability/metrics"
	ratesdomain "github.com/smallbiznis/vendora/internal/rates/domain"
	settlementdomain "github.com/smallbiznis/vendora/internal/settlement/domain"
	"github.com/smallbiznis/vendora/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("pipeline: invalid configuration")

type stageFunc func(ctx context.Context) (int, error)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	GenID          *snowflake.Node
	FulfillmentSvc fulfillment.Service
	SettlementSvc  settlementdomain.Service
	CatalogSvc     catalogdomain.Service
	RatesSvc       ratesdomain.Service
	Config         Config `optional:"true"`
}

type Orchestrator struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	genID    *snowflake.Node
	handlers map[Stage]stageFunc
}

func New(p Params) (*Orchestrator, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.GenID == nil ||
		p.FulfillmentSvc == nil || p.SettlementSvc == nil || p.CatalogSvc == nil || p.RatesSvc == nil {
		return nil, ErrInvalidConfig
	}

	o := &Orchestrator{
		db:    p.DB,
		log:   p.Log.Named("pipeline").With(zap.String("component", "pipeline")),
		cfg:   p.Config.withDefaults(),
		clock: p.Clock,
		genID: p.GenID,
	}

	batch := o.cfg.BatchSize
	o.handlers = map[Stage]stageFunc{
		StageFulfillOrders: func(ctx context.Context) (int, error) {
			return p.FulfillmentSvc.FulfillOrders(ctx, batch)
		},
		StageQueryOrders: func(ctx context.Context) (int, error) {
			return p.FulfillmentSvc.QueryOrders(ctx, batch)
		},
		StageQueryPayments: func(ctx context.Context) (int, error) {
			return p.SettlementSvc.QueryPayments(ctx, batch)
		},
		StageSettleOrders: func(ctx context.Context) (int, error) {
			return p.SettlementSvc.SettleOrders(ctx, batch)
		},
		StageSettlePayments: func(ctx context.Context) (int, error) {
			return p.SettlementSvc.SettlePayments(ctx, batch)
		},
		StageSettlePayouts: func(ctx context.Context) (int, error) {
			return p.SettlementSvc.SettlePayouts(ctx, batch)
		},
		StageSettleTrades: func(ctx context.Context) (int, error) {
			return p.SettlementSvc.SettleTrades(ctx, batch)
		},
		StageImportDataPlans: func(ctx context.Context) (int, error) {
			return p.CatalogSvc.Import(ctx, "data")
		},
		StageImportTVPlans: func(ctx context.Context) (int, error) {
			return p.CatalogSvc.Import(ctx, "tv")
		},
		StageImportElectric: func(ctx context.Context) (int, error) {
			return p.CatalogSvc.Import(ctx, "electric")
		},
		StageImportEducation: func(ctx context.Context) (int, error) {
			return p.CatalogSvc.Import(ctx, "education")
		},
		StageImportBettingPlans: func(ctx context.Context) (int, error) {
			return p.CatalogSvc.Import(ctx, "betting")
		},
		StageRecalcPrices: func(ctx context.Context) (int, error) {
			return p.CatalogSvc.RecalculatePrices(ctx)
		},
		StageUpdateExchangeRates: func(ctx context.Context) (int, error) {
			return p.RatesSvc.RefreshExchangeRates(ctx)
		},
		StageUpdateRevRates: func(ctx context.Context) (int, error) {
			return p.RatesSvc.RefreshRevenueRates(ctx)
		},
		StageMigrateData: o.migrateDataJob,
	}
	return o, nil
}

// Trigger acknowledges immediately and runs the target in the background.
// The run marker is persisted before the goroutine starts so "did the cron
// fire" is answerable even when the run itself dies.
func (o *Orchestrator) Trigger(ctx context.Context, target string) (string, error) {
	_, runID := correlation.EnsureCorrelationID(ctx)
	run := &PipelineRun{
		ID:        o.genID.Generate(),
		Target:    normalizeTarget(target),
		RunID:     runID,
		StartedAt: o.clock.Now(),
	}
	if err := o.db.WithContext(ctx).Create(run).Error; err != nil {
		return "", err
	}

	go func() {
		// Detached from the request: the caller already has its ack, and
		// there is no global abort by design.
		bgCtx := correlation.ContextWithCorrelationID(context.Background(), run.RunID)
		bgCtx = obscontext.WithRequestID(bgCtx, run.RunID)
		defer func() {
			if r := recover(); r != nil {
				o.log.Error("pipeline.run.panic",
					zap.String("target", run.Target),
					zap.String("run_id", run.RunID),
					zap.Any("panic", r))
			}
		}()
		o.runTarget(bgCtx, run)
	}()

	return run.RunID, nil
}

// Dispatch runs a target synchronously. Used by the interval loop and tests;
// HTTP triggers go through Trigger.
func (o *Orchestrator) Dispatch(ctx context.Context, target string) error {
	ctx, runID := correlation.EnsureCorrelationID(ctx)
	run := &PipelineRun{
		ID:        o.genID.Generate(),
		Target:    normalizeTarget(target),
		RunID:     runID,
		StartedAt: o.clock.Now(),
	}
	if err := o.db.WithContext(ctx).Create(run).Error; err != nil {
		return err
	}
	return o.runTarget(ctx, run)
}

func (o *Orchestrator) runTarget(ctx context.Context, run *PipelineRun) error {
	log := obslogger.WithContext(ctx, o.log).With(
		zap.String("target", run.Target),
		zap.String("run_id", run.RunID),
	)
	log.Info("pipeline.run.start")

	var runErr error
	processed := 0
	errored := 0
	for _, stage := range ResolveTarget(run.Target) {
		if !o.isStageEnabled(stage) {
			continue
		}
		count, err := o.runStage(ctx, stage)
		processed += count
		if err != nil {
			errored++
			runErr = errors.Join(runErr, err)
		}
	}

	now := o.clock.Now()
	if err := o.db.WithContext(ctx).
		Model(&PipelineRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"finished_at":     now,
			"processed_count": processed,
			"error_count":     errored,
		}).Error; err != nil {
		runErr = errors.Join(runErr, err)
	}

	fields := []zap.Field{
		zap.Duration("duration", now.Sub(run.StartedAt)),
		zap.Int("processed_count", processed),
		zap.Int("error_count", errored),
	}
	if runErr != nil {
		log.Warn("pipeline.run.finish", append(fields, zap.Error(runErr))...)
	} else {
		log.Info("pipeline.run.finish", fields...)
	}
	return runErr
}

// runStage executes one stage with its own timeout and error boundary. A
// panic becomes an error; a deadline is a soft timeout, logged and absorbed
// so the caller retries at the next trigger.
func (o *Orchestrator) runStage(parent context.Context, stage Stage) (processed int, err error) {
	timeout := o.cfg.StageTimeout
	if isImportStage(stage) {
		timeout = o.cfg.ImportTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	ctx = obscontext.WithActor(ctx, "system", "pipeline")

	start := o.clock.Now()
	log := obslogger.WithContext(ctx, o.log).With(zap.String("stage", string(stage)))
	log.Info("pipeline.stage.start")

	pipeMetrics := obsmetrics.Pipeline()
	pipeMetrics.IncStageRun(string(stage))

	defer func() {
		pipeMetrics.ObserveStageDuration(string(stage), time.Since(start))
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", stage, r)
			pipeMetrics.IncStageError(string(stage), err)
			log.Error("pipeline.stage.panic", zap.Any("panic", r))
		}
	}()

	handler, ok := o.handlers[stage]
	if !ok {
		return 0, fmt.Errorf("no handler for stage %q", stage)
	}

	processed, err = handler(ctx)
	if err == nil {
		log.Info("pipeline.stage.finish",
			zap.Int("processed_count", processed),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
		return processed, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		pipeMetrics.IncStageTimeout(string(stage))
		log.Warn("pipeline.stage.timeout",
			zap.Duration("timeout", timeout),
			zap.Error(err))
		return processed, nil
	}

	pipeMetrics.IncStageError(string(stage), err)
	log.Error("pipeline.stage.failed",
		zap.String("error_type", obsmetrics.ClassifyPipelineErrorType(err)),
		zap.Error(err))
	return processed, fmt.Errorf("%s: %w", stage, err)
}

// RunForever dispatches the default target on a fixed interval until the
// context is cancelled.
func (o *Orchestrator) RunForever(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := o.clock.Now().Add(o.cfg.RunInterval)
	pipeMetrics := obsmetrics.Pipeline()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			pipeMetrics.ObserveRunLoopLag(runLag)
		}
		if err := o.Dispatch(ctx, TargetAlways); err != nil {
			o.log.Warn("pipeline run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(o.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) isStageEnabled(stage Stage) bool {
	if len(o.cfg.EnabledStages) == 0 {
		return true
	}
	for _, enabled := range o.cfg.EnabledStages {
		if strings.EqualFold(enabled, string(stage)) {
			return true
		}
	}
	return false
}

func isImportStage(stage Stage) bool {
	switch stage {
	case StageImportDataPlans, StageImportTVPlans, StageImportElectric,
		StageImportEducation, StageImportBettingPlans:
		return true
	default:
		return false
	}
}

func normalizeTarget(target string) string {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return TargetAlways
	}
	return target
}
