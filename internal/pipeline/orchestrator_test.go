package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stageRecorder implements every service interface the orchestrator consumes
// and records which stages actually ran, in order.
type stageRecorder struct {
	mu     sync.Mutex
	ran    []string
	errs   map[string]error
	panics map[string]bool
	slow   map[string]time.Duration
}

func newStageRecorder() *stageRecorder {
	return &stageRecorder{
		errs:   map[string]error{},
		panics: map[string]bool{},
		slow:   map[string]time.Duration{},
	}
}

func (r *stageRecorder) hit(ctx context.Context, stage string) (int, error) {
	r.mu.Lock()
	r.ran = append(r.ran, stage)
	r.mu.Unlock()

	if d, ok := r.slow[stage]; ok {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(d):
		}
	}
	if r.panics[stage] {
		panic("stage blew up")
	}
	if err := r.errs[stage]; err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *stageRecorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

func (r *stageRecorder) FulfillOrders(ctx context.Context, limit int) (int, error) {
	return r.hit(ctx, "fulfill_orders")
}
func (r *stageRecorder) QueryOrders(ctx context.Context, limit int) (int, error) {
	return r.hit(ctx, "query_orders")
}
func (r *stageRecorder) SettleOrders(ctx context.Context, limit int) (int, error) {
	return r.hit(ctx, "settle_orders")
}
func (r *stageRecorder) QueryPayments(ctx context.Context, limit int) (int, error) {
	return r.hit(ctx, "query_payments")
}
func (r *stageRecorder) SettlePayments(ctx context.Context, limit int) (int, error) {
	return r.hit(ctx, "settle_payments")
}
func (r *stageRecorder) SettlePayouts(ctx context.Context, limit int) (int, error) {
	return r.hit(ctx, "settle_payouts")
}
func (r *stageRecorder) SettleTrades(ctx context.Context, limit int) (int, error) {
	return r.hit(ctx, "settle_trades")
}
func (r *stageRecorder) Import(ctx context.Context, serviceType string) (int, error) {
	return r.hit(ctx, "import_"+serviceType)
}
func (r *stageRecorder) RecalculatePrices(ctx context.Context) (int, error) {
	return r.hit(ctx, "recalc_prices")
}
func (r *stageRecorder) ExchangeRate(ctx context.Context, currencyCode string) (float64, error) {
	return 1, nil
}
func (r *stageRecorder) RevenueRate(ctx context.Context, level int) (float64, error) {
	return 0, nil
}
func (r *stageRecorder) RefreshExchangeRates(ctx context.Context) (int, error) {
	return r.hit(ctx, "update_exchange_rates")
}
func (r *stageRecorder) RefreshRevenueRates(ctx context.Context) (int, error) {
	return r.hit(ctx, "update_rev_rates")
}

func setupOrchestrator(t *testing.T, recorder *stageRecorder, cfg Config) (*Orchestrator, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&PipelineRun{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	o, err := New(Params{
		DB:             db,
		Log:            zap.NewNop(),
		Clock:          clock.SystemClock{},
		GenID:          node,
		FulfillmentSvc: recorder,
		SettlementSvc:  recorder,
		CatalogSvc:     recorder,
		RatesSvc:       recorder,
		Config:         cfg,
	})
	require.NoError(t, err)
	return o, db
}

func TestDispatchAlwaysRunsMoneyPathInOrder(t *testing.T) {
	recorder := newStageRecorder()
	o, db := setupOrchestrator(t, recorder, Config{})

	require.NoError(t, o.Dispatch(context.Background(), TargetAlways))

	assert.Equal(t, []string{
		"fulfill_orders",
		"query_payments",
		"settle_payments",
		"settle_orders",
		"settle_payouts",
		"settle_trades",
	}, recorder.order())

	var run PipelineRun
	require.NoError(t, db.First(&run).Error)
	assert.Equal(t, TargetAlways, run.Target)
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, 6, run.ProcessedCount)
	assert.Zero(t, run.ErrorCount)
}

func TestDispatchStageFailureDoesNotStopLaterStages(t *testing.T) {
	recorder := newStageRecorder()
	recorder.errs["query_payments"] = assert.AnError
	o, db := setupOrchestrator(t, recorder, Config{})

	err := o.Dispatch(context.Background(), TargetAlways)
	assert.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, []string{
		"fulfill_orders",
		"query_payments",
		"settle_payments",
		"settle_orders",
		"settle_payouts",
		"settle_trades",
	}, recorder.order(), "stages after the failure still run")

	var run PipelineRun
	require.NoError(t, db.First(&run).Error)
	assert.Equal(t, 1, run.ErrorCount)
}

func TestDispatchStagePanicIsContained(t *testing.T) {
	recorder := newStageRecorder()
	recorder.panics["settle_payments"] = true
	o, _ := setupOrchestrator(t, recorder, Config{})

	err := o.Dispatch(context.Background(), TargetAlways)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Contains(t, recorder.order(), "settle_trades", "stages after the panic still run")
}

func TestDispatchStageTimeoutIsSoft(t *testing.T) {
	recorder := newStageRecorder()
	recorder.slow["fulfill_orders"] = 200 * time.Millisecond
	o, db := setupOrchestrator(t, recorder, Config{StageTimeout: 20 * time.Millisecond})

	err := o.Dispatch(context.Background(), TargetAlways)
	assert.NoError(t, err, "a deadline is not a run failure")

	var run PipelineRun
	require.NoError(t, db.First(&run).Error)
	assert.Zero(t, run.ErrorCount)
	assert.Contains(t, recorder.order(), "settle_trades")
}

func TestDispatchAllUtilityImportsThenRecalculates(t *testing.T) {
	recorder := newStageRecorder()
	o, _ := setupOrchestrator(t, recorder, Config{})

	require.NoError(t, o.Dispatch(context.Background(), TargetAllUtility))

	order := recorder.order()
	assert.Equal(t, []string{
		"import_data",
		"import_tv",
		"import_electric",
		"import_education",
		"import_betting",
		"recalc_prices",
	}, order)
}

func TestDispatchSingleStage(t *testing.T) {
	recorder := newStageRecorder()
	o, _ := setupOrchestrator(t, recorder, Config{})

	require.NoError(t, o.Dispatch(context.Background(), "settle_trades"))
	assert.Equal(t, []string{"settle_trades"}, recorder.order())
}

func TestDispatchHonorsEnabledStages(t *testing.T) {
	recorder := newStageRecorder()
	o, _ := setupOrchestrator(t, recorder, Config{
		EnabledStages: []string{"fulfill_orders", "settle_orders"},
	})

	require.NoError(t, o.Dispatch(context.Background(), TargetAlways))
	assert.Equal(t, []string{"fulfill_orders", "settle_orders"}, recorder.order())
}

func TestTriggerAcksBeforeRunFinishes(t *testing.T) {
	recorder := newStageRecorder()
	o, db := setupOrchestrator(t, recorder, Config{})

	runID, err := o.Trigger(context.Background(), "settle_trades")
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	// The run marker is persisted at ack time.
	var run PipelineRun
	require.NoError(t, db.First(&run, "run_id = ?", runID).Error)

	// The background run eventually executes the stage.
	assert.Eventually(t, func() bool {
		return len(recorder.order()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
