package pipeline

import "strings"

// Stage names one unit of pipeline work. Dispatch goes through a typed
// table, not string switches scattered around call sites.
type Stage string

const (
	StageFulfillOrders       Stage = "fulfill_orders"
	StageQueryOrders         Stage = "query_orders"
	StageQueryPayments       Stage = "query_payments"
	StageSettleOrders        Stage = "settle_orders"
	StageSettlePayments      Stage = "settle_payments"
	StageSettlePayouts       Stage = "settle_payouts"
	StageSettleTrades        Stage = "settle_trades"
	StageImportDataPlans     Stage = "import_data_plans"
	StageImportTVPlans       Stage = "import_tv_plans"
	StageImportElectric      Stage = "import_electric"
	StageImportEducation     Stage = "import_education"
	StageImportBettingPlans  Stage = "import_betting_plans"
	StageRecalcPrices        Stage = "recalc_prices"
	StageUpdateExchangeRates Stage = "update_exchange_rates"
	StageUpdateRevRates      Stage = "update_rev_rates"
	StageMigrateData         Stage = "migrate_data"
)

// Composite targets. Sub-stage order is load-bearing: settlement reads what
// fulfillment wrote, and price recalculation reads what imports wrote.
const (
	TargetAlways     = "always"
	TargetAll        = "all"
	TargetAllUtility = "all_utility"
)

// alwaysStages is the per-trigger money path.
var alwaysStages = []Stage{
	StageFulfillOrders,
	StageQueryPayments,
	StageSettlePayments,
	StageSettleOrders,
	StageSettlePayouts,
	StageSettleTrades,
}

// utilityStages refreshes the purchasable catalog.
var utilityStages = []Stage{
	StageImportDataPlans,
	StageImportTVPlans,
	StageImportElectric,
	StageImportEducation,
	StageImportBettingPlans,
	StageRecalcPrices,
}

// allStages is the full sweep; imports run after settlement so they never
// replace prices settlement is reading.
func allStages() []Stage {
	stages := make([]Stage, 0, len(alwaysStages)+len(utilityStages)+4)
	stages = append(stages, alwaysStages...)
	stages = append(stages, StageQueryOrders)
	stages = append(stages, StageUpdateRevRates, StageUpdateExchangeRates)
	stages = append(stages, utilityStages...)
	stages = append(stages, StageMigrateData)
	return stages
}

// ResolveTarget expands a trigger target into the stage sequence to run.
// Unknown targets fall back to the full sweep.
func ResolveTarget(target string) []Stage {
	switch strings.ToLower(strings.TrimSpace(target)) {
	case TargetAlways, "":
		return append([]Stage(nil), alwaysStages...)
	case TargetAllUtility:
		return append([]Stage(nil), utilityStages...)
	case TargetAll:
		return allStages()
	default:
		if _, ok := stageSet[Stage(strings.ToLower(strings.TrimSpace(target)))]; ok {
			return []Stage{Stage(strings.ToLower(strings.TrimSpace(target)))}
		}
		return allStages()
	}
}

var stageSet = map[Stage]struct{}{
	StageFulfillOrders:       {},
	StageQueryOrders:         {},
	StageQueryPayments:       {},
	StageSettleOrders:        {},
	StageSettlePayments:      {},
	StageSettlePayouts:       {},
	StageSettleTrades:        {},
	StageImportDataPlans:     {},
	StageImportTVPlans:       {},
	StageImportElectric:      {},
	StageImportEducation:     {},
	StageImportBettingPlans:  {},
	StageRecalcPrices:        {},
	StageUpdateExchangeRates: {},
	StageUpdateRevRates:      {},
	StageMigrateData:         {},
}
