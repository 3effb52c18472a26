// Package stats computes batch profitability statistics over aligned event
// sequences. A pass is purely additive: totals are independent of event
// order and re-running the same pass yields identical output.
package stats

import (
	"math"

	"funding-rate-lab/internal/cost"
	"funding-rate-lab/internal/domain"
)

// monthKey is the calendar-month rollup key format.
const monthKey = "2006-01"

// Aggregator accumulates profitability statistics for one cost/threshold
// configuration. Not safe for concurrent use; each pass owns its own
// accumulator.
type Aggregator struct {
	costCfg      cost.Config
	minThreshold float64
	holdHours    float64

	result *domain.AggregateStats
}

// NewAggregator creates an aggregator. minThreshold is the minimum absolute
// derived yield for an event to count as tradeable; holdHours feeds the
// cost model's financing conversion.
func NewAggregator(costCfg cost.Config, minThreshold, holdHours float64) *Aggregator {
	return &Aggregator{
		costCfg:      costCfg,
		minThreshold: minThreshold,
		holdHours:    holdHours,
		result:       domain.NewAggregateStats(),
	}
}

// Observe folds one event into the accumulator.
func (a *Aggregator) Observe(e domain.AlignedEvent) {
	s := a.result
	s.TotalEvents++

	absYield := math.Abs(e.DerivedYield)
	s.SpreadDistribution[domain.BucketFor(absYield)]++

	if absYield < a.minThreshold {
		return
	}

	s.TradeableEvents++
	s.TotalGross += absYield

	net := absYield - cost.RoundTrip(a.costCfg, e.Instrument, a.holdHours).Total()
	if net > 0 {
		s.ProfitableEvents++
		s.TotalNet += net
	}

	inst := domain.Rollup(s.ByInstrument, e.Instrument)
	inst.Count++
	inst.Gross += absYield
	inst.Net += max(0, net)

	month := domain.Rollup(s.ByMonth, e.PeriodStart.UTC().Format(monthKey))
	month.Count++
	month.Gross += absYield
	month.Net += max(0, net)
}

// Run folds a whole event sequence and returns the finalized statistics.
func Run(events []domain.AlignedEvent, costCfg cost.Config, minThreshold, holdHours float64) *domain.AggregateStats {
	a := NewAggregator(costCfg, minThreshold, holdHours)
	for _, e := range events {
		a.Observe(e)
	}
	return a.Result()
}

// Result finalizes derived averages and returns the accumulated statistics.
// The returned value must be treated as read-only.
func (a *Aggregator) Result() *domain.AggregateStats {
	a.result.Finalize()
	return a.result
}
