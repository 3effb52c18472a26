// Package cost models round-trip trading costs as pure functions of an
// explicit configuration. There are no package-level defaults: every rate
// and threshold is caller-supplied.
package cost

// Config holds the cost parameters for one strategy variant.
type Config struct {
	// FeeRate is the taker fee per leg, fraction of notional.
	FeeRate float64

	// SlippageRate is the slippage estimate per leg, fraction of notional.
	SlippageRate float64

	// Legs is the number of simultaneous legs per side of the round trip.
	// A cross-venue hedge or spot+perp hedge trades 2 legs on entry and
	// 2 on exit; a single outright position trades 1.
	Legs int

	// FinancingAnnualRate is the annualized financing (borrow) rate applied
	// over the holding duration. Zero when the earning leg needs no borrow.
	FinancingAnnualRate float64

	// FinancingOverrides optionally replaces FinancingAnnualRate per
	// instrument.
	FinancingOverrides map[string]float64
}

// Quote is a round-trip cost breakdown, each component a fraction of
// notional. Stateless, recomputed on demand.
type Quote struct {
	EntryCost     float64
	ExitCost      float64
	FinancingCost float64
}

// Total returns the full round-trip cost fraction.
func (q Quote) Total() float64 {
	return q.EntryCost + q.ExitCost + q.FinancingCost
}

// PeriodRate converts an annualized rate to the rate for a holding window
// of holdHours: annual x hours / (24 x 365).
func PeriodRate(annualRate, holdHours float64) float64 {
	return annualRate * holdHours / (24 * 365)
}

// RoundTrip quotes the total cost of opening and later closing a position
// on instrument held for holdHours.
func RoundTrip(cfg Config, instrument string, holdHours float64) Quote {
	legs := float64(cfg.Legs)
	perLeg := cfg.FeeRate + cfg.SlippageRate

	annual := cfg.FinancingAnnualRate
	if override, ok := cfg.FinancingOverrides[instrument]; ok {
		annual = override
	}

	return Quote{
		EntryCost:     legs * perLeg,
		ExitCost:      legs * perLeg,
		FinancingCost: PeriodRate(annual, holdHours),
	}
}
