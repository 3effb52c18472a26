package cost

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestRoundTrip_TwoLegs(t *testing.T) {
	cfg := Config{
		FeeRate:      0.0002,
		SlippageRate: 0.0001,
		Legs:         2,
	}

	q := RoundTrip(cfg, "BTC", 8)

	// 2 legs x (fee + slippage) per side
	if !almostEqual(q.EntryCost, 0.0006) {
		t.Errorf("EntryCost = %v, want 0.0006", q.EntryCost)
	}
	if !almostEqual(q.ExitCost, 0.0006) {
		t.Errorf("ExitCost = %v, want 0.0006", q.ExitCost)
	}
	if !almostEqual(q.Total(), 0.0012) {
		t.Errorf("Total = %v, want 0.0012", q.Total())
	}
}

func TestRoundTrip_FinancingConversion(t *testing.T) {
	cfg := Config{
		Legs:                2,
		FinancingAnnualRate: 0.10, // 10% APY
	}

	q := RoundTrip(cfg, "SOL", 8)

	want := 0.10 * 8 / (24 * 365)
	if !almostEqual(q.FinancingCost, want) {
		t.Errorf("FinancingCost = %v, want %v", q.FinancingCost, want)
	}
}

func TestRoundTrip_FinancingOverride(t *testing.T) {
	cfg := Config{
		Legs:                2,
		FinancingAnnualRate: 0.08,
		FinancingOverrides:  map[string]float64{"BTC": 0.05},
	}

	overridden := RoundTrip(cfg, "BTC", 24)
	fallback := RoundTrip(cfg, "DOGE", 24)

	if !almostEqual(overridden.FinancingCost, PeriodRate(0.05, 24)) {
		t.Errorf("override FinancingCost = %v, want %v", overridden.FinancingCost, PeriodRate(0.05, 24))
	}
	if !almostEqual(fallback.FinancingCost, PeriodRate(0.08, 24)) {
		t.Errorf("fallback FinancingCost = %v, want %v", fallback.FinancingCost, PeriodRate(0.08, 24))
	}
}

func TestPeriodRate_ZeroHold(t *testing.T) {
	if got := PeriodRate(0.10, 0); got != 0 {
		t.Errorf("PeriodRate(0.10, 0) = %v, want 0", got)
	}
}
