package spread

import (
	"math"
	"testing"
	"time"

	"funding-rate-lab/internal/align"
	"funding-rate-lab/internal/cost"
	"funding-rate-lab/internal/domain"
)

var periodStart = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func crossPeriod(inst string, primarySum, refRate float64) align.Period {
	return align.Period{
		PeriodStart:   periodStart,
		Instrument:    inst,
		PrimarySum:    primarySum,
		SampleCount:   8,
		ReferenceRate: refRate,
		HasReference:  true,
	}
}

func TestCrossVenue_SpreadAndDirection(t *testing.T) {
	events := CrossVenue([]align.Period{crossPeriod("BTC", 0.0008, 0.0005)})
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	e := events[0]
	if math.Abs(e.DerivedYield-0.0003) > 1e-12 {
		t.Errorf("DerivedYield = %v, want 0.0003", e.DerivedYield)
	}
	if e.Direction != domain.DirectionShortPrimary {
		t.Errorf("Direction = %s, want %s", e.Direction, domain.DirectionShortPrimary)
	}
}

func TestCrossVenue_SignLaw(t *testing.T) {
	periods := []align.Period{
		crossPeriod("BTC", 0.0008, 0.0005),
		crossPeriod("ETH", -0.0002, 0.0001),
		crossPeriod("SOL", 0.0001, 0.0004),
		crossPeriod("XRP", 0.0000, 0.0000),
	}

	for _, e := range CrossVenue(periods) {
		positive := e.DerivedYield > 0
		if positive != (e.Direction == domain.DirectionShortPrimary) {
			t.Errorf("%s: sign(%v) inconsistent with direction %s", e.Instrument, e.DerivedYield, e.Direction)
		}
	}
}

func TestCrossVenue_SkipsPeriodsWithoutReference(t *testing.T) {
	periods := []align.Period{{PeriodStart: periodStart, Instrument: "BTC", PrimarySum: 0.0008}}
	if events := CrossVenue(periods); len(events) != 0 {
		t.Fatalf("got %d events, want 0 for reference-less periods", len(events))
	}
}

func TestSingleVenue_PositiveFundingNoBorrow(t *testing.T) {
	borrow := BorrowTable{"BTC": 0.05, DefaultKey: 0.08}
	periods := []align.Period{{PeriodStart: periodStart, Instrument: "BTC", PrimarySum: 0.0010, SampleCount: 8}}

	events := SingleVenue(periods, borrow, 8)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.Direction != domain.DirectionShortPrimary {
		t.Errorf("Direction = %s, want %s (short perp, long spot)", e.Direction, domain.DirectionShortPrimary)
	}
	// Long spot is funded in cash: gross passes through untouched.
	if math.Abs(e.DerivedYield-0.0010) > 1e-12 {
		t.Errorf("DerivedYield = %v, want 0.0010", e.DerivedYield)
	}
}

func TestSingleVenue_NegativeFundingPaysBorrow(t *testing.T) {
	borrow := BorrowTable{DefaultKey: 0.08}
	periods := []align.Period{{PeriodStart: periodStart, Instrument: "DOGE", PrimarySum: -0.0010, SampleCount: 8}}

	events := SingleVenue(periods, borrow, 8)
	e := events[0]
	if e.Direction != domain.DirectionLongPrimary {
		t.Errorf("Direction = %s, want %s (long perp, short spot margin)", e.Direction, domain.DirectionLongPrimary)
	}
	want := 0.0010 - cost.PeriodRate(0.08, 8)
	if math.Abs(e.DerivedYield-want) > 1e-12 {
		t.Errorf("DerivedYield = %v, want %v", e.DerivedYield, want)
	}
}

func TestBorrowTable_Fallbacks(t *testing.T) {
	table := BorrowTable{"BTC": 0.05, DefaultKey: 0.08}
	if got := table.Rate("BTC"); got != 0.05 {
		t.Errorf("Rate(BTC) = %v, want 0.05", got)
	}
	if got := table.Rate("PEPE"); got != 0.08 {
		t.Errorf("Rate(PEPE) = %v, want 0.08", got)
	}
	if got := (BorrowTable{}).Rate("BTC"); got != 0 {
		t.Errorf("empty table Rate = %v, want 0", got)
	}
}
