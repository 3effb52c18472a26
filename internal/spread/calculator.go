// Package spread derives the comparable per-period economic quantity from
// aligned periods: the cross-venue funding spread, or the single-venue net
// yield after financing.
package spread

import (
	"funding-rate-lab/internal/align"
	"funding-rate-lab/internal/cost"
	"funding-rate-lab/internal/domain"
)

// BorrowTable maps instrument to annualized margin borrow rate for the
// short-spot side of a financed hedge. The DefaultKey entry is the fallback
// for instruments without an explicit rate.
type BorrowTable map[string]float64

// DefaultKey is the BorrowTable fallback entry.
const DefaultKey = "DEFAULT"

// Rate returns the annualized borrow rate for an instrument, falling back
// to the DEFAULT entry, then zero.
func (t BorrowTable) Rate(instrument string) float64 {
	if r, ok := t[instrument]; ok {
		return r
	}
	return t[DefaultKey]
}

// CrossVenue turns aligned cross-venue periods into events.
//
// spread = primary - reference. A positive spread means the primary leg pays
// richer funding: the strategy shorts the primary leg and longs the cheaper
// reference leg (SHORT_PRIMARY). DerivedYield carries the signed spread.
// Periods without a reference rate are skipped.
func CrossVenue(periods []align.Period) []domain.AlignedEvent {
	events := make([]domain.AlignedEvent, 0, len(periods))
	for _, p := range periods {
		if !p.HasReference {
			continue
		}
		s := p.PrimarySum - p.ReferenceRate
		events = append(events, domain.AlignedEvent{
			PeriodStart:    p.PeriodStart,
			Instrument:     p.Instrument,
			PrimaryValue:   p.PrimarySum,
			ReferenceValue: p.ReferenceRate,
			HasReference:   true,
			Direction:      directionForSign(s),
			DerivedYield:   s,
		})
	}
	return events
}

// SingleVenue turns single-venue funding buckets into events for the
// financed delta-neutral hedge.
//
// Positive bucket funding means shorting the perp and holding spot bought
// with cash: no borrow. Negative funding means longing the perp against a
// borrowed spot short: the instrument's annualized borrow rate applies,
// converted to the period length. DerivedYield = |funding| - financing and
// may be negative when the borrow cost exceeds the funding collected.
func SingleVenue(periods []align.Period, borrow BorrowTable, periodHours float64) []domain.AlignedEvent {
	events := make([]domain.AlignedEvent, 0, len(periods))
	for _, p := range periods {
		gross := p.PrimarySum
		if gross < 0 {
			gross = -gross
		}

		financing := 0.0
		if p.PrimarySum < 0 {
			financing = cost.PeriodRate(borrow.Rate(p.Instrument), periodHours)
		}

		events = append(events, domain.AlignedEvent{
			PeriodStart:  p.PeriodStart,
			Instrument:   p.Instrument,
			PrimaryValue: p.PrimarySum,
			Direction:    directionForSign(p.PrimarySum),
			DerivedYield: gross - financing,
		})
	}
	return events
}

// directionForSign maps a positive primary excess to SHORT_PRIMARY.
func directionForSign(v float64) domain.Direction {
	if v > 0 {
		return domain.DirectionShortPrimary
	}
	return domain.DirectionLongPrimary
}
