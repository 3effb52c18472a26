package domain

import "time"

// Direction indicates which leg of the hedge is shorted.
//
// For a cross-venue pair the "primary" leg is the high-frequency venue
// (Hyperliquid hourly) and the "reference" leg is the low-frequency one
// (Binance 8h). A positive spread means the primary leg pays richer funding,
// so the arbitrage shorts the primary leg and longs the reference leg.
//
// For a single-venue hedge the primary leg is the perp: SHORT_PRIMARY is
// short perp + long spot (positive funding), LONG_PRIMARY is long perp +
// short spot margin (negative funding).
type Direction string

const (
	DirectionShortPrimary Direction = "SHORT_PRIMARY"
	DirectionLongPrimary  Direction = "LONG_PRIMARY"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// AlignedEvent is one fully reconciled comparison period. PeriodStart values
// are strictly increasing and non-overlapping per instrument. Never mutated
// after creation.
type AlignedEvent struct {
	PeriodStart time.Time // period boundary, UTC
	Instrument  string

	// PrimaryValue is the accumulated high-frequency sum over the period
	// (or the bucket sum in single-venue mode).
	PrimaryValue float64

	// ReferenceValue is the low-frequency rate at the boundary. Only set in
	// cross-venue mode; HasReference distinguishes a genuine zero rate.
	ReferenceValue float64
	HasReference   bool

	Direction Direction

	// DerivedYield is the comparable per-period economic quantity: the signed
	// spread (cross-venue) or net yield after financing (single-venue).
	DerivedYield float64
}
