package domain

import "time"

// Venue identifies the exchange a funding record was observed on.
type Venue string

const (
	VenueHyperliquid Venue = "hyperliquid"
	VenueBinance     Venue = "binance"
)

// String returns the string representation of Venue.
func (v Venue) String() string {
	return string(v)
}

// IsValid checks if the venue is a known value.
func (v Venue) IsValid() bool {
	return v == VenueHyperliquid || v == VenueBinance
}

// SettlementInterval returns the venue's native funding settlement cadence.
// Hyperliquid settles hourly, Binance every 8 hours.
func (v Venue) SettlementInterval() time.Duration {
	switch v {
	case VenueHyperliquid:
		return time.Hour
	case VenueBinance:
		return 8 * time.Hour
	default:
		return 8 * time.Hour
	}
}

// FundingRecord is a single funding settlement observation at a venue's
// native cadence. Immutable once produced by the fetch layer.
type FundingRecord struct {
	Timestamp  time.Time // settlement instant, UTC
	Venue      Venue
	Instrument string  // e.g. "BTC", "ETHUSDT" normalized to base coin
	Rate       float64 // raw rate for the venue's native interval, decimal (0.0005 = 0.05%)
}
