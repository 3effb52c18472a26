package domain

import "time"

// Exit reason codes for closed trades.
const (
	ExitReasonHoldExpired = "HOLD_EXPIRED"
	ExitReasonYieldDecay  = "YIELD_DECAY"
	ExitReasonEndOfData   = "END_OF_DATA"
)

// ClosedTrade is one completed round trip produced by the simulator.
type ClosedTrade struct {
	RunID      string // simulation run identifier
	Instrument string
	Direction  Direction

	EntryTime time.Time
	ExitTime  time.Time

	EntryYield   float64 // derived yield of the entry event
	AccruedYield float64 // yield accumulated over the holding window
	PeriodsHeld  int

	NotionalFraction float64 // fraction of equity committed at entry

	GrossPnL  float64 // accrued yield x fraction x equity at close, currency units
	EntryCost float64 // charged at open, currency units
	ExitCost  float64 // charged at close, currency units
	NetPnL    float64 // gross - entry cost - exit cost

	ExitReason string
}

// EquityPoint is one sample of the simulated equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// SimulationSummary is the serializable result of one simulation run.
type SimulationSummary struct {
	InitialCapital float64
	FinalEquity    float64

	TotalReturnPct      float64 // (equity/capital - 1) x 100
	AnnualizedReturnPct float64 // pro-rated x 365/daysElapsed, 0 when no span

	TradeCount       int
	WinCount         int
	ForceClosedCount int

	// Positions still open at end of input whose entry event was the last
	// event for the instrument. Their entry costs were paid but never
	// realized; reported rather than silently dropped.
	DiscardedOpenCount   int
	UnrealizedEntryCosts float64

	DaysElapsed float64

	// EquityCurve is bounded to the most recent points (last 100).
	EquityCurve []EquityPoint
}
