package reporting

import "time"

// Report represents the full analysis report structure.
type Report struct {
	// Metadata
	GeneratedAt     time.Time
	RunID           string
	InstrumentCount int

	// Data Summary
	DataSummary DataSummary

	// Aggregate Profitability
	Aggregate AggregateSection

	// Rollups (sorted by key)
	ByInstrument []InstrumentRow
	ByMonth      []MonthRow

	// Spread Distribution (fixed bucket order, ascending magnitude)
	SpreadDistribution []DistributionRow

	// Simulation (nil when no simulation ran)
	Simulation *SimulationSection

	// Closed Trades (sorted by entry_time, instrument)
	Trades []TradeRow
}

// DataSummary contains data description.
type DataSummary struct {
	TotalEvents    int
	DateRangeStart time.Time
	DateRangeEnd   time.Time
}

// AggregateSection contains batch profitability totals.
type AggregateSection struct {
	TradeableEvents  int
	ProfitableEvents int
	WinRate          float64
	AvgGross         float64
	TotalGross       float64
	TotalNet         float64
}

// InstrumentRow represents one row in the per-instrument rollup table.
type InstrumentRow struct {
	Instrument string
	Count      int
	Gross      float64
	Net        float64
	AvgGross   float64
}

// MonthRow represents one row in the calendar-month rollup table.
type MonthRow struct {
	Month    string // "2006-01"
	Count    int
	Gross    float64
	Net      float64
	AvgGross float64
}

// DistributionRow is one spread magnitude bucket.
type DistributionRow struct {
	Bucket string
	Count  int
	Share  float64 // count / total events, 0 when no events
}

// SimulationSection summarizes one simulation run.
type SimulationSection struct {
	InitialCapital      float64
	FinalEquity         float64
	TotalReturnPct      float64
	AnnualizedReturnPct float64

	TradeCount       int
	WinCount         int
	ForceClosedCount int

	DiscardedOpenCount   int
	UnrealizedEntryCosts float64

	DaysElapsed float64
}

// TradeRow represents one closed trade in the report.
type TradeRow struct {
	Instrument   string
	Direction    string
	EntryTime    time.Time
	ExitTime     time.Time
	EntryYield   float64
	AccruedYield float64
	PeriodsHeld  int
	GrossPnL     float64
	NetPnL       float64
	ExitReason   string
}
