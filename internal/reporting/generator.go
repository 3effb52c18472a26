package reporting

import (
	"context"
	"sort"
	"time"

	"funding-rate-lab/internal/cost"
	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/stats"
	"funding-rate-lab/internal/storage"
)

// Params selects what the generator reports on.
type Params struct {
	// Start/End bound the aligned events loaded from storage. A zero End
	// means "up to now".
	Start time.Time
	End   time.Time

	// Cost and threshold parameters for the profitability pass.
	CostConfig cost.Config
	MinYield   float64
	HoldHours  float64

	// RunID selects the simulation trades to include. Empty skips the
	// trade table.
	RunID string

	// Summary carries the simulation result when one ran in this process.
	// It is not persisted, so the caller hands it over directly.
	Summary *domain.SimulationSummary
}

// Generator produces reports from stored data.
type Generator struct {
	eventStore storage.AlignedEventStore
	tradeStore storage.ClosedTradeStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(events storage.AlignedEventStore, trades storage.ClosedTradeStore) *Generator {
	return &Generator{
		eventStore: events,
		tradeStore: trades,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report for the given parameters.
func (g *Generator) Generate(ctx context.Context, p Params) (*Report, error) {
	end := p.End
	if end.IsZero() {
		end = g.now()
	}

	events, err := g.eventStore.GetByTimeRange(ctx, p.Start, end)
	if err != nil {
		return nil, err
	}

	agg := stats.Run(deref(events), p.CostConfig, p.MinYield, p.HoldHours)

	report := &Report{
		GeneratedAt:        g.now(),
		RunID:              p.RunID,
		InstrumentCount:    len(agg.ByInstrument),
		DataSummary:        generateDataSummary(events),
		Aggregate:          generateAggregate(agg),
		ByInstrument:       generateInstrumentRows(agg),
		ByMonth:            generateMonthRows(agg),
		SpreadDistribution: generateDistribution(agg),
	}

	if p.Summary != nil {
		report.Simulation = generateSimulation(p.Summary)
	}

	if p.RunID != "" {
		trades, err := g.generateTradeRows(ctx, p.RunID)
		if err != nil {
			return nil, err
		}
		report.Trades = trades
	}

	return report, nil
}

func generateDataSummary(events []*domain.AlignedEvent) DataSummary {
	summary := DataSummary{TotalEvents: len(events)}
	if len(events) == 0 {
		return summary
	}

	summary.DateRangeStart = events[0].PeriodStart
	summary.DateRangeEnd = events[0].PeriodStart
	for _, e := range events {
		if e.PeriodStart.Before(summary.DateRangeStart) {
			summary.DateRangeStart = e.PeriodStart
		}
		if e.PeriodStart.After(summary.DateRangeEnd) {
			summary.DateRangeEnd = e.PeriodStart
		}
	}
	return summary
}

func generateAggregate(agg *domain.AggregateStats) AggregateSection {
	return AggregateSection{
		TradeableEvents:  agg.TradeableEvents,
		ProfitableEvents: agg.ProfitableEvents,
		WinRate:          agg.WinRate(),
		AvgGross:         agg.AvgGross(),
		TotalGross:       agg.TotalGross,
		TotalNet:         agg.TotalNet,
	}
}

// generateInstrumentRows builds sorted per-instrument rows.
func generateInstrumentRows(agg *domain.AggregateStats) []InstrumentRow {
	rows := make([]InstrumentRow, 0, len(agg.ByInstrument))
	for instrument, r := range agg.ByInstrument {
		rows = append(rows, InstrumentRow{
			Instrument: instrument,
			Count:      r.Count,
			Gross:      r.Gross,
			Net:        r.Net,
			AvgGross:   r.AvgGross,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Instrument < rows[j].Instrument
	})
	return rows
}

// generateMonthRows builds chronologically sorted calendar-month rows.
func generateMonthRows(agg *domain.AggregateStats) []MonthRow {
	rows := make([]MonthRow, 0, len(agg.ByMonth))
	for month, r := range agg.ByMonth {
		rows = append(rows, MonthRow{
			Month:    month,
			Count:    r.Count,
			Gross:    r.Gross,
			Net:      r.Net,
			AvgGross: r.AvgGross,
		})
	}

	// Key format "2006-01" makes lexical order chronological.
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Month < rows[j].Month
	})
	return rows
}

// generateDistribution emits every bucket in ascending magnitude order,
// including empty ones.
func generateDistribution(agg *domain.AggregateStats) []DistributionRow {
	rows := make([]DistributionRow, 0, len(domain.BucketLabels))
	for _, label := range domain.BucketLabels {
		count := agg.SpreadDistribution[label]
		var share float64
		if agg.TotalEvents > 0 {
			share = float64(count) / float64(agg.TotalEvents)
		}
		rows = append(rows, DistributionRow{Bucket: label, Count: count, Share: share})
	}
	return rows
}

func generateSimulation(s *domain.SimulationSummary) *SimulationSection {
	return &SimulationSection{
		InitialCapital:       s.InitialCapital,
		FinalEquity:          s.FinalEquity,
		TotalReturnPct:       s.TotalReturnPct,
		AnnualizedReturnPct:  s.AnnualizedReturnPct,
		TradeCount:           s.TradeCount,
		WinCount:             s.WinCount,
		ForceClosedCount:     s.ForceClosedCount,
		DiscardedOpenCount:   s.DiscardedOpenCount,
		UnrealizedEntryCosts: s.UnrealizedEntryCosts,
		DaysElapsed:          s.DaysElapsed,
	}
}

// generateTradeRows loads the run's trades and builds sorted rows.
func (g *Generator) generateTradeRows(ctx context.Context, runID string) ([]TradeRow, error) {
	trades, err := g.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows := make([]TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = TradeRow{
			Instrument:   t.Instrument,
			Direction:    t.Direction.String(),
			EntryTime:    t.EntryTime,
			ExitTime:     t.ExitTime,
			EntryYield:   t.EntryYield,
			AccruedYield: t.AccruedYield,
			PeriodsHeld:  t.PeriodsHeld,
			GrossPnL:     t.GrossPnL,
			NetPnL:       t.NetPnL,
			ExitReason:   t.ExitReason,
		}
	}

	sortTradeRows(rows)
	return rows, nil
}

// sortTradeRows sorts rows by (entry_time, instrument).
func sortTradeRows(rows []TradeRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].EntryTime.Equal(rows[j].EntryTime) {
			return rows[i].EntryTime.Before(rows[j].EntryTime)
		}
		return rows[i].Instrument < rows[j].Instrument
	})
}

func deref(events []*domain.AlignedEvent) []domain.AlignedEvent {
	out := make([]domain.AlignedEvent, len(events))
	for i, e := range events {
		out[i] = *e
	}
	return out
}
