package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Funding Alignment Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s | Instruments: %d\n\n", r.RunID, r.InstrumentCount))
	} else {
		sb.WriteString(fmt.Sprintf("Instruments: %d\n\n", r.InstrumentCount))
	}

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Aligned Events | %d |\n", r.DataSummary.TotalEvents))
	sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", formatTime(r.DataSummary.DateRangeStart)))
	sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", formatTime(r.DataSummary.DateRangeEnd)))
	sb.WriteString("\n")

	// Aggregate Profitability
	sb.WriteString("## Aggregate Profitability\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Tradeable Events | %d |\n", r.Aggregate.TradeableEvents))
	sb.WriteString(fmt.Sprintf("| Profitable Events | %d |\n", r.Aggregate.ProfitableEvents))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", r.Aggregate.WinRate))
	sb.WriteString(fmt.Sprintf("| Avg Gross Yield | %.6f |\n", r.Aggregate.AvgGross))
	sb.WriteString(fmt.Sprintf("| Total Gross Yield | %.6f |\n", r.Aggregate.TotalGross))
	sb.WriteString(fmt.Sprintf("| Total Net Yield | %.6f |\n", r.Aggregate.TotalNet))
	sb.WriteString("\n")

	// Per-Instrument Rollup
	sb.WriteString("## Per-Instrument Rollup\n\n")
	if len(r.ByInstrument) > 0 {
		sb.WriteString("| Instrument | Events | Gross | Net | AvgGross |\n")
		sb.WriteString("|------------|--------|-------|-----|----------|\n")
		for _, row := range r.ByInstrument {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.6f | %.6f | %.6f |\n",
				row.Instrument, row.Count, row.Gross, row.Net, row.AvgGross))
		}
	} else {
		sb.WriteString("No instrument rollup available.\n")
	}
	sb.WriteString("\n")

	// Monthly Rollup
	sb.WriteString("## Monthly Rollup\n\n")
	if len(r.ByMonth) > 0 {
		sb.WriteString("| Month | Events | Gross | Net | AvgGross |\n")
		sb.WriteString("|-------|--------|-------|-----|----------|\n")
		for _, row := range r.ByMonth {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.6f | %.6f | %.6f |\n",
				row.Month, row.Count, row.Gross, row.Net, row.AvgGross))
		}
	} else {
		sb.WriteString("No monthly rollup available.\n")
	}
	sb.WriteString("\n")

	// Spread Distribution
	sb.WriteString("## Spread Distribution\n\n")
	if r.DataSummary.TotalEvents > 0 {
		sb.WriteString("| Bucket | Count | Share |\n")
		sb.WriteString("|--------|-------|-------|\n")
		for _, row := range r.SpreadDistribution {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f%% |\n",
				row.Bucket, row.Count, row.Share*100))
		}
	} else {
		sb.WriteString("No spread distribution available.\n")
	}
	sb.WriteString("\n")

	// Simulation
	sb.WriteString("## Simulation\n\n")
	if r.Simulation != nil {
		s := r.Simulation
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Initial Capital | %.2f |\n", s.InitialCapital))
		sb.WriteString(fmt.Sprintf("| Final Equity | %.2f |\n", s.FinalEquity))
		sb.WriteString(fmt.Sprintf("| Total Return | %.4f%% |\n", s.TotalReturnPct))
		sb.WriteString(fmt.Sprintf("| Annualized Return | %.4f%% |\n", s.AnnualizedReturnPct))
		sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.TradeCount))
		sb.WriteString(fmt.Sprintf("| Winning Trades | %d |\n", s.WinCount))
		sb.WriteString(fmt.Sprintf("| Force-Closed Trades | %d |\n", s.ForceClosedCount))
		sb.WriteString(fmt.Sprintf("| Discarded Open Positions | %d |\n", s.DiscardedOpenCount))
		sb.WriteString(fmt.Sprintf("| Unrealized Entry Costs | %.6f |\n", s.UnrealizedEntryCosts))
		sb.WriteString(fmt.Sprintf("| Days Elapsed | %.2f |\n", s.DaysElapsed))
	} else {
		sb.WriteString("No simulation results available.\n")
	}
	sb.WriteString("\n")

	// Closed Trades
	sb.WriteString("## Closed Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Instrument | Direction | Entry | Exit | EntryYield | Accrued | Periods | Gross | Net | Reason |\n")
		sb.WriteString("|------------|-----------|-------|------|------------|---------|---------|-------|-----|--------|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.6f | %.6f | %d | %.4f | %.4f | %s |\n",
				t.Instrument, t.Direction,
				formatTime(t.EntryTime), formatTime(t.ExitTime),
				t.EntryYield, t.AccruedYield, t.PeriodsHeld,
				t.GrossPnL, t.NetPnL, t.ExitReason))
		}
	} else {
		sb.WriteString("No closed trades available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
