package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderTradesCSV renders closed trade rows as CSV string.
func RenderTradesCSV(trades []TradeRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("instrument,direction,entry_time,exit_time,entry_yield,accrued_yield,")
	sb.WriteString("periods_held,gross_pnl,net_pnl,exit_reason\n")

	// Rows
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.8f,%.8f,%d,%.6f,%.6f,%s\n",
			t.Instrument,
			t.Direction,
			t.EntryTime.UTC().Format(time.RFC3339),
			t.ExitTime.UTC().Format(time.RFC3339),
			t.EntryYield,
			t.AccruedYield,
			t.PeriodsHeld,
			t.GrossPnL,
			t.NetPnL,
			t.ExitReason,
		))
	}

	return sb.String()
}

// RenderInstrumentsCSV renders the per-instrument rollup as CSV string.
func RenderInstrumentsCSV(rows []InstrumentRow) string {
	var sb strings.Builder

	sb.WriteString("instrument,events,gross,net,avg_gross\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%.8f,%.8f,%.8f\n",
			r.Instrument, r.Count, r.Gross, r.Net, r.AvgGross))
	}

	return sb.String()
}
