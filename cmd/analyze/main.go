package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"funding-rate-lab/internal/align"
	"funding-rate-lab/internal/config"
	"funding-rate-lab/internal/cost"
	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/observability"
	"funding-rate-lab/internal/sim"
	"funding-rate-lab/internal/spread"
	"funding-rate-lab/internal/stats"
	"funding-rate-lab/internal/storage"
	chstore "funding-rate-lab/internal/storage/clickhouse"
	"funding-rate-lab/internal/storage/memory"
	"funding-rate-lab/internal/storage/migrations"
	pgstore "funding-rate-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	mode := flag.String("mode", "cross-venue", "Alignment mode: cross-venue or single-venue")
	venue := flag.String("venue", "hyperliquid", "Venue for single-venue mode")
	runID := flag.String("run-id", "", "Simulation run identifier (default: timestamp)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	jsonOut := flag.Bool("json", false, "Print results as JSON to stdout")
	flag.Parse()

	logger := log.New(os.Stdout, "[analyze] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}

	if *runID == "" {
		*runID = "run-" + time.Now().UTC().Format("20060102-150405")
	}

	ctx := context.Background()
	start := time.Now()

	if err := run(ctx, logger, cfg, *mode, *venue, *runID, *useMemory, *jsonOut); err != nil {
		observability.RecordAnalysisRun(*mode, "error", time.Since(start).Seconds())
		logger.Fatalf("Error: %v", err)
	}

	observability.RecordAnalysisRun(*mode, "success", time.Since(start).Seconds())
	observability.DefaultMetrics.LastSuccessfulAnalysis.Set(float64(time.Now().Unix()))
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config, mode, venueName, runID string, useMemory, jsonOut bool) error {
	if !useMemory && (cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickhouseDSN == "") {
		return fmt.Errorf("storage.postgres_dsn and storage.clickhouse_dsn are required (use --use-memory)")
	}

	// Create stores (use interfaces)
	var recordStore storage.FundingRecordStore = memory.NewFundingRecordStore()
	var eventStore storage.AlignedEventStore = memory.NewAlignedEventStore()
	var tradeStore storage.ClosedTradeStore = memory.NewClosedTradeStore()

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}

		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		defer conn.Close()

		recordStore = pgstore.NewFundingRecordStore(pool)
		eventStore = chstore.NewAlignedEventStore(conn)
		tradeStore = pgstore.NewClosedTradeStore(pool)
	}

	// Align
	events, err := alignEvents(ctx, cfg, recordStore, mode, venueName)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		logger.Println("No aligned events produced; nothing to analyze")
		return nil
	}
	observability.RecordAligned(len(events))
	logger.Printf("Aligned %d events across %d instruments", len(events), countInstruments(events))

	if err := storeEvents(ctx, logger, eventStore, events); err != nil {
		return err
	}

	costCfg := costConfig(cfg)

	// Batch profitability pass
	agg := stats.Run(events, costCfg, cfg.Sim.MinYieldToEnter, periodHours(cfg))
	logger.Printf("Stats: %d tradeable of %d events, win rate %.4f, total net %.6f",
		agg.TradeableEvents, agg.TotalEvents, agg.WinRate(), agg.TotalNet)

	// Simulation
	quote := cost.RoundTrip(costCfg, "", periodHours(cfg))
	result, err := sim.Run(events, sim.Config{
		RunID:              runID,
		Capital:            cfg.Sim.Capital,
		PositionFraction:   cfg.Sim.PositionFraction,
		MaxPositions:       cfg.Sim.MaxPositions,
		MinYieldToEnter:    cfg.Sim.MinYieldToEnter,
		HoldPeriods:        cfg.Sim.HoldPeriods,
		PeriodHours:        periodHours(cfg),
		EntryCost:          quote.EntryCost,
		ExitCost:           quote.ExitCost,
		ExitPolicy:         sim.ExitPolicy(cfg.Sim.ExitPolicy),
		YieldDecayFraction: cfg.Sim.YieldDecayFraction,
	})
	if err != nil {
		return fmt.Errorf("run simulation: %w", err)
	}
	observability.DefaultMetrics.TradesSimulated.Add(float64(len(result.Trades)))

	if err := storeTrades(ctx, logger, tradeStore, result.Trades); err != nil {
		return err
	}

	s := result.Summary
	if jsonOut {
		out, err := json.MarshalIndent(struct {
			RunID   string                    `json:"run_id"`
			Stats   *domain.AggregateStats    `json:"stats"`
			Summary *domain.SimulationSummary `json:"summary"`
		}{runID, agg, &s}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	logger.Printf("Simulation %s: %d trades (%d wins, %d force-closed), equity %.2f -> %.2f (%.4f%% total, %.4f%% annualized)",
		runID, s.TradeCount, s.WinCount, s.ForceClosedCount,
		s.InitialCapital, s.FinalEquity, s.TotalReturnPct, s.AnnualizedReturnPct)
	if s.DiscardedOpenCount > 0 {
		logger.Printf("Discarded %d never-settled open positions (%.6f entry costs unrealized)",
			s.DiscardedOpenCount, s.UnrealizedEntryCosts)
	}

	return nil
}

// alignEvents loads funding records and produces aligned events for the
// selected mode.
func alignEvents(ctx context.Context, cfg *config.Config, recordStore storage.FundingRecordStore, mode, venueName string) ([]domain.AlignedEvent, error) {
	opts := align.Options{
		WindowHours: cfg.Align.WindowHours,
		Tolerance:   cfg.Align.Tolerance(),
		Coverage:    cfg.Align.Coverage,
	}

	switch mode {
	case "cross-venue":
		primary, err := loadRecords(ctx, recordStore, domain.VenueHyperliquid, cfg.Fetch.Instruments)
		if err != nil {
			return nil, err
		}
		reference, err := loadRecords(ctx, recordStore, domain.VenueBinance, cfg.Fetch.Instruments)
		if err != nil {
			return nil, err
		}
		return spread.CrossVenue(align.CrossVenue(primary, reference, opts)), nil

	case "single-venue":
		venue := domain.Venue(venueName)
		if !venue.IsValid() {
			return nil, fmt.Errorf("unknown venue %q", venueName)
		}
		records, err := loadRecords(ctx, recordStore, venue, cfg.Fetch.Instruments)
		if err != nil {
			return nil, err
		}
		return spread.SingleVenue(align.Buckets(records, opts), borrowTable(cfg), periodHours(cfg)), nil

	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// loadRecords gathers one venue's records for all configured instruments.
func loadRecords(ctx context.Context, store storage.FundingRecordStore, venue domain.Venue, instruments []string) ([]domain.FundingRecord, error) {
	var out []domain.FundingRecord
	for _, instrument := range instruments {
		records, err := store.GetByInstrument(ctx, venue, instrument)
		if err != nil {
			return nil, fmt.Errorf("load %s/%s records: %w", venue, instrument, err)
		}
		for _, r := range records {
			out = append(out, *r)
		}
	}
	return out, nil
}

func storeEvents(ctx context.Context, logger *log.Logger, store storage.AlignedEventStore, events []domain.AlignedEvent) error {
	batch := make([]*domain.AlignedEvent, len(events))
	for i := range events {
		batch[i] = &events[i]
	}

	err := store.InsertBulk(ctx, batch)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Re-running the same window is fine; the events are already there.
		logger.Println("Aligned events already stored, skipping insert")
		return nil
	}
	if err != nil {
		return fmt.Errorf("store aligned events: %w", err)
	}
	return nil
}

func storeTrades(ctx context.Context, logger *log.Logger, store storage.ClosedTradeStore, trades []domain.ClosedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := make([]*domain.ClosedTrade, len(trades))
	for i := range trades {
		batch[i] = &trades[i]
	}

	err := store.InsertBulk(ctx, batch)
	if errors.Is(err, storage.ErrDuplicateKey) {
		logger.Println("Trades for this run already stored, skipping insert")
		return nil
	}
	if err != nil {
		return fmt.Errorf("store trades: %w", err)
	}
	return nil
}

func costConfig(cfg *config.Config) cost.Config {
	return cost.Config{
		FeeRate:             cfg.Costs.FeeRate,
		SlippageRate:        cfg.Costs.SlippageRate,
		Legs:                cfg.Costs.Legs,
		FinancingAnnualRate: cfg.Costs.FinancingAnnualRate,
		FinancingOverrides:  cfg.Costs.FinancingOverrides,
	}
}

func borrowTable(cfg *config.Config) spread.BorrowTable {
	table := spread.BorrowTable{spread.DefaultKey: cfg.Borrow.Default}
	for instrument, rate := range cfg.Borrow.Rates {
		table[instrument] = rate
	}
	return table
}

func periodHours(cfg *config.Config) float64 {
	return float64(cfg.Align.WindowHours)
}

func countInstruments(events []domain.AlignedEvent) int {
	seen := make(map[string]struct{})
	for _, e := range events {
		seen[e.Instrument] = struct{}{}
	}
	return len(seen)
}
