package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funding-rate-lab/internal/config"
	"funding-rate-lab/internal/exchange"
	"funding-rate-lab/internal/observability"
	"funding-rate-lab/internal/storage"
	"funding-rate-lab/internal/storage/memory"
	"funding-rate-lab/internal/storage/migrations"
	pgstore "funding-rate-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	follow := flag.Bool("follow", false, "Tail the live funding stream instead of fetching history")
	streamBase := flag.String("stream-base", "wss://fstream.binance.com", "WebSocket base URL for the live stream")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[fetch] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if len(cfg.Fetch.Instruments) == 0 {
		logger.Fatal("No instruments configured under fetch.instruments")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	if *follow {
		err = runStream(ctx, logger, cfg, *streamBase)
	} else {
		err = runFetch(ctx, logger, cfg, *useMemory)
	}

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// runFetch backfills funding history for every configured instrument on both
// venues, resuming from stored checkpoints.
func runFetch(ctx context.Context, logger *log.Logger, cfg *config.Config, useMemory bool) error {
	if !useMemory && cfg.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required (use --use-memory for in-memory storage)")
	}

	// Create stores (use interfaces)
	var recordStore storage.FundingRecordStore = memory.NewFundingRecordStore()
	var checkpointStore storage.FetchCheckpointStore = memory.NewFetchCheckpointStore()

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}

		recordStore = pgstore.NewFundingRecordStore(pool)
		checkpointStore = pgstore.NewFetchCheckpointStore(pool)
	}

	sources := createSources(cfg)

	end := cfg.Fetch.End
	if end.IsZero() {
		end = time.Now().UTC()
	}

	for _, source := range sources {
		for _, instrument := range cfg.Fetch.Instruments {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fetchInstrument(ctx, logger, source, recordStore, checkpointStore, instrument, cfg.Fetch.Start, end); err != nil {
				return fmt.Errorf("fetch %s/%s: %w", source.Venue(), instrument, err)
			}
		}
	}

	observability.DefaultMetrics.LastSuccessfulFetch.Set(float64(time.Now().Unix()))
	return nil
}

// createSources builds one client per venue, applying config overrides.
func createSources(cfg *config.Config) []exchange.FundingSource {
	var opts []exchange.ClientOption
	if cfg.Fetch.RequestsPerSecond > 0 {
		opts = append(opts, exchange.WithRateLimit(cfg.Fetch.RequestsPerSecond, 1))
	}

	binanceURL := cfg.Fetch.BinanceBaseURL
	if binanceURL == "" {
		binanceURL = exchange.BinanceBaseURL
	}
	hyperliquidURL := cfg.Fetch.HyperliquidURL
	if hyperliquidURL == "" {
		hyperliquidURL = exchange.HyperliquidBaseURL
	}

	return []exchange.FundingSource{
		exchange.NewHyperliquidClient(hyperliquidURL, opts...),
		exchange.NewBinanceClient(binanceURL, opts...),
	}
}

// fetchInstrument backfills one venue/instrument pair from its checkpoint.
func fetchInstrument(
	ctx context.Context,
	logger *log.Logger,
	source exchange.FundingSource,
	recordStore storage.FundingRecordStore,
	checkpointStore storage.FetchCheckpointStore,
	instrument string,
	start, end time.Time,
) error {
	venue := source.Venue()

	from := start
	cp, err := checkpointStore.GetCheckpoint(ctx, venue, instrument)
	switch {
	case err == nil:
		// Resume just past the newest fetched settlement.
		from = cp.FetchedTo.Add(time.Millisecond)
	case errors.Is(err, storage.ErrNotFound):
	default:
		return fmt.Errorf("load checkpoint: %w", err)
	}

	if !from.Before(end) {
		logger.Printf("%s/%s up to date at %s", venue, instrument, from.Format(time.RFC3339))
		return nil
	}

	records, err := source.FundingHistory(ctx, instrument, from, end)
	if err != nil {
		observability.RecordFetchError(venue.String(), "history")
		return err
	}
	observability.RecordFetched(venue.String(), len(records))

	if len(records) == 0 {
		logger.Printf("%s/%s: no new records", venue, instrument)
		return nil
	}

	if err := recordStore.InsertBulk(ctx, records); err != nil {
		observability.RecordFetchError(venue.String(), "store")
		return fmt.Errorf("store records: %w", err)
	}
	observability.RecordStored(venue.String(), len(records))

	latest := records[len(records)-1].Timestamp
	if err := checkpointStore.SetCheckpoint(ctx, &storage.FetchCheckpoint{
		Venue:      venue,
		Instrument: instrument,
		FetchedTo:  latest,
	}); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	logger.Printf("%s/%s: stored %d records through %s",
		venue, instrument, len(records), latest.Format(time.RFC3339))
	return nil
}

// runStream tails the live funding stream and logs each update until the
// context is cancelled.
func runStream(ctx context.Context, logger *log.Logger, cfg *config.Config, base string) error {
	endpoint := exchange.BinanceStreamURL(base, cfg.Fetch.Instruments)
	logger.Printf("Connecting to %s", endpoint)

	stream, err := exchange.NewFundingStream(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("open funding stream: %w", err)
	}
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-stream.Updates():
			if !ok {
				return nil
			}
			observability.RecordStreamUpdate()
			logger.Printf("%s/%s rate=%.8f next=%s",
				update.Venue, update.Instrument, update.Rate,
				update.NextAt.Format(time.RFC3339))
		}
	}
}
