package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"funding-rate-lab/internal/config"
	"funding-rate-lab/internal/cost"
	"funding-rate-lab/internal/observability"
	"funding-rate-lab/internal/reporting"
	"funding-rate-lab/internal/storage"
	chstore "funding-rate-lab/internal/storage/clickhouse"
	"funding-rate-lab/internal/storage/memory"
	"funding-rate-lab/internal/storage/migrations"
	pgstore "funding-rate-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	runID := flag.String("run-id", "", "Simulation run to include trade detail for")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if !*useMemory && (cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickhouseDSN == "") {
		fmt.Fprintln(os.Stderr, "Error: storage.postgres_dsn and storage.clickhouse_dsn are required when not using --use-memory")
		os.Exit(1)
	}

	// Create stores based on mode
	var (
		eventStore storage.AlignedEventStore = memory.NewAlignedEventStore()
		tradeStore storage.ClosedTradeStore  = memory.NewClosedTradeStore()
	)

	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()

		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()

		eventStore = chstore.NewAlignedEventStore(conn)
		tradeStore = pgstore.NewClosedTradeStore(pool)
	}

	generator := reporting.NewGenerator(eventStore, tradeStore)

	report, err := generator.Generate(ctx, reporting.Params{
		Start: cfg.Fetch.Start,
		End:   cfg.Fetch.End,
		CostConfig: cost.Config{
			FeeRate:             cfg.Costs.FeeRate,
			SlippageRate:        cfg.Costs.SlippageRate,
			Legs:                cfg.Costs.Legs,
			FinancingAnnualRate: cfg.Costs.FinancingAnnualRate,
			FinancingOverrides:  cfg.Costs.FinancingOverrides,
		},
		MinYield:  cfg.Sim.MinYieldToEnter,
		HoldHours: float64(cfg.Align.WindowHours),
		RunID:     *runID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}

	outputs := map[string]string{
		"REPORT.md":       reporting.RenderMarkdown(report),
		"TRADES.csv":      reporting.RenderTradesCSV(report.Trades),
		"INSTRUMENTS.csv": reporting.RenderInstrumentsCSV(report.ByInstrument),
	}
	for name, content := range outputs {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	observability.DefaultMetrics.ReportsGenerated.Inc()

	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s/REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/TRADES.csv\n", *outputDir)
	fmt.Printf("  - %s/INSTRUMENTS.csv\n", *outputDir)
}
