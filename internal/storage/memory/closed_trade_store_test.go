package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

func closedTrade(runID, inst string, entry time.Time, net float64) *domain.ClosedTrade {
	return &domain.ClosedTrade{
		RunID:      runID,
		Instrument: inst,
		Direction:  domain.DirectionShortPrimary,
		EntryTime:  entry,
		ExitTime:   entry.Add(8 * time.Hour),
		NetPnL:     net,
		ExitReason: domain.ExitReasonHoldExpired,
	}
}

func TestClosedTradeStore_InsertAndGetByRun(t *testing.T) {
	store := NewClosedTradeStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	trades := []*domain.ClosedTrade{
		closedTrade("run1", "BTC", ts.Add(8*time.Hour), 1.5),
		closedTrade("run1", "ETH", ts, -0.3),
		closedTrade("run2", "BTC", ts, 2.0),
	}
	if err := store.InsertBulk(ctx, trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 trades for run1, got %d", len(got))
	}
	if got[0].Instrument != "ETH" {
		t.Error("Results not ordered by entry_time")
	}
}

func TestClosedTradeStore_DuplicateKey(t *testing.T) {
	store := NewClosedTradeStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tr := closedTrade("run1", "BTC", ts, 1.0)
	if err := store.Insert(ctx, tr); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, tr)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestClosedTradeStore_GetByInstrument(t *testing.T) {
	store := NewClosedTradeStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	store.Insert(ctx, closedTrade("run1", "BTC", ts, 1.0))
	store.Insert(ctx, closedTrade("run2", "BTC", ts.Add(8*time.Hour), 2.0))
	store.Insert(ctx, closedTrade("run1", "ETH", ts, 0.5))

	got, err := store.GetByInstrument(ctx, "BTC")
	if err != nil {
		t.Fatalf("GetByInstrument failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 BTC trades across runs, got %d", len(got))
	}
}

func TestClosedTradeStore_InvalidInput(t *testing.T) {
	store := NewClosedTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.ClosedTrade{Instrument: "BTC"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty run id, got %v", err)
	}
}
