package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

func alignedEvent(inst string, start time.Time, yield float64) *domain.AlignedEvent {
	return &domain.AlignedEvent{
		PeriodStart:  start,
		Instrument:   inst,
		PrimaryValue: yield,
		Direction:    domain.DirectionShortPrimary,
		DerivedYield: yield,
	}
}

func TestAlignedEventStore_InsertBulkAndGet(t *testing.T) {
	store := NewAlignedEventStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	events := []*domain.AlignedEvent{
		alignedEvent("BTC", ts.Add(8*time.Hour), 0.0002),
		alignedEvent("BTC", ts, 0.0001),
		alignedEvent("ETH", ts, 0.0003),
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByInstrument(ctx, "BTC")
	if err != nil {
		t.Fatalf("GetByInstrument failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events for BTC, got %d", len(got))
	}
	if !got[0].PeriodStart.Equal(ts) {
		t.Error("Results not ordered by period_start")
	}
}

func TestAlignedEventStore_DuplicateKey(t *testing.T) {
	store := NewAlignedEventStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	if err := store.InsertBulk(ctx, []*domain.AlignedEvent{alignedEvent("BTC", ts, 0.0001)}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.AlignedEvent{
		alignedEvent("BTC", ts.Add(8*time.Hour), 0.0002),
		alignedEvent("BTC", ts, 0.0001), // duplicate
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	all, _ := store.GetByInstrument(ctx, "BTC")
	if len(all) != 1 {
		t.Errorf("Expected 1 event (no partial insert), got %d", len(all))
	}
}

func TestAlignedEventStore_GetByTimeRange(t *testing.T) {
	store := NewAlignedEventStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	events := []*domain.AlignedEvent{
		alignedEvent("ETH", ts, 0.0003),
		alignedEvent("BTC", ts, 0.0001),
		alignedEvent("BTC", ts.Add(8*time.Hour), 0.0002),
		alignedEvent("BTC", ts.Add(16*time.Hour), 0.0004),
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, ts, ts.Add(8*time.Hour))
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 events in range, got %d", len(got))
	}
	// Ordered by (period_start, instrument)
	if got[0].Instrument != "BTC" || got[1].Instrument != "ETH" {
		t.Errorf("Results not ordered by (period_start, instrument): %v %v", got[0].Instrument, got[1].Instrument)
	}
}
