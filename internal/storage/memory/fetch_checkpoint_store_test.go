package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

func TestFetchCheckpointStore_SetGetOverwrite(t *testing.T) {
	store := NewFetchCheckpointStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := store.GetCheckpoint(ctx, domain.VenueBinance, "BTC"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound before first save, got %v", err)
	}

	cp := &storage.FetchCheckpoint{Venue: domain.VenueBinance, Instrument: "BTC", FetchedTo: ts}
	if err := store.SetCheckpoint(ctx, cp); err != nil {
		t.Fatalf("SetCheckpoint failed: %v", err)
	}

	// Checkpoints are overwritten, not appended
	cp.FetchedTo = ts.Add(8 * time.Hour)
	if err := store.SetCheckpoint(ctx, cp); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	got, err := store.GetCheckpoint(ctx, domain.VenueBinance, "BTC")
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if !got.FetchedTo.Equal(ts.Add(8 * time.Hour)) {
		t.Errorf("FetchedTo = %v, want overwritten value", got.FetchedTo)
	}
}

func TestFetchCheckpointStore_ListByVenue(t *testing.T) {
	store := NewFetchCheckpointStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	store.SetCheckpoint(ctx, &storage.FetchCheckpoint{Venue: domain.VenueHyperliquid, Instrument: "ETH", FetchedTo: ts})
	store.SetCheckpoint(ctx, &storage.FetchCheckpoint{Venue: domain.VenueHyperliquid, Instrument: "BTC", FetchedTo: ts})
	store.SetCheckpoint(ctx, &storage.FetchCheckpoint{Venue: domain.VenueBinance, Instrument: "BTC", FetchedTo: ts})

	got, err := store.ListCheckpoints(ctx, domain.VenueHyperliquid)
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(got) != 2 || got[0].Instrument != "BTC" || got[1].Instrument != "ETH" {
		t.Errorf("ListCheckpoints = %+v, want BTC then ETH", got)
	}
}

func TestFetchCheckpointStore_InvalidInput(t *testing.T) {
	store := NewFetchCheckpointStore()
	ctx := context.Background()

	if err := store.SetCheckpoint(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.SetCheckpoint(ctx, &storage.FetchCheckpoint{Venue: "kraken", Instrument: "BTC"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown venue, got %v", err)
	}
}
