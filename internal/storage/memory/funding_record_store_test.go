package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

func fundingRecord(venue domain.Venue, inst string, ts time.Time, rate float64) *domain.FundingRecord {
	return &domain.FundingRecord{Timestamp: ts, Venue: venue, Instrument: inst, Rate: rate}
}

func TestFundingRecordStore_InsertAndGet(t *testing.T) {
	store := NewFundingRecordStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	err := store.Insert(ctx, fundingRecord(domain.VenueHyperliquid, "BTC", ts, 0.0001))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByInstrument(ctx, domain.VenueHyperliquid, "BTC")
	if err != nil {
		t.Fatalf("GetByInstrument failed: %v", err)
	}
	if len(got) != 1 || got[0].Rate != 0.0001 {
		t.Errorf("got %+v, want one record with rate 0.0001", got)
	}
}

func TestFundingRecordStore_DuplicateKey(t *testing.T) {
	store := NewFundingRecordStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	r := fundingRecord(domain.VenueBinance, "ETH", ts, 0.0005)
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, r)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestFundingRecordStore_SameTimestampDifferentVenue(t *testing.T) {
	store := NewFundingRecordStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	if err := store.Insert(ctx, fundingRecord(domain.VenueHyperliquid, "BTC", ts, 0.0001)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, fundingRecord(domain.VenueBinance, "BTC", ts, 0.0005)); err != nil {
		t.Errorf("Venue is part of the key, insert should succeed: %v", err)
	}
}

func TestFundingRecordStore_InsertBulkPartialDuplicate(t *testing.T) {
	store := NewFundingRecordStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	if err := store.Insert(ctx, fundingRecord(domain.VenueHyperliquid, "BTC", ts, 0.0001)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	records := []*domain.FundingRecord{
		fundingRecord(domain.VenueHyperliquid, "BTC", ts.Add(time.Hour), 0.0002),
		fundingRecord(domain.VenueHyperliquid, "BTC", ts, 0.0001), // duplicate
	}

	err := store.InsertBulk(ctx, records)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Verify all-or-nothing
	all, _ := store.GetByInstrument(ctx, domain.VenueHyperliquid, "BTC")
	if len(all) != 1 {
		t.Errorf("Expected 1 record (no partial insert), got %d", len(all))
	}
}

func TestFundingRecordStore_GetByTimeRangeOrdered(t *testing.T) {
	store := NewFundingRecordStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	// Inserted out of order
	records := []*domain.FundingRecord{
		fundingRecord(domain.VenueHyperliquid, "BTC", ts.Add(2*time.Hour), 0.0003),
		fundingRecord(domain.VenueHyperliquid, "BTC", ts, 0.0001),
		fundingRecord(domain.VenueHyperliquid, "BTC", ts.Add(time.Hour), 0.0002),
		fundingRecord(domain.VenueHyperliquid, "BTC", ts.Add(5*time.Hour), 0.0006),
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, domain.VenueHyperliquid, "BTC", ts, ts.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 records in range, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Error("Results not ordered by timestamp")
		}
	}
}

func TestFundingRecordStore_ListInstruments(t *testing.T) {
	store := NewFundingRecordStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	records := []*domain.FundingRecord{
		fundingRecord(domain.VenueHyperliquid, "ETH", ts, 0.0001),
		fundingRecord(domain.VenueHyperliquid, "BTC", ts, 0.0001),
		fundingRecord(domain.VenueBinance, "SOL", ts, 0.0001),
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.ListInstruments(ctx, domain.VenueHyperliquid)
	if err != nil {
		t.Fatalf("ListInstruments failed: %v", err)
	}
	if len(got) != 2 || got[0] != "BTC" || got[1] != "ETH" {
		t.Errorf("ListInstruments = %v, want [BTC ETH]", got)
	}
}

func TestFundingRecordStore_LatestTimestamp(t *testing.T) {
	store := NewFundingRecordStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := store.LatestTimestamp(ctx, domain.VenueHyperliquid, "BTC"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on empty store, got %v", err)
	}

	store.Insert(ctx, fundingRecord(domain.VenueHyperliquid, "BTC", ts, 0.0001))
	store.Insert(ctx, fundingRecord(domain.VenueHyperliquid, "BTC", ts.Add(4*time.Hour), 0.0002))

	latest, err := store.LatestTimestamp(ctx, domain.VenueHyperliquid, "BTC")
	if err != nil {
		t.Fatalf("LatestTimestamp failed: %v", err)
	}
	if !latest.Equal(ts.Add(4 * time.Hour)) {
		t.Errorf("LatestTimestamp = %v, want %v", latest, ts.Add(4*time.Hour))
	}
}

func TestFundingRecordStore_InvalidInput(t *testing.T) {
	store := NewFundingRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	bad := &domain.FundingRecord{Venue: domain.Venue("kraken"), Instrument: "BTC"}
	if err := store.Insert(ctx, bad); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown venue, got %v", err)
	}
}
