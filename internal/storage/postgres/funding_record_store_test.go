package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

func TestFundingRecordStore_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFundingRecordStore(pool)
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("insert and get", func(t *testing.T) {
		r := &domain.FundingRecord{
			Timestamp:  ts,
			Venue:      domain.VenueHyperliquid,
			Instrument: "BTC",
			Rate:       0.0000125,
		}
		require.NoError(t, store.Insert(ctx, r))

		got, err := store.GetByInstrument(ctx, domain.VenueHyperliquid, "BTC")
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, 0.0000125, got[0].Rate)
		require.True(t, got[0].Timestamp.Equal(ts))
	})

	t.Run("duplicate key", func(t *testing.T) {
		r := &domain.FundingRecord{
			Timestamp:  ts,
			Venue:      domain.VenueHyperliquid,
			Instrument: "BTC",
			Rate:       0.0000125,
		}
		err := store.Insert(ctx, r)
		require.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("bulk insert rolls back on duplicate", func(t *testing.T) {
		records := []*domain.FundingRecord{
			{Timestamp: ts.Add(time.Hour), Venue: domain.VenueHyperliquid, Instrument: "BTC", Rate: 0.0002},
			{Timestamp: ts, Venue: domain.VenueHyperliquid, Instrument: "BTC", Rate: 0.0000125}, // duplicate
		}
		err := store.InsertBulk(ctx, records)
		require.ErrorIs(t, err, storage.ErrDuplicateKey)

		got, err := store.GetByInstrument(ctx, domain.VenueHyperliquid, "BTC")
		require.NoError(t, err)
		require.Len(t, got, 1, "failed bulk must not leave partial rows")
	})

	t.Run("time range and ordering", func(t *testing.T) {
		records := []*domain.FundingRecord{
			{Timestamp: ts.Add(2 * time.Hour), Venue: domain.VenueBinance, Instrument: "ETH", Rate: 0.0003},
			{Timestamp: ts, Venue: domain.VenueBinance, Instrument: "ETH", Rate: 0.0001},
			{Timestamp: ts.Add(time.Hour), Venue: domain.VenueBinance, Instrument: "ETH", Rate: 0.0002},
			{Timestamp: ts.Add(9 * time.Hour), Venue: domain.VenueBinance, Instrument: "ETH", Rate: 0.0009},
		}
		require.NoError(t, store.InsertBulk(ctx, records))

		got, err := store.GetByTimeRange(ctx, domain.VenueBinance, "ETH", ts, ts.Add(2*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i := 1; i < len(got); i++ {
			require.True(t, got[i].Timestamp.After(got[i-1].Timestamp), "rows must be ordered by ts")
		}
	})

	t.Run("list instruments", func(t *testing.T) {
		got, err := store.ListInstruments(ctx, domain.VenueBinance)
		require.NoError(t, err)
		require.Equal(t, []string{"ETH"}, got)
	})

	t.Run("latest timestamp", func(t *testing.T) {
		latest, err := store.LatestTimestamp(ctx, domain.VenueBinance, "ETH")
		require.NoError(t, err)
		require.True(t, latest.Equal(ts.Add(9*time.Hour)))

		_, err = store.LatestTimestamp(ctx, domain.VenueBinance, "NONEXISTENT")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}
