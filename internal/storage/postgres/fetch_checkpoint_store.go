package postgres

import (
	"context"
	"fmt"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

// FetchCheckpointStore implements storage.FetchCheckpointStore using PostgreSQL.
// Checkpoints are upserted, unlike the append-only record stores.
type FetchCheckpointStore struct {
	pool *Pool
}

// NewFetchCheckpointStore creates a new FetchCheckpointStore.
func NewFetchCheckpointStore(pool *Pool) *FetchCheckpointStore {
	return &FetchCheckpointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FetchCheckpointStore = (*FetchCheckpointStore)(nil)

// GetCheckpoint returns the saved checkpoint for a venue/instrument.
func (s *FetchCheckpointStore) GetCheckpoint(ctx context.Context, venue domain.Venue, instrument string) (*storage.FetchCheckpoint, error) {
	query := `
		SELECT venue, instrument, fetched_to
		FROM fetch_checkpoints
		WHERE venue = $1 AND instrument = $2
	`

	var cp storage.FetchCheckpoint
	var v string
	err := s.pool.QueryRow(ctx, query, string(venue), instrument).Scan(&v, &cp.Instrument, &cp.FetchedTo)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get fetch checkpoint: %w", err)
	}
	cp.Venue = domain.Venue(v)
	cp.FetchedTo = cp.FetchedTo.UTC()

	return &cp, nil
}

// SetCheckpoint saves fetch progress, overwriting any earlier checkpoint.
func (s *FetchCheckpointStore) SetCheckpoint(ctx context.Context, cp *storage.FetchCheckpoint) error {
	if cp == nil || cp.Instrument == "" || !cp.Venue.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO fetch_checkpoints (venue, instrument, fetched_to)
		VALUES ($1, $2, $3)
		ON CONFLICT (venue, instrument) DO UPDATE SET fetched_to = EXCLUDED.fetched_to
	`

	_, err := s.pool.Exec(ctx, query, string(cp.Venue), cp.Instrument, cp.FetchedTo.UTC())
	if err != nil {
		return fmt.Errorf("set fetch checkpoint: %w", err)
	}
	return nil
}

// ListCheckpoints returns all saved checkpoints for a venue.
func (s *FetchCheckpointStore) ListCheckpoints(ctx context.Context, venue domain.Venue) ([]*storage.FetchCheckpoint, error) {
	query := `
		SELECT venue, instrument, fetched_to
		FROM fetch_checkpoints
		WHERE venue = $1
		ORDER BY instrument ASC
	`

	rows, err := s.pool.Query(ctx, query, string(venue))
	if err != nil {
		return nil, fmt.Errorf("list fetch checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []*storage.FetchCheckpoint
	for rows.Next() {
		var cp storage.FetchCheckpoint
		var v string
		if err := rows.Scan(&v, &cp.Instrument, &cp.FetchedTo); err != nil {
			return nil, fmt.Errorf("scan fetch checkpoint row: %w", err)
		}
		cp.Venue = domain.Venue(v)
		cp.FetchedTo = cp.FetchedTo.UTC()
		checkpoints = append(checkpoints, &cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fetch checkpoint rows: %w", err)
	}

	return checkpoints, nil
}
