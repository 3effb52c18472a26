package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

// FundingRecordStore implements storage.FundingRecordStore using PostgreSQL.
type FundingRecordStore struct {
	pool *Pool
}

// NewFundingRecordStore creates a new FundingRecordStore.
func NewFundingRecordStore(pool *Pool) *FundingRecordStore {
	return &FundingRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FundingRecordStore = (*FundingRecordStore)(nil)

const insertFundingRecordQuery = `
	INSERT INTO funding_records (venue, instrument, ts, rate)
	VALUES ($1, $2, $3, $4)
`

// Insert adds a new record. Returns ErrDuplicateKey if (venue, instrument, ts) exists.
func (s *FundingRecordStore) Insert(ctx context.Context, r *domain.FundingRecord) error {
	if r == nil || r.Instrument == "" || !r.Venue.IsValid() {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertFundingRecordQuery,
		string(r.Venue), r.Instrument, r.Timestamp.UTC(), r.Rate,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert funding record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *FundingRecordStore) InsertBulk(ctx context.Context, records []*domain.FundingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if r == nil || r.Instrument == "" || !r.Venue.IsValid() {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertFundingRecordQuery,
			string(r.Venue), r.Instrument, r.Timestamp.UTC(), r.Rate,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert funding record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByInstrument retrieves all records for a venue/instrument, ordered by ts ASC.
func (s *FundingRecordStore) GetByInstrument(ctx context.Context, venue domain.Venue, instrument string) ([]*domain.FundingRecord, error) {
	query := `
		SELECT venue, instrument, ts, rate
		FROM funding_records
		WHERE venue = $1 AND instrument = $2
		ORDER BY ts ASC
	`

	rows, err := s.pool.Query(ctx, query, string(venue), instrument)
	if err != nil {
		return nil, fmt.Errorf("get funding records by instrument: %w", err)
	}
	defer rows.Close()

	return scanFundingRecords(rows)
}

// GetByTimeRange retrieves records for a venue/instrument within [start, end] (inclusive).
func (s *FundingRecordStore) GetByTimeRange(ctx context.Context, venue domain.Venue, instrument string, start, end time.Time) ([]*domain.FundingRecord, error) {
	query := `
		SELECT venue, instrument, ts, rate
		FROM funding_records
		WHERE venue = $1 AND instrument = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC
	`

	rows, err := s.pool.Query(ctx, query, string(venue), instrument, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("get funding records by time range: %w", err)
	}
	defer rows.Close()

	return scanFundingRecords(rows)
}

// ListInstruments returns the distinct instruments recorded for a venue, sorted ASC.
func (s *FundingRecordStore) ListInstruments(ctx context.Context, venue domain.Venue) ([]string, error) {
	query := `
		SELECT DISTINCT instrument
		FROM funding_records
		WHERE venue = $1
		ORDER BY instrument ASC
	`

	rows, err := s.pool.Query(ctx, query, string(venue))
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var instruments []string
	for rows.Next() {
		var inst string
		if err := rows.Scan(&inst); err != nil {
			return nil, fmt.Errorf("scan instrument row: %w", err)
		}
		instruments = append(instruments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instrument rows: %w", err)
	}

	return instruments, nil
}

// LatestTimestamp returns the newest record timestamp for a venue/instrument.
func (s *FundingRecordStore) LatestTimestamp(ctx context.Context, venue domain.Venue, instrument string) (time.Time, error) {
	query := `
		SELECT ts
		FROM funding_records
		WHERE venue = $1 AND instrument = $2
		ORDER BY ts DESC
		LIMIT 1
	`

	var ts time.Time
	err := s.pool.QueryRow(ctx, query, string(venue), instrument).Scan(&ts)
	if err != nil {
		if isNotFoundError(err) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("get latest funding timestamp: %w", err)
	}
	return ts.UTC(), nil
}

// scanFundingRecords scans multiple rows into a slice of FundingRecord.
func scanFundingRecords(rows pgx.Rows) ([]*domain.FundingRecord, error) {
	var records []*domain.FundingRecord

	for rows.Next() {
		var r domain.FundingRecord
		var venue string

		if err := rows.Scan(&venue, &r.Instrument, &r.Timestamp, &r.Rate); err != nil {
			return nil, fmt.Errorf("scan funding record row: %w", err)
		}
		r.Venue = domain.Venue(venue)
		r.Timestamp = r.Timestamp.UTC()

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funding record rows: %w", err)
	}

	return records, nil
}
