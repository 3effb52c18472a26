package clickhouse

import (
	"context"
	"fmt"
	"time"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

// AlignedEventStore implements storage.AlignedEventStore using ClickHouse.
type AlignedEventStore struct {
	conn *Conn
}

// NewAlignedEventStore creates a new AlignedEventStore.
func NewAlignedEventStore(conn *Conn) *AlignedEventStore {
	return &AlignedEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AlignedEventStore = (*AlignedEventStore)(nil)

// InsertBulk adds multiple events. Fails entire batch on duplicate
// (instrument, period_start). MergeTree does not enforce uniqueness at
// insert time, so duplicates are checked explicitly before sending.
func (s *AlignedEventStore) InsertBulk(ctx context.Context, events []*domain.AlignedEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		instrument  string
		periodStart int64
	}
	seen := make(map[key]struct{})
	for _, e := range events {
		if e == nil || e.Instrument == "" {
			return storage.ErrInvalidInput
		}
		k := key{e.Instrument, e.PeriodStart.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, e := range events {
		exists, err := s.exists(ctx, e.Instrument, e.PeriodStart)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO aligned_events (
			instrument, period_start_ms, primary_value, reference_value,
			has_reference, direction, derived_yield
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		hasRef := uint8(0)
		if e.HasReference {
			hasRef = 1
		}
		err = batch.Append(
			e.Instrument, uint64(e.PeriodStart.UnixMilli()),
			e.PrimaryValue, e.ReferenceValue,
			hasRef, string(e.Direction), e.DerivedYield,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByInstrument retrieves all events for an instrument, ordered by period_start ASC.
func (s *AlignedEventStore) GetByInstrument(ctx context.Context, instrument string) ([]*domain.AlignedEvent, error) {
	query := `
		SELECT instrument, period_start_ms, primary_value, reference_value,
		       has_reference, direction, derived_yield
		FROM aligned_events
		WHERE instrument = ?
		ORDER BY period_start_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, instrument)
	if err != nil {
		return nil, fmt.Errorf("query by instrument: %w", err)
	}
	defer rows.Close()

	return scanAlignedEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] inclusive, ordered by
// (period_start, instrument) ASC.
func (s *AlignedEventStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.AlignedEvent, error) {
	query := `
		SELECT instrument, period_start_ms, primary_value, reference_value,
		       has_reference, direction, derived_yield
		FROM aligned_events
		WHERE period_start_ms >= ? AND period_start_ms <= ?
		ORDER BY period_start_ms ASC, instrument ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start.UnixMilli()), uint64(end.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanAlignedEvents(rows)
}

// exists checks if an event with the given key exists.
func (s *AlignedEventStore) exists(ctx context.Context, instrument string, periodStart time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM aligned_events
		WHERE instrument = ? AND period_start_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, instrument, uint64(periodStart.UnixMilli())).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used by scanners.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanAlignedEvents scans multiple rows.
func scanAlignedEvents(rows chRows) ([]*domain.AlignedEvent, error) {
	var events []*domain.AlignedEvent

	for rows.Next() {
		var e domain.AlignedEvent
		var periodStartMs uint64
		var hasRef uint8
		var direction string

		err := rows.Scan(
			&e.Instrument, &periodStartMs, &e.PrimaryValue, &e.ReferenceValue,
			&hasRef, &direction, &e.DerivedYield,
		)
		if err != nil {
			return nil, fmt.Errorf("scan aligned event row: %w", err)
		}

		e.PeriodStart = time.UnixMilli(int64(periodStartMs)).UTC()
		e.HasReference = hasRef != 0
		e.Direction = domain.Direction(direction)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aligned event rows: %w", err)
	}

	return events, nil
}
