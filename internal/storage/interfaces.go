package storage

import (
	"context"
	"time"

	"funding-rate-lab/internal/domain"
)

// FundingRecordStore provides access to funding_records storage.
type FundingRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if
	// (venue, instrument, timestamp) exists.
	Insert(ctx context.Context, r *domain.FundingRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.FundingRecord) error

	// GetByInstrument retrieves all records for a venue/instrument, ordered by timestamp ASC.
	GetByInstrument(ctx context.Context, venue domain.Venue, instrument string) ([]*domain.FundingRecord, error)

	// GetByTimeRange retrieves records for a venue/instrument within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, venue domain.Venue, instrument string, start, end time.Time) ([]*domain.FundingRecord, error)

	// ListInstruments returns the distinct instruments recorded for a venue, sorted ASC.
	ListInstruments(ctx context.Context, venue domain.Venue) ([]string, error)

	// LatestTimestamp returns the newest record timestamp for a venue/instrument.
	// Returns ErrNotFound if no records exist.
	LatestTimestamp(ctx context.Context, venue domain.Venue, instrument string) (time.Time, error)
}

// AlignedEventStore provides access to aligned_events storage.
type AlignedEventStore interface {
	// InsertBulk adds multiple events. Fails entire batch on duplicate
	// (instrument, period_start).
	InsertBulk(ctx context.Context, events []*domain.AlignedEvent) error

	// GetByInstrument retrieves all events for an instrument, ordered by period_start ASC.
	GetByInstrument(ctx context.Context, instrument string) ([]*domain.AlignedEvent, error)

	// GetByTimeRange retrieves events across instruments within [start, end] (inclusive),
	// ordered by (period_start, instrument) ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.AlignedEvent, error)
}

// ClosedTradeStore provides access to closed_trades storage.
type ClosedTradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if
	// (run_id, instrument, entry_time) exists.
	Insert(ctx context.Context, t *domain.ClosedTrade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.ClosedTrade) error

	// GetByRunID retrieves all trades for a simulation run, ordered by entry_time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.ClosedTrade, error)

	// GetByInstrument retrieves all trades for an instrument across runs.
	GetByInstrument(ctx context.Context, instrument string) ([]*domain.ClosedTrade, error)
}
