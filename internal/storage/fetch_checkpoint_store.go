package storage

import (
	"context"
	"time"

	"funding-rate-lab/internal/domain"
)

// FetchCheckpoint marks the newest funding timestamp already fetched for one
// venue/instrument pair.
type FetchCheckpoint struct {
	Venue      domain.Venue
	Instrument string
	FetchedTo  time.Time
}

// FetchCheckpointStore provides persistence for fetch progress.
// This enables resumption after restarts without refetching or duplicating records.
type FetchCheckpointStore interface {
	// GetCheckpoint returns the saved checkpoint for a venue/instrument.
	// Returns ErrNotFound if no progress has been saved yet.
	GetCheckpoint(ctx context.Context, venue domain.Venue, instrument string) (*FetchCheckpoint, error)

	// SetCheckpoint saves fetch progress, overwriting any earlier checkpoint.
	SetCheckpoint(ctx context.Context, cp *FetchCheckpoint) error

	// ListCheckpoints returns all saved checkpoints for a venue.
	ListCheckpoints(ctx context.Context, venue domain.Venue) ([]*FetchCheckpoint, error)
}
