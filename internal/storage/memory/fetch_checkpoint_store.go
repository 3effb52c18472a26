package memory

import (
	"context"
	"sort"
	"sync"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

// FetchCheckpointStore is an in-memory implementation of storage.FetchCheckpointStore.
type FetchCheckpointStore struct {
	mu   sync.RWMutex
	data map[string]*storage.FetchCheckpoint // keyed by venue|instrument
}

// NewFetchCheckpointStore creates a new in-memory fetch checkpoint store.
func NewFetchCheckpointStore() *FetchCheckpointStore {
	return &FetchCheckpointStore{
		data: make(map[string]*storage.FetchCheckpoint),
	}
}

var _ storage.FetchCheckpointStore = (*FetchCheckpointStore)(nil)

func checkpointKey(venue domain.Venue, instrument string) string {
	return string(venue) + "|" + instrument
}

// GetCheckpoint returns the saved checkpoint for a venue/instrument.
func (s *FetchCheckpointStore) GetCheckpoint(_ context.Context, venue domain.Venue, instrument string) (*storage.FetchCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, exists := s.data[checkpointKey(venue, instrument)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *cp
	return &copy, nil
}

// SetCheckpoint saves fetch progress, overwriting any earlier checkpoint.
func (s *FetchCheckpointStore) SetCheckpoint(_ context.Context, cp *storage.FetchCheckpoint) error {
	if cp == nil || cp.Instrument == "" || !cp.Venue.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *cp
	s.data[checkpointKey(cp.Venue, cp.Instrument)] = &copy
	return nil
}

// ListCheckpoints returns all saved checkpoints for a venue.
func (s *FetchCheckpointStore) ListCheckpoints(_ context.Context, venue domain.Venue) ([]*storage.FetchCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.FetchCheckpoint
	for _, cp := range s.data {
		if cp.Venue == venue {
			copy := *cp
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Instrument < result[j].Instrument
	})

	return result, nil
}
