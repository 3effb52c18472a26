package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

// FundingRecordStore is an in-memory implementation of storage.FundingRecordStore.
type FundingRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FundingRecord // keyed by venue|instrument|timestamp
}

// NewFundingRecordStore creates a new in-memory funding record store.
func NewFundingRecordStore() *FundingRecordStore {
	return &FundingRecordStore{
		data: make(map[string]*domain.FundingRecord),
	}
}

var _ storage.FundingRecordStore = (*FundingRecordStore)(nil)

func recordKey(venue domain.Venue, instrument string, ts time.Time) string {
	return fmt.Sprintf("%s|%s|%d", venue, instrument, ts.UnixMilli())
}

// Insert adds a new record. Returns ErrDuplicateKey if the key exists.
func (s *FundingRecordStore) Insert(_ context.Context, r *domain.FundingRecord) error {
	if r == nil || r.Instrument == "" || !r.Venue.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(r.Venue, r.Instrument, r.Timestamp)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[key] = &copy
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *FundingRecordStore) InsertBulk(_ context.Context, records []*domain.FundingRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.Instrument == "" || !r.Venue.IsValid() {
			return storage.ErrInvalidInput
		}

		key := recordKey(r.Venue, r.Instrument, r.Timestamp)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range records {
		copy := *r
		s.data[recordKey(r.Venue, r.Instrument, r.Timestamp)] = &copy
	}

	return nil
}

// GetByInstrument retrieves all records for a venue/instrument, ordered by timestamp ASC.
func (s *FundingRecordStore) GetByInstrument(_ context.Context, venue domain.Venue, instrument string) ([]*domain.FundingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FundingRecord
	for _, r := range s.data {
		if r.Venue == venue && r.Instrument == instrument {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// GetByTimeRange retrieves records for a venue/instrument within [start, end] (inclusive).
func (s *FundingRecordStore) GetByTimeRange(_ context.Context, venue domain.Venue, instrument string, start, end time.Time) ([]*domain.FundingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FundingRecord
	for _, r := range s.data {
		if r.Venue != venue || r.Instrument != instrument {
			continue
		}
		if r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// ListInstruments returns the distinct instruments recorded for a venue, sorted ASC.
func (s *FundingRecordStore) ListInstruments(_ context.Context, venue domain.Venue) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range s.data {
		if r.Venue == venue {
			seen[r.Instrument] = struct{}{}
		}
	}

	instruments := make([]string, 0, len(seen))
	for inst := range seen {
		instruments = append(instruments, inst)
	}
	sort.Strings(instruments)

	return instruments, nil
}

// LatestTimestamp returns the newest record timestamp for a venue/instrument.
func (s *FundingRecordStore) LatestTimestamp(_ context.Context, venue domain.Venue, instrument string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, r := range s.data {
		if r.Venue != venue || r.Instrument != instrument {
			continue
		}
		if !found || r.Timestamp.After(latest) {
			latest = r.Timestamp
			found = true
		}
	}

	if !found {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}
