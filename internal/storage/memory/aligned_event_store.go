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

// AlignedEventStore is an in-memory implementation of storage.AlignedEventStore.
type AlignedEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AlignedEvent // keyed by instrument|period_start
}

// NewAlignedEventStore creates a new in-memory aligned event store.
func NewAlignedEventStore() *AlignedEventStore {
	return &AlignedEventStore{
		data: make(map[string]*domain.AlignedEvent),
	}
}

var _ storage.AlignedEventStore = (*AlignedEventStore)(nil)

func eventKey(instrument string, periodStart time.Time) string {
	return fmt.Sprintf("%s|%d", instrument, periodStart.UnixMilli())
}

// InsertBulk adds multiple events. Fails entire batch on duplicate (instrument, period_start).
func (s *AlignedEventStore) InsertBulk(_ context.Context, events []*domain.AlignedEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Instrument == "" {
			return storage.ErrInvalidInput
		}

		key := eventKey(e.Instrument, e.PeriodStart)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		copy := *e
		s.data[eventKey(e.Instrument, e.PeriodStart)] = &copy
	}

	return nil
}

// GetByInstrument retrieves all events for an instrument, ordered by period_start ASC.
func (s *AlignedEventStore) GetByInstrument(_ context.Context, instrument string) ([]*domain.AlignedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AlignedEvent
	for _, e := range s.data {
		if e.Instrument == instrument {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodStart.Before(result[j].PeriodStart)
	})

	return result, nil
}

// GetByTimeRange retrieves events within [start, end] inclusive, ordered by
// (period_start, instrument) ASC.
func (s *AlignedEventStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.AlignedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AlignedEvent
	for _, e := range s.data {
		if e.PeriodStart.Before(start) || e.PeriodStart.After(end) {
			continue
		}
		copy := *e
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].PeriodStart.Equal(result[j].PeriodStart) {
			return result[i].PeriodStart.Before(result[j].PeriodStart)
		}
		return result[i].Instrument < result[j].Instrument
	})

	return result, nil
}
