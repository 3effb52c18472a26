package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

// ClosedTradeStore is an in-memory implementation of storage.ClosedTradeStore.
type ClosedTradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ClosedTrade // keyed by run_id|instrument|entry_time
}

// NewClosedTradeStore creates a new in-memory closed trade store.
func NewClosedTradeStore() *ClosedTradeStore {
	return &ClosedTradeStore{
		data: make(map[string]*domain.ClosedTrade),
	}
}

var _ storage.ClosedTradeStore = (*ClosedTradeStore)(nil)

func tradeKey(t *domain.ClosedTrade) string {
	return fmt.Sprintf("%s|%s|%d", t.RunID, t.Instrument, t.EntryTime.UnixMilli())
}

// Insert adds a new trade. Returns ErrDuplicateKey if the key exists.
func (s *ClosedTradeStore) Insert(_ context.Context, t *domain.ClosedTrade) error {
	if t == nil || t.RunID == "" || t.Instrument == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := tradeKey(t)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[key] = &copy
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *ClosedTradeStore) InsertBulk(_ context.Context, trades []*domain.ClosedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.RunID == "" || t.Instrument == "" {
			return storage.ErrInvalidInput
		}

		key := tradeKey(t)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, t := range trades {
		copy := *t
		s.data[tradeKey(t)] = &copy
	}

	return nil
}

// GetByRunID retrieves all trades for a simulation run, ordered by entry_time ASC.
func (s *ClosedTradeStore) GetByRunID(_ context.Context, runID string) ([]*domain.ClosedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClosedTrade
	for _, t := range s.data {
		if t.RunID == runID {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortTrades(result)
	return result, nil
}

// GetByInstrument retrieves all trades for an instrument across runs.
func (s *ClosedTradeStore) GetByInstrument(_ context.Context, instrument string) ([]*domain.ClosedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClosedTrade
	for _, t := range s.data {
		if t.Instrument == instrument {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortTrades(result)
	return result, nil
}

func sortTrades(trades []*domain.ClosedTrade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].EntryTime.Equal(trades[j].EntryTime) {
			return trades[i].EntryTime.Before(trades[j].EntryTime)
		}
		return trades[i].Instrument < trades[j].Instrument
	})
}
