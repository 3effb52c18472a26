package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"funding-rate-lab/internal/domain"
	"funding-rate-lab/internal/storage"
)

// ClosedTradeStore implements storage.ClosedTradeStore using PostgreSQL.
type ClosedTradeStore struct {
	pool *Pool
}

// NewClosedTradeStore creates a new ClosedTradeStore.
func NewClosedTradeStore(pool *Pool) *ClosedTradeStore {
	return &ClosedTradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClosedTradeStore = (*ClosedTradeStore)(nil)

const insertClosedTradeQuery = `
	INSERT INTO closed_trades (
		run_id, instrument, direction,
		entry_time, exit_time,
		entry_yield, accrued_yield, periods_held, notional_fraction,
		gross_pnl, entry_cost, exit_cost, net_pnl,
		exit_reason
	) VALUES (
		$1, $2, $3,
		$4, $5,
		$6, $7, $8, $9,
		$10, $11, $12, $13,
		$14
	)
`

const selectClosedTradeColumns = `
	run_id, instrument, direction,
	entry_time, exit_time,
	entry_yield, accrued_yield, periods_held, notional_fraction,
	gross_pnl, entry_cost, exit_cost, net_pnl,
	exit_reason
`

// Insert adds a new trade. Returns ErrDuplicateKey if (run_id, instrument, entry_time) exists.
func (s *ClosedTradeStore) Insert(ctx context.Context, t *domain.ClosedTrade) error {
	if t == nil || t.RunID == "" || t.Instrument == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertClosedTradeQuery, tradeArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert closed trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *ClosedTradeStore) InsertBulk(ctx context.Context, trades []*domain.ClosedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if t == nil || t.RunID == "" || t.Instrument == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertClosedTradeQuery, tradeArgs(t)...)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert closed trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all trades for a simulation run, ordered by entry_time ASC.
func (s *ClosedTradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.ClosedTrade, error) {
	query := `
		SELECT ` + selectClosedTradeColumns + `
		FROM closed_trades
		WHERE run_id = $1
		ORDER BY entry_time ASC, instrument ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get closed trades by run id: %w", err)
	}
	defer rows.Close()

	return scanClosedTrades(rows)
}

// GetByInstrument retrieves all trades for an instrument across runs.
func (s *ClosedTradeStore) GetByInstrument(ctx context.Context, instrument string) ([]*domain.ClosedTrade, error) {
	query := `
		SELECT ` + selectClosedTradeColumns + `
		FROM closed_trades
		WHERE instrument = $1
		ORDER BY entry_time ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, instrument)
	if err != nil {
		return nil, fmt.Errorf("get closed trades by instrument: %w", err)
	}
	defer rows.Close()

	return scanClosedTrades(rows)
}

func tradeArgs(t *domain.ClosedTrade) []any {
	return []any{
		t.RunID, t.Instrument, string(t.Direction),
		t.EntryTime.UTC(), t.ExitTime.UTC(),
		t.EntryYield, t.AccruedYield, t.PeriodsHeld, t.NotionalFraction,
		t.GrossPnL, t.EntryCost, t.ExitCost, t.NetPnL,
		t.ExitReason,
	}
}

// scanClosedTrades scans multiple rows into a slice of ClosedTrade.
func scanClosedTrades(rows pgx.Rows) ([]*domain.ClosedTrade, error) {
	var trades []*domain.ClosedTrade

	for rows.Next() {
		var t domain.ClosedTrade
		var direction string

		err := rows.Scan(
			&t.RunID, &t.Instrument, &direction,
			&t.EntryTime, &t.ExitTime,
			&t.EntryYield, &t.AccruedYield, &t.PeriodsHeld, &t.NotionalFraction,
			&t.GrossPnL, &t.EntryCost, &t.ExitCost, &t.NetPnL,
			&t.ExitReason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan closed trade row: %w", err)
		}
		t.Direction = domain.Direction(direction)
		t.EntryTime = t.EntryTime.UTC()
		t.ExitTime = t.ExitTime.UTC()

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed trade rows: %w", err)
	}

	return trades, nil
}
