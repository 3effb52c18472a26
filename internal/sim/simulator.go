// Package sim runs capital-constrained position lifecycle simulations over
// aligned event sequences. The simulation is a single sequential fold:
// within one period closes always precede opens, so capacity freed by a
// close is reusable in the same period, and admission under contention is
// ranked by absolute yield.
package sim

import (
	"errors"
	"math"
	"sort"
	"time"

	"funding-rate-lab/internal/domain"
)

// Configuration errors, rejected before any simulation state is created.
var (
	ErrInvalidCapital          = errors.New("capital must be positive")
	ErrInvalidPositionFraction = errors.New("position fraction must be in (0, 1]")
	ErrInvalidMaxPositions     = errors.New("max positions must be positive")
	ErrInvalidExitPolicy       = errors.New("unknown exit policy")
)

// ExitPolicy selects when open positions are closed.
type ExitPolicy string

const (
	// PolicyFixedHold closes a position only once it has been held for
	// HoldPeriods aligned periods.
	PolicyFixedHold ExitPolicy = "FIXED_HOLD"

	// PolicyYieldDecay additionally closes early when the instrument's
	// current absolute yield falls under YieldDecayFraction x
	// MinYieldToEnter. The fixed holding cap still applies.
	PolicyYieldDecay ExitPolicy = "YIELD_DECAY"
)

// Default simulation parameters.
const (
	DefaultHoldPeriods        = 1
	DefaultPeriodHours        = 8
	DefaultYieldDecayFraction = 0.3
	equityCurveWindow         = 100
)

// Config parameterizes one simulation run.
type Config struct {
	RunID string

	Capital          float64 // starting equity, currency units
	PositionFraction float64 // fraction of current equity per position, (0, 1]
	MaxPositions     int     // concurrency cap on open positions
	MinYieldToEnter  float64 // minimum |derived yield| to open
	HoldPeriods      int     // aligned periods to hold before mandatory close
	PeriodHours      float64 // wall-clock width of one aligned period

	// EntryCost and ExitCost are round-trip side costs as fractions of
	// position notional, typically taken from a cost.Quote.
	EntryCost float64
	ExitCost  float64

	ExitPolicy         ExitPolicy
	YieldDecayFraction float64
}

// Validate rejects invalid configuration eagerly. These are the only hard
// failures the simulator surfaces; data anomalies are absorbed into output
// statistics instead.
func (c Config) Validate() error {
	if c.Capital <= 0 {
		return ErrInvalidCapital
	}
	if c.PositionFraction <= 0 || c.PositionFraction > 1 {
		return ErrInvalidPositionFraction
	}
	if c.MaxPositions <= 0 {
		return ErrInvalidMaxPositions
	}
	switch c.ExitPolicy {
	case "", PolicyFixedHold, PolicyYieldDecay:
	default:
		return ErrInvalidExitPolicy
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.HoldPeriods <= 0 {
		c.HoldPeriods = DefaultHoldPeriods
	}
	if c.PeriodHours <= 0 {
		c.PeriodHours = DefaultPeriodHours
	}
	if c.ExitPolicy == "" {
		c.ExitPolicy = PolicyFixedHold
	}
	if c.YieldDecayFraction <= 0 {
		c.YieldDecayFraction = DefaultYieldDecayFraction
	}
	return c
}

// position is one open slot. Owned exclusively by the simulator.
type position struct {
	instrument string
	direction  domain.Direction
	openedAt   time.Time

	fraction     float64 // notional fraction of equity at entry
	entryYield   float64
	accruedYield float64 // sum of |yield| over periods seen while open
	periodsHeld  int

	entryCostPaid float64   // currency units charged at open
	lastEventAt   time.Time // last period this instrument produced an event
}

// state is the process-local simulation state for one run.
type state struct {
	cfg    Config
	equity float64

	open        map[string]*position
	trades      []domain.ClosedTrade
	equityCurve []domain.EquityPoint
}

// Result bundles the run summary with its trade log.
type Result struct {
	Summary domain.SimulationSummary
	Trades  []domain.ClosedTrade
}

// Run simulates the position lifecycle over events, which are processed in
// ascending period order regardless of input order. Returns a hard error
// only for invalid configuration.
func Run(events []domain.AlignedEvent, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	st := &state{
		cfg:    cfg,
		equity: cfg.Capital,
		open:   make(map[string]*position),
	}

	for _, period := range groupByPeriod(events) {
		st.closePhase(period)
		st.accrue(period)
		st.openPhase(period)
		for range period.events {
			st.equityCurve = append(st.equityCurve, domain.EquityPoint{
				Timestamp: period.start,
				Equity:    st.equity,
			})
		}
	}

	return st.finish(events), nil
}

// periodGroup is all events sharing one period boundary.
type periodGroup struct {
	start  time.Time
	events []domain.AlignedEvent
	byInst map[string]domain.AlignedEvent
}

// groupByPeriod buckets events by PeriodStart in ascending order.
func groupByPeriod(events []domain.AlignedEvent) []periodGroup {
	sorted := make([]domain.AlignedEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].PeriodStart.Equal(sorted[j].PeriodStart) {
			return sorted[i].PeriodStart.Before(sorted[j].PeriodStart)
		}
		return sorted[i].Instrument < sorted[j].Instrument
	})

	var groups []periodGroup
	for _, e := range sorted {
		if len(groups) == 0 || !groups[len(groups)-1].start.Equal(e.PeriodStart) {
			groups = append(groups, periodGroup{
				start:  e.PeriodStart,
				byInst: make(map[string]domain.AlignedEvent),
			})
		}
		g := &groups[len(groups)-1]
		g.events = append(g.events, e)
		g.byInst[e.Instrument] = e
	}
	return groups
}

// closePhase closes every position due in this period. Closes strictly
// precede opens so freed capacity is reusable within the period.
func (st *state) closePhase(period periodGroup) {
	for _, inst := range openInstruments(st.open) {
		pos := st.open[inst]

		elapsed := int(period.start.Sub(pos.openedAt).Hours() / st.cfg.PeriodHours)
		if elapsed >= st.cfg.HoldPeriods {
			st.close(pos, period.start, domain.ExitReasonHoldExpired)
			continue
		}

		if st.cfg.ExitPolicy == PolicyYieldDecay {
			if e, ok := period.byInst[inst]; ok {
				if math.Abs(e.DerivedYield) < st.cfg.YieldDecayFraction*st.cfg.MinYieldToEnter {
					st.close(pos, period.start, domain.ExitReasonYieldDecay)
				}
			}
		}
	}
}

// accrue credits this period's yield to positions still open after the
// close phase.
func (st *state) accrue(period periodGroup) {
	for _, inst := range openInstruments(st.open) {
		e, ok := period.byInst[inst]
		if !ok {
			continue
		}
		pos := st.open[inst]
		pos.accruedYield += math.Abs(e.DerivedYield)
		pos.periodsHeld++
		pos.lastEventAt = period.start
	}
}

// openPhase admits qualifying events into free slots, highest absolute
// yield first; ties break on instrument name for determinism.
func (st *state) openPhase(period periodGroup) {
	var candidates []domain.AlignedEvent
	for _, e := range period.events {
		if math.Abs(e.DerivedYield) < st.cfg.MinYieldToEnter {
			continue
		}
		if _, alreadyOpen := st.open[e.Instrument]; alreadyOpen {
			continue
		}
		candidates = append(candidates, e)
	}

	sort.Slice(candidates, func(i, j int) bool {
		yi, yj := math.Abs(candidates[i].DerivedYield), math.Abs(candidates[j].DerivedYield)
		if yi != yj {
			return yi > yj
		}
		return candidates[i].Instrument < candidates[j].Instrument
	})

	for _, e := range candidates {
		if len(st.open) >= st.cfg.MaxPositions {
			break
		}

		entryCost := st.cfg.EntryCost * st.cfg.PositionFraction * st.equity
		st.equity -= entryCost

		st.open[e.Instrument] = &position{
			instrument:    e.Instrument,
			direction:     e.Direction,
			openedAt:      e.PeriodStart,
			fraction:      st.cfg.PositionFraction,
			entryYield:    e.DerivedYield,
			accruedYield:  math.Abs(e.DerivedYield),
			periodsHeld:   1,
			entryCostPaid: entryCost,
			lastEventAt:   e.PeriodStart,
		}
	}
}

// close realizes a position's P&L and removes it from the open set.
func (st *state) close(pos *position, at time.Time, reason string) {
	gross := pos.accruedYield * pos.fraction * st.equity
	exitCost := st.cfg.ExitCost * pos.fraction * st.equity
	st.equity += gross - exitCost

	st.trades = append(st.trades, domain.ClosedTrade{
		RunID:            st.cfg.RunID,
		Instrument:       pos.instrument,
		Direction:        pos.direction,
		EntryTime:        pos.openedAt,
		ExitTime:         at,
		EntryYield:       pos.entryYield,
		AccruedYield:     pos.accruedYield,
		PeriodsHeld:      pos.periodsHeld,
		NotionalFraction: pos.fraction,
		GrossPnL:         gross,
		EntryCost:        pos.entryCostPaid,
		ExitCost:         exitCost,
		NetPnL:           gross - pos.entryCostPaid - exitCost,
		ExitReason:       reason,
	})

	delete(st.open, pos.instrument)
}

// finish force-closes or discards leftover positions and builds the summary.
func (st *state) finish(events []domain.AlignedEvent) *Result {
	summary := domain.SimulationSummary{
		InitialCapital: st.cfg.Capital,
	}

	for _, inst := range openInstruments(st.open) {
		pos := st.open[inst]
		if pos.lastEventAt.After(pos.openedAt) {
			// Force close on the final event seen for this instrument.
			st.close(pos, pos.lastEventAt, domain.ExitReasonEndOfData)
			summary.ForceClosedCount++
			continue
		}
		// Entry was the instrument's last event: no exit exists. The
		// position drops out of P&L but is reported, not hidden.
		summary.DiscardedOpenCount++
		summary.UnrealizedEntryCosts += pos.entryCostPaid
		delete(st.open, inst)
	}

	summary.FinalEquity = st.equity
	summary.TotalReturnPct = (st.equity/st.cfg.Capital - 1) * 100
	summary.TradeCount = len(st.trades)
	for _, t := range st.trades {
		if t.NetPnL > 0 {
			summary.WinCount++
		}
	}

	if len(events) > 0 {
		first, last := events[0].PeriodStart, events[0].PeriodStart
		for _, e := range events {
			if e.PeriodStart.Before(first) {
				first = e.PeriodStart
			}
			if e.PeriodStart.After(last) {
				last = e.PeriodStart
			}
		}
		summary.DaysElapsed = last.Sub(first).Hours() / 24
	}
	if summary.DaysElapsed > 0 {
		summary.AnnualizedReturnPct = summary.TotalReturnPct * 365 / summary.DaysElapsed
	}

	curve := st.equityCurve
	if len(curve) > equityCurveWindow {
		curve = curve[len(curve)-equityCurveWindow:]
	}
	summary.EquityCurve = curve

	return &Result{Summary: summary, Trades: st.trades}
}

// openInstruments returns the open set's keys sorted for deterministic
// iteration.
func openInstruments(open map[string]*position) []string {
	keys := make([]string, 0, len(open))
	for k := range open {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
