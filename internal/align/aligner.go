// Package align reconciles funding series sampled at different settlement
// cadences into common comparison periods.
//
// Two modes exist. CrossVenue folds a high-frequency series (hourly) into
// the cadence of a low-frequency reference series (8h), pairing each
// reference settlement with the sub-samples that precede it. Buckets
// assigns a single venue's native records to fixed wall-clock buckets.
// Both apply the same coverage rule: a period with too few sub-samples is
// discarded outright, never estimated.
package align

import (
	"math"
	"sort"
	"time"

	"funding-rate-lab/internal/domain"
)

// Default alignment parameters, matching the venues this lab targets.
const (
	DefaultWindowHours = 8
	DefaultTolerance   = 30 * time.Minute
	DefaultCoverage    = 0.5
)

// Options controls alignment behavior. The zero value selects defaults.
type Options struct {
	// WindowHours is the comparison period width in hours, i.e. the number
	// of hourly sub-samples expected per period.
	WindowHours int

	// Tolerance is the maximum distance between an expected sub-timestamp
	// and a source record for the record to count as that sub-sample.
	Tolerance time.Duration

	// Coverage is the minimum fraction of expected sub-samples that must be
	// present; periods below ceil(WindowHours x Coverage) are discarded.
	Coverage float64
}

func (o Options) withDefaults() Options {
	if o.WindowHours <= 0 {
		o.WindowHours = DefaultWindowHours
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Coverage <= 0 {
		o.Coverage = DefaultCoverage
	}
	return o
}

// minSamples returns the coverage floor: ceil(window x coverage).
func (o Options) minSamples() int {
	return int(math.Ceil(float64(o.WindowHours) * o.Coverage))
}

// Period is one reconciled comparison period before yield derivation.
// The spread calculator turns periods into domain.AlignedEvents.
type Period struct {
	PeriodStart time.Time
	Instrument  string

	// PrimarySum is the accumulated high-frequency rate over the window.
	PrimarySum float64

	// SampleCount is how many sub-samples contributed to PrimarySum.
	SampleCount int

	// ReferenceRate is the low-frequency rate at the boundary, valid only
	// when HasReference is set (cross-venue mode).
	ReferenceRate float64
	HasReference  bool
}

// CrossVenue reconciles a high-frequency primary series against a
// low-frequency reference series. For each reference settlement it sums the
// primary sub-samples at the WindowHours expected hourly sub-timestamps
// before (and including) the boundary, matching each sub-timestamp to at
// most one source record within the tolerance; first match in time order
// wins and a record is never consumed twice.
//
// Instruments present on only one side are excluded. Periods failing the
// coverage rule are discarded. Output is sorted by (PeriodStart, Instrument)
// and is identical for any permutation of the input slices.
func CrossVenue(primary, reference []domain.FundingRecord, opts Options) []Period {
	opts = opts.withDefaults()

	primaryByInst := groupByInstrument(sortRecords(primary))
	referenceByInst := groupByInstrument(sortRecords(reference))

	var periods []Period
	for _, inst := range sortedKeys(referenceByInst) {
		prim, ok := primaryByInst[inst]
		if !ok {
			continue // unmatched instrument, excluded by design
		}
		periods = append(periods, alignInstrument(inst, prim, referenceByInst[inst], opts)...)
	}

	sortPeriods(periods)
	return periods
}

// alignInstrument aligns one instrument's series pair. Both slices are
// sorted by timestamp ascending.
func alignInstrument(inst string, primary, reference []domain.FundingRecord, opts Options) []Period {
	var periods []Period
	used := make([]bool, len(primary))
	var lastBoundary time.Time

	for _, ref := range reference {
		// Duplicate reference settlements would produce overlapping
		// periods; keep the first.
		if !lastBoundary.IsZero() && !ref.Timestamp.After(lastBoundary) {
			continue
		}

		sum := 0.0
		count := 0
		for k := 0; k < opts.WindowHours; k++ {
			expected := ref.Timestamp.Add(-time.Duration(k) * time.Hour)
			if idx := matchSubSample(primary, used, expected, opts.Tolerance); idx >= 0 {
				used[idx] = true
				sum += primary[idx].Rate
				count++
			}
		}

		if count < opts.minSamples() {
			continue // insufficient coverage, discard
		}

		lastBoundary = ref.Timestamp
		periods = append(periods, Period{
			PeriodStart:   ref.Timestamp,
			Instrument:    inst,
			PrimarySum:    sum,
			SampleCount:   count,
			ReferenceRate: ref.Rate,
			HasReference:  true,
		})
	}

	return periods
}

// matchSubSample finds the earliest unused record within tolerance of the
// expected sub-timestamp. Returns -1 when none qualifies.
func matchSubSample(records []domain.FundingRecord, used []bool, expected time.Time, tolerance time.Duration) int {
	// Lower bound of the open tolerance window via binary search.
	lo := sort.Search(len(records), func(i int) bool {
		return records[i].Timestamp.After(expected.Add(-tolerance))
	})
	for i := lo; i < len(records); i++ {
		if records[i].Timestamp.Sub(expected) >= tolerance {
			break
		}
		if !used[i] {
			return i
		}
	}
	return -1
}

// Buckets assigns single-venue records to fixed wall-clock buckets with
// boundaries at hour-of-day multiples of WindowHours (00:00/08:00/16:00 UTC
// for an 8h window) and sums the rates per bucket. The coverage rule and
// ordering guarantees match CrossVenue.
func Buckets(records []domain.FundingRecord, opts Options) []Period {
	opts = opts.withDefaults()

	type bucketKey struct {
		start time.Time
		inst  string
	}
	sums := make(map[bucketKey]*Period)

	for _, r := range sortRecords(records) {
		start := bucketStart(r.Timestamp, opts.WindowHours)
		key := bucketKey{start: start, inst: r.Instrument}
		p, ok := sums[key]
		if !ok {
			p = &Period{PeriodStart: start, Instrument: r.Instrument}
			sums[key] = p
		}
		p.PrimarySum += r.Rate
		p.SampleCount++
	}

	var periods []Period
	for _, p := range sums {
		if p.SampleCount < opts.minSamples() {
			continue
		}
		periods = append(periods, *p)
	}

	sortPeriods(periods)
	return periods
}

// bucketStart truncates ts to the containing wall-clock bucket boundary.
func bucketStart(ts time.Time, windowHours int) time.Time {
	ts = ts.UTC()
	hour := (ts.Hour() / windowHours) * windowHours
	return time.Date(ts.Year(), ts.Month(), ts.Day(), hour, 0, 0, 0, time.UTC)
}

func sortPeriods(periods []Period) {
	sort.Slice(periods, func(i, j int) bool {
		if !periods[i].PeriodStart.Equal(periods[j].PeriodStart) {
			return periods[i].PeriodStart.Before(periods[j].PeriodStart)
		}
		return periods[i].Instrument < periods[j].Instrument
	})
}
