package domain

// Spread distribution bucket labels, evaluated on absolute derived yield.
// Boundaries are fixed: <0.05%, 0.05-0.1%, 0.1-0.2%, 0.2-0.5%, 0.5-1%, >1%.
const (
	BucketUnder005 = "0-0.05%"
	Bucket005To01  = "0.05-0.1%"
	Bucket01To02   = "0.1-0.2%"
	Bucket02To05   = "0.2-0.5%"
	Bucket05To1    = "0.5-1%"
	BucketOver1    = ">1%"
)

// BucketLabels lists the distribution buckets in ascending magnitude order.
var BucketLabels = []string{
	BucketUnder005,
	Bucket005To01,
	Bucket01To02,
	Bucket02To05,
	Bucket05To1,
	BucketOver1,
}

// BucketFor classifies an absolute yield into its distribution bucket.
func BucketFor(absYield float64) string {
	switch {
	case absYield < 0.0005:
		return BucketUnder005
	case absYield < 0.001:
		return Bucket005To01
	case absYield < 0.002:
		return Bucket01To02
	case absYield < 0.005:
		return Bucket02To05
	case absYield < 0.01:
		return Bucket05To1
	default:
		return BucketOver1
	}
}

// RollupStats accumulates count/gross/net for one rollup key
// (instrument or calendar month).
type RollupStats struct {
	Count int
	Gross float64
	Net   float64

	// AvgGross is Gross/Count, 0 when Count is 0. Filled by Finalize.
	AvgGross float64
}

// AggregateStats is the output of one aggregation pass. Built incrementally,
// read-only once the pass completes.
type AggregateStats struct {
	TotalEvents      int
	TradeableEvents  int // |yield| >= threshold
	ProfitableEvents int // net after costs > 0

	TotalGross float64 // sum of |yield| over tradeable events
	TotalNet   float64 // sum of positive nets

	ByInstrument map[string]*RollupStats
	ByMonth      map[string]*RollupStats // key "2006-01"

	SpreadDistribution map[string]int // bucket label -> count
}

// NewAggregateStats creates an empty accumulator with all distribution
// buckets present so serialized output always carries every label.
func NewAggregateStats() *AggregateStats {
	dist := make(map[string]int, len(BucketLabels))
	for _, label := range BucketLabels {
		dist[label] = 0
	}
	return &AggregateStats{
		ByInstrument:       make(map[string]*RollupStats),
		ByMonth:            make(map[string]*RollupStats),
		SpreadDistribution: dist,
	}
}

// Rollup returns the stats entry for key in m, creating it on first use.
func Rollup(m map[string]*RollupStats, key string) *RollupStats {
	r, ok := m[key]
	if !ok {
		r = &RollupStats{}
		m[key] = r
	}
	return r
}

// WinRate returns profitable/tradeable, 0 when no tradeable events.
func (s *AggregateStats) WinRate() float64 {
	if s.TradeableEvents == 0 {
		return 0
	}
	return float64(s.ProfitableEvents) / float64(s.TradeableEvents)
}

// AvgGross returns mean |yield| per tradeable event, 0 when none.
func (s *AggregateStats) AvgGross() float64 {
	if s.TradeableEvents == 0 {
		return 0
	}
	return s.TotalGross / float64(s.TradeableEvents)
}

// Finalize fills derived averages on every rollup entry.
func (s *AggregateStats) Finalize() {
	for _, r := range s.ByInstrument {
		r.finalize()
	}
	for _, r := range s.ByMonth {
		r.finalize()
	}
}

func (r *RollupStats) finalize() {
	if r.Count == 0 {
		r.AvgGross = 0
		return
	}
	r.AvgGross = r.Gross / float64(r.Count)
}
