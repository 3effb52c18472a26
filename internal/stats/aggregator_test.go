package stats

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"funding-rate-lab/internal/cost"
	"funding-rate-lab/internal/domain"
)

// costConfig yields a total round-trip cost of 0.0012.
func costConfig() cost.Config {
	return cost.Config{FeeRate: 0.0002, SlippageRate: 0.0001, Legs: 2}
}

func event(inst string, yield float64, ts time.Time) domain.AlignedEvent {
	return domain.AlignedEvent{
		PeriodStart:  ts,
		Instrument:   inst,
		PrimaryValue: yield,
		Direction:    domain.DirectionShortPrimary,
		DerivedYield: yield,
	}
}

func TestRun_CostThreshold(t *testing.T) {
	ts := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	events := []domain.AlignedEvent{
		event("BTC", 0.002, ts),  // tradeable and profitable: net 0.0008
		event("ETH", 0.0008, ts), // tradeable but net -0.0004
		event("SOL", 0.0001, ts), // below threshold
	}

	s := Run(events, costConfig(), 0.0005, 8)

	if s.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", s.TotalEvents)
	}
	if s.TradeableEvents != 2 {
		t.Errorf("TradeableEvents = %d, want 2", s.TradeableEvents)
	}
	if s.ProfitableEvents != 1 {
		t.Errorf("ProfitableEvents = %d, want 1", s.ProfitableEvents)
	}
	if math.Abs(s.TotalNet-0.0008) > 1e-12 {
		t.Errorf("TotalNet = %v, want 0.0008", s.TotalNet)
	}
	if math.Abs(s.TotalGross-0.0028) > 1e-12 {
		t.Errorf("TotalGross = %v, want 0.0028", s.TotalGross)
	}
}

func TestRun_DistributionBuckets(t *testing.T) {
	ts := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	events := []domain.AlignedEvent{
		event("A", 0.0001, ts),  // <0.05%
		event("B", -0.0007, ts), // 0.05-0.1% (absolute value)
		event("C", 0.0015, ts),  // 0.1-0.2%
		event("D", 0.003, ts),   // 0.2-0.5%
		event("E", 0.007, ts),   // 0.5-1%
		event("F", 0.02, ts),    // >1%
	}

	s := Run(events, costConfig(), 0.0005, 8)

	for _, label := range domain.BucketLabels {
		if s.SpreadDistribution[label] != 1 {
			t.Errorf("bucket %s = %d, want 1", label, s.SpreadDistribution[label])
		}
	}
}

func TestRun_Rollups(t *testing.T) {
	jan := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	events := []domain.AlignedEvent{
		event("BTC", 0.002, jan),
		event("BTC", 0.001, feb),
		event("ETH", 0.0008, feb),
	}

	s := Run(events, costConfig(), 0.0005, 8)

	btc := s.ByInstrument["BTC"]
	if btc == nil || btc.Count != 2 {
		t.Fatalf("BTC rollup = %+v, want count 2", btc)
	}
	if math.Abs(btc.AvgGross-0.0015) > 1e-12 {
		t.Errorf("BTC AvgGross = %v, want 0.0015", btc.AvgGross)
	}

	if s.ByMonth["2024-01"] == nil || s.ByMonth["2024-01"].Count != 1 {
		t.Errorf("2024-01 rollup = %+v, want count 1", s.ByMonth["2024-01"])
	}
	if s.ByMonth["2024-02"] == nil || s.ByMonth["2024-02"].Count != 2 {
		t.Errorf("2024-02 rollup = %+v, want count 2", s.ByMonth["2024-02"])
	}
}

func TestRun_OrderIndependentAndIdempotent(t *testing.T) {
	ts := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	var events []domain.AlignedEvent
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		events = append(events, event("I"+string(rune('A'+i%5)), (rng.Float64()-0.5)*0.01, ts.Add(time.Duration(i)*8*time.Hour)))
	}

	want := Run(events, costConfig(), 0.0005, 8)

	// Idempotence: the same sequence twice.
	if got := Run(events, costConfig(), 0.0005, 8); !reflect.DeepEqual(got, want) {
		t.Fatal("re-running the aggregator produced different output")
	}

	// Order independence: shuffled sequence.
	shuffled := make([]domain.AlignedEvent, len(events))
	copy(shuffled, events)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if got := Run(shuffled, costConfig(), 0.0005, 8); !reflect.DeepEqual(got, want) {
		t.Fatal("shuffled input produced different aggregate totals")
	}
}

func TestResult_ZeroEvents(t *testing.T) {
	s := Run(nil, costConfig(), 0.0005, 8)

	if s.WinRate() != 0 {
		t.Errorf("WinRate = %v, want 0 with no tradeable events", s.WinRate())
	}
	if s.AvgGross() != 0 {
		t.Errorf("AvgGross = %v, want 0 with no tradeable events", s.AvgGross())
	}
	for _, label := range domain.BucketLabels {
		if _, ok := s.SpreadDistribution[label]; !ok {
			t.Errorf("bucket %s missing from empty aggregate", label)
		}
	}
}
