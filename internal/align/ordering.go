package align

import (
	"sort"

	"funding-rate-lab/internal/domain"
)

// sortRecords orders records by (Timestamp ASC, Instrument ASC). Alignment
// output must not depend on the order records arrive in, so every input
// slice is copied and sorted before use.
func sortRecords(records []domain.FundingRecord) []domain.FundingRecord {
	sorted := make([]domain.FundingRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].Instrument < sorted[j].Instrument
	})
	return sorted
}

// groupByInstrument splits sorted records into per-instrument series,
// preserving timestamp order within each series.
func groupByInstrument(records []domain.FundingRecord) map[string][]domain.FundingRecord {
	groups := make(map[string][]domain.FundingRecord)
	for _, r := range records {
		groups[r.Instrument] = append(groups[r.Instrument], r)
	}
	return groups
}

// sortedKeys returns map keys in ascending order for deterministic iteration.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
