package s4_window

import (
	"sort"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// ttmSpanLimit is the widest coverage four quarters may have before the
// TTM is flagged degraded (12 months plus slack for irregular period ends)
const ttmSpanLimit = 380 * 24 * time.Hour

// TTM sums the value at period ref and the three entries that precede it
// in period-end descending order. Fewer than four entries yields nil.
func TTM(history []contracts.DecomposedQuarterValue, ref time.Time) (*float64, contracts.QualityFlag) {
	sorted := make([]contracts.DecomposedQuarterValue, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PeriodEnd.After(sorted[j].PeriodEnd)
	})

	idx := -1
	for i, h := range sorted {
		if h.PeriodEnd.Equal(ref) {
			idx = i
			break
		}
	}
	if idx < 0 || idx+4 > len(sorted) {
		return nil, contracts.QualityInsufficient
	}

	window := sorted[idx : idx+4]
	sum := 0.0
	quality := contracts.QualityOK
	for _, h := range window {
		sum += h.Value
		if h.Status != contracts.StatusDirectSingle {
			quality = contracts.QualityDegraded
		}
	}

	// 가장 오래된 분기의 시작부터 기준 분기 말까지
	oldestStart := window[3].PeriodEnd.AddDate(0, -3, 0)
	if window[0].PeriodEnd.Sub(oldestStart) > ttmSpanLimit {
		quality = contracts.QualityDegraded
	}

	return &sum, quality
}
