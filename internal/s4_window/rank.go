package s4_window

import (
	"math"
	"sort"
)

// Quantile returns the p-quantile of sorted values using linear interpolation
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Winsorize clips present values to the [lower, upper] quantiles of the
// cross-section. Missing entries stay nil.
func Winsorize(values []*float64, lower, upper float64) []*float64 {
	present := presentValues(values)
	out := make([]*float64, len(values))
	if len(present) == 0 {
		return out
	}
	sort.Float64s(present)
	lo, hi := Quantile(present, lower), Quantile(present, upper)

	for i, v := range values {
		if v == nil || !finite(*v) {
			continue
		}
		clipped := math.Min(math.Max(*v, lo), hi)
		out[i] = &clipped
	}
	return out
}

// PercentileRank ranks present values 0-100 by percentile position.
// Ties share the average rank; missing entries stay nil.
func PercentileRank(values []*float64, higherIsBetter bool) []*float64 {
	type item struct {
		idx int
		v   float64
	}
	items := make([]item, 0, len(values))
	for i, v := range values {
		if v == nil || !finite(*v) {
			continue
		}
		x := *v
		if !higherIsBetter {
			x = -x
		}
		items = append(items, item{idx: i, v: x})
	}

	out := make([]*float64, len(values))
	n := len(items)
	if n == 0 {
		return out
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].v < items[j].v })

	for i := 0; i < n; {
		j := i
		for j+1 < n && items[j+1].v == items[i].v {
			j++
		}
		// 순위는 1부터, 동점은 평균 순위
		avg := float64(i+j+2) / 2
		rank := avg / float64(n) * 100
		for k := i; k <= j; k++ {
			r := rank
			out[items[k].idx] = &r
		}
		i = j + 1
	}
	return out
}

// RankCrossSection winsorizes then ranks one factor across entities
func (a *Aggregator) RankCrossSection(values []*float64, higherIsBetter bool) []*float64 {
	return PercentileRank(Winsorize(values, a.cfg.WinsorLower, a.cfg.WinsorUpper), higherIsBetter)
}

func presentValues(values []*float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil && finite(*v) {
			out = append(out, *v)
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
