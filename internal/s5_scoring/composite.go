package s5_scoring

import (
	"sort"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
	"github.com/wonny/aegis-pit/backend/pkg/logger"
)

// Ranker ranks one cross-section of raw factor values to 0-100
type Ranker interface {
	RankCrossSection(values []*float64, higherIsBetter bool) []*float64
}

// Composite combines present sub-factor ranks.
// final = Σ(rank × weight) / Σ weight over present ranks; nothing present
// gives 0 with lowQuality set.
func Composite(ranks map[string]*float64, factors []Factor) (score, weightSum float64, lowQuality bool) {
	total := 0.0
	for _, f := range factors {
		r := ranks[f.Name]
		if r == nil || f.Weight <= 0 {
			continue
		}
		total += *r * f.Weight
		weightSum += f.Weight
	}
	if weightSum == 0 {
		return 0, 0, true
	}
	return total / weightSum, weightSum, false
}

// Scorer builds cross-sectional composite scores
// ⭐ SSOT: 종합 점수 계산은 여기서만
type Scorer struct {
	factors []Factor
	ranker  Ranker
	logger  *logger.Logger
}

// NewScorer creates a new scorer
func NewScorer(factors []Factor, ranker Ranker, log *logger.Logger) *Scorer {
	if len(factors) == 0 {
		factors = DefaultFactors()
	}
	return &Scorer{
		factors: factors,
		ranker:  ranker,
		logger:  log.WithField("module", "scoring"),
	}
}

// Factors returns the configured sub-factors
func (s *Scorer) Factors() []Factor {
	return s.factors
}

// Score ranks every factor across the given entity results and combines them.
// Results are sorted by score descending and numbered from 1.
func (s *Scorer) Score(asOf time.Time, results []*contracts.EntityResult) ([]contracts.CompositeScore, []contracts.Diagnostic) {
	var diags []contracts.Diagnostic

	ranksByFactor := make(map[string][]*float64, len(s.factors))
	for _, f := range s.factors {
		raw := make([]*float64, len(results))
		for i, r := range results {
			v, diag := f.Extract(r)
			raw[i] = v
			if diag != nil {
				diags = append(diags, *diag)
			}
		}
		ranksByFactor[f.Name] = s.ranker.RankCrossSection(raw, f.HigherIsBetter)
	}

	scores := make([]contracts.CompositeScore, 0, len(results))
	lowQuality := 0
	for i, r := range results {
		ranks := make(map[string]*float64, len(s.factors))
		for _, f := range s.factors {
			ranks[f.Name] = ranksByFactor[f.Name][i]
		}
		score, weightSum, low := Composite(ranks, s.factors)
		if low {
			lowQuality++
		}
		scores = append(scores, contracts.CompositeScore{
			Code:       r.Code,
			AsOf:       asOf,
			Ranks:      ranks,
			Score:      score,
			WeightSum:  weightSum,
			LowQuality: low,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Code < scores[j].Code
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}

	s.logger.WithFields(map[string]interface{}{
		"as_of":       asOf.Format("2006-01-02"),
		"entities":    len(scores),
		"low_quality": lowQuality,
	}).Info("Composite scores computed")

	return scores, diags
}
