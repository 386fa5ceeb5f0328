package s2_decompose

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Rule is the decomposition rule selected for a quarter pattern
type Rule int

const (
	RuleIrregular Rule = iota
	RuleDirectQ1
	RuleAnnualOnly
	RuleIsolatedCumulative // {2} 또는 {3} 단독
	RuleFirstHalf          // {1,2}
	RuleQ1Residual         // {1,4}
	RuleHalfResidual       // {2,4}
	RuleNineMonthResidual  // {3,4}
	RuleTelescoping        // 3개 이상 분기
)

func (r Rule) String() string {
	switch r {
	case RuleIrregular:
		return "irregular"
	case RuleDirectQ1:
		return "direct_q1"
	case RuleAnnualOnly:
		return "annual_only"
	case RuleIsolatedCumulative:
		return "isolated_cumulative"
	case RuleFirstHalf:
		return "first_half"
	case RuleQ1Residual:
		return "q1_residual"
	case RuleHalfResidual:
		return "half_residual"
	case RuleNineMonthResidual:
		return "nine_month_residual"
	case RuleTelescoping:
		return "telescoping"
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

// QuarterPattern is the ordered, de-duplicated set of disclosed quarters
type QuarterPattern []int

// NewQuarterPattern normalizes quarter numbers: drops anything outside 1..4,
// removes duplicates and sorts ascending
func NewQuarterPattern(quarters []int) QuarterPattern {
	seen := [5]bool{}
	out := make(QuarterPattern, 0, 4)
	for _, q := range quarters {
		if q < 1 || q > 4 || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	sort.Ints(out)
	return out
}

// Has reports whether quarter q is in the pattern
func (p QuarterPattern) Has(q int) bool {
	for _, v := range p {
		if v == q {
			return true
		}
	}
	return false
}

func (p QuarterPattern) String() string {
	parts := make([]string, len(p))
	for i, q := range p {
		parts[i] = strconv.Itoa(q)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Classify maps a disclosed quarter set to its decomposition rule.
// It is total: unknown shapes return RuleIrregular.
func Classify(quarters []int) Rule {
	p := NewQuarterPattern(quarters)

	switch len(p) {
	case 0:
		return RuleIrregular
	case 1:
		switch p[0] {
		case 1:
			return RuleDirectQ1
		case 4:
			return RuleAnnualOnly
		default:
			return RuleIsolatedCumulative
		}
	case 2:
		switch {
		case p[0] == 1 && p[1] == 2:
			return RuleFirstHalf
		case p[0] == 1 && p[1] == 4:
			return RuleQ1Residual
		case p[0] == 2 && p[1] == 4:
			return RuleHalfResidual
		case p[0] == 3 && p[1] == 4:
			return RuleNineMonthResidual
		default:
			return RuleIrregular
		}
	default:
		return RuleTelescoping
	}
}
