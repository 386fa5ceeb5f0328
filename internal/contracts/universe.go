package contracts

import "time"

// Universe is the set of entities eligible at an as-of date
// ⭐ SSOT: S1 → S2 대상 종목 전달
type Universe struct {
	AsOf       time.Time         `json:"as_of"`
	Entities   []Entity          `json:"entities"`              // 대상 종목
	Excluded   map[string]string `json:"excluded"`              // 제외 종목: 사유
	TotalCount int               `json:"total_count,omitempty"` // 전체 종목 수
}

// Contains checks if a stock code is in the universe
func (u *Universe) Contains(code string) bool {
	for _, e := range u.Entities {
		if e.Code == code {
			return true
		}
	}
	return false
}

// IsExcluded checks if a stock code is excluded with reason
func (u *Universe) IsExcluded(code string) (bool, string) {
	reason, exists := u.Excluded[code]
	return exists, reason
}

// Count returns the number of eligible entities
func (u *Universe) Count() int {
	return len(u.Entities)
}

// Codes returns the eligible stock codes in universe order
func (u *Universe) Codes() []string {
	codes := make([]string, len(u.Entities))
	for i, e := range u.Entities {
		codes[i] = e.Code
	}
	return codes
}
