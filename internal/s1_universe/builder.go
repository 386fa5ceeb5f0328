package s1_universe

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// Builder decides which entities take part in an as-of date
type Builder struct {
	config Config
}

// Config holds universe filter criteria
type Config struct {
	MinListingDays int // 최소 상장일수 (0 = 제한 없음)
}

// DefaultConfig returns the filters used by batch runs
func DefaultConfig() Config {
	return Config{MinListingDays: 0}
}

// NewBuilder creates a new Universe Builder
func NewBuilder(config Config) *Builder {
	return &Builder{config: config}
}

// Build filters entities to those eligible at asOf.
// It never looks at anything dated after asOf.
// ⭐ SSOT: S1 시점 적격성 판정
func (b *Builder) Build(entities []contracts.Entity, asOf time.Time) *contracts.Universe {
	universe := &contracts.Universe{
		AsOf:       asOf,
		Entities:   make([]contracts.Entity, 0, len(entities)),
		Excluded:   make(map[string]string),
		TotalCount: len(entities),
	}

	for _, e := range entities {
		if reason := b.checkExclusion(e, asOf); reason != "" {
			universe.Excluded[e.Code] = reason
			continue
		}
		universe.Entities = append(universe.Entities, e)
	}

	sort.Slice(universe.Entities, func(i, j int) bool {
		return universe.Entities[i].Code < universe.Entities[j].Code
	})
	return universe
}

// checkExclusion checks if an entity should be excluded and returns the reason
func (b *Builder) checkExclusion(e contracts.Entity, asOf time.Time) string {
	// 1. 상장 전
	if e.ListingDate.IsZero() || e.ListingDate.After(asOf) {
		return "상장 전"
	}

	// 2. 상장폐지
	if e.DelistingDate != nil && !e.DelistingDate.After(asOf) {
		return fmt.Sprintf("상장폐지 (%s)", e.DelistingDate.Format("2006-01-02"))
	}

	// 3. 상장일수 미달
	days := int(asOf.Sub(e.ListingDate).Hours() / 24)
	if days < b.config.MinListingDays {
		return fmt.Sprintf("상장일수 미달 (%d일)", days)
	}

	return "" // 통과
}
