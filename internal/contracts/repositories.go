package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// DisclosureRepository reads and ingests raw financial disclosures
type DisclosureRepository interface {
	// GetVisibleByCode returns every record for a company disclosed on or before asOf
	GetVisibleByCode(ctx context.Context, code string, asOf time.Time) ([]*DisclosureRecord, error)
	Save(ctx context.Context, record *DisclosureRecord) error
	SaveBatch(ctx context.Context, records []*DisclosureRecord) error
}

// EntityRepository reads the company master with listing windows
type EntityRepository interface {
	// GetEntities returns the requested companies, or all when codes is empty
	GetEntities(ctx context.Context, codes []string) ([]Entity, error)
}

// ResultRepository persists computed results.
// Every write replaces the keyed set atomically (delete-then-insert).
type ResultRepository interface {
	ReplaceEntityResult(ctx context.Context, result *EntityResult) error
	// ClearEntityResults removes the per-entity output of codes at asOf
	ClearEntityResults(ctx context.Context, asOf time.Time, codes []string) error
	ReplaceScores(ctx context.Context, asOf time.Time, scores []CompositeScore) error
	GetScores(ctx context.Context, asOf time.Time) ([]CompositeScore, error)
}

// BatchRunRepository records batch run outcomes for auditing
type BatchRunRepository interface {
	SaveRun(ctx context.Context, report *BatchReport) error
}
