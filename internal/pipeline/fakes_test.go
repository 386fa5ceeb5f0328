package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

type memDisclosures struct {
	records map[string][]*contracts.DisclosureRecord
	onLoad  func(code string)
}

func (m *memDisclosures) GetVisibleByCode(_ context.Context, code string, asOf time.Time) ([]*contracts.DisclosureRecord, error) {
	if m.onLoad != nil {
		m.onLoad(code)
	}
	var out []*contracts.DisclosureRecord
	for _, r := range m.records[code] {
		if !r.DisclosedAt.After(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memDisclosures) Save(_ context.Context, r *contracts.DisclosureRecord) error {
	m.records[r.Code] = append(m.records[r.Code], r)
	return nil
}

func (m *memDisclosures) SaveBatch(ctx context.Context, records []*contracts.DisclosureRecord) error {
	for _, r := range records {
		_ = m.Save(ctx, r)
	}
	return nil
}

type memEntities struct {
	entities []contracts.Entity
}

func (m *memEntities) GetEntities(_ context.Context, codes []string) ([]contracts.Entity, error) {
	if len(codes) == 0 {
		return m.entities, nil
	}
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var out []contracts.Entity
	for _, e := range m.entities {
		if want[e.Code] {
			out = append(out, e)
		}
	}
	return out, nil
}

type resultKey struct {
	code string
	asOf time.Time
}

type memResults struct {
	mu       sync.Mutex
	entity   map[resultKey]*contracts.EntityResult
	scores   map[time.Time][]contracts.CompositeScore
	failCode string
}

func newMemResults() *memResults {
	return &memResults{
		entity: make(map[resultKey]*contracts.EntityResult),
		scores: make(map[time.Time][]contracts.CompositeScore),
	}
}

func (m *memResults) ReplaceEntityResult(_ context.Context, r *contracts.EntityResult) error {
	if r.Code == m.failCode {
		return errors.New("connection reset")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entity[resultKey{r.Code, r.AsOf}] = r
	return nil
}

func (m *memResults) ClearEntityResults(_ context.Context, asOf time.Time, codes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, code := range codes {
		delete(m.entity, resultKey{code, asOf})
	}
	return nil
}

func (m *memResults) ReplaceScores(_ context.Context, asOf time.Time, scores []contracts.CompositeScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[asOf] = scores
	return nil
}

func (m *memResults) GetScores(_ context.Context, asOf time.Time) ([]contracts.CompositeScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores[asOf], nil
}

type memRuns struct {
	reports []*contracts.BatchReport
}

func (m *memRuns) SaveRun(_ context.Context, r *contracts.BatchReport) error {
	m.reports = append(m.reports, r)
	return nil
}
