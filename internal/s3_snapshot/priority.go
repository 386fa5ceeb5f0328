package s3_snapshot

import (
	"time"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// Visible keeps only the candidates disclosed on or before asOf
func Visible[T contracts.Candidate](candidates []T, asOf time.Time) []T {
	out := make([]T, 0, len(candidates))
	for _, c := range candidates {
		if !c.DisclosureDate().After(asOf) {
			out = append(out, c)
		}
	}
	return out
}

// Select picks the authoritative candidate as of asOf.
// Latest disclosure date wins; on the same date the lower priority number wins.
// Candidates disclosed after asOf are never returned.
func Select[T contracts.Candidate](candidates []T, asOf time.Time) (T, bool) {
	var best T
	found := false
	for _, c := range candidates {
		if c.DisclosureDate().After(asOf) {
			continue
		}
		if !found || better(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

func better(a, b contracts.Candidate) bool {
	da, db := a.DisclosureDate(), b.DisclosureDate()
	if !da.Equal(db) {
		return da.After(db)
	}
	return a.SourceKind().Priority() < b.SourceKind().Priority()
}
