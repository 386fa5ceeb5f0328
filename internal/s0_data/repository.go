package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-pit/backend/internal/contracts"
)

// StockRepository implements contracts.EntityRepository
// 상장/상장폐지일을 포함한 종목 마스터
type StockRepository struct {
	db *pgxpool.Pool
}

// NewStockRepository creates a new StockRepository instance
func NewStockRepository(db *pgxpool.Pool) *StockRepository {
	return &StockRepository{db: db}
}

// Pool returns the underlying database pool
func (r *StockRepository) Pool() *pgxpool.Pool {
	return r.db
}

// GetEntities retrieves the requested stocks, or every stock when codes is empty
func (r *StockRepository) GetEntities(ctx context.Context, codes []string) ([]contracts.Entity, error) {
	query := `
		SELECT code, name, listing_date, delisting_date
		FROM data.stocks
		WHERE cardinality($1::text[]) = 0 OR code = ANY($1::text[])
		ORDER BY code
	`
	if codes == nil {
		codes = []string{}
	}

	rows, err := r.db.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	var entities []contracts.Entity
	for rows.Next() {
		var (
			e       contracts.Entity
			listing *time.Time
		)
		if err := rows.Scan(&e.Code, &e.Name, &listing, &e.DelistingDate); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		if listing != nil {
			e.ListingDate = *listing
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entities, nil
}

// GetEntity retrieves a single stock
func (r *StockRepository) GetEntity(ctx context.Context, code string) (*contracts.Entity, error) {
	entities, err := r.GetEntities(ctx, []string{code})
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &entities[0], nil
}

// SaveStocks upserts stock master rows (bulk upsert)
func (r *StockRepository) SaveStocks(ctx context.Context, entities []contracts.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.stocks (code, name, listing_date, delisting_date, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			listing_date = COALESCE(EXCLUDED.listing_date, data.stocks.listing_date),
			delisting_date = EXCLUDED.delisting_date,
			updated_at = NOW()
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entities {
		var listing *time.Time
		if !e.ListingDate.IsZero() {
			listing = &e.ListingDate
		}
		if _, err := tx.Exec(ctx, query, e.Code, e.Name, listing, e.DelistingDate); err != nil {
			return fmt.Errorf("upsert stock %s: %w", e.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetCorpCodes returns DART corp codes keyed by stock code.
// corp_code가 비어 있는 종목은 제외.
func (r *StockRepository) GetCorpCodes(ctx context.Context, codes []string) (map[string]string, error) {
	query := `
		SELECT code, corp_code
		FROM data.stocks
		WHERE corp_code IS NOT NULL AND corp_code <> ''
		  AND (cardinality($1::text[]) = 0 OR code = ANY($1::text[]))
	`
	if codes == nil {
		codes = []string{}
	}

	rows, err := r.db.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("query corp codes: %w", err)
	}
	defer rows.Close()

	corpCodes := make(map[string]string)
	for rows.Next() {
		var code, corpCode string
		if err := rows.Scan(&code, &corpCode); err != nil {
			return nil, fmt.Errorf("scan corp code: %w", err)
		}
		corpCodes[code] = corpCode
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return corpCodes, nil
}
