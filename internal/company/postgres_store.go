package company

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// configDB defines the database interface needed by PostgresStore
type configDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads company config from the relational database.
type PostgresStore struct {
	db configDB
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("company: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

// NewPostgresStoreWithDB allows injecting a mock database for testing.
func NewPostgresStoreWithDB(db configDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get fetches the single company config row.
func (s *PostgresStore) Get(ctx context.Context) (*Config, error) {
	query := `
		SELECT id, company_name, company_address, company_phone, product_list, fallback_message, owner_user_id
		FROM company_config
		ORDER BY created_at
		LIMIT 1
	`
	row := s.db.QueryRow(ctx, query)
	var cfg Config
	if err := row.Scan(
		&cfg.ID,
		&cfg.CompanyName,
		&cfg.CompanyAddress,
		&cfg.CompanyPhone,
		&cfg.ProductList,
		&cfg.FallbackMessage,
		&cfg.OwnerUserID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("company: select config failed: %w", err)
	}
	return &cfg, nil
}
