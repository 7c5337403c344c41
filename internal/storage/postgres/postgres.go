package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/FranksOps/brandcheck/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	_ storage.Backend         = (*Store)(nil)
	_ storage.CredentialStore = (*Store)(nil)
)

// Store keeps reports and settings in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS brand_reports (
	id TEXT PRIMARY KEY,
	brand TEXT NOT NULL,
	domains JSONB NOT NULL,
	social JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS brand_reports_brand ON brand_reports (lower(brand), created_at DESC);
CREATE TABLE IF NOT EXISTS brand_settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// New connects to dsn and ensures the schema exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Save(ctx context.Context, report *brand.Report) error {
	domainsJSON, err := json.Marshal(report.Domains)
	if err != nil {
		return fmt.Errorf("postgres: encode domains: %w", err)
	}
	socialJSON, err := json.Marshal(report.Social)
	if err != nil {
		return fmt.Errorf("postgres: encode social: %w", err)
	}

	query := `
	INSERT INTO brand_reports (
		id, brand, domains, social, created_at, duration_ms
	) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		report.ID,
		report.Brand,
		domainsJSON,
		socialJSON,
		report.CreatedAt,
		report.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("postgres: save report %s: %w", report.ID, err)
	}

	return nil
}

func (s *Store) Query(ctx context.Context, filter storage.Filter) ([]*brand.Report, error) {
	query := `SELECT id, brand, domains, social, created_at, duration_ms FROM brand_reports WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Brand != "" {
		query += fmt.Sprintf(` AND lower(brand) = lower(trim($%d))`, paramCount)
		args = append(args, filter.Brand)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query reports: %w", err)
	}
	defer rows.Close()

	results := []*brand.Report{}
	for rows.Next() {
		var r brand.Report
		var domainsJSON, socialJSON []byte
		var durationMs int64

		if err := rows.Scan(&r.ID, &r.Brand, &domainsJSON, &socialJSON, &r.CreatedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("postgres: scan report: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(domainsJSON, &r.Domains); err != nil {
			return nil, fmt.Errorf("postgres: decode domains of %s: %w", r.ID, err)
		}
		if err := json.Unmarshal(socialJSON, &r.Social); err != nil {
			return nil, fmt.Errorf("postgres: decode social of %s: %w", r.ID, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query reports: %w", err)
	}

	return results, nil
}

func (s *Store) LoadCredentials(ctx context.Context) (brand.Credentials, error) {
	var creds brand.Credentials
	for key, dst := range map[string]*string{
		storage.KeyUserID: &creds.UserID,
		storage.KeyAPIKey: &creds.APIKey,
	} {
		err := s.pool.QueryRow(ctx, `SELECT value FROM brand_settings WHERE key = $1`, key).Scan(dst)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return brand.Credentials{}, fmt.Errorf("postgres: load %s: %w", key, err)
		}
	}
	return creds, nil
}

func (s *Store) SaveCredentials(ctx context.Context, creds brand.Credentials) error {
	batch := &pgx.Batch{}
	upsert := `INSERT INTO brand_settings (key, value) VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	batch.Queue(upsert, storage.KeyUserID, creds.UserID)
	batch.Queue(upsert, storage.KeyAPIKey, creds.APIKey)

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres: save credentials: %w", err)
		}
		return nil
	})
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
