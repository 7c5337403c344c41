package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/FranksOps/brandcheck/internal/storage"
	_ "modernc.org/sqlite"
)

var (
	_ storage.Backend         = (*Store)(nil)
	_ storage.CredentialStore = (*Store)(nil)
)

// Store keeps reports and settings in a single SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	brand TEXT NOT NULL,
	brand_key TEXT NOT NULL,
	domains TEXT NOT NULL,
	social TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_brand_key ON reports (brand_key, created_at);
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// New opens (creating if needed) the database at dsn.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent saves
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, report *brand.Report) error {
	domainsJSON, err := json.Marshal(report.Domains)
	if err != nil {
		return fmt.Errorf("sqlite: encode domains: %w", err)
	}
	socialJSON, err := json.Marshal(report.Social)
	if err != nil {
		return fmt.Errorf("sqlite: encode social: %w", err)
	}

	query := `
	INSERT INTO reports (
		id, brand, brand_key, domains, social, created_at, duration_ms
	) VALUES (?, ?, lower(?), ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		report.ID,
		report.Brand,
		report.Brand,
		string(domainsJSON),
		string(socialJSON),
		report.CreatedAt.UnixNano(),
		report.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save report %s: %w", report.ID, err)
	}

	return nil
}

func (s *Store) Query(ctx context.Context, filter storage.Filter) ([]*brand.Report, error) {
	query := `SELECT id, brand, domains, social, created_at, duration_ms FROM reports WHERE 1=1`
	args := []any{}

	if filter.Brand != "" {
		query += ` AND brand_key = lower(trim(?))`
		args = append(args, filter.Brand)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UnixNano())
	}

	query += ` ORDER BY created_at DESC`

	// sqlite only accepts OFFSET after LIMIT; -1 means unbounded
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query reports: %w", err)
	}
	defer rows.Close()

	results := []*brand.Report{}
	for rows.Next() {
		var r brand.Report
		var domainsJSON, socialJSON string
		var createdAt, durationMs int64

		if err := rows.Scan(&r.ID, &r.Brand, &domainsJSON, &socialJSON, &createdAt, &durationMs); err != nil {
			return nil, fmt.Errorf("sqlite: scan report: %w", err)
		}

		r.CreatedAt = time.Unix(0, createdAt).UTC()
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(domainsJSON), &r.Domains); err != nil {
			return nil, fmt.Errorf("sqlite: decode domains of %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(socialJSON), &r.Social); err != nil {
			return nil, fmt.Errorf("sqlite: decode social of %s: %w", r.ID, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: query reports: %w", err)
	}

	return results, nil
}

// LoadCredentials returns the stored registrar credentials, or a zero value
// when none were saved.
func (s *Store) LoadCredentials(ctx context.Context) (brand.Credentials, error) {
	var creds brand.Credentials
	for key, dst := range map[string]*string{
		storage.KeyUserID: &creds.UserID,
		storage.KeyAPIKey: &creds.APIKey,
	} {
		err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(dst)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return brand.Credentials{}, fmt.Errorf("sqlite: load %s: %w", key, err)
		}
	}
	return creds, nil
}

// SaveCredentials replaces both credential values in one transaction.
func (s *Store) SaveCredentials(ctx context.Context, creds brand.Credentials) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert := `INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	for _, kv := range [][2]string{
		{storage.KeyUserID, creds.UserID},
		{storage.KeyAPIKey, creds.APIKey},
	} {
		if _, err := tx.ExecContext(ctx, upsert, kv[0], kv[1]); err != nil {
			return fmt.Errorf("sqlite: save %s: %w", kv[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
