package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rul1an/Gsearch/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS searches (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	num_requested INTEGER NOT NULL,
	status TEXT NOT NULL,
	results TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	blocked BOOLEAN NOT NULL,
	family TEXT,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	error TEXT
);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, record *storage.SearchRecord) error {
	resultsJSON, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	query := `
	INSERT INTO searches (
		id, query, num_requested, status, results, attempts, blocked, family, duration_ms, created_at, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		record.ID,
		record.Query,
		record.NumRequested,
		record.Status,
		string(resultsJSON),
		record.Attempts,
		record.Blocked,
		record.Family,
		record.Duration.Milliseconds(),
		record.CreatedAt,
		record.Error,
	)

	if err != nil {
		return fmt.Errorf("inserting search record: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	query := `SELECT id, query, num_requested, status, results, attempts, blocked, family, duration_ms, created_at, error FROM searches WHERE 1=1`
	args := []any{}

	if filter.Query != "" {
		query += ` AND query LIKE ?`
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.Blocked != nil {
		query += ` AND blocked = ?`
		args = append(args, *filter.Blocked)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	// SQLite rejects OFFSET without LIMIT; -1 means no limit.
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying search records: %w", err)
	}
	defer rows.Close()

	var records []*storage.SearchRecord
	for rows.Next() {
		var r storage.SearchRecord
		var resultsJSON string
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Query, &r.NumRequested, &r.Status, &resultsJSON, &r.Attempts,
			&r.Blocked, &r.Family, &durationMs, &r.CreatedAt, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning search record: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(resultsJSON), &r.Results); err != nil {
			return nil, fmt.Errorf("decoding results: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search records: %w", err)
	}

	return records, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
