package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rul1an/Gsearch/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS searches (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	num_requested INTEGER NOT NULL,
	status TEXT NOT NULL,
	results JSONB NOT NULL,
	attempts INTEGER NOT NULL,
	blocked BOOLEAN NOT NULL,
	family TEXT,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT
);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *storage.SearchRecord) error {
	resultsJSON, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	query := `
	INSERT INTO searches (
		id, query, num_requested, status, results, attempts, blocked, family, duration_ms, created_at, error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = b.pool.Exec(ctx, query,
		record.ID,
		record.Query,
		record.NumRequested,
		record.Status,
		resultsJSON,
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

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	query := `SELECT id, query, num_requested, status, results, attempts, blocked, family, duration_ms, created_at, error FROM searches WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Query != "" {
		query += fmt.Sprintf(` AND query LIKE $%d`, paramCount)
		args = append(args, "%"+filter.Query+"%")
		paramCount++
	}
	if filter.Blocked != nil {
		query += fmt.Sprintf(` AND blocked = $%d`, paramCount)
		args = append(args, *filter.Blocked)
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
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying search records: %w", err)
	}
	defer rows.Close()

	var records []*storage.SearchRecord
	for rows.Next() {
		var r storage.SearchRecord
		var resultsJSON []byte
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Query, &r.NumRequested, &r.Status, &resultsJSON, &r.Attempts,
			&r.Blocked, &r.Family, &durationMs, &r.CreatedAt, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning search record: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(resultsJSON, &r.Results); err != nil {
			return nil, fmt.Errorf("decoding results: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search records: %w", err)
	}

	return records, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
