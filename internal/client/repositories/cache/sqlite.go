package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pocketlend/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Get(ctx context.Context, path string) (Entry, bool, error) {
	var (
		body      []byte
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `SELECT body, updated_at FROM http_cache WHERE path = ?`, path).Scan(&body, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to get cache[%s]: %w", path, err)
	}

	e := Entry{Path: path, Body: body}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		e.UpdatedAt = t
	}
	return e, true, nil
}

// Put overwrites the entry for path.
func (r *SQLiteRepository) Put(ctx context.Context, path string, body []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO http_cache (path, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, path, body, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to set cache[%s]: %w", path, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM http_cache WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete cache[%s]: %w", path, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM http_cache`)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Paths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT path FROM http_cache ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan cache row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache rows: %w", err)
	}
	return result, nil
}
