package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dmitrijs2005/pocketlend/internal/client/migrations"
	"github.com/dmitrijs2005/pocketlend/internal/common"
	"github.com/dmitrijs2005/pocketlend/internal/dbx"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Row is a single result row keyed by column name.
type Row map[string]any

// Decode copies the row into v through its JSON tags. TEXT columns the
// driver hands back as []byte are decoded as strings.
func (r Row) Decode(v any) error {
	m := make(map[string]any, len(r))
	for k, val := range r {
		if b, ok := val.([]byte); ok {
			m[k] = string(b)
			continue
		}
		m[k] = val
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	return nil
}

// String returns the column as a string, or "" when it is NULL or absent.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the column as an int64, or 0 when it is not an integer.
func (r Row) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Result is what Execute reports for one statement. Rows is empty (never
// nil) for statements that return nothing.
type Result struct {
	Rows         []Row
	RowsAffected int64
	InsertID     int64
}

// Store wraps the SQLite handle together with the set of feature tables
// already ensured during this process lifetime.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	ready map[string]struct{}
}

// New wraps an existing handle without running migrations.
func New(db *sql.DB) *Store {
	return &Store{db: db, ready: make(map[string]struct{})}
}

// Open opens (or creates) the database at dsn and migrates it. ":memory:"
// is accepted and gives a private throwaway database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps an
	// in-memory database alive for the life of the handle.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// gooseUp is a seam for testing goose.UpContext.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate applies the embedded migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUp(ctx, s.db, "."); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for repositories that work with
// database/sql directly.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureTable creates the named table with the given column definitions
// if it does not exist yet. After the first successful call for a name the
// store does not touch the database again for it.
func (s *Store) EnsureTable(ctx context.Context, name, columnsDDL string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", common.ErrInvalidTableName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ready[name]; ok {
		return nil
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, columnsDDL)
	if _, err := s.Execute(ctx, query); err != nil {
		return fmt.Errorf("ensure table %s: %w", name, err)
	}
	s.ready[name] = struct{}{}
	return nil
}

// Execute runs one statement inside its own transaction. A failing
// statement rolls back only itself.
func (s *Store) Execute(ctx context.Context, query string, params ...any) (Result, error) {
	var res Result
	err := s.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		res, err = execute(ctx, tx, query, params...)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// WithTx runs fn inside a single transaction; see dbx.WithTx.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, nil, fn)
}

// Exec runs one statement on an existing handle, typically a transaction
// obtained from WithTx.
func Exec(ctx context.Context, db dbx.DBTX, query string, params ...any) (Result, error) {
	return execute(ctx, db, query, params...)
}

func execute(ctx context.Context, db dbx.DBTX, query string, params ...any) (Result, error) {
	res := Result{Rows: []Row{}}

	if returnsRows(query) {
		rows, err := db.QueryContext(ctx, query, params...)
		if err != nil {
			return Result{}, err
		}
		defer rows.Close()

		maps, err := dbx.ScanMaps(rows)
		if err != nil {
			return Result{}, err
		}
		for _, m := range maps {
			res.Rows = append(res.Rows, Row(m))
		}
		return res, nil
	}

	r, err := db.ExecContext(ctx, query, params...)
	if err != nil {
		return Result{}, err
	}
	if n, err := r.RowsAffected(); err == nil {
		res.RowsAffected = n
	}
	if isInsert(query) {
		if id, err := r.LastInsertId(); err == nil {
			res.InsertID = id
		}
	}
	return res, nil
}

func leadingKeyword(query string) string {
	q := strings.TrimSpace(query)
	if i := strings.IndexAny(q, " \t\r\n("); i >= 0 {
		q = q[:i]
	}
	return strings.ToLower(q)
}

func returnsRows(query string) bool {
	switch leadingKeyword(query) {
	case "select", "with", "pragma", "values", "explain":
		return true
	}
	return strings.Contains(strings.ToLower(query), " returning ")
}

func isInsert(query string) bool {
	kw := leadingKeyword(query)
	return kw == "insert" || kw == "replace"
}

// NewLocalID returns a fresh identifier for an entity created on this
// device (a random version 4 UUID).
func NewLocalID() string {
	return uuid.NewString()
}
