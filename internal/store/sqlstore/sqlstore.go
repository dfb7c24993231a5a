// Package sqlstore implements store.Store on a relational database through
// sqlx. PostgreSQL (pgx), MySQL and SQLite are supported; queries are
// written with "?" placeholders and rebound for the driver in use.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/gmvsync/internal/store"
)

// Supported driver names.
const (
	DriverPostgres = "pgx"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

//go:embed schema.sql
var schemaSQL string

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is a SQL backed store.Store.
type Store struct {
	db *sqlx.DB

	mu     sync.Mutex
	custom map[string]bool
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn with driver and verifies the connection.
func Open(ctx context.Context, driver, dsn string, opts PoolOptions) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return New(db), nil
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ApplySchema creates the tables and reference rows of an empty SQLite
// database.
func (s *Store) ApplySchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

// insert adds a row and returns its id.
func (s *Store) insert(ctx context.Context, q sqlx.ExtContext, table string, cols []string, args []any) (int64, error) {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders(len(cols)))

	if q.DriverName() == DriverPostgres {
		var id int64
		if err := q.QueryRowxContext(ctx, q.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// update sets cols on the row with id. No columns is a no-op. Affected row
// counts are not checked: MySQL reports unchanged rows as unaffected.
func update(ctx context.Context, q sqlx.ExtContext, table string, id int64, cols []string, args []any) error {
	if len(cols) == 0 {
		return nil
	}
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(set, ", "))
	_, err := q.ExecContext(ctx, q.Rebind(query), append(args, id)...)
	return err
}

// setCustom replaces the custom values of one entity.
func setCustom(ctx context.Context, q sqlx.ExtContext, entity string, id int64, f store.Fields, names []string) error {
	del := q.Rebind("DELETE FROM custom_value WHERE entity = ? AND entity_id = ? AND field = ?")
	ins := q.Rebind("INSERT INTO custom_value (entity, entity_id, field, value) VALUES (?, ?, ?, ?)")
	for _, name := range names {
		if _, err := q.ExecContext(ctx, del, entity, id, name); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, ins, entity, id, name, f[name]); err != nil {
			return err
		}
	}
	return nil
}

// getCustom loads the named custom values of entities, keyed by entity id.
func (s *Store) getCustom(ctx context.Context, entity string, ids []int64, names []string) (map[int64]store.Fields, error) {
	out := make(map[int64]store.Fields)
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In("SELECT entity_id, field, value FROM custom_value WHERE entity = ? AND entity_id IN (?)", entity, ids)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		var more []any
		query, more, err = sqlx.In(query+" AND field IN (?)", append(args, names)...)
		if err != nil {
			return nil, err
		}
		args = more
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			field string
			value sql.NullString
		)
		if err := rows.Scan(&id, &field, &value); err != nil {
			return nil, err
		}
		if out[id] == nil {
			out[id] = store.Fields{}
		}
		out[id][field] = value.String
	}
	return out, rows.Err()
}

// split sorts the names of f into core columns and custom fields. Names
// that are neither are rejected.
func (s *Store) split(ctx context.Context, f store.Fields, columns []string, allowCustom bool) (core, custom []string, err error) {
	var known map[string]bool
	for name := range f {
		switch {
		case slices.Contains(columns, name):
			core = append(core, name)
		case allowCustom && store.IsCustom(name):
			if known == nil {
				if known, err = s.customFields(ctx); err != nil {
					return nil, nil, err
				}
			}
			if !known[name] {
				return nil, nil, fmt.Errorf("%w: %s", store.ErrUnknownField, name)
			}
			custom = append(custom, name)
		default:
			return nil, nil, fmt.Errorf("%w: %s", store.ErrUnknownField, name)
		}
	}
	sort.Strings(core)
	sort.Strings(custom)
	return core, custom, nil
}

// customFields returns the set of defined custom field keys.
func (s *Store) customFields(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.custom != nil {
		return s.custom, nil
	}

	fields, err := s.ListCustomFields(ctx)
	if err != nil {
		return nil, err
	}
	s.custom = make(map[string]bool, len(fields))
	for _, f := range fields {
		s.custom[f.Key()] = true
	}
	return s.custom, nil
}

func values(f store.Fields, names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = nullable(f[n])
	}
	return out
}

// nullable stores "" as NULL.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
