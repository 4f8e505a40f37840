// Package sqlite stores resource documents as JSON rows in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/atlanticdynamic/scriptgate/internal/resource"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ resource.Accessor = (*Store)(nil)

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements resource.Accessor on SQLite.
type Store struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to the database, applies migrations and returns a ready Store.
func Open(ctx context.Context, cfg Config, handler slog.Handler) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	if handler == nil {
		handler = slog.Default().Handler()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		logger: slog.New(handler).WithGroup("resource.sqlite"),
		now:    time.Now,
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(
	ctx context.Context,
	collection, id string,
	content map[string]any,
) (map[string]any, error) {
	collection, err := resource.CleanCollection(collection)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.Must(uuid.NewV4()).String()
	}

	body, err := encode(content)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, rev, content, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?, ?) ON CONFLICT (collection, id) DO NOTHING`,
		collection, id, body, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s/%s", resource.ErrConflict, collection, id)
	}

	s.logger.Debug("Created document", "collection", collection, "id", id)
	return withMeta(content, id, 1), nil
}

func (s *Store) Read(ctx context.Context, path string) (map[string]any, error) {
	collection, id, err := resource.SplitPath(path)
	if err != nil {
		return nil, err
	}
	doc, rev, err := s.load(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	return withMeta(doc, id, rev), nil
}

func (s *Store) Update(
	ctx context.Context,
	path, rev string,
	content map[string]any,
) (map[string]any, error) {
	collection, id, err := resource.SplitPath(path)
	if err != nil {
		return nil, err
	}
	return s.replace(ctx, collection, id, rev, content)
}

func (s *Store) Patch(
	ctx context.Context,
	path, rev string,
	ops []resource.PatchOperation,
) (map[string]any, error) {
	collection, id, err := resource.SplitPath(path)
	if err != nil {
		return nil, err
	}

	doc, current, err := s.load(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if err := checkRev(rev, current); err != nil {
		return nil, err
	}

	patched, err := resource.ApplyPatch(doc, ops)
	if err != nil {
		return nil, err
	}
	return s.replace(ctx, collection, id, strconv.FormatInt(current, 10), patched)
}

func (s *Store) Query(
	ctx context.Context,
	collection string,
	params map[string]any,
) ([]map[string]any, error) {
	collection, err := resource.CleanCollection(collection)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, rev, content FROM documents WHERE collection = ?`
	args := []any{collection}

	for k, v := range params {
		if strings.HasPrefix(k, "_") {
			continue
		}
		query += ` AND json_extract(content, ?) = ?`
		args = append(args, "$."+k, v)
	}
	query += ` ORDER BY id`

	if size, ok := intParam(params, "_pageSize"); ok && size > 0 {
		query += ` LIMIT ?`
		args = append(args, size)
		if offset, ok := intParam(params, "_pagedResultsOffset"); ok && offset > 0 {
			query += ` OFFSET ?`
			args = append(args, offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	results := []map[string]any{}
	for rows.Next() {
		var id, body string
		var rev int64
		if err := rows.Scan(&id, &rev, &body); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}
		doc, err := decode(body)
		if err != nil {
			return nil, err
		}
		results = append(results, withMeta(doc, id, rev))
	}
	return results, rows.Err()
}

func (s *Store) Delete(ctx context.Context, path, rev string) (map[string]any, error) {
	collection, id, err := resource.SplitPath(path)
	if err != nil {
		return nil, err
	}

	doc, current, err := s.load(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if err := checkRev(rev, current); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ? AND rev = ?`,
		collection, id, current,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s/%s", resource.ErrRevisionMismatch, collection, id)
	}
	return withMeta(doc, id, current), nil
}

// Action supports "count" on a collection.
func (s *Store) Action(
	ctx context.Context,
	path, action string,
	_, params map[string]any,
) (any, error) {
	switch action {
	case "count":
		docs, err := s.Query(ctx, path, params)
		if err != nil {
			return nil, err
		}
		return map[string]any{"count": int64(len(docs))}, nil
	default:
		return nil, fmt.Errorf("%w: %q", resource.ErrUnsupportedAction, action)
	}
}

func (s *Store) load(ctx context.Context, collection, id string) (map[string]any, int64, error) {
	var body string
	var rev int64
	err := s.db.QueryRowContext(ctx,
		`SELECT rev, content FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&rev, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("%w: %s/%s", resource.ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}
	doc, err := decode(body)
	if err != nil {
		return nil, 0, err
	}
	return doc, rev, nil
}

func (s *Store) replace(
	ctx context.Context,
	collection, id, rev string,
	content map[string]any,
) (map[string]any, error) {
	body, err := encode(content)
	if err != nil {
		return nil, err
	}

	query := `UPDATE documents SET content = ?, rev = rev + 1, updated_at = ?
		WHERE collection = ? AND id = ?`
	args := []any{body, s.now().UTC(), collection, id}
	if rev != "" {
		want, err := strconv.ParseInt(rev, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", resource.ErrRevisionMismatch, rev)
		}
		query += ` AND rev = ?`
		args = append(args, want)
	}
	query += ` RETURNING rev`

	var next int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		if _, _, loadErr := s.load(ctx, collection, id); loadErr != nil {
			return nil, loadErr
		}
		return nil, fmt.Errorf("%w: %s/%s", resource.ErrRevisionMismatch, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return withMeta(content, id, next), nil
}

func checkRev(rev string, current int64) error {
	if rev == "" || rev == strconv.FormatInt(current, 10) {
		return nil
	}
	return fmt.Errorf("%w: have %d, want %s", resource.ErrRevisionMismatch, current, rev)
}

func encode(content map[string]any) (string, error) {
	clean := maps.Clone(content)
	delete(clean, resource.FieldID)
	delete(clean, resource.FieldRev)
	if clean == nil {
		clean = map[string]any{}
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(b), nil
}

func decode(body string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func withMeta(doc map[string]any, id string, rev int64) map[string]any {
	out := maps.Clone(doc)
	if out == nil {
		out = make(map[string]any)
	}
	out[resource.FieldID] = id
	out[resource.FieldRev] = strconv.FormatInt(rev, 10)
	return out
}

func intParam(params map[string]any, key string) (int64, bool) {
	switch v := params[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
