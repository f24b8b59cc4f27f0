package phrasestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/baobao-lyrics/baobao/internal/enhance"
)

// Store persists phrase annotations across runs, keyed by model and output
// format so a different model or layout never reuses stale answers.
type Store struct {
	db   *sql.DB
	path string
}

// one stored annotation
type Entry struct {
	Model      string
	Format     string
	Phrase     string
	Annotation enhance.Annotation
	CreatedAt  time.Time
}

type migration struct {
	version string
	sql     string
}

var migrations = []migration{
	{
		version: "001_phrases",
		sql: `CREATE TABLE IF NOT EXISTS phrases (
            model TEXT NOT NULL,
            format TEXT NOT NULL,
            phrase TEXT NOT NULL,
            annotation_json TEXT NOT NULL,
            created_at TEXT NOT NULL,
            PRIMARY KEY (model, format, phrase)
        )`,
	},
}

// Open initializes or connects to the phrase database and applies migrations
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// Load returns every stored annotation for model and format, keyed by phrase
func (s *Store) Load(ctx context.Context, model, format string) (map[string]enhance.Annotation, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT phrase, annotation_json FROM phrases WHERE model = ? AND format = ?`,
		model,
		format,
	)
	if err != nil {
		return nil, fmt.Errorf("query phrases: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := make(map[string]enhance.Annotation)
	for rows.Next() {
		var phrase, raw string
		if err := rows.Scan(&phrase, &raw); err != nil {
			return nil, fmt.Errorf("scan phrase: %w", err)
		}
		var a enhance.Annotation
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			// a corrupt row is re-annotated rather than failing the run
			continue
		}
		out[phrase] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phrases: %w", err)
	}
	return out, nil
}

// Save upserts annotations in one transaction and reports how many were new
func (s *Store) Save(ctx context.Context, model, format string, entries map[string]enhance.Annotation) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	added := 0
	for phrase, a := range entries {
		payload, err := json.Marshal(a)
		if err != nil {
			return 0, fmt.Errorf("marshal annotation: %w", err)
		}
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO phrases (model, format, phrase, annotation_json, created_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(model, format, phrase) DO NOTHING`,
			model,
			format,
			phrase,
			string(payload),
			timestamp,
		)
		if err != nil {
			return 0, fmt.Errorf("insert phrase: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit phrases: %w", err)
	}
	return added, nil
}

// List returns stored entries ordered by creation, optionally filtered by model
func (s *Store) List(ctx context.Context, model string) ([]Entry, error) {
	query := `SELECT model, format, phrase, annotation_json, created_at FROM phrases`
	var args []any
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` ORDER BY created_at, phrase`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query phrases: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			raw     string
			created string
		)
		if err := rows.Scan(&e.Model, &e.Format, &e.Phrase, &raw, &created); err != nil {
			return nil, fmt.Errorf("scan phrase: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &e.Annotation); err != nil {
			return nil, fmt.Errorf("decode annotation for %q: %w", e.Phrase, err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phrases: %w", err)
	}
	return entries, nil
}

// Clear deletes stored entries, all of them when model is empty
func (s *Store) Clear(ctx context.Context, model string) (int, error) {
	query := `DELETE FROM phrases`
	var args []any
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear phrases: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM phrases`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count phrases: %w", err)
	}
	return count, nil
}
