package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure-Go SQLite driver, registered as "sqlite"
	_ "modernc.org/sqlite"

	"github.com/jonathan/brd-generator/internal/types"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		owner_key  TEXT NOT NULL,
		id         TEXT NOT NULL,
		name       TEXT NOT NULL,
		stage      TEXT NOT NULL,
		truncated  INTEGER NOT NULL DEFAULT 0,
		payload    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (owner_key, id)
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		owner_key   TEXT NOT NULL,
		document_id TEXT NOT NULL,
		content     TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (owner_key, document_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_owner_created ON projects (owner_key, created_at)`,
}

// SQLiteStore keeps projects in a local SQLite file
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// timeLayout has fixed-width fractions so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// SaveProject inserts or replaces a project
func (s *SQLiteStore) SaveProject(ctx context.Context, p *types.Project) error {
	payload, err := encodePayload(p)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (owner_key, id, name, stage, truncated, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner_key, id) DO UPDATE
		 SET name = excluded.name, stage = excluded.stage, truncated = excluded.truncated,
		     payload = excluded.payload, updated_at = excluded.updated_at`,
		p.OwnerKey, p.ID, p.Name, string(p.Stage), p.Truncated, string(payload),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProject(row rowScanner) (*types.Project, error) {
	var (
		p                    types.Project
		stage, payload       string
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.OwnerKey, &p.ID, &p.Name, &stage, &p.Truncated, &payload, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Stage = types.Stage(stage)

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if err := decodePayload([]byte(payload), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject retrieves a project by owner and id
func (s *SQLiteStore) GetProject(ctx context.Context, ownerKey, id string) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_key = ? AND id = ?`,
		ownerKey, id,
	)
	p, err := scanSQLiteProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects returns the owner's projects, oldest first
func (s *SQLiteStore) ListProjects(ctx context.Context, ownerKey string) ([]*types.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_key = ? ORDER BY created_at, id`,
		ownerKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*types.Project
	for rows.Next() {
		p, err := scanSQLiteProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// RenameProject changes a project's display name
func (s *SQLiteStore) RenameProject(ctx context.Context, ownerKey, id, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, updated_at = ? WHERE owner_key = ? AND id = ?`,
		name, formatTime(time.Now()), ownerKey, id,
	)
	if err != nil {
		return fmt.Errorf("failed to rename project %s: %w", id, err)
	}
	return requireAffected(res)
}

// DeleteProject removes a project and its document in one transaction
func (s *SQLiteStore) DeleteProject(ctx context.Context, ownerKey, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE owner_key = ? AND id = ?`, ownerKey, id)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE owner_key = ? AND document_id = ?`, ownerKey, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// CountProjects returns how many projects the owner has
func (s *SQLiteStore) CountProjects(ctx context.Context, ownerKey string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE owner_key = ?`, ownerKey).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

// SaveDocument inserts or replaces a document
func (s *SQLiteStore) SaveDocument(ctx context.Context, ownerKey, documentID, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (owner_key, document_id, content, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (owner_key, document_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		ownerKey, documentID, content, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", documentID, err)
	}
	return nil
}

// GetDocument retrieves a document's content
func (s *SQLiteStore) GetDocument(ctx context.Context, ownerKey, documentID string) (*string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM documents WHERE owner_key = ? AND document_id = ?`,
		ownerKey, documentID,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %s: %w", documentID, err)
	}
	return &content, nil
}
