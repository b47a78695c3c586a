package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/brd-generator/internal/types"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		owner_key  TEXT NOT NULL,
		id         TEXT NOT NULL,
		name       TEXT NOT NULL,
		stage      TEXT NOT NULL,
		truncated  BOOLEAN NOT NULL DEFAULT FALSE,
		payload    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (owner_key, id)
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		owner_key   TEXT NOT NULL,
		document_id TEXT NOT NULL,
		content     TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (owner_key, document_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_owner_created ON projects (owner_key, created_at)`,
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// EnsureSchema creates the tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// SaveProject inserts or replaces a project
func (db *DB) SaveProject(ctx context.Context, p *types.Project) error {
	payload, err := encodePayload(p)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO projects (owner_key, id, name, stage, truncated, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (owner_key, id) DO UPDATE
		 SET name = $3, stage = $4, truncated = $5, payload = $6, updated_at = $8`,
		p.OwnerKey, p.ID, p.Name, string(p.Stage), p.Truncated, payload, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.ID, err)
	}
	return nil
}

const projectColumns = `owner_key, id, name, stage, truncated, payload, created_at, updated_at`

func scanProject(row pgx.Row) (*types.Project, error) {
	var (
		p       types.Project
		stage   string
		payload []byte
	)
	if err := row.Scan(&p.OwnerKey, &p.ID, &p.Name, &stage, &p.Truncated, &payload, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Stage = types.Stage(stage)
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject retrieves a project by owner and id
func (db *DB) GetProject(ctx context.Context, ownerKey, id string) (*types.Project, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_key = $1 AND id = $2`,
		ownerKey, id,
	)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects returns the owner's projects, oldest first
func (db *DB) ListProjects(ctx context.Context, ownerKey string) ([]*types.Project, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_key = $1 ORDER BY created_at, id`,
		ownerKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*types.Project
	for rows.Next() {
		p, err := scanProject(rows)
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
func (db *DB) RenameProject(ctx context.Context, ownerKey, id, name string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE projects SET name = $3, updated_at = NOW() WHERE owner_key = $1 AND id = $2`,
		ownerKey, id, name,
	)
	if err != nil {
		return fmt.Errorf("failed to rename project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// DeleteProject removes a project and its document in one transaction
func (db *DB) DeleteProject(ctx context.Context, ownerKey, id string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE owner_key = $1 AND id = $2`, ownerKey, id)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE owner_key = $1 AND document_id = $2`, ownerKey, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// CountProjects returns how many projects the owner has
func (db *DB) CountProjects(ctx context.Context, ownerKey string) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects WHERE owner_key = $1`, ownerKey).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

// SaveDocument inserts or replaces a document
func (db *DB) SaveDocument(ctx context.Context, ownerKey, documentID, content string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO documents (owner_key, document_id, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (owner_key, document_id) DO UPDATE SET content = $3, updated_at = NOW()`,
		ownerKey, documentID, content,
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", documentID, err)
	}
	return nil
}

// GetDocument retrieves a document's content
func (db *DB) GetDocument(ctx context.Context, ownerKey, documentID string) (*string, error) {
	var content string
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM documents WHERE owner_key = $1 AND document_id = $2`,
		ownerKey, documentID,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %s: %w", documentID, err)
	}
	return &content, nil
}
