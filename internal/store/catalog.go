package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	gferrors "github.com/gridframe/gridframe/internal/errors"
	"github.com/gridframe/gridframe/pkg/types"
)

// TemplateRecord is a persisted schema template.
type TemplateRecord struct {
	ID          int64
	Name        string
	Fingerprint string
	Version     int
	Schema      *types.Schema
	CreatedAt   time.Time
}

// FrameRecord tracks one stored frame blob.
type FrameRecord struct {
	FrameID    string
	TemplateID int64
	ObjectPath string
	RowCount   int64
	MinTime    *time.Time
	MaxTime    *time.Time
	CreatedAt  time.Time
}

// Catalog tracks schema templates and frame records.
type Catalog interface {
	// RegisterTemplate stores a schema under a name, deduplicating on
	// fingerprint: registering an identical schema twice returns the
	// existing record.
	RegisterTemplate(ctx context.Context, name string, schema *types.Schema) (*TemplateRecord, error)

	// GetTemplate retrieves a template by name.
	GetTemplate(ctx context.Context, name string) (*TemplateRecord, error)

	// RegisterFrame records a stored frame blob.
	RegisterFrame(ctx context.Context, rec *FrameRecord) error

	// GetFrame retrieves a frame record by ID.
	GetFrame(ctx context.Context, frameID string) (*FrameRecord, error)

	// ListFrames returns all frames stored under a template, newest first.
	ListFrames(ctx context.Context, templateID int64) ([]*FrameRecord, error)

	// DeleteFrame removes a frame record.
	DeleteFrame(ctx context.Context, frameID string) error

	// Close closes the catalog database connection.
	Close() error
}

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // single writer
}

const catalogSchemaSQL = `
CREATE TABLE IF NOT EXISTS templates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	fingerprint TEXT NOT NULL,
	version INTEGER NOT NULL,
	columns_json TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_templates_fingerprint ON templates(fingerprint);

CREATE TABLE IF NOT EXISTS frames (
	frame_id TEXT PRIMARY KEY,
	template_id INTEGER NOT NULL REFERENCES templates(id),
	object_path TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	min_time INTEGER,
	max_time INTEGER,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_frames_template ON frames(template_id, created_at);
`

// NewCatalog creates a new SQLite-based catalog.
func NewCatalog(dbPath string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: failed to open catalog database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	catalog := &SQLiteCatalog{db: db, dbPath: dbPath}

	if _, err := db.Exec(catalogSchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to initialize catalog schema: %w", err)
	}

	return catalog, nil
}

// RegisterTemplate stores a schema template, deduplicating on fingerprint.
func (c *SQLiteCatalog) RegisterTemplate(ctx context.Context, name string, schema *types.Schema) (*TemplateRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fingerprint := schema.Fingerprint()

	// An existing template under the same name must carry the same layout.
	existing, err := c.getTemplateLocked(ctx, name)
	if err == nil {
		if existing.Fingerprint != fingerprint {
			return nil, gferrors.NewStoreError(gferrors.CodeTemplateNotFound,
				fmt.Sprintf("template %q already registered with a different schema", name), nil)
		}
		return existing, nil
	}

	columnsJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, gferrors.NewStoreError(gferrors.CodeEncodeFailed, "marshal template columns", err)
	}

	now := time.Now()
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO templates (name, fingerprint, version, columns_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, fingerprint, schema.Version, string(columnsJSON), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("store: failed to insert template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: failed to read template id: %w", err)
	}

	return &TemplateRecord{
		ID:          id,
		Name:        name,
		Fingerprint: fingerprint,
		Version:     schema.Version,
		Schema:      schema,
		CreatedAt:   now,
	}, nil
}

// GetTemplate retrieves a template by name.
func (c *SQLiteCatalog) GetTemplate(ctx context.Context, name string) (*TemplateRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getTemplateLocked(ctx, name)
}

func (c *SQLiteCatalog) getTemplateLocked(ctx context.Context, name string) (*TemplateRecord, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, name, fingerprint, version, columns_json, created_at FROM templates WHERE name = ?`, name)

	var rec TemplateRecord
	var columnsJSON string
	var createdAt int64
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Fingerprint, &rec.Version, &columnsJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, gferrors.NewStoreError(gferrors.CodeTemplateNotFound,
				fmt.Sprintf("no template named %q", name), nil)
		}
		return nil, fmt.Errorf("store: failed to read template: %w", err)
	}

	schema := &types.Schema{}
	if err := json.Unmarshal([]byte(columnsJSON), schema); err != nil {
		return nil, gferrors.NewStoreError(gferrors.CodeDecodeFailed,
			fmt.Sprintf("template %q has a corrupt column layout", name), err)
	}
	rec.Schema = schema
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}

// RegisterFrame records a stored frame blob.
func (c *SQLiteCatalog) RegisterFrame(ctx context.Context, rec *FrameRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var minT, maxT *int64
	if rec.MinTime != nil {
		v := rec.MinTime.UnixNano()
		minT = &v
	}
	if rec.MaxTime != nil {
		v := rec.MaxTime.UnixNano()
		maxT = &v
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO frames (frame_id, template_id, object_path, row_count, min_time, max_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.FrameID, rec.TemplateID, rec.ObjectPath, rec.RowCount, minT, maxT, rec.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("store: failed to insert frame record: %w", err)
	}
	return nil
}

// GetFrame retrieves a frame record by ID.
func (c *SQLiteCatalog) GetFrame(ctx context.Context, frameID string) (*FrameRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := c.db.QueryRowContext(ctx,
		`SELECT frame_id, template_id, object_path, row_count, min_time, max_time, created_at
		 FROM frames WHERE frame_id = ?`, frameID)

	rec, err := scanFrame(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, gferrors.NewStoreError(gferrors.CodeFrameNotFound,
				fmt.Sprintf("no frame %q", frameID), nil)
		}
		return nil, fmt.Errorf("store: failed to read frame record: %w", err)
	}
	return rec, nil
}

// ListFrames returns all frames stored under a template, newest first.
func (c *SQLiteCatalog) ListFrames(ctx context.Context, templateID int64) ([]*FrameRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.QueryContext(ctx,
		`SELECT frame_id, template_id, object_path, row_count, min_time, max_time, created_at
		 FROM frames WHERE template_id = ? ORDER BY created_at DESC, frame_id`, templateID)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list frames: %w", err)
	}
	defer rows.Close()

	var records []*FrameRecord
	for rows.Next() {
		rec, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("store: failed to scan frame record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteFrame removes a frame record.
func (c *SQLiteCatalog) DeleteFrame(ctx context.Context, frameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx, `DELETE FROM frames WHERE frame_id = ?`, frameID)
	if err != nil {
		return fmt.Errorf("store: failed to delete frame record: %w", err)
	}
	return nil
}

// Close closes the catalog database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFrame(s scanner) (*FrameRecord, error) {
	var rec FrameRecord
	var minT, maxT *int64
	var createdAt int64
	if err := s.Scan(&rec.FrameID, &rec.TemplateID, &rec.ObjectPath, &rec.RowCount, &minT, &maxT, &createdAt); err != nil {
		return nil, err
	}
	if minT != nil {
		t := time.Unix(0, *minT)
		rec.MinTime = &t
	}
	if maxT != nil {
		t := time.Unix(0, *maxT)
		rec.MaxTime = &t
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}
