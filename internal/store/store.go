// Package store archives mapping snapshots in a local SQLite database.
//
// A snapshot freezes the mapping documents produced by one introspection
// run so later runs can be diffed against it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/remodeldb/remodel/internal/mapping"
)

// Snapshot is one archived introspection run.
type Snapshot struct {
	ID          string
	Label       string
	Dialect     string
	Schema      string
	TableCount  int
	Document    string
	Definitions []mapping.Definition
	CreatedAt   time.Time
}

// Store manages the snapshot archive backed by SQLite.
type Store struct {
	db *sqlx.DB
}

// DefaultDir returns the per-user archive directory, ~/.remodel.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".remodel"), nil
}

// NewStore opens the snapshot archive. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "remodel.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate snapshot database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// snapshotRow maps 1:1 to the snapshots table columns.
type snapshotRow struct {
	ID         string    `db:"id"`
	Label      string    `db:"label"`
	Dialect    string    `db:"dialect"`
	SchemaName string    `db:"schema_name"`
	TableCount int       `db:"table_count"`
	Document   string    `db:"document"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r snapshotRow) toModel() (Snapshot, error) {
	defs, err := mapping.UnmarshalDocument([]byte(r.Document))
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", r.ID, err)
	}
	return Snapshot{
		ID:          r.ID,
		Label:       r.Label,
		Dialect:     r.Dialect,
		Schema:      r.SchemaName,
		TableCount:  r.TableCount,
		Document:    r.Document,
		Definitions: defs,
		CreatedAt:   r.CreatedAt,
	}, nil
}

// SaveSnapshot archives a mapping document set and returns the stored
// snapshot with its assigned ID.
func (s *Store) SaveSnapshot(ctx context.Context, label, dialect, schemaName string, defs []mapping.Definition) (*Snapshot, error) {
	doc, err := mapping.MarshalDocument(defs)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	row := snapshotRow{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Label:      label,
		Dialect:    dialect,
		SchemaName: schemaName,
		TableCount: len(defs),
		Document:   string(doc),
		CreatedAt:  time.Now().UTC(),
	}

	const q = `INSERT INTO snapshots (id, label, dialect, schema_name, table_count, document, created_at)
		VALUES (:id, :label, :dialect, :schema_name, :table_count, :document, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	snap, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetSnapshot returns a snapshot by exact ID.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	var row snapshotRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM snapshots WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	snap, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// FindSnapshot resolves a user-supplied reference: an exact ID, then a
// label (most recent wins), then an unambiguous ID prefix.
func (s *Store) FindSnapshot(ctx context.Context, ref string) (*Snapshot, error) {
	snap, err := s.GetSnapshot(ctx, ref)
	if err == nil {
		return snap, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	var row snapshotRow
	err = s.db.GetContext(ctx, &row,
		"SELECT * FROM snapshots WHERE label = ? ORDER BY created_at DESC, id DESC LIMIT 1", ref)
	if err == nil {
		found, convErr := row.toModel()
		if convErr != nil {
			return nil, convErr
		}
		return &found, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("find snapshot by label: %w", err)
	}

	var rows []snapshotRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM snapshots WHERE id LIKE ? ORDER BY created_at DESC", ref+"%"); err != nil {
		return nil, fmt.Errorf("find snapshot by prefix: %w", err)
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		found, err := rows[0].toModel()
		if err != nil {
			return nil, err
		}
		return &found, nil
	default:
		return nil, fmt.Errorf("snapshot reference %q is ambiguous (%d matches)", ref, len(rows))
	}
}

// LatestSnapshot returns the most recently saved snapshot.
func (s *Store) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM snapshots ORDER BY created_at DESC, id DESC LIMIT 1")
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	snap, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListSnapshots returns all snapshots, newest first, without their
// decoded definitions.
func (s *Store) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	var rows []snapshotRow
	const q = `SELECT id, label, dialect, schema_name, table_count, '' AS document, created_at
		FROM snapshots ORDER BY created_at DESC, id DESC`
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	snaps := make([]Snapshot, len(rows))
	for i, r := range rows {
		snaps[i] = Snapshot{
			ID:         r.ID,
			Label:      r.Label,
			Dialect:    r.Dialect,
			Schema:     r.SchemaName,
			TableCount: r.TableCount,
			CreatedAt:  r.CreatedAt,
		}
	}
	return snaps, nil
}

// DeleteSnapshot removes a snapshot by ID.
func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
