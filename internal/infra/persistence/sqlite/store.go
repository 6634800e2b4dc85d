// Package sqlite caches catalog snapshots in a single SQLite table as JSON
// blobs, so a process can restart without re-ingesting the source files.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"neocore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store persists catalog snapshots to an embedded SQLite file.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) the SQLite file at path. An empty path
// defaults to ./neocore.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "neocore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Persist writes the snapshot, replacing any previously stored one.
func (s *Store) Persist(ctx context.Context, snap domain.Snapshot) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for bucket, value := range map[string]any{
		"neos":       snap.NEOs,
		"approaches": snap.Approaches,
	} {
		data, err := json.Marshal(value)
		if err != nil {
			retErr = fmt.Errorf("encode %s: %w", bucket, err)
			return retErr
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// Load reads the stored snapshot. The second return is false when the table
// holds no snapshot yet.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snap domain.Snapshot
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Snapshot{}, false, fmt.Errorf("scan state: %w", err)
		}
		switch bucket {
		case "neos":
			if err := json.Unmarshal(payload, &snap.NEOs); err != nil {
				return domain.Snapshot{}, false, fmt.Errorf("decode neos: %w", err)
			}
			found = true
		case "approaches":
			if err := json.Unmarshal(payload, &snap.Approaches); err != nil {
				return domain.Snapshot{}, false, fmt.Errorf("decode approaches: %w", err)
			}
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, found, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
