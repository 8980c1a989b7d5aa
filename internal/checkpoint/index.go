package checkpoint

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
)

// index is a SQLite-backed accelerator mirroring the on-disk JSON
// checkpoints for O(log n) lookup and dedup. It is rebuildable from the
// JSON files at any time and is never the source of truth (spec.md §4.7,
// SPEC_FULL.md §11.6) — grounded on the teacher's NewLocalStore bootstrap
// (single-writer connection, WAL journal mode, non-fatal PRAGMA tuning),
// trimmed to the one table this component needs.
type index struct {
	db *sql.DB
}

func openIndex(dir string) (*index, error) {
	dbPath := filepath.Join(dir, "index.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	log := logging.For(logging.ComponentCheckpoint)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debugw("failed to set busy_timeout", "err", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debugw("failed to set journal_mode=WAL", "err", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id           TEXT PRIMARY KEY,
	phase        TEXT NOT NULL,
	timestamp    DATETIME NOT NULL,
	context_hash TEXT NOT NULL,
	status       TEXT NOT NULL,
	file_path    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_context_hash ON checkpoints(context_hash);
CREATE INDEX IF NOT EXISTS idx_checkpoints_timestamp ON checkpoints(timestamp);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: init schema: %w", err)
	}

	return &index{db: db}, nil
}

func (i *index) Close() error {
	return i.db.Close()
}

func (i *index) Insert(cp *model.Checkpoint) error {
	_, err := i.db.Exec(
		`INSERT INTO checkpoints (id, phase, timestamp, context_hash, status, file_path)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET phase=excluded.phase, timestamp=excluded.timestamp,
			context_hash=excluded.context_hash, status=excluded.status, file_path=excluded.file_path`,
		cp.ID, cp.Phase, cp.Timestamp.UTC(), cp.ContextHash, string(cp.Status), cp.FilePath,
	)
	return err
}

func (i *index) Delete(id string) error {
	_, err := i.db.Exec(`DELETE FROM checkpoints WHERE id = ?`, id)
	return err
}

type indexRow struct {
	ID          string
	Phase       string
	Timestamp   time.Time
	ContextHash string
	Status      model.CheckpointStatus
	FilePath    string
}

func (i *index) All() ([]indexRow, error) {
	rows, err := i.db.Query(`SELECT id, phase, timestamp, context_hash, status, file_path FROM checkpoints ORDER BY timestamp DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []indexRow
	for rows.Next() {
		var r indexRow
		var status string
		if err := rows.Scan(&r.ID, &r.Phase, &r.Timestamp, &r.ContextHash, &status, &r.FilePath); err != nil {
			return nil, err
		}
		r.Status = model.CheckpointStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (i *index) ByContextHash(hash string) ([]indexRow, error) {
	rows, err := i.db.Query(
		`SELECT id, phase, timestamp, context_hash, status, file_path FROM checkpoints
		 WHERE context_hash = ? ORDER BY timestamp DESC`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []indexRow
	for rows.Next() {
		var r indexRow
		var status string
		if err := rows.Scan(&r.ID, &r.Phase, &r.Timestamp, &r.ContextHash, &status, &r.FilePath); err != nil {
			return nil, err
		}
		r.Status = model.CheckpointStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
