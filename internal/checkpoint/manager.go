// Package checkpoint implements the pipeline's durable checkpointing (C7,
// spec.md §4.7, SPEC_FULL.md §11.6). A JSON file per checkpoint under
// .workflow-checkpoints/ is the source of truth; a small SQLite index
// mirrors {id, phase, timestamp, context_hash, status, file_path} purely
// as a rebuildable lookup accelerator.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
)

// DefaultDirName is the conventional checkpoint directory name, created
// relative to a project's root.
const DefaultDirName = ".workflow-checkpoints"

// Manager reads and writes checkpoints for one project workspace.
type Manager struct {
	dir   string
	index *index
}

// NewManager opens (creating if necessary) the checkpoint directory and its
// SQLite index at dir.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: create dir: %w", err)
	}
	idx, err := openIndex(dir)
	if err != nil {
		return nil, err
	}
	return &Manager{dir: dir, index: idx}, nil
}

// Close releases the manager's SQLite handle.
func (m *Manager) Close() error {
	return m.index.Close()
}

// Write persists a new checkpoint capturing wc's current state at phase,
// tagged with status, and returns it. The context hash is recomputed from
// wc.ProjectPath's current state on every write.
func (m *Manager) Write(ctx context.Context, phase string, wc *model.WorkflowContext, status model.CheckpointStatus, stepErr error) (*model.Checkpoint, error) {
	hash, err := ContextHash(ctx, wc.ProjectPath)
	if err != nil {
		logging.For(logging.ComponentCheckpoint).Warnw("context hash failed, writing checkpoint without it", "err", err)
	}

	cp := model.Checkpoint{
		ID:            uuid.NewString(),
		Phase:         phase,
		Status:        status,
		Timestamp:     time.Now().UTC(),
		StateSnapshot: wc.ToRecord(),
		ContextHash:   hash,
	}
	if stepErr != nil {
		cp.Error = stepErr.Error()
	}
	cp.FilePath = filepath.Join(m.dir, cp.ID+".json")

	data, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("checkpoint: marshal: %w", err)
	}
	if err := os.WriteFile(cp.FilePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("checkpoint: write file: %w", err)
	}

	if err := m.index.Insert(&cp); err != nil {
		logging.For(logging.ComponentCheckpoint).Warnw("index insert failed; checkpoint file is still authoritative", "id", cp.ID, "err", err)
	}

	return &cp, nil
}

// Load reads and deserializes the checkpoint JSON file at path.
func Load(path string) (*model.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal %s: %w", path, err)
	}
	return &cp, nil
}

// Get loads the checkpoint identified by id by reading {dir}/{id}.json
// directly; the index is not consulted.
func (m *Manager) Get(id string) (*model.Checkpoint, error) {
	path := filepath.Join(m.dir, id+".json")
	return Load(path)
}

// List returns all checkpoints deduplicated by context hash, keeping only
// the most recent timestamp within each group, ordered most-recent-first.
func (m *Manager) List() ([]model.Checkpoint, error) {
	rows, err := m.index.All()
	if err != nil {
		return nil, err
	}

	latestByHash := make(map[string]indexRow, len(rows))
	for _, r := range rows {
		existing, ok := latestByHash[r.ContextHash]
		if !ok || r.Timestamp.After(existing.Timestamp) {
			latestByHash[r.ContextHash] = r
		}
	}

	out := make([]model.Checkpoint, 0, len(latestByHash))
	for _, r := range latestByHash {
		cp, err := Load(r.FilePath)
		if err != nil {
			logging.For(logging.ComponentCheckpoint).Warnw("skipping unreadable checkpoint file", "id", r.ID, "path", r.FilePath, "err", err)
			continue
		}
		out = append(out, *cp)
	}
	sortCheckpointsDesc(out)
	return out, nil
}

func sortCheckpointsDesc(cps []model.Checkpoint) {
	for i := 1; i < len(cps); i++ {
		for j := i; j > 0 && cps[j].Timestamp.After(cps[j-1].Timestamp); j-- {
			cps[j], cps[j-1] = cps[j-1], cps[j]
		}
	}
}

// DetectResumable recomputes the context hash for projectPath's current
// state and returns the most recent checkpoint sharing that hash whose
// status is neither COMPLETED nor PARTIAL_COMPLETE, or nil if none exists
// (spec.md §4.7).
func (m *Manager) DetectResumable(ctx context.Context, projectPath string) (*model.Checkpoint, error) {
	hash, err := ContextHash(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	rows, err := m.index.ByContextHash(hash)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.Status == model.CheckpointCompleted || r.Status == model.CheckpointPartialComplete {
			continue
		}
		return Load(r.FilePath)
	}
	return nil, nil
}

// CleanupByAge deletes checkpoints older than the given number of days.
// Individual file/index failures are logged and skipped rather than
// aborting the whole cleanup pass.
func (m *Manager) CleanupByAge(days int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := m.index.All()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, r := range rows {
		if r.Timestamp.After(cutoff) {
			continue
		}
		if m.removeOne(r) {
			removed++
		}
	}
	return removed, nil
}

// CleanupAll deletes every checkpoint. Individual failures are logged and
// skipped.
func (m *Manager) CleanupAll() (int, error) {
	rows, err := m.index.All()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, r := range rows {
		if m.removeOne(r) {
			removed++
		}
	}
	return removed, nil
}

func (m *Manager) removeOne(r indexRow) bool {
	log := logging.For(logging.ComponentCheckpoint)
	if err := os.Remove(r.FilePath); err != nil && !os.IsNotExist(err) {
		log.Warnw("failed to remove checkpoint file, skipping", "id", r.ID, "path", r.FilePath, "err", err)
		return false
	}
	if err := m.index.Delete(r.ID); err != nil {
		log.Warnw("failed to remove checkpoint index row", "id", r.ID, "err", err)
	}
	return true
}
