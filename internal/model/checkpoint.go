package model

import "time"

// CheckpointStatus is the terminal-state tag attached to a checkpoint.
type CheckpointStatus string

const (
	CheckpointRunning   CheckpointStatus = "RUNNING"
	CheckpointCompleted CheckpointStatus = "COMPLETED"
	CheckpointFailed    CheckpointStatus = "FAILED"

	// CheckpointPartialComplete marks a run that finished every step but,
	// under --force-all, pruned at least one blocking requirement (and its
	// descendants) from the hierarchy rather than failing outright
	// (spec.md §4.5/§7).
	CheckpointPartialComplete CheckpointStatus = "PARTIAL_COMPLETE"
)

// Checkpoint is a durable, content-hashed snapshot of pipeline state
// (spec.md §3, §4.7).
type Checkpoint struct {
	ID            string           `json:"id"`
	Phase         string           `json:"phase"`
	Status        CheckpointStatus `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	StateSnapshot ContextRecord    `json:"state_snapshot"`
	ContextHash   string           `json:"context_hash"`
	FilePath      string           `json:"file_path,omitempty"`
	Error         string           `json:"error,omitempty"`
}
