package tracker

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
	"github.com/forgewright/planloom/internal/perr"
)

const defaultTimeout = 30 * time.Second

// BdTracker shells out to the `bd` CLI (spec.md §6). Construct with
// NewBdTracker; the zero value has no usable timeout.
type BdTracker struct {
	timeout time.Duration
}

// NewBdTracker builds a BdTracker with the given per-call timeout. A
// non-positive timeout falls back to the 30s default.
func NewBdTracker(timeout time.Duration) *BdTracker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &BdTracker{timeout: timeout}
}

func (t *BdTracker) run(ctx context.Context, args ...string) (string, error) {
	log := logging.For(logging.ComponentTracker)
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bd", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		log.Debugw("tracker CLI not installed, degrading")
		return "", perr.NewSubprocessError(perr.SubprocessNotInstalled, 0, "", err)
	}

	if ctx.Err() == context.DeadlineExceeded {
		log.Warnw("tracker CLI call timed out", "args", args)
		return "", perr.NewSubprocessError(perr.SubprocessTimeout, 0, stderr.String(), ctx.Err())
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	log.Warnw("tracker CLI call exited non-zero", "args", args, "exit_code", exitCode)
	return "", perr.NewSubprocessError(perr.SubprocessExitNonZero, exitCode, stderr.String(), err)
}

// DiscoverPlans runs `bd discover-plans`.
func (t *BdTracker) DiscoverPlans(ctx context.Context) ([]model.PlanInfo, error) {
	out, err := t.run(ctx, "discover-plans")
	if err != nil {
		return nil, err
	}
	return parsePlanLines(out)
}

// GetNextFeature runs `bd next-feature`. Empty output means no feature is
// available (nil, nil).
func (t *BdTracker) GetNextFeature(ctx context.Context) (*model.FeatureInfo, error) {
	return t.singleFeature(ctx, "next-feature")
}

// GetCurrentFeature runs `bd current-feature`. Empty output means none.
func (t *BdTracker) GetCurrentFeature(ctx context.Context) (*model.FeatureInfo, error) {
	return t.singleFeature(ctx, "current-feature")
}

func (t *BdTracker) singleFeature(ctx context.Context, subcommand string) (*model.FeatureInfo, error) {
	out, err := t.run(ctx, subcommand)
	if err != nil {
		return nil, err
	}
	lines := scanLines(out)
	if len(lines) == 0 {
		return nil, nil
	}
	f, err := parseFeatureLine(lines[0])
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetAllFeatures runs `bd list-features`.
func (t *BdTracker) GetAllFeatures(ctx context.Context) ([]model.FeatureInfo, error) {
	out, err := t.run(ctx, "list-features")
	if err != nil {
		return nil, err
	}
	return parseFeatureLines(out)
}

// UpdateFeatureStatus runs `bd update-status <name> <status>`. Callers are
// expected to treat failures as non-fatal per spec.md §4.9's "status-update
// failures are non-fatal" rule; this method still reports the error so the
// caller can log it.
func (t *BdTracker) UpdateFeatureStatus(ctx context.Context, name string, status model.FeatureStatus) error {
	_, err := t.run(ctx, "update-status", name, string(status))
	return err
}

// Sync runs `bd sync`.
func (t *BdTracker) Sync(ctx context.Context) error {
	_, err := t.run(ctx, "sync")
	return err
}
