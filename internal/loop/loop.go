// Package loop implements the execution loop runner (C9, spec.md §4.9): a
// state machine that drives the external code-gen agent one phase at a time,
// optionally synchronized against a feature tracker. Grounded on the
// orchestrator's own checkpoint-after-each-unit discipline (internal/
// orchestrator) generalized to a tracker-driven loop instead of a fixed step
// list, since C9's "next unit of work" comes from the tracker rather than a
// static sequence.
package loop

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/forgewright/planloom/internal/config"
	"github.com/forgewright/planloom/internal/execagent"
	"github.com/forgewright/planloom/internal/gitutil"
	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
	"github.com/forgewright/planloom/internal/perr"
	"github.com/forgewright/planloom/internal/tracker"
)

// State is the loop runner's tagged lifecycle state.
type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StatePaused    State = "PAUSED"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
)

// defaultPhase names the single phase executed in backward-compatible
// no-tracker mode (spec.md §4.9's "execute one phase" fallback).
const defaultPhase = "phase-1"

// PhaseExecutor runs one phase via the external agent. execagent.Agent
// satisfies this; tests substitute a stub.
type PhaseExecutor interface {
	Run(ctx context.Context, prompt, projectPath string) (*execagent.Result, error)
}

// Runner drives phases to completion, optionally synchronized with a
// tracker. The zero value is not usable; construct with NewRunner.
type Runner struct {
	cfg         config.LoopConfig
	agent       PhaseExecutor
	tracker     tracker.Tracker // nil means "no tracker configured"
	projectPath string
	planPath    string

	mu           sync.Mutex
	state        State
	currentPhase string
	controlDir   string
}

// NewRunner builds a Runner. trk may be nil (backward-compatible single-plan
// mode); planPath may be empty when a tracker is configured and plan
// discovery should pick one.
func NewRunner(cfg config.LoopConfig, agent PhaseExecutor, trk tracker.Tracker, projectPath, planPath string) *Runner {
	return &Runner{
		cfg:         cfg,
		agent:       agent,
		tracker:     trk,
		projectPath: projectPath,
		planPath:    planPath,
		state:       StateIdle,
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	dir := r.controlDir
	phase := r.currentPhase
	r.mu.Unlock()

	if dir == "" {
		return
	}
	if err := WriteStatus(dir, Status{State: string(s), CurrentPhase: phase}); err != nil {
		logging.For(logging.ComponentLoop).Debugw("loop status write failed, ignoring", "err", err)
	}
}

// SetControlDir enables cross-process pause/status signaling through files
// under dir (see control.go). A zero value (the default) disables it, so
// existing single-process callers and tests are unaffected.
func (r *Runner) SetControlDir(dir string) {
	r.mu.Lock()
	r.controlDir = dir
	r.mu.Unlock()
}

// ControlDir returns the directory configured via SetControlDir.
func (r *Runner) ControlDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controlDir
}

// Run starts the loop from IDLE through to COMPLETED or FAILED.
func (r *Runner) Run(ctx context.Context) error {
	log := logging.For(logging.ComponentLoop)

	if r.planPath == "" && r.tracker != nil {
		plans, err := r.tracker.DiscoverPlans(ctx)
		if err != nil || len(plans) == 0 {
			return perr.NewPipelineError(perr.PipelineNoPlansAvailable, "discover_plans", err)
		}
		sort.Slice(plans, func(i, j int) bool { return plans[i].Priority > plans[j].Priority })
		r.planPath = plans[0].Path
		log.Infow("selected highest-priority discovered plan", "path", r.planPath)
	}

	r.setState(StateRunning)
	return r.loopBody(ctx)
}

// Pause transitions RUNNING -> PAUSED. It is honored at the top of the next
// iteration (spec.md §5's cancellation model); in-flight subprocesses run to
// completion or timeout.
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return errors.New("loop: pause only allowed from RUNNING")
	}
	r.state = StatePaused
	return nil
}

// Resume transitions PAUSED -> RUNNING, restoring current_phase from the
// tracker's in-progress feature if one exists, then continues the loop.
func (r *Runner) Resume(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StatePaused {
		r.mu.Unlock()
		return errors.New("loop: resume only allowed from PAUSED")
	}
	r.mu.Unlock()

	if r.tracker != nil {
		cur, err := r.tracker.GetCurrentFeature(ctx)
		if err != nil {
			logging.For(logging.ComponentLoop).Warnw("get_current_feature failed on resume, keeping stored phase", "err", err)
		} else if cur != nil && cur.Status == model.StatusInProgress {
			r.mu.Lock()
			r.currentPhase = cur.Phase
			r.mu.Unlock()
		}
	}

	r.setState(StateRunning)
	return r.loopBody(ctx)
}

func (r *Runner) loopBody(ctx context.Context) error {
	log := logging.For(logging.ComponentLoop)

	if r.tracker == nil {
		return r.runSinglePlanMode(ctx)
	}

	blockedSkips := 0
	maxBlocked := r.cfg.MaxBlockedSkips
	if maxBlocked <= 0 {
		maxBlocked = 100
	}
	maxIterations := r.cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 100
	}

	for iterations := 0; r.State() == StateRunning; iterations++ {
		if iterations >= maxIterations {
			err := perr.NewPipelineError(perr.PipelineMaxIterationsExceeded, "loop_body", nil)
			r.setState(StateFailed)
			return err
		}

		if dir := r.ControlDir(); dir != "" {
			sig, sigErr := readSignal(dir)
			if sigErr != nil {
				log.Debugw("loop signal read failed, ignoring", "err", sigErr)
			} else if sig == SignalPause {
				r.setState(StatePaused)
				return nil
			}
		}

		feature, err := r.nextUnblockedFeature(ctx, &blockedSkips, maxBlocked)
		if err != nil {
			r.setState(StateFailed)
			return err
		}
		if feature == nil {
			r.setState(StateCompleted)
			return nil
		}

		r.mu.Lock()
		r.currentPhase = feature.Phase
		r.mu.Unlock()

		if err := r.tracker.UpdateFeatureStatus(ctx, feature.Name, model.StatusInProgress); err != nil {
			log.Warnw("status update to IN_PROGRESS failed, continuing", "feature", feature.Name, "err", err)
		}

		result, runErr := r.executePhase(ctx, feature.Phase)
		if runErr != nil {
			r.setState(StateFailed)
			return runErr
		}

		r.syncAfterPhase(ctx)

		if result.Success {
			if err := r.tracker.UpdateFeatureStatus(ctx, feature.Name, model.StatusCompleted); err != nil {
				log.Warnw("status update to COMPLETED failed, continuing", "feature", feature.Name, "err", err)
			}
			continue
		}

		if err := r.tracker.UpdateFeatureStatus(ctx, feature.Name, model.StatusFailed); err != nil {
			log.Warnw("status update to FAILED failed, continuing", "feature", feature.Name, "err", err)
		}
		r.setState(StateFailed)
		return perr.NewPipelineError(perr.PipelineStepFailed, feature.Phase, errors.New(result.Error))
	}
	return nil
}

func (r *Runner) nextUnblockedFeature(ctx context.Context, blockedSkips *int, maxBlocked int) (*model.FeatureInfo, error) {
	for {
		feature, err := r.tracker.GetNextFeature(ctx)
		if err != nil {
			return nil, err
		}
		if feature == nil {
			return nil, nil
		}
		if feature.Status != model.StatusBlocked {
			return feature, nil
		}
		*blockedSkips++
		if *blockedSkips > maxBlocked {
			return nil, perr.NewPipelineError(perr.PipelineTooManyBlocked, "get_next_feature", nil)
		}
	}
}

func (r *Runner) runSinglePlanMode(ctx context.Context) error {
	r.mu.Lock()
	r.currentPhase = defaultPhase
	r.mu.Unlock()

	result, err := r.executePhase(ctx, defaultPhase)
	if err != nil {
		r.setState(StateFailed)
		return err
	}

	r.syncAfterPhase(ctx)

	if !result.Success {
		r.setState(StateFailed)
		return perr.NewPipelineError(perr.PipelineStepFailed, defaultPhase, errors.New(result.Error))
	}
	r.setState(StateCompleted)
	return nil
}

func (r *Runner) executePhase(ctx context.Context, phase string) (*execagent.Result, error) {
	prompt, err := execagent.BuildPrompt(r.planPath, phase)
	if err != nil {
		return nil, err
	}
	return r.agent.Run(ctx, prompt, r.projectPath)
}

// syncAfterPhase checks for uncommitted changes and runs an optional
// tracker sync; both are non-fatal per spec.md §4.9.
func (r *Runner) syncAfterPhase(ctx context.Context) {
	log := logging.For(logging.ComponentLoop)
	if n, err := gitutil.ChangedFileCount(ctx, r.projectPath); err != nil {
		log.Debugw("git status check failed, ignoring", "err", err)
	} else {
		log.Debugw("post-phase change check", "changed_files", n)
	}

	if r.tracker == nil {
		return
	}
	if err := r.tracker.Sync(ctx); err != nil {
		log.Warnw("tracker sync failed, continuing", "err", err)
	}
}

// CurrentPhase returns the phase the runner last (or is currently) working on.
func (r *Runner) CurrentPhase() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentPhase
}
