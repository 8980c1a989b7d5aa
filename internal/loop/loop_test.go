package loop

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewright/planloom/internal/config"
	"github.com/forgewright/planloom/internal/execagent"
	"github.com/forgewright/planloom/internal/model"
	"github.com/forgewright/planloom/internal/perr"
)

type stubExecutor struct {
	result *execagent.Result
	err    error
	calls  int
}

func (s *stubExecutor) Run(ctx context.Context, prompt, projectPath string) (*execagent.Result, error) {
	s.calls++
	return s.result, s.err
}

// scriptedTracker replays a fixed sequence of GetNextFeature results and
// records every UpdateFeatureStatus call, the style the spec's end-to-end
// scenarios (§8) describe as "a stubbed phase executor" / "a sequence from
// get_next_feature".
type scriptedTracker struct {
	mu            sync.Mutex
	nextSequence  []*model.FeatureInfo
	current       *model.FeatureInfo
	nextCalls     int
	statusUpdates []string
}

func (s *scriptedTracker) DiscoverPlans(ctx context.Context) ([]model.PlanInfo, error) {
	return []model.PlanInfo{{Path: "plans/x/00-overview.md", Priority: 1}}, nil
}

func (s *scriptedTracker) GetNextFeature(ctx context.Context) (*model.FeatureInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextCalls >= len(s.nextSequence) {
		return nil, nil
	}
	f := s.nextSequence[s.nextCalls]
	s.nextCalls++
	return f, nil
}

func (s *scriptedTracker) GetCurrentFeature(ctx context.Context) (*model.FeatureInfo, error) {
	return s.current, nil
}

func (s *scriptedTracker) GetAllFeatures(ctx context.Context) ([]model.FeatureInfo, error) {
	return nil, nil
}

func (s *scriptedTracker) UpdateFeatureStatus(ctx context.Context, name string, status model.FeatureStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusUpdates = append(s.statusUpdates, name+":"+string(status))
	return nil
}

func (s *scriptedTracker) Sync(ctx context.Context) error { return nil }

func writePlanFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "00-overview.md")
	require.NoError(t, os.WriteFile(path, []byte("# Plan\n\nSome content.\n"), 0o644))
	return path
}

func TestRunner_NoTracker_ExecutesOnePhaseThenCompletes(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)
	exec := &stubExecutor{result: &execagent.Result{Success: true, Output: "done"}}

	r := NewRunner(config.LoopConfig{}, exec, nil, dir, planPath)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, StateCompleted, r.State())
	assert.Equal(t, 1, exec.calls)
	assert.Equal(t, defaultPhase, r.CurrentPhase())
}

func TestRunner_NoTracker_AgentFailureTransitionsToFailed(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)
	exec := &stubExecutor{result: &execagent.Result{Success: false, Error: "boom"}}

	r := NewRunner(config.LoopConfig{}, exec, nil, dir, planPath)
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, r.State())

	var pipeErr *perr.PipelineError
	require.ErrorAs(t, err, &pipeErr)
	assert.Equal(t, perr.PipelineStepFailed, pipeErr.Kind)
}

func TestRunner_BlockedSkipping_SkipsBlockedThenExecutesFirstUnblocked(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)

	trk := &scriptedTracker{nextSequence: []*model.FeatureInfo{
		{Name: "b1", Phase: "phase-b1", Status: model.StatusBlocked},
		{Name: "b2", Phase: "phase-b2", Status: model.StatusBlocked},
		{Name: "f1", Phase: "phase-1", Status: model.StatusNotStarted},
		nil,
	}}
	exec := &stubExecutor{result: &execagent.Result{Success: true}}

	r := NewRunner(config.LoopConfig{}, exec, trk, dir, planPath)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, StateCompleted, r.State())
	assert.Equal(t, 1, exec.calls)
	assert.Contains(t, trk.statusUpdates, "f1:COMPLETED")
	assert.GreaterOrEqual(t, trk.nextCalls, 3)
}

func TestRunner_TooManyBlockedSkips_ReturnsTooManyBlocked(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)

	sequence := make([]*model.FeatureInfo, 0, 102)
	for i := 0; i < 101; i++ {
		sequence = append(sequence, &model.FeatureInfo{Name: "blocked", Phase: "p", Status: model.StatusBlocked})
	}
	trk := &scriptedTracker{nextSequence: sequence}
	exec := &stubExecutor{result: &execagent.Result{Success: true}}

	r := NewRunner(config.LoopConfig{MaxBlockedSkips: 100}, exec, trk, dir, planPath)
	err := r.Run(context.Background())
	require.Error(t, err)

	var pipeErr *perr.PipelineError
	require.ErrorAs(t, err, &pipeErr)
	assert.Equal(t, perr.PipelineTooManyBlocked, pipeErr.Kind)
	assert.Equal(t, StateFailed, r.State())
}

func TestRunner_PauseResume_RestoresCurrentPhaseFromTracker(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)

	trk := &scriptedTracker{
		current:      &model.FeatureInfo{Name: "f2", Phase: "phase-2", Status: model.StatusInProgress},
		nextSequence: []*model.FeatureInfo{nil},
	}
	exec := &stubExecutor{result: &execagent.Result{Success: true}}

	r := NewRunner(config.LoopConfig{}, exec, trk, dir, planPath)
	r.setState(StatePaused)

	require.NoError(t, r.Resume(context.Background()))
	assert.Equal(t, "phase-2", r.CurrentPhase())
	assert.Equal(t, StateCompleted, r.State())
}

func TestRunner_Pause_OnlyAllowedFromRunning(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)
	r := NewRunner(config.LoopConfig{}, &stubExecutor{}, nil, dir, planPath)

	require.Error(t, r.Pause())
}

func TestRunner_AgentTimeout_TracksAsFailedWithTrackerUpdate(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)

	trk := &scriptedTracker{nextSequence: []*model.FeatureInfo{
		{Name: "f1", Phase: "phase-1", Status: model.StatusNotStarted},
	}}
	exec := &stubExecutor{result: &execagent.Result{Success: false, Error: "agent timed out after 300s"}}

	r := NewRunner(config.LoopConfig{}, exec, trk, dir, planPath)
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, r.State())
	assert.Contains(t, trk.statusUpdates, "f1:FAILED")
}

func TestRunner_MaxIterations_StopsAfterConfiguredCap(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)

	trk := &scriptedTracker{nextSequence: []*model.FeatureInfo{
		{Name: "f1", Phase: "phase-1", Status: model.StatusNotStarted},
		{Name: "f2", Phase: "phase-2", Status: model.StatusNotStarted},
		{Name: "f3", Phase: "phase-3", Status: model.StatusNotStarted},
		{Name: "f4", Phase: "phase-4", Status: model.StatusNotStarted},
		{Name: "f5", Phase: "phase-5", Status: model.StatusNotStarted},
	}}
	exec := &stubExecutor{result: &execagent.Result{Success: true}}

	r := NewRunner(config.LoopConfig{MaxIterations: 3}, exec, trk, dir, planPath)
	err := r.Run(context.Background())
	require.Error(t, err)

	var pipeErr *perr.PipelineError
	require.ErrorAs(t, err, &pipeErr)
	assert.Equal(t, perr.PipelineMaxIterationsExceeded, pipeErr.Kind)
	assert.Equal(t, StateFailed, r.State())
	assert.Equal(t, 3, exec.calls)
}

func TestRunner_Resume_OnlyAllowedFromPaused(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)
	r := NewRunner(config.LoopConfig{}, &stubExecutor{}, nil, dir, planPath)

	require.Error(t, r.Resume(context.Background()))
}

func TestRunner_ControlDir_SignalPause_StopsAtNextIterationBoundary(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)
	controlDir := filepath.Join(dir, "loop-control")

	trk := &scriptedTracker{nextSequence: []*model.FeatureInfo{
		{Name: "f1", Phase: "phase-1", Status: model.StatusNotStarted},
		{Name: "f2", Phase: "phase-2", Status: model.StatusNotStarted},
	}}
	exec := &stubExecutor{result: &execagent.Result{Success: true}}

	r := NewRunner(config.LoopConfig{}, exec, trk, dir, planPath)
	r.SetControlDir(controlDir)
	require.NoError(t, WriteSignal(controlDir, SignalPause))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, StatePaused, r.State())
	assert.Equal(t, 0, exec.calls)
}

func TestRunner_ControlDir_WriteStatus_ReadableAfterTermination(t *testing.T) {
	dir := t.TempDir()
	planPath := writePlanFile(t, dir)
	controlDir := filepath.Join(dir, "loop-control")
	exec := &stubExecutor{result: &execagent.Result{Success: true}}

	r := NewRunner(config.LoopConfig{}, exec, nil, dir, planPath)
	r.SetControlDir(controlDir)
	require.NoError(t, r.Run(context.Background()))

	st, err := ReadStatus(controlDir)
	require.NoError(t, err)
	assert.Equal(t, string(StateCompleted), st.State)
	assert.Equal(t, defaultPhase, st.CurrentPhase)
}
