package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewright/planloom/internal/checkpoint"
	"github.com/forgewright/planloom/internal/config"
	"github.com/forgewright/planloom/internal/decompose"
	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/model"
	"github.com/forgewright/planloom/internal/perr"
)

const phaseAResp = `{
  "parents": [
    {"description": "Catalog widgets", "sub_processes": ["List available widgets"], "related_concepts": []}
  ]
}`

const expansionResp = `{
  "acceptance_criteria": ["Returns widgets in stock order"],
  "implementation": {"frontend": [], "backend": ["widget_service.go"], "middleware": [], "shared": []},
  "design_contracts": {"preconditions": [], "postconditions": [], "invariants": []}
}`

const planResp = `# Widget Catalog Plan

A short overview of the work.

## Phase 1: Build the service
Implement the widget listing endpoint.
`

func newTestOrchestrator(t *testing.T) (*Orchestrator, string) {
	t.Helper()
	backend := &keyedBackend{
		name: llm.BackendOpus,
		rules: []keyedRule{
			{contains: "extract the top-level parent requirements", response: phaseAResp},
			{contains: "Produce the implementation plan now.", response: planResp},
			{contains: "Produce", response: expansionResp},
		},
	}
	client := llm.NewClient(backend, nil)
	decomposer := decompose.NewDecomposer(client, nil)
	planner := NewPlanner(client, "plans")

	checkpointDir := filepath.Join(t.TempDir(), checkpoint.DefaultDirName)
	mgr, err := checkpoint.NewManager(checkpointDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	cfg := config.OrchestratorConfig{EnableContextGeneration: false}
	orc := New(cfg, decomposer, nil, planner, mgr)
	return orc, checkpointDir
}

func TestOrchestrator_Run_ProducesPlanAndPhaseFiles(t *testing.T) {
	orc, _ := newTestOrchestrator(t)
	projectPath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectPath, "go.mod"), []byte("module example.com/widgets\n"), 0o644))

	wc, err := orc.Run(context.Background(), projectPath, "Build a widget catalog service")
	require.NoError(t, err)

	require.NotNil(t, wc.DecomposedRequirements)
	assert.Equal(t, 2, wc.DecomposedRequirements.Count())

	for _, issue := range wc.ValidationIssues {
		assert.NotEqual(t, model.SeverityBlocking, issue.Severity)
	}

	require.NotEmpty(t, wc.PlanPath)
	_, err = os.Stat(wc.PlanPath)
	require.NoError(t, err)

	require.Len(t, wc.PhaseFiles, 1)
	data, err := os.ReadFile(wc.PhaseFiles[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Build the service")
}

func TestOrchestrator_Run_WritesCheckpointAfterEachStep(t *testing.T) {
	orc, checkpointDir := newTestOrchestrator(t)
	projectPath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectPath, "go.mod"), []byte("module example.com/widgets\n"), 0o644))

	_, err := orc.Run(context.Background(), projectPath, "Build a widget catalog service")
	require.NoError(t, err)

	entries, err := os.ReadDir(checkpointDir)
	require.NoError(t, err)

	jsonCount := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			jsonCount++
		}
	}
	// 5 steps + final CheckpointWrite.
	assert.Equal(t, 6, jsonCount)
}

func TestOrchestrator_Run_DecompositionFailureStopsPipeline(t *testing.T) {
	backend := &keyedBackend{
		name: llm.BackendOpus,
		rules: []keyedRule{
			// A parent with an empty sub_process list produces a structurally
			// fine hierarchy on its own; instead we force a blocking failure
			// by having Phase A return no parents at all, which downstream
			// still validates as "empty but valid" structurally. To exercise
			// the stop-on-blocking path deterministically without depending
			// on validator internals, this test instead asserts decomposition
			// itself fails closed when the backend errors outright.
			{contains: "extract the top-level parent requirements", err: assert.AnError},
		},
	}
	client := llm.NewClient(backend, nil)
	decomposer := decompose.NewDecomposer(client, nil)
	planner := NewPlanner(client, "plans")

	checkpointDir := filepath.Join(t.TempDir(), checkpoint.DefaultDirName)
	mgr, err := checkpoint.NewManager(checkpointDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	orc := New(config.OrchestratorConfig{}, decomposer, nil, planner, mgr)
	projectPath := t.TempDir()

	wc, err := orc.Run(context.Background(), projectPath, "Build a widget catalog service")
	require.Error(t, err)
	assert.Nil(t, wc.DecomposedRequirements)

	list, listErr := mgr.List()
	require.NoError(t, listErr)
	require.Len(t, list, 1)
	assert.Equal(t, model.CheckpointFailed, list[0].Status)
}

func TestOrchestrator_StepStructuralValidation_ForceAllPrunesBlockingSubtree(t *testing.T) {
	orc, _ := newTestOrchestrator(t)
	orc.cfg.ForceAll = true

	good, err := model.NewRequirementNode("REQ_001", "Catalog widgets", model.TypeParent, model.CategoryFunctional)
	require.NoError(t, err)

	bad, err := model.NewRequirementNode("REQ_002", "Orphaned requirement", model.TypeParent, model.CategoryFunctional)
	require.NoError(t, err)
	bad.ParentID = "REQ_999" // does not resolve to any node: blocking.

	hierarchy := model.NewRequirementHierarchy()
	require.NoError(t, hierarchy.AddRoot(good))
	require.NoError(t, hierarchy.AddRoot(bad))

	wc := &model.WorkflowContext{DecomposedRequirements: hierarchy}
	err = orc.stepStructuralValidation(context.Background(), wc)
	require.NoError(t, err)

	assert.True(t, wc.Partial)
	require.Len(t, wc.DecomposedRequirements.Roots, 1)
	assert.Equal(t, "REQ_001", wc.DecomposedRequirements.Roots[0].ID)
}

func TestOrchestrator_StepStructuralValidation_ForceAllStillFailsWhenNoRootSurvives(t *testing.T) {
	orc, _ := newTestOrchestrator(t)
	orc.cfg.ForceAll = true

	bad, err := model.NewRequirementNode("REQ_001", "Orphaned requirement", model.TypeParent, model.CategoryFunctional)
	require.NoError(t, err)
	bad.ParentID = "REQ_999"

	hierarchy := model.NewRequirementHierarchy()
	require.NoError(t, hierarchy.AddRoot(bad))

	wc := &model.WorkflowContext{DecomposedRequirements: hierarchy}
	err = orc.stepStructuralValidation(context.Background(), wc)
	require.Error(t, err)
	assert.False(t, wc.Partial)
}

func TestOrchestrator_StepStructuralValidation_NoForceAllFailsClosed(t *testing.T) {
	orc, _ := newTestOrchestrator(t)

	bad, err := model.NewRequirementNode("REQ_001", "Orphaned requirement", model.TypeParent, model.CategoryFunctional)
	require.NoError(t, err)
	bad.ParentID = "REQ_999"

	hierarchy := model.NewRequirementHierarchy()
	require.NoError(t, hierarchy.AddRoot(bad))

	wc := &model.WorkflowContext{DecomposedRequirements: hierarchy}
	err = orc.stepStructuralValidation(context.Background(), wc)
	require.Error(t, err)
	var valErr *perr.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, perr.ValidationStructuralInvalid, valErr.Kind)
}

func TestShouldPauseAfter_Checkpoint_PausesAfterEveryStep(t *testing.T) {
	for _, name := range []string{StepRequirementDecomposition, StepStructuralValidation, StepContextGeneration, StepPlanning, StepPhaseDecomposition} {
		assert.True(t, shouldPauseAfter(config.AutonomyCheckpoint, name), "step %s", name)
	}
}

func TestShouldPauseAfter_Batch_PausesOnlyAfterValidationAndPlanning(t *testing.T) {
	assert.True(t, shouldPauseAfter(config.AutonomyBatch, StepStructuralValidation))
	assert.True(t, shouldPauseAfter(config.AutonomyBatch, StepPlanning))
	assert.False(t, shouldPauseAfter(config.AutonomyBatch, StepRequirementDecomposition))
	assert.False(t, shouldPauseAfter(config.AutonomyBatch, StepContextGeneration))
	assert.False(t, shouldPauseAfter(config.AutonomyBatch, StepPhaseDecomposition))
}

func TestShouldPauseAfter_FullyAutonomousOrUnset_NeverPauses(t *testing.T) {
	for _, name := range []string{StepRequirementDecomposition, StepStructuralValidation, StepContextGeneration, StepPlanning, StepPhaseDecomposition} {
		assert.False(t, shouldPauseAfter(config.AutonomyFullyAutonomous, name), "step %s", name)
		assert.False(t, shouldPauseAfter("", name), "step %s", name)
	}
}

func TestOrchestrator_Run_CheckpointMode_PausesAfterFirstStep(t *testing.T) {
	orc, checkpointDir := newTestOrchestrator(t)
	orc.cfg.AutonomyMode = config.AutonomyCheckpoint
	projectPath := t.TempDir()

	wc, err := orc.Run(context.Background(), projectPath, "Build a widget catalog service")
	require.NoError(t, err)

	assert.True(t, wc.Paused)
	assert.Equal(t, StepRequirementDecomposition, wc.PausedAtStep)
	assert.Empty(t, wc.PlanPath)

	entries, err := os.ReadDir(checkpointDir)
	require.NoError(t, err)
	jsonCount := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			jsonCount++
		}
	}
	// Only the single RUNNING checkpoint for the one step that ran; no
	// final CheckpointWrite since the pipeline stopped early.
	assert.Equal(t, 1, jsonCount)
}

func TestOrchestrator_Run_BatchMode_PausesAfterStructuralValidation(t *testing.T) {
	orc, _ := newTestOrchestrator(t)
	orc.cfg.AutonomyMode = config.AutonomyBatch
	projectPath := t.TempDir()

	wc, err := orc.Run(context.Background(), projectPath, "Build a widget catalog service")
	require.NoError(t, err)

	assert.True(t, wc.Paused)
	assert.Equal(t, StepStructuralValidation, wc.PausedAtStep)
	assert.Empty(t, wc.PlanPath)
}
