package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/forgewright/planloom/internal/checkpoint"
	"github.com/forgewright/planloom/internal/classify"
	"github.com/forgewright/planloom/internal/config"
	"github.com/forgewright/planloom/internal/contextgen"
	"github.com/forgewright/planloom/internal/decompose"
	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/orchestrator"
	"github.com/forgewright/planloom/internal/perr"
	"github.com/forgewright/planloom/internal/tracker"
	"github.com/forgewright/planloom/internal/validate"
)

// buildOrchestrator wires C2-C8 from cfg, the way runCampaignStart wires
// the teacher's kernel/executor/store stack from its own config in
// cmd_campaign.go.
func buildOrchestrator(ctx context.Context, cfg *config.Config, projectPath string) (*orchestrator.Orchestrator, error) {
	client, err := llm.NewClientFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}

	var cascade *classify.Cascade
	if cfg.Orchestrator.PreClassify {
		cascade, err = classify.NewCascadeFromConfig(ctx, cfg, client, nil)
		if err != nil {
			return nil, fmt.Errorf("build classifier cascade: %w", err)
		}
	}

	decomposer := decompose.NewDecomposer(client, cascade)

	var ctxGen *contextgen.Generator
	if cfg.Orchestrator.EnableContextGeneration {
		ctxGen = contextgen.NewGenerator(client, cfg.ContextGen)
	}

	planner := orchestrator.NewPlanner(client, cfg.Orchestrator.OutputDir)

	checkpointDir := filepath.Join(projectPath, checkpoint.DefaultDirName)
	mgr, err := checkpoint.NewManager(checkpointDir)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint manager: %w", err)
	}

	orc := orchestrator.New(cfg.Orchestrator, decomposer, ctxGen, planner, mgr)
	if cfg.Orchestrator.ValidateFull {
		orc = orc.WithSemanticValidator(validate.NewSemanticValidator(client))
	}
	return orc, nil
}

// newCheckpointManager opens the checkpoint store rooted at projectPath,
// the same directory buildOrchestrator points its own manager at.
func newCheckpointManager(projectPath string) (*checkpoint.Manager, error) {
	return checkpoint.NewManager(filepath.Join(projectPath, checkpoint.DefaultDirName))
}

// resolveTracker probes for the `bd` CLI on PATH and wires a BdTracker if
// present; otherwise returns nil, matching spec.md §4.10's "NotInstalled is
// a distinguished success-of-sorts... the caller degrades gracefully."
func resolveTracker(cfg *config.Config) tracker.Tracker {
	if _, err := exec.LookPath("bd"); err != nil {
		return nil
	}
	return tracker.NewBdTracker(cfg.Loop.TrackerTimeout)
}

func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}
	var valErr *perr.ValidationError
	if errors.As(err, &valErr) && valErr.Kind == perr.ValidationStructuralInvalid {
		return exitValidationBlocked
	}
	var pipeErr *perr.PipelineError
	if errors.As(err, &pipeErr) {
		if pipeErr.Kind == perr.PipelineNoPlansAvailable {
			return exitNoPlansAvailable
		}
		var nestedVal *perr.ValidationError
		if errors.As(pipeErr.Cause, &nestedVal) && nestedVal.Kind == perr.ValidationStructuralInvalid {
			return exitValidationBlocked
		}
	}
	return exitGenericFailure
}
