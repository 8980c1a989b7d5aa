// Package orchestrator implements the Pipeline Orchestrator (C8, spec.md
// §4.8): a linear sequence of named, checkpointed steps composing C3-C7
// into one run. Sequencing only — every piece of actual logic lives in the
// component it's named after.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/forgewright/planloom/internal/checkpoint"
	"github.com/forgewright/planloom/internal/config"
	"github.com/forgewright/planloom/internal/contextgen"
	"github.com/forgewright/planloom/internal/decompose"
	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
	"github.com/forgewright/planloom/internal/perr"
	"github.com/forgewright/planloom/internal/validate"
)

// These constants name the five steps this package executes. Research is
// excluded: it runs outside core scope, and its output (research text) is
// the Run input rather than a step. The final CheckpointWrite checkpoint is
// written by runSteps after the last step.
const (
	StepRequirementDecomposition = "RequirementDecomposition"
	StepStructuralValidation     = "StructuralValidation"
	StepContextGeneration        = "ContextGeneration"
	StepPlanning                 = "Planning"
	StepPhaseDecomposition       = "PhaseDecomposition"
)

// Orchestrator composes the Requirement Decomposition Engine (C4),
// Validation Layer (C5), Context Generator (C6), Checkpoint Manager (C7),
// and the LLM client (C2, for the Planning step) into the linear pipeline
// named in spec.md §4.8.
type Orchestrator struct {
	cfg config.OrchestratorConfig

	decomposer *decompose.Decomposer
	structural *validate.StructuralValidator
	semantic   *validate.SemanticValidator // nil unless ValidateFull
	category   *validate.CategoryValidator // nil unless ValidateCategory

	contextGen  *contextgen.Generator
	planner     *Planner
	checkpoints *checkpoint.Manager
}

// New builds an Orchestrator from already-constructed components. The LLM
// client reaches the Orchestrator only through decomposer and planner.
func New(
	cfg config.OrchestratorConfig,
	decomposer *decompose.Decomposer,
	contextGen *contextgen.Generator,
	planner *Planner,
	checkpoints *checkpoint.Manager,
) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		decomposer:  decomposer,
		structural:  validate.NewStructuralValidator(),
		contextGen:  contextGen,
		planner:     planner,
		checkpoints: checkpoints,
	}
	if cfg.ValidateCategory {
		o.category = validate.NewCategoryValidator()
	}
	return o
}

// WithSemanticValidator attaches the optional Stage 3 validator, enabled by
// the validate_full config flag.
func (o *Orchestrator) WithSemanticValidator(v *validate.SemanticValidator) *Orchestrator {
	o.semantic = v
	return o
}

type step struct {
	name string
	run  func(ctx context.Context, wc *model.WorkflowContext) error
}

func (o *Orchestrator) allSteps() []step {
	return []step{
		{StepRequirementDecomposition, o.stepRequirementDecomposition},
		{StepStructuralValidation, o.stepStructuralValidation},
		{StepContextGeneration, o.stepContextGeneration},
		{StepPlanning, o.stepPlanning},
		{StepPhaseDecomposition, o.stepPhaseDecomposition},
	}
}

// Run drives requirementText through every step in declared order,
// persisting a checkpoint after each one (spec.md §4.8). On a step failure,
// the checkpoint is marked FAILED and a *perr.PipelineError wrapping the
// step's own error is returned without advancing further. It may also
// return early with wc.Paused set, per o.cfg.AutonomyMode's pause points.
func (o *Orchestrator) Run(ctx context.Context, projectPath, requirementText string) (*model.WorkflowContext, error) {
	wc := &model.WorkflowContext{ProjectPath: projectPath, Requirement: requirementText}
	return o.runSteps(ctx, wc, o.allSteps(), nil)
}

// Resume continues a run from a previously written checkpoint, skipping
// every step whose output the checkpoint's state snapshot already carries.
// Each step's own idempotence (spec.md §4.8: "idempotent given its inputs
// and checkpoint state") means this is just "restore, then call Run's step
// list starting from the first unmet one" rather than special-cased logic.
// Like Run, it may return early with wc.Paused set.
func (o *Orchestrator) Resume(ctx context.Context, cp *model.Checkpoint) (*model.WorkflowContext, error) {
	wc := model.ContextFromRecord(cp.StateSnapshot)
	return o.runSteps(ctx, wc, o.allSteps(), func(name string) bool {
		return stepAlreadySatisfied(name, wc)
	})
}

// runSteps executes steps in order, persisting a checkpoint after each,
// honoring o.cfg.AutonomyMode's pause points (spec.md §6: "--autonomy-mode
// ... controls pause points") between Run and Resume identically.
func (o *Orchestrator) runSteps(ctx context.Context, wc *model.WorkflowContext, steps []step, skip func(name string) bool) (*model.WorkflowContext, error) {
	for _, s := range steps {
		if skip != nil && skip(s.name) {
			continue
		}
		if err := s.run(ctx, wc); err != nil {
			o.writeCheckpoint(ctx, s.name, wc, model.CheckpointFailed, err)
			return wc, perr.NewPipelineError(perr.PipelineStepFailed, s.name, err)
		}
		o.writeCheckpoint(ctx, s.name, wc, model.CheckpointRunning, nil)

		if shouldPauseAfter(o.cfg.AutonomyMode, s.name) {
			wc.Paused = true
			wc.PausedAtStep = s.name
			return wc, nil
		}
	}

	o.writeCheckpoint(ctx, "CheckpointWrite", wc, finalStatus(wc), nil)
	return wc, nil
}

// shouldPauseAfter reports whether autonomy_mode requires a human-review
// pause after the named step. An unset mode behaves like
// fully_autonomous, so callers that never touch AutonomyMode (existing
// single-call tests, programmatic use) keep running to completion in one
// call; config.Default()'s "checkpoint" is an opt-in default applied by
// the CLI layer, not an implicit zero-value behavior.
func shouldPauseAfter(mode, stepName string) bool {
	switch mode {
	case config.AutonomyCheckpoint:
		return true
	case config.AutonomyBatch:
		return stepName == StepStructuralValidation || stepName == StepPlanning
	default:
		return false
	}
}

func stepAlreadySatisfied(name string, wc *model.WorkflowContext) bool {
	switch name {
	case StepRequirementDecomposition:
		return wc.DecomposedRequirements != nil
	case StepStructuralValidation:
		return wc.DecomposedRequirements != nil && hasStructuralResult(wc)
	case StepContextGeneration:
		return wc.TechStack != nil || wc.FileGroups != nil
	case StepPlanning:
		return wc.PlanText != "" || wc.PlanPath != ""
	case StepPhaseDecomposition:
		return len(wc.PhaseFiles) > 0
	}
	return false
}

// hasStructuralResult reports whether StructuralValidation has already run
// for this context. Structural validation leaves no marker of its own (zero
// issues is a valid outcome), so this reports true only when output of a
// later step is present (TechStack, FileGroups, PlanPath or PhaseFiles),
// implying structural validation must have passed to get there.
func hasStructuralResult(wc *model.WorkflowContext) bool {
	return wc.TechStack != nil || wc.FileGroups != nil || wc.PlanPath != "" || len(wc.PhaseFiles) > 0
}

// finalStatus reports COMPLETED for a clean run, or PARTIAL_COMPLETE when
// --force-all pruned at least one blocking requirement along the way
// (spec.md §4.5/§7).
func finalStatus(wc *model.WorkflowContext) model.CheckpointStatus {
	if wc.Partial {
		return model.CheckpointPartialComplete
	}
	return model.CheckpointCompleted
}

func (o *Orchestrator) writeCheckpoint(ctx context.Context, phase string, wc *model.WorkflowContext, status model.CheckpointStatus, stepErr error) {
	cp, err := o.checkpoints.Write(ctx, phase, wc, status, stepErr)
	if err != nil {
		logging.For(logging.ComponentOrchestrator).Warnw("checkpoint write failed", "phase", phase, "err", err)
		return
	}
	wc.CheckpointID = cp.ID
}

func (o *Orchestrator) stepRequirementDecomposition(ctx context.Context, wc *model.WorkflowContext) error {
	hierarchy, err := o.decomposer.Decompose(ctx, wc.Requirement)
	if err != nil {
		return fmt.Errorf("requirement decomposition: %w", err)
	}
	wc.DecomposedRequirements = hierarchy
	return nil
}

func (o *Orchestrator) stepStructuralValidation(ctx context.Context, wc *model.WorkflowContext) error {
	issues, _, err := o.structural.Validate(ctx, wc.DecomposedRequirements)
	if err != nil {
		return fmt.Errorf("structural validation: %w", err)
	}
	wc.ValidationIssues = append(wc.ValidationIssues, issues...)

	var blocking []string
	blockingIDs := make(map[string]bool)
	for _, issue := range issues {
		if issue.Severity == model.SeverityBlocking {
			blocking = append(blocking, issue.Message)
			if issue.RequirementID != "" {
				blockingIDs[issue.RequirementID] = true
			}
		}
	}
	if len(blocking) > 0 {
		if !o.cfg.ForceAll {
			return perr.NewValidationError(perr.ValidationStructuralInvalid, blocking)
		}
		pruned := wc.DecomposedRequirements.PruneIDs(blockingIDs)
		if len(wc.DecomposedRequirements.Roots) == 0 {
			return perr.NewValidationError(perr.ValidationStructuralInvalid, blocking)
		}
		logging.For(logging.ComponentOrchestrator).Warnw("force-all pruned blocking requirements, continuing",
			"pruned_nodes", pruned, "surviving_roots", len(wc.DecomposedRequirements.Roots))
		wc.Partial = true
	}

	if o.cfg.ValidateFull && o.semantic != nil {
		semIssues, _, semErr := o.semantic.Validate(ctx, wc.DecomposedRequirements)
		if semErr != nil {
			logging.For(logging.ComponentOrchestrator).Warnw("semantic validation failed, continuing without it", "err", semErr)
		} else {
			wc.ValidationIssues = append(wc.ValidationIssues, semIssues...)
		}
	}
	if o.cfg.ValidateCategory && o.category != nil {
		catIssues, _ := o.category.Validate(wc.DecomposedRequirements)
		wc.ValidationIssues = append(wc.ValidationIssues, catIssues...)
	}
	return nil
}

func (o *Orchestrator) stepContextGeneration(ctx context.Context, wc *model.WorkflowContext) error {
	if !o.cfg.EnableContextGeneration {
		return nil
	}
	techStack, fileGroups := o.contextGen.Generate(ctx, wc.ProjectPath)
	wc.TechStack = techStack
	wc.FileGroups = fileGroups
	return nil
}

func (o *Orchestrator) stepPlanning(ctx context.Context, wc *model.WorkflowContext) error {
	planText, err := o.planner.GeneratePlan(ctx, wc)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}
	wc.PlanText = planText
	return nil
}

func (o *Orchestrator) stepPhaseDecomposition(ctx context.Context, wc *model.WorkflowContext) error {
	overviewPath, phaseFiles, err := o.planner.WritePhases(wc)
	if err != nil {
		return fmt.Errorf("phase decomposition: %w", err)
	}
	wc.PlanPath = overviewPath
	wc.PhaseFiles = phaseFiles
	return nil
}
