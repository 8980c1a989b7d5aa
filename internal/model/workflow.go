package model

// WorkflowContext is the mutable bag the pipeline orchestrator (C8) passes
// between steps. Exactly one step owns it at a time; handoff is by move
// (spec.md §3, §5).
type WorkflowContext struct {
	CheckpointID           string                `json:"checkpoint_id,omitempty"`
	ProjectPath            string                `json:"project_path"`
	Requirement            string                `json:"requirement"`
	DecomposedRequirements *RequirementHierarchy `json:"decomposed_requirements,omitempty"`
	TechStack              *TechStack            `json:"tech_stack,omitempty"`
	FileGroups             *FileGroups           `json:"file_groups,omitempty"`
	PlanPath               string                `json:"plan_path,omitempty"`
	PhaseFiles             []string              `json:"phase_files,omitempty"`

	// PlanText is the raw plan markdown produced by the Planning step,
	// held only for the PhaseDecomposition step that immediately follows
	// it in the same run. It is deliberately excluded from ContextRecord:
	// the file layout persists the split phase files, not the
	// intermediate plan text, so resuming from a checkpoint taken between
	// Planning and PhaseDecomposition simply re-runs Planning.
	PlanText string `json:"-"`

	// ValidationIssues accumulates non-blocking warnings from stages 3/4.
	ValidationIssues []ValidationIssue `json:"validation_issues,omitempty"`

	// Partial is set when --force-all pruned at least one blocking
	// requirement (and its descendants) out of DecomposedRequirements
	// rather than failing the run. It determines whether the final
	// checkpoint is written COMPLETED or PARTIAL_COMPLETE. Transient like
	// PlanText: ContextRecord already reflects the pruned hierarchy, so a
	// resumed run has no need to recover this flag separately.
	Partial bool `json:"-"`

	// Paused reports that autonomy_mode stopped the run after PausedAtStep
	// rather than running every remaining step. The checkpoint already
	// written for that step (status RUNNING) is what a later plan resume
	// picks up from, so this flag is transient like Partial.
	Paused       bool   `json:"-"`
	PausedAtStep string `json:"-"`
}

// TechStack is the Context Generator's (C6) tech-stack summary.
type TechStack struct {
	Languages         []string `json:"languages"`
	Frameworks        []string `json:"frameworks"`
	TestingFrameworks []string `json:"testing_frameworks"`
	BuildSystems      []string `json:"build_systems"`
}

// FileGroup is one named cluster of related files with an inferred purpose.
type FileGroup struct {
	Name    string   `json:"name"`
	Files   []string `json:"files"`
	Purpose string   `json:"purpose"`
}

// FileGroups is the Context Generator's (C6) file-group summary.
type FileGroups struct {
	Groups []FileGroup `json:"groups"`
}

// ContextRecord is the flat form a WorkflowContext round-trips through for
// checkpoint storage.
type ContextRecord struct {
	CheckpointID string                `json:"checkpoint_id,omitempty"`
	ProjectPath  string                `json:"project_path"`
	Requirement  string                `json:"requirement"`
	Hierarchy    *RequirementHierarchy `json:"hierarchy,omitempty"`
	TechStack    *TechStack            `json:"tech_stack,omitempty"`
	FileGroups   *FileGroups           `json:"file_groups,omitempty"`
	PlanPath     string                `json:"plan_path,omitempty"`
	PhaseFiles   []string              `json:"phase_files,omitempty"`
}

// ToRecord flattens the context for checkpoint storage.
func (c *WorkflowContext) ToRecord() ContextRecord {
	return ContextRecord{
		CheckpointID: c.CheckpointID,
		ProjectPath:  c.ProjectPath,
		Requirement:  c.Requirement,
		Hierarchy:    c.DecomposedRequirements,
		TechStack:    c.TechStack,
		FileGroups:   c.FileGroups,
		PlanPath:     c.PlanPath,
		PhaseFiles:   c.PhaseFiles,
	}
}

// ContextFromRecord reconstructs a WorkflowContext from its flat record.
func ContextFromRecord(r ContextRecord) *WorkflowContext {
	return &WorkflowContext{
		CheckpointID:           r.CheckpointID,
		ProjectPath:            r.ProjectPath,
		Requirement:            r.Requirement,
		DecomposedRequirements: r.Hierarchy,
		TechStack:              r.TechStack,
		FileGroups:             r.FileGroups,
		PlanPath:               r.PlanPath,
		PhaseFiles:             r.PhaseFiles,
	}
}
