package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/forgewright/planloom/internal/checkpoint"
	"github.com/forgewright/planloom/internal/model"
)

var (
	validateFull     bool
	validateCategory bool
	forceAll         bool
	autonomyMode     string
	resumeCheckpoint string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run the requirement decomposition and planning pipeline",
}

var planRunCmd = &cobra.Command{
	Use:   "run [research text...]",
	Short: "Decompose research text into a validated hierarchy and phase plan",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlanRun,
}

var planResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the pipeline from a checkpoint",
	RunE:  runPlanResume,
}

var planStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List known checkpoints for this workspace",
	RunE:  runPlanStatus,
}

func init() {
	planRunCmd.Flags().BoolVarP(&validateFull, "validate-full", "f", false, "Enable stage-3 semantic validation")
	planRunCmd.Flags().BoolVarP(&validateCategory, "validate-category", "c", false, "Enable stage-4 category validation")
	planRunCmd.Flags().BoolVar(&forceAll, "force-all", false, "Bypass structural filtering")
	planRunCmd.Flags().StringVar(&autonomyMode, "autonomy-mode", "checkpoint", "checkpoint | batch | fully_autonomous")

	planResumeCmd.Flags().StringVar(&resumeCheckpoint, "checkpoint", "", "Checkpoint ID to resume (default: auto-detect from workspace)")

	planCmd.AddCommand(planRunCmd, planResumeCmd, planStatusCmd)
}

func runPlanRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	projectPath, err := resolveWorkspace()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Orchestrator.ValidateFull = validateFull
	cfg.Orchestrator.ValidateCategory = validateCategory
	cfg.Orchestrator.ForceAll = forceAll
	cfg.Orchestrator.AutonomyMode = autonomyMode

	orc, err := buildOrchestrator(ctx, cfg, projectPath)
	if err != nil {
		return err
	}

	requirement := strings.Join(args, " ")
	wc, err := orc.Run(ctx, projectPath, requirement)
	if err != nil {
		return err
	}

	if wc.Paused {
		fmt.Printf("paused after step %s (autonomy-mode=%s); run `plan resume` to continue\n", wc.PausedAtStep, autonomyMode)
		return nil
	}

	fmt.Printf("requirements decomposed: %d\n", wc.DecomposedRequirements.Count())
	fmt.Printf("plan: %s\n", wc.PlanPath)
	for _, f := range wc.PhaseFiles {
		fmt.Printf("  phase file: %s\n", f)
	}
	return nil
}

func runPlanResume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	projectPath, err := resolveWorkspace()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orc, err := buildOrchestrator(ctx, cfg, projectPath)
	if err != nil {
		return err
	}

	mgr, err := newCheckpointManager(projectPath)
	if err != nil {
		return err
	}
	defer mgr.Close()

	cp, err := resolveCheckpoint(ctx, mgr, projectPath, resumeCheckpoint)
	if err != nil {
		return err
	}

	wc, err := orc.Resume(ctx, cp)
	if err != nil {
		return err
	}

	fmt.Printf("resumed from checkpoint %s\n", cp.ID)
	if wc.Paused {
		fmt.Printf("paused after step %s; run `plan resume` to continue\n", wc.PausedAtStep)
		return nil
	}
	fmt.Printf("plan: %s\n", wc.PlanPath)
	return nil
}

func runPlanStatus(cmd *cobra.Command, args []string) error {
	projectPath, err := resolveWorkspace()
	if err != nil {
		return err
	}
	mgr, err := newCheckpointManager(projectPath)
	if err != nil {
		return err
	}
	defer mgr.Close()

	checkpoints, err := mgr.List()
	if err != nil {
		return err
	}
	if len(checkpoints) == 0 {
		fmt.Println("no checkpoints found")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("| ID | Phase | Status | Timestamp |\n|---|---|---|---|\n")
	for _, cp := range checkpoints {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", cp.ID, cp.Phase, cp.Status, cp.Timestamp.Format("2006-01-02 15:04:05")))
	}

	out, err := glamour.Render(sb.String(), "dark")
	if err != nil {
		fmt.Print(sb.String())
		return nil
	}
	fmt.Print(out)
	return nil
}

func resolveCheckpoint(ctx context.Context, mgr *checkpoint.Manager, projectPath, id string) (*model.Checkpoint, error) {
	if id != "" {
		return mgr.Get(id)
	}
	cp, err := mgr.DetectResumable(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, fmt.Errorf("plan resume: no resumable checkpoint found for %s", projectPath)
	}
	return cp, nil
}
