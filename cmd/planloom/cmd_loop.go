package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgewright/planloom/internal/execagent"
	"github.com/forgewright/planloom/internal/loop"
	"github.com/forgewright/planloom/internal/loop/monitor"
)

var (
	planPathFlag  string
	maxIterations int
	watchLoop     bool
)

var loopCmd = &cobra.Command{
	Use:   "loop",
	Short: "Drive the external agent through a plan one phase at a time",
}

var loopRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the execution loop to completion",
	RunE:  runLoopRun,
}

var loopPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Request a running loop to pause at its next iteration boundary",
	RunE:  runLoopPause,
}

var loopResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Request a paused loop to resume",
	RunE:  runLoopResume,
}

var loopStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last known state of the workspace's loop run",
	RunE:  runLoopStatus,
}

func init() {
	loopRunCmd.Flags().StringVar(&planPathFlag, "plan", "", "Explicit plan path (skips tracker discovery)")
	loopRunCmd.Flags().IntVar(&maxIterations, "max-iterations", 100, "Upper bound on loop iterations")
	loopRunCmd.Flags().BoolVar(&watchLoop, "watch", false, "Render a live TUI watcher while the loop runs")

	loopCmd.AddCommand(loopRunCmd, loopPauseCmd, loopResumeCmd, loopStatusCmd)
}

func runLoopRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	projectPath, err := resolveWorkspace()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if maxIterations > 0 {
		cfg.Loop.MaxIterations = maxIterations
	}

	trk := resolveTracker(cfg)
	agent := execagent.NewAgent(cfg.Loop.AgentTimeout)
	runner := loop.NewRunner(cfg.Loop, agent, trk, projectPath, planPathFlag)
	runner.SetControlDir(loop.ControlDir(projectPath))

	if !watchLoop {
		return driveLoopWithControl(ctx, runner)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- driveLoopWithControl(ctx, runner) }()

	// Give the runner a moment to leave IDLE before the watcher starts
	// polling, so the first frame isn't a flash of the zero state.
	time.Sleep(50 * time.Millisecond)
	if watchErr := monitor.Watch(runner); watchErr != nil {
		fmt.Println("watcher exited:", watchErr)
	}
	return <-errCh
}

// driveLoopWithControl runs the loop to completion, transparently waiting
// on a `loop resume` signal and re-entering Runner.Resume whenever `loop
// pause` stops it mid-run, until the runner reaches a terminal state.
func driveLoopWithControl(ctx context.Context, runner *loop.Runner) error {
	err := runner.Run(ctx)
	for err == nil && runner.State() == loop.StatePaused {
		fmt.Println("loop paused; waiting for `loop resume`")
		if waitErr := loop.WaitForResumeSignal(ctx, runner.ControlDir()); waitErr != nil {
			return waitErr
		}
		err = runner.Resume(ctx)
	}
	return err
}

func runLoopPause(cmd *cobra.Command, args []string) error {
	projectPath, err := resolveWorkspace()
	if err != nil {
		return err
	}
	if err := loop.WriteSignal(loop.ControlDir(projectPath), loop.SignalPause); err != nil {
		return err
	}
	fmt.Println("pause requested; takes effect at the loop's next iteration boundary")
	return nil
}

func runLoopResume(cmd *cobra.Command, args []string) error {
	projectPath, err := resolveWorkspace()
	if err != nil {
		return err
	}
	if err := loop.WriteSignal(loop.ControlDir(projectPath), loop.SignalResume); err != nil {
		return err
	}
	fmt.Println("resume requested")
	return nil
}

func runLoopStatus(cmd *cobra.Command, args []string) error {
	projectPath, err := resolveWorkspace()
	if err != nil {
		return err
	}
	st, err := loop.ReadStatus(loop.ControlDir(projectPath))
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no loop status recorded for this workspace")
			return nil
		}
		return err
	}
	fmt.Printf("state: %s\n", st.State)
	if st.CurrentPhase != "" {
		fmt.Printf("current phase: %s\n", st.CurrentPhase)
	}
	return nil
}
