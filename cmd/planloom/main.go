// Package main implements the planloom CLI: the entry point for the
// requirement decomposition pipeline (C4-C8) and the execution loop runner
// (C9/C10). Command implementations are split across cmd_*.go files, the
// same layout the teacher repo uses for its own CLI (cmd/nerd/main.go's file
// index comment names one file per command group).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forgewright/planloom/internal/config"
	"github.com/forgewright/planloom/internal/logging"
)

var (
	workspace  string
	configPath string
	verbose    bool
)

// exit codes, spec.md §6.
const (
	exitSuccess          = 0
	exitGenericFailure   = 1
	exitValidationBlocked = 2
	exitNoPlansAvailable  = 3
)

var rootCmd = &cobra.Command{
	Use:   "planloom",
	Short: "Autonomous requirement decomposition and execution pipeline",
	Long: `planloom turns free-text research into a validated requirement
hierarchy, a phase-by-phase implementation plan, and an autonomous
execution loop that drives an external code-gen agent through it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose, false); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func resolveWorkspace() (string, error) {
	if workspace == "" {
		return os.Getwd()
	}
	return filepath.Abs(workspace)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Project workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(planCmd, loopCmd, classifyCmd, checkpointCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
