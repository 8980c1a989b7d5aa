package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupDays int

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect and clean up durable pipeline checkpoints",
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deduplicated checkpoints for this workspace",
	RunE:  runPlanStatus, // same listing "plan status" shows; checkpoint is the natural C7-facing alias.
}

var checkpointCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old checkpoints",
	RunE:  runCheckpointCleanup,
}

func init() {
	checkpointCleanupCmd.Flags().IntVar(&cleanupDays, "older-than-days", 30, "Delete checkpoints older than this many days (0 deletes all)")
	checkpointCmd.AddCommand(checkpointListCmd, checkpointCleanupCmd)
}

func runCheckpointCleanup(cmd *cobra.Command, args []string) error {
	projectPath, err := resolveWorkspace()
	if err != nil {
		return err
	}
	mgr, err := newCheckpointManager(projectPath)
	if err != nil {
		return err
	}
	defer mgr.Close()

	var removed int
	if cleanupDays <= 0 {
		removed, err = mgr.CleanupAll()
	} else {
		removed, err = mgr.CleanupByAge(cleanupDays)
	}
	if err != nil {
		return err
	}
	fmt.Printf("removed %d checkpoint(s)\n", removed)
	return nil
}
