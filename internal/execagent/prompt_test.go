package execagent

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewright/planloom/internal/perr"
)

func TestBuildPrompt_IncludesPhaseAndPlanContents(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "01-build-the-service.md")
	require.NoError(t, os.WriteFile(planPath, []byte("# Phase 1: Build the service\n\nDo the thing.\n"), 0o644))

	prompt, err := BuildPrompt(planPath, "phase-1")
	require.NoError(t, err)
	assert.Contains(t, prompt, "phase-1")
	assert.Contains(t, prompt, "Do the thing.")
}

func TestBuildPrompt_EmptyFileStillProducesPrompt(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(planPath, []byte(""), 0o644))

	prompt, err := BuildPrompt(planPath, "phase-1")
	require.NoError(t, err)
	assert.Contains(t, prompt, "phase-1")
}

func TestBuildPrompt_MissingFileReturnsFileNotFound(t *testing.T) {
	_, err := BuildPrompt(filepath.Join(t.TempDir(), "missing.md"), "phase-1")
	require.Error(t, err)

	var inputErr *perr.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, perr.InputFileNotFound, inputErr.Kind)
}
