// Package contextgen implements the Context Generator (spec.md §4.6): a
// tech-stack summary and a file-group summary of a project, both produced
// via the LLM client and persisted to disk. Every failure here is logged
// and absorbed rather than propagated — context generation is always
// skippable, and a partial or missing summary degrades the pipeline rather
// than blocking it.
package contextgen

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/forgewright/planloom/internal/config"
	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
)

// Generator produces and persists the tech-stack and file-group summaries
// for one project.
type Generator struct {
	client *llm.Client
	cfg    config.ContextGenConfig
}

// NewGenerator builds a Generator from an LLM client and the context-gen
// section of process config.
func NewGenerator(client *llm.Client, cfg config.ContextGenConfig) *Generator {
	return &Generator{client: client, cfg: cfg}
}

// Generate scans projectPath for a tech-stack summary and a file-group
// summary, persists both under {output_root}/{sanitized-project-name}/groups/,
// and returns whatever it managed to produce. A failure in either half is
// logged and leaves that half nil; it never returns an error.
func (g *Generator) Generate(ctx context.Context, projectPath string) (*model.TechStack, *model.FileGroups) {
	projectName := SanitizeProjectName(filepath.Base(filepath.Clean(projectPath)))
	groupsDir := filepath.Join(g.cfg.OutputRoot, projectName, "groups")

	techStack := g.generateTechStack(ctx, projectPath)
	if techStack != nil {
		g.persist(groupsDir, "tech_stack.json", techStack)
	}

	fileGroups := g.generateFileGroups(ctx, projectPath)
	if fileGroups != nil {
		g.persist(groupsDir, "file_groups.json", fileGroups)
	}

	return techStack, fileGroups
}

func (g *Generator) generateTechStack(ctx context.Context, projectPath string) *model.TechStack {
	manifests, err := scanManifests(ctx, projectPath)
	if err != nil {
		logging.For(logging.ComponentContextGen).Warnw("manifest scan failed", "project_path", projectPath, "err", err)
		return nil
	}
	techStack, err := buildTechStack(ctx, g.client, manifests)
	if err != nil {
		logging.For(logging.ComponentContextGen).Warnw("tech stack summary failed", "project_path", projectPath, "err", err)
		return nil
	}
	return techStack
}

func (g *Generator) generateFileGroups(ctx context.Context, projectPath string) *model.FileGroups {
	maxFiles := g.cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 100
	}
	fileGroups, err := buildFileGroups(ctx, g.client, projectPath, maxFiles)
	if err != nil {
		logging.For(logging.ComponentContextGen).Warnw("file group summary failed", "project_path", projectPath, "err", err)
		return nil
	}
	return fileGroups
}

func (g *Generator) persist(dir, filename string, value interface{}) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logging.For(logging.ComponentContextGen).Warnw("persist: mkdir failed", "dir", dir, "err", err)
		return
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		logging.For(logging.ComponentContextGen).Warnw("persist: marshal failed", "file", filename, "err", err)
		return
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logging.For(logging.ComponentContextGen).Warnw("persist: write failed", "path", path, "err", err)
	}
}
