package contextgen

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/model"
)

// excludedDirs are skipped entirely during the file-group walk: build
// output, dependency vendoring, and VCS metadata directories common across
// the language ecosystems this scanner targets.
var excludedDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true,
	"build": true, "target": true, "__pycache__": true, ".venv": true,
	"venv": true, ".idea": true, ".vscode": true, "bin": true, "obj": true,
	".next": true, "coverage": true, ".workflow-checkpoints": true,
}

// sourceExtensions is the set of file extensions considered "source files"
// for the file-group scan.
var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".jsx": true, ".ts": true,
	".tsx": true, ".rs": true, ".java": true, ".rb": true, ".c": true,
	".h": true, ".cpp": true, ".hpp": true, ".cs": true, ".php": true,
}

var fileGroupSchema = llm.Schema{
	Name: "file_groups",
	OutputDescription: `{
  "groups": [{"name": "string", "files": ["string"], "purpose": "string"}]
}`,
	Timeout: 120,
}

const fileGroupPromptTemplate = `The following is a source file tree for a project, one path per line. Go
files are annotated with their top-level declarations in brackets where
available, as a structural hint.

%s

Cluster these files into logically related groups (e.g. by feature, layer,
or subsystem) and describe each group's purpose in one sentence.`

// collectSourceFiles walks projectPath, skipping excludedDirs, and returns
// up to maxFiles paths (relative to projectPath) with a recognized source
// extension, sorted lexicographically for determinism.
func collectSourceFiles(projectPath string, maxFiles int) ([]string, error) {
	var files []string
	err := filepath.WalkDir(projectPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entry: skip, not fatal
		}
		if d.IsDir() {
			if path != projectPath && excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, relErr := filepath.Rel(projectPath, path)
		if relErr != nil {
			rel = path
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	if maxFiles > 0 && len(files) > maxFiles {
		files = files[:maxFiles]
	}
	return files, nil
}

// buildFileTree renders one line per file, annotating .go files with their
// tree-sitter-extracted top-level symbols.
func buildFileTree(projectPath string, files []string) string {
	var sb strings.Builder
	for _, rel := range files {
		line := rel
		if strings.ToLower(filepath.Ext(rel)) == ".go" {
			if content, err := os.ReadFile(filepath.Join(projectPath, rel)); err == nil {
				if symbols := extractGoSymbols(rel, content); len(symbols) > 0 {
					line = fmt.Sprintf("%s [%s]", rel, strings.Join(symbols, ", "))
				}
			}
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// buildFileGroups collects up to maxFiles source files under projectPath,
// submits their annotated tree to the LLM client, and returns the parsed
// model.FileGroups. Returns (nil, nil) if no source files are found.
func buildFileGroups(ctx context.Context, client *llm.Client, projectPath string, maxFiles int) (*model.FileGroups, error) {
	files, err := collectSourceFiles(projectPath, maxFiles)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	tree := buildFileTree(projectPath, files)

	var resp model.FileGroups
	prompt := fmt.Sprintf(fileGroupPromptTemplate, tree)
	if err := client.Call(ctx, fileGroupSchema, prompt, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
