package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forgewright/planloom/internal/gitutil"
)

// excludedDirs mirrors internal/contextgen's exclusion list; file-tree
// hashing should ignore the same build/dependency noise that the context
// generator's file-group scan ignores, or the hash would churn on every
// `npm install`/`go build` without any real workspace change.
var excludedDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true,
	"build": true, "target": true, "__pycache__": true, ".venv": true,
	"venv": true, ".idea": true, ".vscode": true, "bin": true, "obj": true,
	".next": true, "coverage": true, ".workflow-checkpoints": true,
}

const hashFieldSep = "\x1f"

// sortedFileTreePaths walks projectPath and returns every regular file's
// path relative to projectPath, sorted lexicographically.
func sortedFileTreePaths(projectPath string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(projectPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != projectPath && excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(projectPath, path)
		if relErr != nil {
			rel = path
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// detectProjectType makes a best-effort guess at the project's primary
// ecosystem from well-known manifest files. It only needs to be stable
// across runs over the same workspace, not exhaustive.
func detectProjectType(projectPath string) string {
	checks := []struct {
		file string
		kind string
	}{
		{"go.mod", "go"},
		{"package.json", "node"},
		{"pyproject.toml", "python"},
		{"requirements.txt", "python"},
		{"Cargo.toml", "rust"},
		{"pom.xml", "java"},
		{"build.gradle", "java"},
		{"composer.json", "php"},
	}
	for _, c := range checks {
		if _, err := os.Stat(filepath.Join(projectPath, c.file)); err == nil {
			return c.kind
		}
	}
	return "unknown"
}

// ContextHash computes the SHA-256 fingerprint of a workspace's current
// state: sorted file tree paths, current git branch, project name, and
// project type, concatenated with an explicit field separator (spec.md
// §4.7). File content is deliberately not hashed. Two runs over an
// unchanged workspace produce an identical hash; any added, removed, or
// renamed file, or any branch switch, changes it.
func ContextHash(ctx context.Context, projectPath string) (string, error) {
	paths, err := sortedFileTreePaths(projectPath)
	if err != nil {
		return "", err
	}

	branch, err := gitutil.CurrentBranch(ctx, projectPath)
	if err != nil {
		branch = ""
	}

	projectName := filepath.Base(filepath.Clean(projectPath))
	projectType := detectProjectType(projectPath)

	var sb strings.Builder
	sb.WriteString(strings.Join(paths, hashFieldSep))
	sb.WriteString(hashFieldSep)
	sb.WriteString(branch)
	sb.WriteString(hashFieldSep)
	sb.WriteString(projectName)
	sb.WriteString(hashFieldSep)
	sb.WriteString(projectType)

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:]), nil
}
