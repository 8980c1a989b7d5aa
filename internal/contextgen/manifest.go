package contextgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
)

// manifestNames lists the dependency/config manifests the tech-stack scan
// looks for at the project root (spec.md §4.6's "e.g." list, extended with
// the other common build-system markers the corpus's own project scanners
// recognize).
var manifestNames = []string{
	"package.json", "pyproject.toml", "requirements.txt", "Pipfile",
	"Cargo.toml", "go.mod", "go.sum", "Dockerfile", "docker-compose.yml",
	"Makefile", "CMakeLists.txt", "pom.xml", "build.gradle", "setup.py",
	"composer.json",
}

// maxConcurrentManifestReads bounds the manifest-reading worker pool.
const maxConcurrentManifestReads = 4

var techStackSchema = llm.Schema{
	Name: "tech_stack",
	OutputDescription: `{
  "languages": ["string"],
  "frameworks": ["string"],
  "testing_frameworks": ["string"],
  "build_systems": ["string"]
}`,
	Timeout: 60,
}

const techStackPromptTemplate = `The following are the contents of dependency/build manifests found at the
root of a project. Identify the languages, frameworks, testing frameworks,
and build systems in use.

%s`

// scanManifests reads every present manifest at projectPath concurrently
// (bounded pool), returning a map of filename to content. Missing files are
// skipped, not errors; a read failure on one file is logged and that file
// is simply omitted from the result.
func scanManifests(ctx context.Context, projectPath string) (map[string]string, error) {
	present := make([]string, 0, len(manifestNames))
	for _, name := range manifestNames {
		if _, err := os.Stat(filepath.Join(projectPath, name)); err == nil {
			present = append(present, name)
		}
	}
	if len(present) == 0 {
		return nil, nil
	}

	contents := make([]string, len(present))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentManifestReads)

	for i, name := range present {
		i, name := i, name
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			data, err := os.ReadFile(filepath.Join(projectPath, name))
			if err != nil {
				logging.For(logging.ComponentContextGen).Warnw("manifest read failed, skipping", "file", name, "err", err)
				return nil
			}
			contents[i] = string(data)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]string, len(present))
	for i, name := range present {
		if contents[i] != "" {
			out[name] = contents[i]
		}
	}
	return out, nil
}

// buildTechStack submits the concatenated manifest contents to the LLM
// client and parses its response into a model.TechStack.
func buildTechStack(ctx context.Context, client *llm.Client, manifests map[string]string) (*model.TechStack, error) {
	if len(manifests) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(manifests))
	for name := range manifests {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("--- %s ---\n%s\n\n", name, manifests[name]))
	}

	var resp model.TechStack
	prompt := fmt.Sprintf(techStackPromptTemplate, sb.String())
	if err := client.Call(ctx, techStackSchema, prompt, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
