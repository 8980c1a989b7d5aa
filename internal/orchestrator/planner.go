package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/model"
)

// planSystemPrompt frames the Planning step's free-text request: it asks
// for a plan broken into headings the PhaseDecomposition step can split on
// reliably, rather than free-flowing prose.
const planSystemPrompt = `You are producing an implementation plan from a decomposed set of
requirements. Structure your response as Markdown: a short title and
overview paragraph, followed by one "## Phase N: <title>" heading per
phase, each with the concrete work for that phase underneath. Do not use
any other "##" heading outside of phase boundaries.`

const planPromptTemplate = `Requirement:
%s

Decomposed requirements:
%s
%s
Produce the implementation plan now.`

var phaseHeadingPattern = regexp.MustCompile(`(?m)^##\s+Phase\s+(\d+)\s*:\s*(.+)$`)

// Planner renders a WorkflowContext's decomposed requirements (plus
// optional tech-stack/file-group context) into a plan via the LLM client's
// free-text path (spec.md §4.8 step 5), then splits the result into
// ordered phase files plus an 00-overview.md index (step 6).
type Planner struct {
	client    *llm.Client
	outputDir string // plans/ by convention, relative to the project path
}

// NewPlanner returns a Planner writing phase files under
// {projectPath}/{outputDir}/{date}-{slug}/.
func NewPlanner(client *llm.Client, outputDir string) *Planner {
	if outputDir == "" {
		outputDir = "plans"
	}
	return &Planner{client: client, outputDir: outputDir}
}

// GeneratePlan asks the LLM for the plan markdown described by wc's
// decomposed requirements and optional context summaries.
func (p *Planner) GeneratePlan(ctx context.Context, wc *model.WorkflowContext) (string, error) {
	hierarchyText := renderHierarchy(wc.DecomposedRequirements)
	contextText := renderContext(wc)
	prompt := fmt.Sprintf(planPromptTemplate, wc.Requirement, hierarchyText, contextText)
	return p.client.CallText(ctx, prompt, planSystemPrompt, 300)
}

// WritePhases splits wc.PlanText into phase files under a dated, slugified
// directory, writes 00-overview.md, and returns (overviewPath, phaseFiles).
func (p *Planner) WritePhases(wc *model.WorkflowContext) (string, []string, error) {
	dir := filepath.Join(wc.ProjectPath, p.outputDir, planDirName(wc.Requirement))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("orchestrator: create plan dir: %w", err)
	}

	intro, phases := splitPlan(wc.PlanText)

	overviewPath := filepath.Join(dir, "00-overview.md")
	if err := os.WriteFile(overviewPath, []byte(renderOverview(intro, phases)), 0o644); err != nil {
		return "", nil, fmt.Errorf("orchestrator: write overview: %w", err)
	}

	phaseFiles := make([]string, 0, len(phases))
	for _, ph := range phases {
		name := fmt.Sprintf("%02d-%s.md", ph.number, slugify(ph.title))
		path := filepath.Join(dir, name)
		content := fmt.Sprintf("# Phase %d: %s\n\n%s\n", ph.number, ph.title, ph.body)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return "", nil, fmt.Errorf("orchestrator: write phase file %s: %w", name, err)
		}
		phaseFiles = append(phaseFiles, path)
	}

	return overviewPath, phaseFiles, nil
}

type planPhase struct {
	number int
	title  string
	body   string
}

// splitPlan separates the plan's lead-in text from its "## Phase N: Title"
// sections. A plan with no recognizable phase headings produces zero
// phases and the whole text as intro; the caller still gets a valid
// 00-overview.md in that degraded case.
func splitPlan(planText string) (intro string, phases []planPhase) {
	matches := phaseHeadingPattern.FindAllStringSubmatchIndex(planText, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(planText), nil
	}

	intro = strings.TrimSpace(planText[:matches[0][0]])

	for i, m := range matches {
		numStr := planText[m[2]:m[3]]
		title := strings.TrimSpace(planText[m[4]:m[5]])
		bodyStart := m[1]
		bodyEnd := len(planText)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := strings.TrimSpace(planText[bodyStart:bodyEnd])

		num, err := strconv.Atoi(numStr)
		if err != nil || num <= 0 {
			num = i + 1
		}
		phases = append(phases, planPhase{number: num, title: title, body: body})
	}
	return intro, phases
}

func renderOverview(intro string, phases []planPhase) string {
	var sb strings.Builder
	if intro != "" {
		sb.WriteString(intro)
		sb.WriteString("\n\n")
	}
	sb.WriteString("## Phases\n\n")
	for _, ph := range phases {
		sb.WriteString(fmt.Sprintf("%d. [%s](%02d-%s.md)\n", ph.number, ph.title, ph.number, slugify(ph.title)))
	}
	return sb.String()
}

func renderHierarchy(h *model.RequirementHierarchy) string {
	if h == nil {
		return "(none)"
	}
	var sb strings.Builder
	h.Walk(func(node, parent *model.RequirementNode) {
		sb.WriteString(fmt.Sprintf("%s- %s: %s\n", strings.Repeat("  ", nodeIndent(node)), node.ID, node.Description))
	})
	return sb.String()
}

// nodeIndent derives display indent straight from the node's fixed
// position in the hierarchy (parent/sub_process/implementation), since
// RequirementNode tracks ParentID but not a reusable upward-walk helper.
func nodeIndent(node *model.RequirementNode) int {
	switch node.Type {
	case model.TypeParent:
		return 0
	case model.TypeSubProcess:
		return 1
	case model.TypeImplementation:
		return 2
	}
	return 0
}

func renderContext(wc *model.WorkflowContext) string {
	if wc.TechStack == nil && wc.FileGroups == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nProject context:\n")
	if wc.TechStack != nil {
		sb.WriteString(fmt.Sprintf("Languages: %s\n", strings.Join(wc.TechStack.Languages, ", ")))
		sb.WriteString(fmt.Sprintf("Frameworks: %s\n", strings.Join(wc.TechStack.Frameworks, ", ")))
	}
	if wc.FileGroups != nil {
		for _, g := range wc.FileGroups.Groups {
			sb.WriteString(fmt.Sprintf("File group %q: %s\n", g.Name, g.Purpose))
		}
	}
	return sb.String()
}

var slugDisallowed = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugDisallowed.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "phase"
	}
	return s
}

func planDirName(requirement string) string {
	date := time.Now().Format("2006-01-02")
	feature := slugify(firstWords(requirement, 6))
	return fmt.Sprintf("%s-%s", date, feature)
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
