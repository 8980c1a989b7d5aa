package checkpoint

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/forgewright/planloom/internal/gitutil"
)

const maxSessionNameLen = 64

var sessionNameDisallowed = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func sanitizeSessionComponent(s string) string {
	s = sessionNameDisallowed.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return s
}

const ellipsis = "…"

// truncateWithEllipsis returns s trimmed to at most max bytes, total,
// including the trailing ellipsis when one is added. len(ellipsis) is 3
// (U+2026 is a 3-byte UTF-8 sequence), so max-len(ellipsis) bytes of s are
// kept, not max-1 — otherwise the ellipsis pushes the result 2 bytes past
// max.
func truncateWithEllipsis(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return s[:max]
	}
	return s[:max-len(ellipsis)] + ellipsis
}

// SessionName derives a stable, filesystem-friendly name for a checkpoint
// session from the git branch name and (optionally) the project name,
// truncated to 64 characters with an ellipsis (spec.md §4.7).
func SessionName(branch, projectName string) string {
	name := sanitizeSessionComponent(branch)
	if name == "" {
		name = "session"
	}
	if projectName != "" {
		suffix := sanitizeSessionComponent(projectName)
		if suffix != "" {
			name = name + "-" + suffix
		}
	}
	return truncateWithEllipsis(name, maxSessionNameLen)
}

// DisplayName builds the human-facing label for a session: its sanitized
// name plus a timestamp and a "N files changed" summary drawn from git
// status.
func DisplayName(sessionName string, timestamp time.Time, changedFiles int) string {
	return fmt.Sprintf("%s (%s, %d file(s) changed)", sessionName, timestamp.Format("2006-01-02 15:04:05"), changedFiles)
}

// CurrentSessionDisplayName computes SessionName and DisplayName for
// projectPath's current git branch and working-tree state. Git lookup
// failures (e.g. not a repo) degrade to an empty branch name rather than
// failing the whole call.
func CurrentSessionDisplayName(ctx context.Context, projectPath, projectName string, timestamp time.Time) string {
	branch, err := gitutil.CurrentBranch(ctx, projectPath)
	if err != nil {
		branch = ""
	}
	changed, err := gitutil.ChangedFileCount(ctx, projectPath)
	if err != nil {
		changed = 0
	}
	name := SessionName(branch, projectName)
	return DisplayName(name, timestamp, changed)
}
