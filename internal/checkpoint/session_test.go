package checkpoint

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionName_CombinesBranchAndProject(t *testing.T) {
	assert.Equal(t, "feature-x-widgets", SessionName("feature-x", "widgets"))
}

func TestSessionName_SanitizesDisallowedCharacters(t *testing.T) {
	assert.Equal(t, "feature-auth-fix", SessionName("feature/auth-fix", ""))
}

func TestSessionName_EmptyBranchFallsBackToSession(t *testing.T) {
	assert.Equal(t, "session", SessionName("", ""))
}

func TestSessionName_TruncatesTo64WithEllipsis(t *testing.T) {
	longBranch := strings.Repeat("a", 100)
	name := SessionName(longBranch, "")
	assert.LessOrEqual(t, len(name), maxSessionNameLen)
	assert.True(t, strings.HasSuffix(name, "…"))
}

func TestDisplayName_IncludesTimestampAndFileCount(t *testing.T) {
	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	name := DisplayName("main-widgets", ts, 3)
	assert.Contains(t, name, "main-widgets")
	assert.Contains(t, name, "2026-07-30")
	assert.Contains(t, name, "3 file(s) changed")
}
