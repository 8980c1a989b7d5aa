package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOverrideSnippet = `package override

func Route(text string) (string, bool) {
	if text == "urgent hotfix" {
		return "backend_only", true
	}
	return "", false
}
`

func TestLoadOverrideRules_MissingDir(t *testing.T) {
	rules, err := LoadOverrideRules(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func TestLoadOverrideRules_EvaluatesSnippet(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rule.go"), []byte(sampleOverrideSnippet), 0o644))

	rules, err := LoadOverrideRules(dir)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	category, ok := rules[0].Route("urgent hotfix")
	assert.True(t, ok)
	assert.Equal(t, "backend_only", category)

	_, ok = rules[0].Route("something else")
	assert.False(t, ok)
}

func TestLoadOverrideRules_SkipsInvalidSnippet(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.go"), []byte("not valid go"), 0o644))

	rules, err := LoadOverrideRules(dir)
	require.NoError(t, err)
	assert.Empty(t, rules)
}
