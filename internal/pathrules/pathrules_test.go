package pathrules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathRules_Empty(t *testing.T) {
	var zero PathRules
	assert.False(t, zero.HasAnyRules())
	assert.False(t, zero.Matches("a.txt", false))

	var nilRules *PathRules
	assert.False(t, nilRules.HasAnyRules())
	assert.False(t, nilRules.Matches("a.txt", false))
	assert.Empty(t, nilRules.Lines())

	onlyComments := Parse("# comment\n\n   \n")
	assert.False(t, onlyComments.HasAnyRules())
	assert.Empty(t, onlyComments.Lines())
}

func TestPathRules_Matches(t *testing.T) {
	rules := Parse("# build output\nbuild/\n*.log\r\n/root-only.txt\n")
	require.Equal(t, []string{"build/", "*.log", "/root-only.txt"}, rules.Lines())

	cases := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"build", true, true},
		{"build/out.txt", false, true},
		{"src/build", true, true},
		{"build", false, false},
		{"debug.log", false, true},
		{"logs/debug.log", false, true},
		{"root-only.txt", false, true},
		{"sub/root-only.txt", false, false},
		{"src/main.txt", false, false},
		{"/build/out.txt", false, true},
		{"", true, false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, rules.Matches(tc.path, tc.isDir))
		})
	}
}

func TestPathRules_Negation(t *testing.T) {
	rules := New("*.log", "!keep.log")
	assert.True(t, rules.Matches("debug.log", false))
	assert.False(t, rules.Matches("keep.log", false))
}

func TestPathRules_SetRulesReplaces(t *testing.T) {
	rules := New("*.tmp")
	assert.True(t, rules.Matches("a.tmp", false))

	rules.SetRules("*.bak")
	assert.False(t, rules.Matches("a.tmp", false))
	assert.True(t, rules.Matches("a.bak", false))
	assert.Equal(t, "*.bak", rules.String())

	rules.SetRules("")
	assert.False(t, rules.HasAnyRules())
	assert.False(t, rules.Matches("a.bak", false))
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excludes")
	require.NoError(t, os.WriteFile(path, []byte("# private\nprivate/**\n*.secret\n"), 0o644))

	rules, err := ReadFile(path)
	require.NoError(t, err)
	assert.True(t, rules.Matches("private/notes.txt", false))
	assert.True(t, rules.Matches("a/b.secret", false))
	assert.False(t, rules.Matches("public/notes.txt", false))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
