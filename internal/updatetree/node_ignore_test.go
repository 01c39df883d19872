package updatetree

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/openmined/syftmirror/internal/pathrules"
	"github.com/openmined/syftmirror/internal/update"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitignore(path, text string, modTime int64) *update.Update {
	return &update.Update{Path: path, IgnoreString: text, ModTime: modTime}
}

func mustFind(t *testing.T, tree *Tree, path string) *Node {
	t.Helper()
	node, err := tree.Find(path)
	require.NoError(t, err)
	return node
}

func TestShouldIgnore_Cascade(t *testing.T) {
	tree := NewWithRules(pathrules.New("proj/build/keep.txt"), nil, nil)
	require.NoError(t, tree.AddLocal(dir("proj")))
	require.NoError(t, tree.AddLocal(gitignore("proj/.gitignore", "build/", 1)))
	require.NoError(t, tree.AddLocal(dir("proj/build")))
	require.NoError(t, tree.AddLocal(file("proj/build/out.txt", 1)))
	require.NoError(t, tree.AddLocal(file("proj/build/keep.txt", 1)))
	require.NoError(t, tree.AddLocal(dir("proj/src")))
	require.NoError(t, tree.AddLocal(file("proj/src/main.txt", 1)))

	assert.True(t, mustFind(t, tree, "proj/build").ShouldIgnore())
	assert.True(t, mustFind(t, tree, "proj/build/out.txt").ShouldIgnore())
	assert.False(t, mustFind(t, tree, "proj/build/keep.txt").ShouldIgnore())
	assert.False(t, mustFind(t, tree, "proj/src/main.txt").ShouldIgnore())
	assert.False(t, mustFind(t, tree, "proj").ShouldIgnore())
	assert.False(t, mustFind(t, tree, "proj/.gitignore").ShouldIgnore())
}

func TestShouldIgnore_RulesAreRelativeToTheirDirectory(t *testing.T) {
	tree := New()
	require.NoError(t, tree.AddLocal(dir("a")))
	require.NoError(t, tree.AddLocal(dir("a/b")))
	require.NoError(t, tree.AddLocal(gitignore("a/b/.gitignore", "/top.txt", 1)))
	require.NoError(t, tree.AddLocal(file("a/b/top.txt", 1)))
	require.NoError(t, tree.AddLocal(dir("a/b/c")))
	require.NoError(t, tree.AddLocal(file("a/b/c/top.txt", 1)))
	require.NoError(t, tree.AddLocal(file("a/top.txt", 1)))

	assert.True(t, mustFind(t, tree, "a/b/top.txt").ShouldIgnore())
	assert.False(t, mustFind(t, tree, "a/b/c/top.txt").ShouldIgnore())
	assert.False(t, mustFind(t, tree, "a/top.txt").ShouldIgnore())
}

func TestShouldIgnore_RootGitignore(t *testing.T) {
	tree := New()
	require.NoError(t, tree.AddRemote(gitignore(".gitignore", "*.log", 1)))
	require.NoError(t, tree.AddRemote(dir("logs")))
	require.NoError(t, tree.AddRemote(file("logs/a.log", 1)))
	require.NoError(t, tree.AddRemote(file("logs/a.txt", 1)))

	assert.True(t, mustFind(t, tree, "logs/a.log").ShouldIgnore())
	assert.False(t, mustFind(t, tree, "logs/a.txt").ShouldIgnore())
}

func TestShouldIgnore_CacheInvalidatedOnGitignoreChange(t *testing.T) {
	tree := New()
	require.NoError(t, tree.AddLocal(dir("proj")))
	require.NoError(t, tree.AddLocal(file("proj/a.tmp", 1)))
	node := mustFind(t, tree, "proj/a.tmp")
	assert.False(t, node.ShouldIgnore())
	assert.Equal(t, ignoreNo, node.ignore)

	require.NoError(t, tree.AddLocal(gitignore("proj/.gitignore", "*.tmp", 2)))
	assert.Equal(t, ignoreUnknown, node.ignore)
	assert.True(t, node.ShouldIgnore())

	// a newer remote copy with other rules takes over
	require.NoError(t, tree.AddRemote(gitignore("proj/.gitignore", "*.bak", 3)))
	assert.False(t, node.ShouldIgnore())
}

func TestShouldIgnore_OlderGitignoreDoesNotOverride(t *testing.T) {
	tree := New()
	require.NoError(t, tree.AddLocal(dir("proj")))
	require.NoError(t, tree.AddLocal(gitignore("proj/.gitignore", "*.tmp", 5)))
	require.NoError(t, tree.AddRemote(gitignore("proj/.gitignore", "*.bak", 3)))
	require.NoError(t, tree.AddLocal(file("proj/a.tmp", 1)))

	assert.True(t, mustFind(t, tree, "proj/a.tmp").ShouldIgnore())
}

func TestShouldIgnore_ExtraRules(t *testing.T) {
	tree := NewWithRules(pathrules.New("vendor/keep/**"), pathrules.New("vendor/", "*.o"), nil)
	require.NoError(t, tree.AddLocal(dir("vendor")))
	require.NoError(t, tree.AddLocal(dir("vendor/keep")))
	require.NoError(t, tree.AddLocal(file("vendor/keep/a.go", 1)))
	require.NoError(t, tree.AddLocal(file("vendor/lib.go", 1)))
	require.NoError(t, tree.AddLocal(file("main.o", 1)))
	require.NoError(t, tree.AddLocal(file("main.go", 1)))

	assert.True(t, mustFind(t, tree, "vendor").ShouldIgnore())
	assert.True(t, mustFind(t, tree, "vendor/lib.go").ShouldIgnore())
	assert.False(t, mustFind(t, tree, "vendor/keep/a.go").ShouldIgnore())
	assert.True(t, mustFind(t, tree, "main.o").ShouldIgnore())
	assert.False(t, mustFind(t, tree, "main.go").ShouldIgnore())
}

func TestShouldIgnore_DebugTrace(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tree := NewWithRules(nil, nil, []string{"proj/src", "**/*.log"})
	require.NoError(t, tree.AddLocal(dir("proj")))
	require.NoError(t, tree.AddLocal(gitignore("proj/.gitignore", "*.log", 1)))
	require.NoError(t, tree.AddLocal(dir("proj/src")))
	require.NoError(t, tree.AddLocal(file("proj/src/a.txt", 1)))
	require.NoError(t, tree.AddLocal(file("proj/b.log", 1)))
	require.NoError(t, tree.AddLocal(file("proj/c.txt", 1)))

	assert.False(t, mustFind(t, tree, "proj/src/a.txt").ShouldIgnore())
	assert.True(t, mustFind(t, tree, "proj/b.log").ShouldIgnore())
	assert.False(t, mustFind(t, tree, "proj/c.txt").ShouldIgnore())

	out := buf.String()
	assert.Contains(t, out, "path=proj/src/a.txt")
	assert.Contains(t, out, "path=proj/b.log")
	assert.NotContains(t, out, "path=proj/c.txt")
}

func TestTree_ShouldDebug(t *testing.T) {
	tree := NewWithRules(nil, nil, []string{"a/b", "**/*.md"})
	assert.True(t, tree.shouldDebug("a/b"))
	assert.True(t, tree.shouldDebug("a/bc/d"))
	assert.True(t, tree.shouldDebug("x/y/readme.md"))
	assert.False(t, tree.shouldDebug("a/c"))
	assert.False(t, New().shouldDebug("a"))
}
