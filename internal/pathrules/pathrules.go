// Package pathrules compiles gitignore-style pattern lines and matches
// relative paths against them.
package pathrules

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultExcludes are applied by the CLI unless overridden in config.
var DefaultExcludes = []string{
	// editors
	".vscode",
	".idea",
	"*.swp",
	// general
	".git",
	"*.tmp",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
}

// PathRules is a compiled set of gitignore pattern lines.
// The zero value has no rules and matches nothing.
type PathRules struct {
	lines  []string
	ignore *gitignore.GitIgnore
}

// New compiles the given pattern lines.
func New(lines ...string) *PathRules {
	p := &PathRules{}
	p.setLines(lines)
	return p
}

// Parse compiles newline separated pattern text, e.g. a .gitignore body.
func Parse(text string) *PathRules {
	p := &PathRules{}
	p.SetRules(text)
	return p
}

// ReadFile compiles the pattern lines of the file at path.
func ReadFile(path string) (*PathRules, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	return New(lines...), nil
}

// SetRules replaces the current rules with those in text.
func (p *PathRules) SetRules(text string) {
	p.setLines(strings.Split(text, "\n"))
}

func (p *PathRules) setLines(lines []string) {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		kept = append(kept, line)
	}
	p.lines = kept
	if len(kept) == 0 {
		p.ignore = nil
		return
	}
	p.ignore = gitignore.CompileIgnoreLines(kept...)
}

// Lines returns the effective pattern lines, without blanks and comments.
func (p *PathRules) Lines() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.lines...)
}

func (p *PathRules) HasAnyRules() bool {
	return p != nil && len(p.lines) > 0
}

// Matches reports whether the slash separated relative path matches the
// rules. Directories are matched with a trailing slash so that
// directory-only patterns like "build/" apply to them.
func (p *PathRules) Matches(path string, isDir bool) bool {
	if !p.HasAnyRules() {
		return false
	}
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return false
	}
	if isDir {
		path += "/"
	}
	return p.ignore.MatchesPath(path)
}

func (p *PathRules) String() string {
	if p == nil {
		return ""
	}
	return strings.Join(p.lines, ", ")
}
