package watcher

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

type compiledPattern struct {
	pattern string
	glob    glob.Glob
	// root matches paths directly under the watched root for "**/" patterns.
	root glob.Glob
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid watch pattern %q: %w", pattern, err)
		}
		cp := compiledPattern{pattern: pattern, glob: g}
		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			if rg, err := glob.Compile(simplified, '/'); err == nil {
				cp.root = rg
			}
		}
		compiled = append(compiled, cp)
	}
	return compiled, nil
}

// matchesAnyPattern reports whether a slash separated, root relative path
// matches one of the patterns. "**/*.jar" matches both "app.jar" and
// "lib/app.jar".
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	topLevel := !strings.Contains(path, "/")
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
		if topLevel && cp.root != nil && cp.root.Match(path) {
			return true
		}
	}
	return false
}
