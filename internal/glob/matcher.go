package glob

import (
	"path"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// normalize rewrites backslash separators to forward slashes. Artifacts are
// shared across operating systems, so a pattern written by a Windows-side
// agent must match here too; filepath.ToSlash would leave it untouched on
// POSIX.
func normalize(s string) string {
	return strings.ReplaceAll(s, `\`, "/")
}

// MatchPath reports whether a pattern matches a literal changed path. Both
// sides are normalized to forward slashes first. Patterns doublestar rejects
// fall back to the plain glob matcher so a malformed reservation degrades
// instead of silently passing.
func MatchPath(pattern, p string) bool {
	pattern = normalize(pattern)
	p = normalize(p)
	ok, err := doublestar.Match(pattern, p)
	if err == nil {
		return ok
	}
	ok, err = path.Match(pattern, p)
	return err == nil && ok
}

// Overlap reports whether the path sets of two patterns could intersect:
// the patterns are the same literal, either one (taken as a literal candidate
// path) is accepted by the other, or the segment NFA finds a common path.
func Overlap(a, b string) (bool, error) {
	a = normalize(a)
	b = normalize(b)
	if a == b {
		return true, nil
	}
	if ok, err := doublestar.Match(a, b); err == nil && ok {
		return true, nil
	}
	if ok, err := doublestar.Match(b, a); err == nil && ok {
		return true, nil
	}
	return PatternsOverlap(a, b)
}

// Cache memoizes Overlap results. The same small set of patterns is re-tested
// on every claim and every hook invocation, so the hit ratio approaches one
// once a project's patterns stabilize.
type Cache struct {
	mu      sync.RWMutex
	results map[[2]string]bool
}

func NewCache() *Cache {
	return &Cache{results: make(map[[2]string]bool)}
}

func (c *Cache) Overlap(a, b string) (bool, error) {
	key := [2]string{a, b}
	if b < a {
		key = [2]string{b, a}
	}

	c.mu.RLock()
	got, ok := c.results[key]
	c.mu.RUnlock()
	if ok {
		return got, nil
	}

	got, err := Overlap(a, b)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.results[key] = got
	c.mu.Unlock()
	return got, nil
}
