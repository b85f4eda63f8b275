package dispatch

import (
	"regexp"
	"strings"
)

// Pattern matches a normalized (lowercase, query-free) request path. The
// captures of a successful match are exposed as Request.Matches.
type Pattern interface {
	Match(path string) (captures []string, ok bool)
}

type exact string

// Exact matches one literal path, ignoring case.
func Exact(path string) Pattern {
	return exact(strings.ToLower(path))
}

func (e exact) Match(path string) ([]string, bool) {
	return nil, string(e) == path
}

func (e exact) String() string { return string(e) }

type expr struct {
	re *regexp.Regexp
}

// Regexp matches paths against re. Anchoring is up to the caller. The
// expression sees the lowercased path, so literal parts should be lowercase.
func Regexp(re *regexp.Regexp) Pattern {
	return expr{re: re}
}

// MustCompile is Regexp(regexp.MustCompile(s)).
func MustCompile(s string) Pattern {
	return Regexp(regexp.MustCompile(s))
}

func (e expr) Match(path string) ([]string, bool) {
	m := e.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

func (e expr) String() string { return e.re.String() }
