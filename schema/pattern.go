package schema

import (
	"path"
	"strings"

	"gitlab.com/tozd/go/errors"
)

type patternKind int

const (
	patternExact  patternKind = iota // a::B
	patternPrefix                    // a::
	patternGlob                      // a::*::B, a::**
)

// Pattern selects type names for renaming.
//
// A pattern ending in "::" matches every name under that module and
// replaces the prefix. A pattern containing "*" is a glob over "::"
// segments: "*" and the other path.Match metacharacters match within one
// segment, and a trailing "**" matches any number of segments. Glob
// matches are moved into the replacement module, keeping their last
// segment. Anything else matches one name exactly.
type Pattern struct {
	raw      string
	kind     patternKind
	segments []string
}

// ParsePattern validates s.
func ParsePattern(s string) (Pattern, error) {
	if s == "" || s == Sep {
		return Pattern{}, errors.WithDetails(ErrInvalidPattern, "pattern", s)
	}
	p := Pattern{raw: s}
	switch {
	case strings.ContainsAny(s, "*?["):
		p.kind = patternGlob
		p.segments = strings.Split(s, Sep)
		for i, seg := range p.segments {
			if seg == "**" {
				if i != len(p.segments)-1 {
					return Pattern{}, errors.WithDetails(ErrInvalidPattern, "pattern", s, "reason", "** must be the last segment")
				}
				continue
			}
			if _, err := path.Match(seg, ""); err != nil {
				return Pattern{}, errors.WithDetails(ErrInvalidPattern, "pattern", s, "reason", err.Error())
			}
		}
	case strings.HasSuffix(s, Sep):
		p.kind = patternPrefix
	default:
		p.kind = patternExact
	}
	return p, nil
}

// MustParsePattern is ParsePattern that panics on error.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern source.
func (p Pattern) String() string { return p.raw }

// Match reports whether name is selected.
func (p Pattern) Match(name string) bool {
	switch p.kind {
	case patternExact:
		return name == p.raw
	case patternPrefix:
		return strings.HasPrefix(name, p.raw) && len(name) > len(p.raw)
	default:
		return globMatch(p.segments, SplitName(name))
	}
}

func globMatch(pattern, name []string) bool {
	for i, seg := range pattern {
		if seg == "**" {
			return len(name) > i
		}
		if i >= len(name) {
			return false
		}
		if ok, _ := path.Match(seg, name[i]); !ok {
			return false
		}
	}
	return len(pattern) == len(name)
}

// Apply returns the renamed form of name and whether the pattern matched.
func (p Pattern) Apply(name, to string) (string, bool) {
	if !p.Match(name) {
		return name, false
	}
	switch p.kind {
	case patternExact:
		return to, true
	case patternPrefix:
		return JoinName(strings.TrimSuffix(to, Sep), strings.TrimPrefix(name, p.raw)), true
	default:
		return JoinName(strings.TrimSuffix(to, Sep), BaseName(name)), true
	}
}
