package filter

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/komsit37/stocksync/pkg/stocksync/types"
)

// Filter matches a group name.
type Filter interface {
	Match(name string) bool
}

// Parse builds a filter from an expression:
//   - "" matches every group
//   - "!expr" inverts expr
//   - "/re/" is a regular expression
//   - "a,b" is a set of exact names
//   - "glob:pat", or any expression containing * ? or [, is a glob matched
//     against the full name and its last path segment
//   - anything else is a case-insensitive substring
func Parse(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Always(true), nil
	}
	if rest, ok := strings.CutPrefix(expr, "!"); ok {
		f, err := Parse(rest)
		if err != nil {
			return nil, err
		}
		return Not{f}, nil
	}
	if len(expr) > 2 && strings.HasPrefix(expr, "/") && strings.HasSuffix(expr, "/") {
		re, err := regexp.Compile(expr[1 : len(expr)-1])
		if err != nil {
			return nil, fmt.Errorf("group filter %q: %w", expr, err)
		}
		return Regex{re: re}, nil
	}
	if strings.Contains(expr, ",") {
		set := map[string]struct{}{}
		for _, p := range strings.Split(expr, ",") {
			if p = strings.TrimSpace(p); p != "" {
				set[p] = struct{}{}
			}
		}
		return ExactSet{set: set}, nil
	}
	pattern, explicit := strings.CutPrefix(expr, "glob:")
	if explicit || strings.ContainsAny(expr, "*?[") {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("group filter %q: %w", expr, err)
		}
		return Glob{pattern: pattern}, nil
	}
	return SubstrCI{needle: expr}, nil
}

// Names returns the sorted group names f matches.
func Names(groups types.GroupModel, f Filter) []string {
	var out []string
	for _, n := range groups.Names() {
		if f.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

// Symbols returns the symbols of every matching group, in group-name
// order, without duplicates.
func Symbols(groups types.GroupModel, f Filter) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, n := range Names(groups, f) {
		for _, s := range groups[n] {
			s = types.NormalizeSymbol(s)
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Implementations

type Always bool

func (a Always) Match(string) bool { return bool(a) }

type ExactSet struct{ set map[string]struct{} }

func (e ExactSet) Match(name string) bool {
	_, ok := e.set[name]
	return ok
}

type Glob struct{ pattern string }

// Glob matches the whole name or, for nested group names, the last segment.
func (g Glob) Match(name string) bool {
	if ok, _ := path.Match(g.pattern, name); ok {
		return true
	}
	ok, _ := path.Match(g.pattern, path.Base(name))
	return ok
}

func (g Glob) String() string { return fmt.Sprintf("glob:%s", g.pattern) }

type Not struct{ F Filter }

func (n Not) Match(name string) bool { return !n.F.Match(name) }

type Regex struct{ re *regexp.Regexp }

func (r Regex) Match(name string) bool { return r.re.MatchString(name) }

// SubstrCI matches if name contains needle, case-insensitively.
type SubstrCI struct{ needle string }

func (s SubstrCI) Match(name string) bool {
	if s.needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(s.needle))
}

func (s SubstrCI) String() string { return fmt.Sprintf("substr-ci:%s", s.needle) }
