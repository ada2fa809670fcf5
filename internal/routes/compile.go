package routes

import (
	"regexp"
	"sort"
	"strings"
)

// Compiled is a RouteRule reduced to a matchable regex plus ordering keys.
type Compiled struct {
	Rule Rule

	pattern       *regexp.Regexp
	paramNames    []string
	segments      int
	literals      int
	insertionSeq  int
}

// paramSegment matches a `:name` path segment.
var paramSegment = regexp.MustCompile(`^:(\w+)$`)

// compile builds a Compiled entry from a Rule, anchoring the regex with
// ^...$ and escaping literal segments so they can't be reinterpreted as
// metacharacters.
func compile(rule Rule, seq int) Compiled {
	segs := strings.Split(strings.Trim(rule.Path, "/"), "/")
	var b strings.Builder
	b.WriteString("^")

	var names []string
	literals := 0
	for i, seg := range segs {
		if i > 0 {
			b.WriteString("/")
		}
		if m := paramSegment.FindStringSubmatch(seg); m != nil {
			names = append(names, m[1])
			b.WriteString(`([^/]+)`)
			continue
		}
		literals++
		b.WriteString(regexp.QuoteMeta(seg))
	}
	b.WriteString("$")

	return Compiled{
		Rule:         rule,
		pattern:      regexp.MustCompile(b.String()),
		paramNames:   names,
		segments:     len(segs),
		literals:     literals,
		insertionSeq: seq,
	}
}

// matches reports whether method+path resolve against this compiled rule,
// returning the extracted path parameters on success.
func (c Compiled) matches(method, path string) (map[string]string, bool) {
	if !strings.EqualFold(c.Rule.Method, method) {
		return nil, false
	}
	groups := c.pattern.FindStringSubmatch(strings.Trim(path, "/"))
	if groups == nil {
		// Path may legitimately be "/" (segments = [""]); try the raw form too.
		groups = c.pattern.FindStringSubmatch(path)
		if groups == nil {
			return nil, false
		}
	}
	params := make(map[string]string, len(c.paramNames))
	for i, name := range c.paramNames {
		if i+1 < len(groups) {
			params[name] = groups[i+1]
		}
	}
	return params, true
}

// sortCompiled orders by (segments desc, literals desc, insertion order asc)
// so that `/a/b/:x` wins over `/a/:y/:z`. The sort is total and stable.
func sortCompiled(entries []Compiled) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.segments != b.segments {
			return a.segments > b.segments
		}
		if a.literals != b.literals {
			return a.literals > b.literals
		}
		return a.insertionSeq < b.insertionSeq
	})
}
