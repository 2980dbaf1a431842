package internal

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderRx matches {name} and {name:hint} path template placeholders.
var placeholderRx = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)(?::([a-zA-Z]+))?\}`)

// paramSpec records a placeholder captured by a compiled pattern.
// The hint is informative only; value restriction happens via constraints.
type paramSpec struct {
	name string
	hint string
}

// pattern is a compiled path template: an anchored regexp with one capturing
// group per placeholder, plus the placeholder names in template order.
type pattern struct {
	rx     *regexp.Regexp
	params []paramSpec
}

// NormalizePath canonicalizes a request path or path template:
// strips any query string, ensures a single leading slash, collapses
// duplicate slashes, and strips the trailing slash. The root path "/" is
// preserved as-is, and an empty path normalizes to "/".
func NormalizePath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

// compilePattern turns a path template into a matcher. Literal segments must
// match exactly (case-sensitive); each placeholder matches one or more
// non-slash characters.
func compilePattern(template string) (*pattern, error) {
	tpl := NormalizePath(template)

	var sb strings.Builder
	sb.WriteByte('^')

	var params []paramSpec
	last := 0
	for _, m := range placeholderRx.FindAllStringSubmatchIndex(tpl, -1) {
		sb.WriteString(regexp.QuoteMeta(tpl[last:m[0]]))

		spec := paramSpec{name: tpl[m[2]:m[3]]}
		if m[4] >= 0 {
			spec.hint = tpl[m[4]:m[5]]
		}
		for _, p := range params {
			if p.name == spec.name {
				return nil, fmt.Errorf("duplicate path parameter %q in template %q", spec.name, template)
			}
		}
		params = append(params, spec)

		sb.WriteString(`([^/]+)`)
		last = m[1]
	}
	sb.WriteString(regexp.QuoteMeta(tpl[last:]))
	sb.WriteByte('$')

	rx, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("compile path template %q: %w", template, err)
	}

	return &pattern{rx: rx, params: params}, nil
}

// match tests a normalized request path against the pattern. On a hit it
// returns the captured parameters keyed by placeholder name. Constraints are
// a second pass: a captured value failing its anchored constraint regexp
// turns the whole match into a non-match, so the dispatcher keeps scanning.
func (p *pattern) match(path string, constraints map[string]*regexp.Regexp) (map[string]string, bool) {
	groups := p.rx.FindStringSubmatch(path)
	if groups == nil {
		return nil, false
	}

	var captured map[string]string
	if len(p.params) > 0 {
		captured = make(map[string]string, len(p.params))
	}
	for i, spec := range p.params {
		raw := groups[i+1]
		if rx, ok := constraints[spec.name]; ok && !rx.MatchString(raw) {
			return nil, false
		}
		captured[spec.name] = raw
	}
	return captured, true
}

// compileConstraint anchors a registered constraint fragment so the captured
// value must match it in full.
func compileConstraint(param, expr string) (*regexp.Regexp, error) {
	rx, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("compile constraint for %q: %w", param, err)
	}
	return rx, nil
}

// JoinPaths concatenates a group prefix and a route path, normalizing the
// slashes between them.
func JoinPaths(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return NormalizePath(path)
	}
	return NormalizePath(strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/"))
}
