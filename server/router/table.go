// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"regexp"
	"slices"
	"strings"
)

// Rule maps a URL pattern to either a view or a nested Table.
//
// Patterns see the request path without its leading "/" and are anchored at
// the start. A view rule must match the whole remaining path unless its
// pattern leaves the end open; an include rule consumes the matched prefix
// and hands the rest to the nested table.
type Rule struct {
	Pattern *regexp.Regexp

	// Name identifies a view rule in logs and tests.
	Name string

	// exactly one of handler and include is set
	handler http.Handler
	include Table

	// methods the view accepts; empty means any
	methods []string
}

// Table is an ordered list of rules. The first rule whose pattern matches wins.
type Table []Rule

// Match is the outcome of resolving a path against a Table.
type Match struct {
	Handler http.Handler

	// Name is the name of the view rule that matched.
	Name string

	// Remaining is whatever the view pattern left unmatched.
	Remaining string

	// PathValues holds the named groups of every pattern on the way down,
	// in match order. A deeper group shadows an outer one with the same name.
	PathValues []PathValue

	// Methods lists the methods the view accepts; nil means any.
	Methods []string
}

// PathValue is one named group captured while resolving.
type PathValue struct {
	Name  string
	Value string
}

// MustCompile compiles a URL pattern, anchoring it at the start of the path.
// It panics on an invalid expression.
func MustCompile(pattern string) *regexp.Regexp {
	if !strings.HasPrefix(pattern, "^") {
		pattern = "^" + pattern
	}

	return regexp.MustCompile(pattern)
}

// Handle returns a rule that dispatches matching paths to handler.
//
// GET implies HEAD.
func Handle(pattern string, handler http.Handler, methods ...string) Rule {
	if slices.Contains(methods, http.MethodGet) && !slices.Contains(methods, http.MethodHead) {
		methods = append(slices.Clip(methods), http.MethodHead)
	}

	return Rule{
		Pattern: MustCompile(pattern),
		handler: handler,
		methods: methods,
	}
}

// HandleFunc is Handle for a plain handler function.
func HandleFunc(pattern string, handler http.HandlerFunc, methods ...string) Rule {
	return Handle(pattern, handler, methods...)
}

// Named returns a copy of rule with its name set.
func (rule Rule) Named(name string) Rule {
	rule.Name = name

	return rule
}

// Include returns a rule that delegates everything after the matched prefix to table.
func Include(pattern string, table Table) Rule {
	return Rule{
		Pattern: MustCompile(pattern),
		include: table,
	}
}

// Resolve walks the table for path, which must not start with "/".
func (table Table) Resolve(path string) (Match, bool) {
	return table.resolve(path, nil)
}

func (table Table) resolve(path string, values []PathValue) (Match, bool) {
	for _, rule := range table {
		loc := rule.Pattern.FindStringSubmatchIndex(path)
		if loc == nil {
			continue
		}

		captured := appendPathValues(values, rule.Pattern, path, loc)
		rest := path[loc[1]:]

		if rule.include != nil {
			if match, ok := rule.include.resolve(rest, captured); ok {
				return match, true
			}

			// a prefix whose table knows nothing of the rest falls through
			continue
		}

		return Match{
			Handler:    rule.handler,
			Name:       rule.Name,
			Remaining:  rest,
			PathValues: captured,
			Methods:    rule.methods,
		}, true
	}

	return Match{}, false
}

func appendPathValues(values []PathValue, pattern *regexp.Regexp, path string, loc []int) []PathValue {
	names := pattern.SubexpNames()

	var out []PathValue

	for i, name := range names {
		if i == 0 || name == "" || loc[2*i] < 0 {
			continue
		}

		if out == nil {
			out = slices.Clone(values)
		}

		out = append(out, PathValue{Name: name, Value: path[loc[2*i]:loc[2*i+1]]})
	}

	if out == nil {
		return values
	}

	return out
}

// Allows reports whether the matched view accepts method.
func (match Match) Allows(method string) bool {
	return len(match.Methods) == 0 || slices.Contains(match.Methods, method)
}

// Allow is the value of the Allow header for a 405 answer.
func (match Match) Allow() string {
	return strings.Join(match.Methods, ", ")
}
