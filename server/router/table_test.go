// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noop = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

func TestMustCompileAnchors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "^conf/", MustCompile("conf/").String())
	assert.Equal(t, "^conf/", MustCompile("^conf/").String())
	assert.False(t, MustCompile("conf/").MatchString("xconf/"))
	assert.Panics(t, func() { MustCompile("(") })
}

func TestHandleAddsHead(t *testing.T) {
	t.Parallel()

	methods := make([]string, 1, 4)
	methods[0] = http.MethodGet

	rule := Handle(`^$`, noop, methods...)
	assert.Equal(t, []string{http.MethodGet, http.MethodHead}, rule.methods)
	assert.Equal(t, []string{http.MethodGet}, methods, "caller slice untouched")

	assert.Equal(t, []string{http.MethodPost}, Handle(`^$`, noop, http.MethodPost).methods)
	assert.Empty(t, Handle(`^$`, noop).methods)
}

func TestResolveFirstMatchWins(t *testing.T) {
	t.Parallel()

	table := Table{
		Handle(`^a`, noop).Named("first"),
		Handle(`^ab$`, noop).Named("second"),
	}

	match, ok := table.Resolve("ab")
	require.True(t, ok)
	assert.Equal(t, "first", match.Name)
	assert.Equal(t, "b", match.Remaining)
}

func TestResolveIncludeStripsPrefix(t *testing.T) {
	t.Parallel()

	inner := Table{
		Handle(`^$`, noop).Named("list"),
		Handle(`^(?P<id>[^/]+)/kill$`, noop, http.MethodPost).Named("kill"),
	}

	table := Table{
		Handle(`^$`, noop).Named("index"),
		Include(`^service/`, inner),
	}

	match, ok := table.Resolve("service/")
	require.True(t, ok)
	assert.Equal(t, "list", match.Name)

	match, ok = table.Resolve("service/web/kill")
	require.True(t, ok)
	assert.Equal(t, "kill", match.Name)
	assert.Equal(t, []PathValue{{Name: "id", Value: "web"}}, match.PathValues)
	assert.Equal(t, []string{http.MethodPost}, match.Methods)

	match, ok = table.Resolve("")
	require.True(t, ok)
	assert.Equal(t, "index", match.Name)

	_, ok = table.Resolve("service")
	assert.False(t, ok)

	_, ok = table.Resolve("service/web/")
	assert.False(t, ok)
}

func TestResolveIncludeFallsThrough(t *testing.T) {
	t.Parallel()

	table := Table{
		Include(`^conf/`, Table{Handle(`^$`, noop).Named("conf-list")}),
		Handle(`^conf/legacy$`, noop).Named("legacy"),
	}

	match, ok := table.Resolve("conf/legacy")
	require.True(t, ok)
	assert.Equal(t, "legacy", match.Name)
}

func TestResolveAccumulatesPathValues(t *testing.T) {
	t.Parallel()

	table := Table{
		Include(`^(?P<cluster>[a-z]+)/`, Table{
			Include(`^service/(?P<id>[^/]+)/`, Table{
				Handle(`^task/(?P<task>\d+)$`, noop).Named("task"),
			}),
		}),
	}

	match, ok := table.Resolve("east/service/web/task/3")
	require.True(t, ok)
	assert.Equal(t, []PathValue{
		{Name: "cluster", Value: "east"},
		{Name: "id", Value: "web"},
		{Name: "task", Value: "3"},
	}, match.PathValues)
}

func TestMatchAllow(t *testing.T) {
	t.Parallel()

	open := Match{}
	assert.True(t, open.Allows(http.MethodDelete))

	getOnly := Match{Methods: []string{http.MethodGet, http.MethodHead}}
	assert.True(t, getOnly.Allows(http.MethodHead))
	assert.False(t, getOnly.Allows(http.MethodPost))
	assert.Equal(t, "GET, HEAD", getOnly.Allow())
}
