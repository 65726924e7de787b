// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"strings"

	"codeberg.org/galaxy/console/server/middleware"
	"codeberg.org/galaxy/console/server/routes"
)

// Router dispatches requests through the URL table after running the middleware chain.
type Router struct {
	root Table

	middlewares []middleware.Middleware

	notFound http.Handler
}

// NewRouter creates a Router serving root.
func NewRouter(root Table) *Router {
	return &Router{
		root:     root,
		notFound: middleware.CatchError(routes.NotFound),
	}
}

// Use adds a middleware to the router's chain.
func (router *Router) Use(middleware middleware.Middleware) {
	router.middlewares = append(router.middlewares, middleware)
}

// Resolve looks up a request path, which starts with "/", in the URL table.
func (router *Router) Resolve(path string) (Match, bool) {
	rest, ok := strings.CutPrefix(path, "/")
	if !ok {
		return Match{}, false
	}

	return router.root.Resolve(rest)
}

// Resolves reports whether some view answers path.
func (router *Router) Resolves(path string) bool {
	_, ok := router.Resolve(path)

	return ok
}

// runs router.middlewares[i] and every thereafter
func (router *Router) serve(i int, w http.ResponseWriter, r *http.Request) {
	if i < len(router.middlewares) {
		router.middlewares[i](w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			router.serve(i+1, w, r)
		}))
	} else {
		router.dispatch(w, r)
	}
}

// runs all middleware
func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router.serve(0, w, r)
}

// dispatch hands the request to the view its path resolves to.
//
// Named groups of the matched patterns are readable with r.PathValue.
func (router *Router) dispatch(w http.ResponseWriter, r *http.Request) {
	match, ok := router.Resolve(r.URL.Path)
	if !ok {
		router.notFound.ServeHTTP(w, r)

		return
	}

	if !match.Allows(r.Method) {
		methodNotAllowed(match).ServeHTTP(w, r)

		return
	}

	for _, pv := range match.PathValues {
		r.SetPathValue(pv.Name, pv.Value)
	}

	match.Handler.ServeHTTP(w, r)
}

func methodNotAllowed(match Match) http.Handler {
	return middleware.CatchError(func(w http.ResponseWriter, _ *http.Request) error {
		w.Header().Set("Allow", match.Allow())

		return routes.ErrMethodNotAllowed
	})
}
