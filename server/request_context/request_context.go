// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package request_context provides per-request state for HTTP handlers.

This package is separate because Go disallows a cyclic import graph.
*/
package request_context

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"codeberg.org/galaxy/console/core/idgen"
	"codeberg.org/galaxy/console/server/template/commondata"
)

// SupportedLocales are the locales numbers and dates are formatted for.
// The first entry is the fallback.
var SupportedLocales = []language.Tag{
	language.English,
	language.German,
	language.French,
	language.Japanese,
	language.SimplifiedChinese,
}

var localeMatcher = language.NewMatcher(SupportedLocales)

// RequestContext carries request-scoped data through the middleware chain.
type RequestContext struct {
	// RequestID identifies the request in logs and in master call spans.
	RequestID string

	// RequestError is set by middleware.CatchError when a handler fails.
	RequestError error

	// StatusCode is the response status. Defaults to 200 OK.
	StatusCode int

	CommonData commondata.PageCommonData

	// Lang is the best supported match for Accept-Language.
	Lang language.Tag

	// Printer formats numbers for Lang.
	Printer *message.Printer
}

type requestContextKeyType struct{}

var requestContextKey = requestContextKeyType{}

// WithRequestContext initializes a new request context and attaches it to ctx.
func WithRequestContext(ctx context.Context, r *http.Request, signToken commondata.TokenSigner) context.Context {
	lang := MatchLocale(r.Header.Get("Accept-Language"))

	rc := RequestContext{
		RequestID:  idgen.Make(),
		StatusCode: http.StatusOK,
		Lang:       lang,
		Printer:    message.NewPrinter(lang),
	}
	commondata.PopulatePageCommonData(r, &rc.CommonData, signToken)

	return context.WithValue(ctx, requestContextKey, &rc)
}

// MatchLocale picks the supported locale closest to an Accept-Language header.
func MatchLocale(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return SupportedLocales[0]
	}

	_, index, _ := localeMatcher.Match(tags...)

	return SupportedLocales[index]
}

// FromContext extracts the RequestContext from a context, always returning
// a valid pointer.
//
// Without one, a zero-value instance with an English printer is returned.
func FromContext(ctx context.Context) *RequestContext {
	if v := ctx.Value(requestContextKey); v != nil {
		if rc, ok := v.(*RequestContext); ok {
			return rc
		}
	}

	return &RequestContext{
		StatusCode: http.StatusOK,
		Lang:       SupportedLocales[0],
		Printer:    message.NewPrinter(SupportedLocales[0]),
	}
}

// FromRequest is FromContext for r.Context().
func FromRequest(r *http.Request) *RequestContext {
	return FromContext(r.Context())
}
