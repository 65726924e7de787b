// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/a-h/templ"

	"codeberg.org/galaxy/console/server/utils"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

// render writes data as JSON for API clients and page as HTML for browsers.
func render(w http.ResponseWriter, r *http.Request, data any, page templ.Component) error {
	if utils.WantsJSON(r) {
		return writeJSON(w, http.StatusOK, data)
	}

	w.Header().Set("Content-Type", contentTypeHTML)

	if err := page.Render(r.Context(), w); err != nil {
		return fmt.Errorf("render page %s: %w", r.URL.Path, err)
	}

	return nil
}

// afterAction finishes a POST: JSON clients get data with status, HTML
// forms are sent to target with 303 See Other.
func afterAction(w http.ResponseWriter, r *http.Request, status int, data any, target string) error {
	if utils.WantsJSON(r) {
		return writeJSON(w, status, data)
	}

	http.Redirect(w, r, target, http.StatusSeeOther)

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}
