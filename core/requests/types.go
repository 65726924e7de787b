// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package requests

import (
	"net/http"
)

// RequestOptions describe one call to the master gateway.
type RequestOptions struct {
	Method string

	// Path is relative to the gateway root and may carry a query, e.g. "/api/taskgroups?service=web".
	Path string

	// Payload is JSON encoded as the request body. Only used for POST.
	Payload any

	// IncomingHeaders are the headers of the console request that caused this call.
	// Only Cache-Control is consulted.
	IncomingHeaders http.Header
}
