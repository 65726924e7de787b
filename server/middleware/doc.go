// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package middleware holds the handlers that run around every console view.

The router chains them in this order: WithServerTiming, AppendSlash,
set_request_context.WithRequestContext, SetResponseHeaders, limiter.Evaluate
(when enabled) and CheckCSRF. Views themselves are wrapped in CatchError,
which turns their errors into error pages and logs the request.
*/
package middleware
