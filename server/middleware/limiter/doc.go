// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package limiter is a middleware that rate limits console requests per client network.
*/
package limiter
