// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package fragments holds small helpers shared by the templ components.
package fragments

import (
	"context"

	"codeberg.org/galaxy/console/server/request_context"
	"codeberg.org/galaxy/console/server/template/commondata"
)

// CommonData is the per-request page data stored by the request context
// middleware.
func CommonData(ctx context.Context) commondata.PageCommonData {
	return request_context.FromContext(ctx).CommonData
}
