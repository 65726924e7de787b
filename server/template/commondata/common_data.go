// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package commondata

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/server/utils"
)

// PageCommonData holds values every console page needs.
//
// It is populated once per request and attached to the
// request_context.RequestContext.
type PageCommonData struct {
	// InstanceName is the cluster name shown in the header.
	InstanceName string

	// Version is the console release, shown in the footer.
	Version string

	// BaseURL is the origin URL (scheme + host) of the current request.
	BaseURL string

	// CurrentPath is the URL path of the request, e.g. "/service/web/".
	CurrentPath string

	// CurrentPathWithParams is the request URI including the query.
	CurrentPathWithParams string

	// Queries holds the first value of each query parameter.
	Queries map[string]string

	// CSRFToken is embedded in every form as csrf_token.
	CSRFToken string

	// FileServerCacheID busts browser caches of static assets across restarts.
	FileServerCacheID string

	InDevelopment bool
}

// TokenSigner issues an action token for a form.
type TokenSigner func() (string, error)

// PopulatePageCommonData fills data from the request and the global config.
func PopulatePageCommonData(r *http.Request, data *PageCommonData, signToken TokenSigner) {
	data.InstanceName = config.Global.Instance.Name
	data.Version = config.BuildVersion
	data.BaseURL = utils.GetOriginFromRequest(r)
	data.CurrentPath = r.URL.Path
	data.CurrentPathWithParams = r.URL.RequestURI()
	data.FileServerCacheID = config.Global.Instance.FileServerCacheID
	data.InDevelopment = config.Global.Development.InDevelopment

	data.Queries = make(map[string]string)

	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			data.Queries[k] = v[0]
		}
	}

	if signToken == nil {
		return
	}

	token, err := signToken()
	if err != nil {
		log.Err(err).
			Msg("Failed to sign form token")

		return
	}

	data.CSRFToken = token
}
