// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"codeberg.org/galaxy/console/assets/views"
	"codeberg.org/galaxy/console/core/confstore"
	"codeberg.org/galaxy/console/core/endpointmanager"
	"codeberg.org/galaxy/console/core/galaxy"
	"codeberg.org/galaxy/console/server/utils"
)

// IndexPage renders the cluster dashboard.
func IndexPage(w http.ResponseWriter, r *http.Request) error {
	data := views.IndexData{Title: "Dashboard"}

	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		status, err := galaxy.GetClusterStatus(r.WithContext(ctx))
		if err != nil {
			return err
		}

		data.Cluster = status

		return nil
	})

	g.Go(func() error {
		services, err := galaxy.ListServices(r.WithContext(ctx))
		if err != nil {
			return err
		}

		data.Services = services

		return nil
	})

	g.Go(func() error {
		count, err := confstore.Default.Count(ctx)
		if err != nil {
			return err
		}

		data.ConfCount = count

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	return render(w, r, data, views.Index(data))
}

// healthBody is the JSON form of /healthz.
type healthBody struct {
	Status  string                          `json:"status"`
	Masters []endpointmanager.EndpointState `json:"masters"`
}

// Healthz reports liveness without touching the master. JSON clients also
// get the endpoint manager's view of each master.
func Healthz(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Cache-Control", "no-store")

	if utils.WantsJSON(r) {
		body := healthBody{Status: "ok", Masters: []endpointmanager.EndpointState{}}
		if endpointmanager.Default != nil {
			body.Masters = endpointmanager.Default.Snapshot()
		}

		return writeJSON(w, http.StatusOK, body)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	_, err := w.Write([]byte("ok\n"))

	return err
}
