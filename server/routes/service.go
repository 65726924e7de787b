// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"codeberg.org/galaxy/console/assets/views"
	"codeberg.org/galaxy/console/core/galaxy"
)

// scaleBody is the JSON body of a service update.
type scaleBody struct {
	Replica    *int `json:"replica"`
	DeployStep int  `json:"deploy_step"`
}

// submitResult answers a submit from a JSON client.
type submitResult struct {
	ID string `json:"id"`
}

func serviceURL(id string) string {
	return "/service/" + url.PathEscape(id) + "/"
}

// ServiceListPage lists every service known to the master.
func ServiceListPage(w http.ResponseWriter, r *http.Request) error {
	services, err := galaxy.ListServices(r)
	if err != nil {
		return err
	}

	data := views.ServiceListData{
		Title:    "Services",
		Services: services,
	}

	return render(w, r, data, views.ServiceList(data))
}

// ServiceSubmit submits a new service from the description form or a JSON body.
func ServiceSubmit(w http.ResponseWriter, r *http.Request) error {
	var desc galaxy.ServiceDesc

	if isJSONRequest(r) {
		if err := decodeJSONBody(w, r, &desc); err != nil {
			return err
		}
	} else {
		if err := parseForm(w, r); err != nil {
			return err
		}

		parsed, err := parseDescForm(r.PostForm)
		if err != nil {
			return err
		}

		desc = parsed
	}

	id, err := galaxy.SubmitService(r, desc)
	if err != nil {
		return err
	}

	return afterAction(w, r, http.StatusCreated, submitResult{ID: id}, serviceURL(id))
}

// ServiceDetailPage shows a service together with its task groups.
func ServiceDetailPage(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")

	var (
		service    *galaxy.Service
		taskGroups []galaxy.TaskGroup
	)

	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		var err error

		service, err = galaxy.GetService(r.WithContext(ctx), id)

		return err
	})

	g.Go(func() error {
		var err error

		taskGroups, err = galaxy.ListTaskGroups(r.WithContext(ctx), id)

		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	data := views.ServiceDetailData{
		Title:      service.Desc.Name,
		Service:    service,
		TaskGroups: taskGroups,
	}

	return render(w, r, data, views.ServiceDetail(data))
}

// ServiceUpdate changes the replica count and deploy step of a service.
func ServiceUpdate(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")

	var replica, deployStep int

	if isJSONRequest(r) {
		var body scaleBody
		if err := decodeJSONBody(w, r, &body); err != nil {
			return err
		}

		if body.Replica == nil {
			return invalidField("replica", "is required")
		}

		replica, deployStep = *body.Replica, body.DeployStep
	} else {
		if err := parseForm(w, r); err != nil {
			return err
		}

		if r.PostForm.Get("replica") == "" {
			return invalidField("replica", "is required")
		}

		var problems formProblems

		replica = problems.intField(r.PostForm, "replica")
		deployStep = problems.intField(r.PostForm, "deploy_step")

		if err := problems.err(); err != nil {
			return err
		}
	}

	if err := galaxy.UpdateService(r, id, replica, deployStep); err != nil {
		return err
	}

	return afterAction(w, r, http.StatusOK, submitResult{ID: id}, serviceURL(id))
}

// ServiceKill stops every task group of a service.
func ServiceKill(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")

	if err := galaxy.KillService(r, id); err != nil {
		return err
	}

	return afterAction(w, r, http.StatusAccepted, submitResult{ID: id}, serviceURL(id))
}
