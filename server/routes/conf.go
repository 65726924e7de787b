// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/assets/views"
	"codeberg.org/galaxy/console/core/confstore"
	"codeberg.org/galaxy/console/core/galaxy"
	"codeberg.org/galaxy/console/server/utils"
)

// confRequest is the JSON body of conf create and update calls.
type confRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Desc        galaxy.ServiceDesc `json:"desc"`
}

// launchResult answers a launch from a JSON client.
type launchResult struct {
	ConfID    string `json:"conf_id"`
	ServiceID string `json:"service_id"`
}

func confURL(id string) string {
	return "/conf/" + url.PathEscape(id) + "/"
}

func readConfRequest(w http.ResponseWriter, r *http.Request) (confRequest, error) {
	var req confRequest

	if isJSONRequest(r) {
		if err := decodeJSONBody(w, r, &req); err != nil {
			return req, err
		}

		return req, nil
	}

	if err := parseForm(w, r); err != nil {
		return req, err
	}

	desc, err := parseDescForm(r.PostForm)
	if err != nil {
		return req, err
	}

	req.Name = strings.TrimSpace(r.PostFormValue("conf_name"))
	req.Description = strings.TrimSpace(r.PostFormValue("description"))
	req.Desc = desc

	return req, nil
}

// ConfListPage lists the saved confs.
func ConfListPage(w http.ResponseWriter, r *http.Request) error {
	confs, err := confstore.Default.List(r.Context())
	if err != nil {
		return err
	}

	data := views.ConfListData{
		Title: "Saved confs",
		Confs: confs,
	}

	return render(w, r, data, views.ConfList(data))
}

// ConfCreate saves a new conf from the description form or a JSON body.
func ConfCreate(w http.ResponseWriter, r *http.Request) error {
	req, err := readConfRequest(w, r)
	if err != nil {
		return err
	}

	conf, err := confstore.Default.Create(r.Context(), req.Name, req.Description, req.Desc)
	if err != nil {
		return err
	}

	return afterAction(w, r, http.StatusCreated, conf, confURL(conf.ID))
}

// ConfImport saves a new conf from a YAML document.
func ConfImport(w http.ResponseWriter, r *http.Request) error {
	doc, err := readDocument(w, r)
	if err != nil {
		return err
	}

	conf, err := confstore.Default.ImportYAML(r.Context(), doc)
	if err != nil {
		return err
	}

	log.Info().
		Str("conf", conf.ID).
		Str("name", conf.Name).
		Msg("Imported conf")

	return afterAction(w, r, http.StatusCreated, conf, confURL(conf.ID))
}

// ConfDetailPage shows a conf, its YAML form and the edit form.
func ConfDetailPage(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")

	conf, err := confstore.Default.Get(r.Context(), id)
	if err != nil {
		return err
	}

	doc, _, err := confstore.Default.ExportYAML(r.Context(), id)
	if err != nil {
		return err
	}

	data := views.ConfDetailData{
		Title: conf.Name,
		Conf:  conf,
		YAML:  string(doc),
	}

	return render(w, r, conf, views.ConfDetail(data))
}

// ConfUpdate replaces the description and service desc of a conf.
func ConfUpdate(w http.ResponseWriter, r *http.Request) error {
	req, err := readConfRequest(w, r)
	if err != nil {
		return err
	}

	conf, err := confstore.Default.Update(r.Context(), r.PathValue("id"), req.Description, req.Desc)
	if err != nil {
		return err
	}

	return afterAction(w, r, http.StatusOK, conf, confURL(conf.ID))
}

// ConfDelete removes a conf.
func ConfDelete(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")

	if err := confstore.Default.Delete(r.Context(), id); err != nil {
		return err
	}

	if utils.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)

		return nil
	}

	http.Redirect(w, r, "/conf/", http.StatusSeeOther)

	return nil
}

// ConfExport downloads a conf as a YAML document.
func ConfExport(w http.ResponseWriter, r *http.Request) error {
	doc, filename, err := confstore.Default.ExportYAML(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Cache-Control", "no-store")

	_, err = w.Write(doc)

	return err
}

// ConfLaunch submits the service desc of a conf to the master.
func ConfLaunch(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")

	conf, err := confstore.Default.Get(r.Context(), id)
	if err != nil {
		return err
	}

	serviceID, err := galaxy.SubmitService(r, conf.Desc)
	if err != nil {
		return err
	}

	// the service is already submitted, so this is not fatal
	if err := confstore.Default.RecordLaunch(r.Context(), id, serviceID); err != nil {
		log.Warn().
			Err(err).
			Str("conf", id).
			Str("service", serviceID).
			Msg("Failed to record conf launch")
	}

	return afterAction(w, r, http.StatusCreated, launchResult{ConfID: id, ServiceID: serviceID}, serviceURL(serviceID))
}
