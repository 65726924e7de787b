// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"codeberg.org/galaxy/console/core/galaxy"
)

// maxBodyBytes bounds request bodies, including uploaded conf documents.
const maxBodyBytes = 1 << 20

var errEmptyDocument = errors.New("empty document")

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}

	return mt
}

func isJSONRequest(r *http.Request) bool {
	return mediaType(r) == "application/json"
}

// decodeJSONBody decodes a JSON request body into v. Malformed bodies are
// validation errors so that clients get a 400.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return invalidField("body", err.Error())
	}

	return nil
}

func invalidField(field, reason string) error {
	return &galaxy.ValidationError{Problems: []galaxy.FieldError{{Field: field, Reason: reason}}}
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := r.ParseForm(); err != nil {
		return NewStatusError(http.StatusBadRequest, fmt.Errorf("parse form: %w", err))
	}

	return nil
}

// formProblems collects field errors while a form is read.
type formProblems struct {
	galaxy.ValidationError
}

func (p *formProblems) add(field, reason string) {
	p.Problems = append(p.Problems, galaxy.FieldError{Field: field, Reason: reason})
}

func (p *formProblems) err() error {
	if len(p.Problems) == 0 {
		return nil
	}

	return &p.ValidationError
}

func (p *formProblems) intField(form url.Values, field string) int {
	raw := strings.TrimSpace(form.Get(field))
	if raw == "" {
		return 0
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		p.add(field, "must be a whole number")
	}

	return n
}

func (p *formProblems) resourceField(field, cpu, memory string) galaxy.Resource {
	var res galaxy.Resource

	millicores, err := galaxy.ParseMillicores(cpu)
	if err != nil {
		p.add(field+".millicores", err.Error())
	}

	bytes, err := galaxy.ParseBytes(memory)
	if err != nil {
		p.add(field+".memory", err.Error())
	}

	res.Millicores = millicores
	res.Memory = bytes

	return res
}

func valueAt(values []string, i int) string {
	if i < len(values) {
		return strings.TrimSpace(values[i])
	}

	return ""
}

// parseDescForm reads a service description from the fields rendered by the
// description form. Task rows with an empty package are ignored.
func parseDescForm(form url.Values) (galaxy.ServiceDesc, error) {
	var problems formProblems

	desc := galaxy.ServiceDesc{
		Name:     strings.TrimSpace(form.Get("name")),
		Type:     galaxy.ServiceType(form.Get("type")),
		Priority: galaxy.Priority(form.Get("priority")),
	}
	desc.Replica = problems.intField(form, "replica")
	desc.DeployStep = problems.intField(form, "deploy_step")
	desc.Pod.Requirement = problems.resourceField("pod.requirement", form.Get("cpu"), form.Get("memory"))

	for i, pkg := range form["task_package"] {
		if strings.TrimSpace(pkg) == "" {
			continue
		}

		field := fmt.Sprintf("pod.tasks[%d]", len(desc.Pod.Tasks))

		desc.Pod.Tasks = append(desc.Pod.Tasks, galaxy.TaskDesc{
			Package:      strings.TrimSpace(pkg),
			StartCommand: valueAt(form["task_start_command"], i),
			StopCommand:  valueAt(form["task_stop_command"], i),
			Requirement: problems.resourceField(field+".requirement",
				valueAt(form["task_cpu"], i), valueAt(form["task_memory"], i)),
		})
	}

	return desc, problems.err()
}

// readDocument returns the YAML document of an import request. It comes from
// an uploaded "file", a "document" form field, or the raw request body.
func readDocument(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var (
		data []byte
		err  error
	)

	switch mediaType(r) {
	case "multipart/form-data":
		if err = r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, NewStatusError(http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		}

		file, _, fileErr := r.FormFile("file")
		if fileErr != nil {
			data = []byte(r.PostFormValue("document"))

			break
		}
		defer file.Close()

		data, err = io.ReadAll(file)
	case "application/x-www-form-urlencoded":
		if err = r.ParseForm(); err != nil {
			return nil, NewStatusError(http.StatusBadRequest, fmt.Errorf("parse form: %w", err))
		}

		data = []byte(r.PostFormValue("document"))
	default:
		data, err = io.ReadAll(r.Body)
	}

	if err != nil {
		return nil, NewStatusError(http.StatusBadRequest, fmt.Errorf("read document: %w", err))
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, invalidField("document", errEmptyDocument.Error())
	}

	return data, nil
}
