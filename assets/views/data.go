// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package views holds the console pages. Each page takes a data struct that
doubles as the JSON answer for API clients.
*/
package views

import (
	"codeberg.org/galaxy/console/core/confstore"
	"codeberg.org/galaxy/console/core/galaxy"
)

type IndexData struct {
	Title     string                `json:"-"`
	Cluster   *galaxy.ClusterStatus `json:"cluster"`
	Services  []galaxy.Service      `json:"services"`
	ConfCount int                   `json:"conf_count"`
}

type ConfListData struct {
	Title string           `json:"-"`
	Confs []confstore.Conf `json:"confs"`
}

type ConfDetailData struct {
	Title string
	Conf  *confstore.Conf
	// YAML is the exported document, shown for copying.
	YAML string
}

type ServiceListData struct {
	Title    string           `json:"-"`
	Services []galaxy.Service `json:"services"`
}

type ServiceDetailData struct {
	Title      string             `json:"-"`
	Service    *galaxy.Service    `json:"service"`
	TaskGroups []galaxy.TaskGroup `json:"taskgroups"`
}

type TaskGroupListData struct {
	Title      string             `json:"-"`
	ServiceID  string             `json:"service_id,omitempty"`
	TaskGroups []galaxy.TaskGroup `json:"taskgroups"`
}

type TaskGroupDetailData struct {
	Title     string
	TaskGroup *galaxy.TaskGroup
}

type ErrorData struct {
	Title      string
	Error      error
	StatusCode int
	RequestID  string
	Problems   []galaxy.FieldError
}
