// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package galaxy

import (
	"net/url"
)

// Master gateway paths. They are relative to a master endpoint.
const (
	ClusterPath    = "/api/cluster"
	ServicesPath   = "/api/services"
	TaskGroupsPath = "/api/taskgroups"
)

// GET endpoints

func GetClusterURL() string {
	return ClusterPath
}

func GetServicesURL() string {
	return ServicesPath
}

func GetServiceURL(id string) string {
	return ServicesPath + "/" + url.PathEscape(id)
}

func GetServiceTaskGroupsURL(serviceID string) string {
	return GetServiceURL(serviceID) + "/taskgroups"
}

func GetTaskGroupsURL() string {
	return TaskGroupsPath
}

func GetTaskGroupURL(id string) string {
	return TaskGroupsPath + "/" + url.PathEscape(id)
}

// POST endpoints

func PostSubmitServiceURL() string {
	return ServicesPath
}

func PostUpdateServiceURL(id string) string {
	return GetServiceURL(id) + "/update"
}

func PostKillServiceURL(id string) string {
	return GetServiceURL(id) + "/kill"
}

func PostKillTaskGroupURL(id string) string {
	return GetTaskGroupURL(id) + "/kill"
}
