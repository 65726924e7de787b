// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package galaxy is the console's client for the Galaxy master gateway.

Reads go through the shared response cache. Every mutation drops the cached
service and task group listings so that the next page shows fresh state.
*/
package galaxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"codeberg.org/galaxy/console/core/requests"
)

var errMissingServiceID = errors.New("master accepted the service but returned no id")

// invalidateAfterMutation lists the cached paths a mutation may have made stale.
var invalidateAfterMutation = []string{ClusterPath, ServicesPath, TaskGroupsPath}

// GetClusterStatus fetches the cluster summary.
func GetClusterStatus(r *http.Request) (*ClusterStatus, error) {
	resp, err := requests.GetJSONBody(r.Context(), GetClusterURL(), r.Header)
	if err != nil {
		return nil, err
	}

	var status ClusterStatus
	if err := json.Unmarshal(resp, &status); err != nil {
		return nil, fmt.Errorf("failed to decode cluster status: %w", err)
	}

	return &status, nil
}

// ListServices fetches every service, sorted by name.
func ListServices(r *http.Request) ([]Service, error) {
	resp, err := requests.GetJSONBody(r.Context(), GetServicesURL(), r.Header)
	if err != nil {
		return nil, err
	}

	services, err := decodeList[Service](resp, "services")
	if err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}

	slices.SortFunc(services, func(a, b Service) int {
		return strings.Compare(a.Desc.Name, b.Desc.Name)
	})

	return services, nil
}

// GetService fetches one service.
func GetService(r *http.Request, id string) (*Service, error) {
	resp, err := requests.GetJSONBody(r.Context(), GetServiceURL(id), r.Header)
	if err != nil {
		return nil, err
	}

	var service Service
	if err := json.Unmarshal(resp, &service); err != nil {
		return nil, fmt.Errorf("failed to decode service %s: %w", id, err)
	}

	return &service, nil
}

// ListTaskGroups fetches task groups, limited to one service when serviceID is set.
func ListTaskGroups(r *http.Request, serviceID string) ([]TaskGroup, error) {
	path := GetTaskGroupsURL()
	if serviceID != "" {
		path = GetServiceTaskGroupsURL(serviceID)
	}

	resp, err := requests.GetJSONBody(r.Context(), path, r.Header)
	if err != nil {
		return nil, err
	}

	groups, err := decodeList[TaskGroup](resp, "taskgroups")
	if err != nil {
		return nil, fmt.Errorf("failed to decode task groups: %w", err)
	}

	slices.SortFunc(groups, func(a, b TaskGroup) int {
		if c := strings.Compare(a.ServiceID, b.ServiceID); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return groups, nil
}

// GetTaskGroup fetches one task group with its tasks.
func GetTaskGroup(r *http.Request, id string) (*TaskGroup, error) {
	resp, err := requests.GetJSONBody(r.Context(), GetTaskGroupURL(id), r.Header)
	if err != nil {
		return nil, err
	}

	var group TaskGroup
	if err := json.Unmarshal(resp, &group); err != nil {
		return nil, fmt.Errorf("failed to decode task group %s: %w", id, err)
	}

	return &group, nil
}

// SubmitService normalizes and validates desc, submits it and returns the new service id.
func SubmitService(r *http.Request, desc ServiceDesc) (string, error) {
	desc.Normalize()

	if err := desc.Validate(); err != nil {
		return "", err
	}

	resp, err := requests.PostJSONBody(r.Context(), PostSubmitServiceURL(), desc)
	if err != nil {
		return "", err
	}

	invalidate()

	id := gjson.GetBytes(resp, "id").String()
	if id == "" {
		return "", errMissingServiceID
	}

	log.Info().
		Str("service", desc.Name).
		Str("id", id).
		Int("replica", desc.Replica).
		Msg("Submitted service")

	return id, nil
}

// scaleRequest is the body of an update call.
type scaleRequest struct {
	Replica    int `json:"replica"`
	DeployStep int `json:"deploy_step"`
}

// UpdateService changes the replica count and deploy step of a service.
// A zero deployStep means "all at once".
func UpdateService(r *http.Request, id string, replica, deployStep int) error {
	if deployStep == 0 {
		deployStep = replica
	}

	if err := ValidateScale(replica, deployStep); err != nil {
		return err
	}

	if _, err := requests.PostJSONBody(r.Context(), PostUpdateServiceURL(id), scaleRequest{
		Replica:    replica,
		DeployStep: deployStep,
	}); err != nil {
		return err
	}

	invalidate()

	log.Info().
		Str("id", id).
		Int("replica", replica).
		Int("deploy_step", deployStep).
		Msg("Updated service")

	return nil
}

// KillService asks the master to stop every task group of a service.
func KillService(r *http.Request, id string) error {
	if _, err := requests.PostJSONBody(r.Context(), PostKillServiceURL(id), nil); err != nil {
		return err
	}

	invalidate()

	log.Info().
		Str("id", id).
		Msg("Killed service")

	return nil
}

// KillTaskGroup asks the master to stop one task group. The master
// reschedules it when the service still wants the replica.
func KillTaskGroup(r *http.Request, id string) error {
	if _, err := requests.PostJSONBody(r.Context(), PostKillTaskGroupURL(id), nil); err != nil {
		return err
	}

	invalidate()

	log.Info().
		Str("id", id).
		Msg("Killed task group")

	return nil
}

func invalidate() {
	requests.InvalidatePaths(invalidateAfterMutation...)
}

// decodeList reads the array under key, accepting a bare array as well.
func decodeList[T any](resp []byte, key string) ([]T, error) {
	raw := gjson.GetBytes(resp, key)
	if !raw.Exists() {
		raw = gjson.ParseBytes(resp)
	}

	if !raw.IsArray() {
		return []T{}, nil
	}

	items := make([]T, 0, len(raw.Array()))
	if err := json.Unmarshal([]byte(raw.Raw), &items); err != nil {
		return nil, err
	}

	return items, nil
}
