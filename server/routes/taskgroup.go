// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"net/url"

	"codeberg.org/galaxy/console/assets/views"
	"codeberg.org/galaxy/console/core/galaxy"
	"codeberg.org/galaxy/console/server/utils"
)

func taskGroupURL(id string) string {
	return "/taskgroup/" + url.PathEscape(id) + "/"
}

// TaskGroupListPage lists task groups, optionally those of one service (?service=<id>).
func TaskGroupListPage(w http.ResponseWriter, r *http.Request) error {
	serviceID := utils.GetQueryParam(r, "service")

	taskGroups, err := galaxy.ListTaskGroups(r, serviceID)
	if err != nil {
		return err
	}

	data := views.TaskGroupListData{
		Title:      "Task groups",
		ServiceID:  serviceID,
		TaskGroups: taskGroups,
	}

	return render(w, r, data, views.TaskGroupList(data))
}

// TaskGroupDetailPage shows a task group and its tasks.
func TaskGroupDetailPage(w http.ResponseWriter, r *http.Request) error {
	taskGroup, err := galaxy.GetTaskGroup(r, r.PathValue("id"))
	if err != nil {
		return err
	}

	data := views.TaskGroupDetailData{
		Title:     taskGroup.ID,
		TaskGroup: taskGroup,
	}

	return render(w, r, taskGroup, views.TaskGroupDetail(data))
}

// TaskGroupKill stops one task group. HTML forms may pass a "next" path to
// return to, such as the owning service page.
func TaskGroupKill(w http.ResponseWriter, r *http.Request) error {
	id := r.PathValue("id")

	if err := galaxy.KillTaskGroup(r, id); err != nil {
		return err
	}

	target := utils.LocalRedirectTarget(utils.GetFormValue(r, "next"), taskGroupURL(id))

	return afterAction(w, r, http.StatusAccepted, submitResult{ID: id}, target)
}
