// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package views

import (
	"context"

	"codeberg.org/galaxy/console/core/galaxy"
	"codeberg.org/galaxy/console/server/template"
)

func confPath(id, action string) string {
	return "/conf/" + template.PathEscape(id) + "/" + action
}

func servicePath(id string) string {
	return "/service/" + template.PathEscape(id) + "/"
}

func taskGroupPath(id string) string {
	return "/taskgroup/" + template.PathEscape(id) + "/"
}

func replicaCounts(svc galaxy.Service) []int {
	return []int{svc.Desc.Replica, svc.Replicas.Running, svc.Replicas.Pending, svc.Replicas.Deploying, svc.Replicas.Death}
}

func cpuNote(ctx context.Context, c *galaxy.ClusterStatus) string {
	return template.FormatPercent(ctx, c.AssignedPercent()) + " assigned, " + template.FormatMillicores(c.Used.Millicores) + " used"
}

// usage renders "used / required" for one resource dimension.
func usage(used, required string) string {
	return used + " / " + required
}

func requirement(r galaxy.Resource) string {
	return template.FormatMillicores(r.Millicores) + ", " + template.FormatBytes(r.Memory)
}
