// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package partials

import (
	"strconv"

	"codeberg.org/galaxy/console/core/galaxy"
	"codeberg.org/galaxy/console/server/template"
)

type navLink struct {
	Path  string
	Label string
}

var navLinks = []navLink{
	{"/", "Dashboard"},
	{"/conf/", "Confs"},
	{"/service/", "Services"},
	{"/taskgroup/", "Task groups"},
}

var (
	serviceTypes      = []string{string(galaxy.LongRun), string(galaxy.Batch)}
	servicePriorities = []string{string(galaxy.Online), string(galaxy.Production), string(galaxy.Offline)}
)

// DescFormData configures DescForm.
type DescFormData struct {
	Action string
	Submit string
	Desc   galaxy.ServiceDesc

	// WithConf adds the conf name and description fields.
	WithConf        bool
	ConfName        string
	ConfDescription string
	// NameReadOnly hides the conf name, which cannot change after creation.
	NameReadOnly bool
}

func isCurrent(currentPath, linkPath string) bool {
	if linkPath == "/" {
		return currentPath == "/"
	}

	return template.IsFirstPathPart(currentPath, linkPath)
}

// taskRows is the tasks of desc plus one blank row for adding a task.
func taskRows(desc galaxy.ServiceDesc) []galaxy.TaskDesc {
	tasks := desc.Pod.Tasks

	return append(tasks[:len(tasks):len(tasks)], galaxy.TaskDesc{})
}

func quantity(millicores int64) string {
	if millicores == 0 {
		return ""
	}

	return strconv.FormatInt(millicores, 10) + "m"
}

func memory(b galaxy.Bytes) string {
	if b == 0 {
		return ""
	}

	return b.String()
}

func number(n int) string {
	if n == 0 {
		return ""
	}

	return strconv.Itoa(n)
}
