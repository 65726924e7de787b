// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package galaxy

import "time"

// ServiceType tells the master how to treat finished task groups.
type ServiceType string

const (
	LongRun ServiceType = "LongRun"
	Batch   ServiceType = "Batch"
)

// Priority orders services when the cluster is short of resources.
type Priority string

const (
	Production Priority = "Production"
	Online     Priority = "Service"
	Offline    Priority = "Offline"
)

// ServiceState is the lifecycle state of a service.
type ServiceState string

const (
	ServicePending  ServiceState = "Pending"
	ServiceRunning  ServiceState = "Running"
	ServiceUpdating ServiceState = "Updating"
	ServiceKilling  ServiceState = "Killing"
	ServiceFinished ServiceState = "Finished"
)

// TaskGroupState is the lifecycle state of a pod on an agent.
type TaskGroupState string

const (
	TaskGroupPending     TaskGroupState = "Pending"
	TaskGroupDeploying   TaskGroupState = "Deploying"
	TaskGroupRunning     TaskGroupState = "Running"
	TaskGroupTerminating TaskGroupState = "Terminating"
	TaskGroupFinished    TaskGroupState = "Finished"
	TaskGroupFailed      TaskGroupState = "Failed"
)

// Resource is a cpu and memory amount.
type Resource struct {
	Millicores int64 `json:"millicores" yaml:"millicores"`
	Memory     Bytes `json:"memory"     yaml:"memory"`
}

// Add returns r + o.
func (r Resource) Add(o Resource) Resource {
	return Resource{Millicores: r.Millicores + o.Millicores, Memory: r.Memory + o.Memory}
}

// Fits reports whether r is no larger than limit in every dimension.
func (r Resource) Fits(limit Resource) bool {
	return r.Millicores <= limit.Millicores && r.Memory <= limit.Memory
}

// TaskDesc describes one process of a pod.
type TaskDesc struct {
	// Package is the URL the agent fetches the task binary package from.
	Package      string   `json:"package"       yaml:"package"`
	StartCommand string   `json:"start_command" yaml:"startCommand"`
	StopCommand  string   `json:"stop_command"  yaml:"stopCommand,omitempty"`
	Requirement  Resource `json:"requirement"   yaml:"requirement"`
}

// PodDesc is the template of every task group of a service.
type PodDesc struct {
	Requirement Resource   `json:"requirement" yaml:"requirement"`
	Tasks       []TaskDesc `json:"tasks"       yaml:"tasks"`
}

// ServiceDesc is what a user submits to the master.
type ServiceDesc struct {
	Name       string      `json:"name"        yaml:"name"`
	Type       ServiceType `json:"type"        yaml:"type"`
	Replica    int         `json:"replica"     yaml:"replica"`
	DeployStep int         `json:"deploy_step" yaml:"deployStep"`
	Priority   Priority    `json:"priority"    yaml:"priority"`
	Pod        PodDesc     `json:"pod"         yaml:"pod"`
}

// ReplicaCounts breaks a service's task groups down by progress.
type ReplicaCounts struct {
	Running   int `json:"running"`
	Pending   int `json:"pending"`
	Deploying int `json:"deploying"`
	Death     int `json:"death"`
}

// Service is a submitted service as reported by the master.
type Service struct {
	ID         string        `json:"id"`
	Desc       ServiceDesc   `json:"desc"`
	State      ServiceState  `json:"state"`
	Replicas   ReplicaCounts `json:"replicas"`
	CreateTime time.Time     `json:"create_time"`
	UpdateTime time.Time     `json:"update_time"`
}

// Task is one running process inside a task group.
type Task struct {
	ID       string         `json:"id"`
	State    TaskGroupState `json:"state"`
	ExitCode int            `json:"exit_code"`
	Used     Resource       `json:"used"`
}

// TaskGroup is a pod placed on an agent.
type TaskGroup struct {
	ID          string         `json:"id"`
	ServiceID   string         `json:"service_id"`
	Endpoint    string         `json:"endpoint"`
	State       TaskGroupState `json:"state"`
	Requirement Resource       `json:"requirement"`
	Tasks       []Task         `json:"tasks"`
	StartTime   time.Time      `json:"start_time"`
}

// Used sums the resources its tasks consume.
func (tg TaskGroup) Used() Resource {
	var used Resource
	for _, task := range tg.Tasks {
		used = used.Add(task.Used)
	}

	return used
}

// ClusterStatus summarises agents and resources.
type ClusterStatus struct {
	AgentTotal     int      `json:"agent_total"`
	AgentAlive     int      `json:"agent_alive"`
	Total          Resource `json:"total"`
	Assigned       Resource `json:"assigned"`
	Used           Resource `json:"used"`
	ServiceCount   int      `json:"service_count"`
	TaskGroupCount int      `json:"taskgroup_count"`
}

// AssignedPercent is the share of cluster cpu already promised to task groups.
func (c ClusterStatus) AssignedPercent() float64 {
	if c.Total.Millicores == 0 {
		return 0
	}

	return float64(c.Assigned.Millicores) / float64(c.Total.Millicores) * 100
}
