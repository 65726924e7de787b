// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package galaxy

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxReplica bounds ServiceDesc.Replica.
	MaxReplica = 10000
)

var serviceNameRegexp = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]{0,63}$`)

// FieldError is one rejected field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists everything wrong with a submitted description.
type ValidationError struct {
	Problems []FieldError `json:"problems"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + ": " + p.Reason
	}

	return "invalid service description: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Problems = append(e.Problems, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}

	return e
}

// Normalize fills defaults: LongRun, Service priority and a deploy step equal to the replica count.
func (d *ServiceDesc) Normalize() {
	d.Name = strings.TrimSpace(d.Name)

	if d.Type == "" {
		d.Type = LongRun
	}

	if d.Priority == "" {
		d.Priority = Online
	}

	if d.DeployStep == 0 {
		d.DeployStep = d.Replica
	}
}

// Validate checks d after Normalize has been applied.
func (d *ServiceDesc) Validate() error {
	verr := &ValidationError{}

	if !serviceNameRegexp.MatchString(d.Name) {
		verr.add("name", "must start with a letter and use at most 64 letters, digits, '_', '.' or '-'")
	}

	switch d.Type {
	case LongRun, Batch:
	default:
		verr.add("type", "unknown service type %q", d.Type)
	}

	switch d.Priority {
	case Production, Online, Offline:
	default:
		verr.add("priority", "unknown priority %q", d.Priority)
	}

	validateScale(verr, d.Replica, d.DeployStep)

	pod := d.Pod
	if pod.Requirement.Millicores <= 0 {
		verr.add("pod.requirement.millicores", "must be positive")
	}

	if pod.Requirement.Memory <= 0 {
		verr.add("pod.requirement.memory", "must be positive")
	}

	if len(pod.Tasks) == 0 {
		verr.add("pod.tasks", "at least one task is required")
	}

	var (
		sum      Resource
		overflow bool
	)

	for i, task := range pod.Tasks {
		field := fmt.Sprintf("pod.tasks[%d]", i)

		if strings.TrimSpace(task.Package) == "" {
			verr.add(field+".package", "is required")
		}

		if strings.TrimSpace(task.StartCommand) == "" {
			verr.add(field+".start_command", "is required")
		}

		req := task.Requirement

		if req.Millicores < 0 || req.Memory < 0 {
			verr.add(field+".requirement", "cannot be negative")

			continue
		}

		if !req.Fits(pod.Requirement) {
			verr.add(field+".requirement", "%dm cpu and %s memory is more than the whole pod requirement",
				req.Millicores, req.Memory.Human())
		}

		if overflow || !fitsBeside(sum, req, pod.Requirement) {
			overflow = true

			continue
		}

		sum = sum.Add(req)
	}

	if overflow {
		verr.add("pod.tasks", "tasks need more than the pod requirement of %dm and %s",
			pod.Requirement.Millicores, pod.Requirement.Memory.Human())
	}

	return verr.orNil()
}

// fitsBeside reports whether next fits in limit next to used. used must
// already fit in limit and next must not be negative, so nothing overflows.
func fitsBeside(used, next, limit Resource) bool {
	return next.Millicores <= limit.Millicores-used.Millicores && next.Memory <= limit.Memory-used.Memory
}

// ValidateScale checks a replica/deploy step change.
func ValidateScale(replica, deployStep int) error {
	verr := &ValidationError{}
	validateScale(verr, replica, deployStep)

	return verr.orNil()
}

func validateScale(verr *ValidationError, replica, deployStep int) {
	if replica < 0 || replica > MaxReplica {
		verr.add("replica", "must be between 0 and %d", MaxReplica)

		return
	}

	if replica > 0 && (deployStep < 1 || deployStep > replica) {
		verr.add("deploy_step", "must be between 1 and the replica count %d", replica)
	}
}
