// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package confstore

import (
	"context"
	"fmt"

	"github.com/goccy/go-yaml"

	"codeberg.org/galaxy/console/core/galaxy"
)

// Document is the YAML form of a conf used by import and export.
type Document struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Service     galaxy.ServiceDesc `yaml:"service"`
}

// ImportYAML creates a conf from a Document. Unknown keys are rejected.
func (s *Store) ImportYAML(ctx context.Context, data []byte) (*Conf, error) {
	var doc Document
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.DisallowUnknownField()); err != nil {
		return nil, &galaxy.ValidationError{Problems: []galaxy.FieldError{{
			Field:  "document",
			Reason: yaml.FormatError(err, false, true),
		}}}
	}

	return s.Create(ctx, doc.Name, doc.Description, doc.Service)
}

// ExportYAML renders a conf as a Document and suggests a file name for it.
func (s *Store) ExportYAML(ctx context.Context, id string) ([]byte, string, error) {
	conf, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	out, err := yaml.MarshalWithOptions(Document{
		Name:        conf.Name,
		Description: conf.Description,
		Service:     conf.Desc,
	}, yaml.IndentSequence(true))
	if err != nil {
		return nil, "", fmt.Errorf("encode conf %s: %w", id, err)
	}

	return out, conf.Name + ".yaml", nil
}
