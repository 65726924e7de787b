// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/rs/zerolog/log"
)

// readYAML overlays the file at configFilePath onto cfg.
//
// Unknown keys are rejected so that a typo does not silently fall back to a default.
func (cfg *ServerConfig) readYAML(configFilePath string) error {
	if configFilePath == "" {
		return nil
	}

	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		log.Info().
			Str("path", configFilePath).
			Msg("No YAML configuration file found, skipping")

		return nil
	}

	raw, err := os.ReadFile(configFilePath) // #nosec G304 -- Only loading a config file
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", configFilePath, err)
	}

	empty, err := isEmptyDocument(raw)
	if err != nil {
		return fmt.Errorf("failed to parse YAML from %s: %w", configFilePath, err)
	}

	if empty {
		log.Info().
			Str("path", configFilePath).
			Msg("YAML configuration file has no settings, keeping defaults")

		return nil
	}

	if err := yaml.UnmarshalWithOptions(raw, cfg, yaml.DisallowUnknownField()); err != nil {
		return fmt.Errorf("failed to parse YAML from %s: %w", configFilePath, err)
	}

	log.Info().
		Str("path", configFilePath).
		Msg("Successfully loaded configuration")

	return nil
}

// isEmptyDocument reports whether raw holds no mapping at all: nothing,
// only comments, or an explicit null. Decoding such a file would zero cfg.
func isEmptyDocument(raw []byte) (bool, error) {
	file, err := parser.ParseBytes(raw, 0)
	if err != nil {
		return false, err
	}

	for _, doc := range file.Docs {
		if doc == nil || doc.Body == nil {
			continue
		}

		switch doc.Body.(type) {
		case *ast.NullNode, *ast.CommentGroupNode:
			continue
		}

		return false, nil
	}

	return true, nil
}
