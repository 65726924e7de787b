// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

const redactedValue = "[redacted]"

func (cfg *ServerConfig) print() {
	log.Info().
		Str("version", BuildVersion).
		Str("revision", cfg.Build.Revision()).
		Str("cacheid", cfg.Instance.FileServerCacheID).
		Int("masters", len(cfg.Master.Endpoints)).
		Msg("Starting Galaxy Console")

	configYAML, err := cfg.RedactedYAML()
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config to YAML for printing")

		return
	}

	log.Info().
		Msg("Application configuration:")
	fmt.Fprintln(os.Stderr, string(configYAML))
}

// RedactedYAML renders the effective configuration with secrets masked.
func (cfg *ServerConfig) RedactedYAML() ([]byte, error) {
	printable := *cfg

	if printable.Security.Secret != "" {
		printable.Security.Secret = redactedValue
	}

	out, err := yaml.MarshalWithOptions(printable, GetDurationEncoderOption())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return out, nil
}
