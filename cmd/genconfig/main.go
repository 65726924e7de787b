// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Command genconfig writes deploy/.env.example and deploy/config.yaml.example
from the defaults of config.ServerConfig.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/config"
	"codeberg.org/galaxy/console/core/audit"
	"codeberg.org/galaxy/console/core/authenticated"
)

const (
	envOutputFile  = "deploy/.env.example"
	yamlOutputFile = "deploy/config.yaml.example"
	filePerm       = 0o644
	dirPerm        = 0o755

	envFileHeader = `# Galaxy Console configuration (via environment variables)
#
# Copy this file to .env and customize the values below.
#
# This file was auto-generated using go run ./cmd/genconfig.

`
	yamlFileHeader = `# Galaxy Console configuration (via configuration file)
#
# Copy this file to config.yaml and customize the values below.
#
# This file was auto-generated using go run ./cmd/genconfig.
`
	secretComment = `  # -- hex encoded v4.public secret key, keeps form tokens valid across restarts
  # generate one with: go run ./cmd/genconfig -secret`
)

// essentialEnv are written uncommented.
var essentialEnv = map[string]bool{
	"GALAXY_CONSOLE_HOST":             true,
	"GALAXY_CONSOLE_PORT":             true,
	"GALAXY_CONSOLE_MASTER_ENDPOINTS": true,
}

// essentialYAML are the keys written uncommented, in their section.
var essentialYAML = []string{"host:", "port:", "endpoints:"}

func main() {
	audit.SetDefaultLogger()

	printSecret := flag.Bool("secret", false, "print a fresh security.secret and exit")
	flag.Parse()

	if *printSecret {
		fmt.Println(authenticated.NewSecretKeyHex())

		return
	}

	if err := os.MkdirAll(filepath.Dir(envOutputFile), dirPerm); err != nil {
		log.Fatal().Err(err).Msg("Failed to create deploy directory")
	}

	writeFile(envOutputFile, generateEnvFile())
	writeFile(yamlOutputFile, generateYAMLFile())
}

func writeFile(path, content string) {
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write example file")
	}

	log.Info().Str("path", path).Msg("Generated example file")
}

// generateEnvFile lists every GALAXY_CONSOLE_* variable with its default.
func generateEnvFile() string {
	cfg := &config.ServerConfig{}
	cfg.SetDefaults()

	var sb strings.Builder
	sb.WriteString(envFileHeader)

	val := reflect.ValueOf(*cfg)
	typ := val.Type()

	for i := range typ.NumField() {
		structField := typ.Field(i)
		structValue := val.Field(i)

		if structValue.Kind() != reflect.Struct || structField.Name == "Build" {
			continue
		}

		fmt.Fprintf(&sb, "## %s\n", structField.Name)

		innerTyp := structValue.Type()
		for j := range innerTyp.NumField() {
			tag, ok := innerTyp.Field(j).Tag.Lookup("env")
			if !ok {
				continue
			}

			envVarName := strings.Split(tag, ",")[0]
			value := structValue.Field(j)
			rendered := renderEnvValue(value)

			switch {
			case essentialEnv[envVarName]:
				fmt.Fprintf(&sb, "%s=\"%s\"\n", envVarName, rendered)
			case rendered == "":
				fmt.Fprintf(&sb, "# %s=\n", envVarName)
			default:
				fmt.Fprintf(&sb, "# %s=%s\n", envVarName, rendered)
			}
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// renderEnvValue formats a default the way readEnv parses it back.
func renderEnvValue(value reflect.Value) string {
	if value.Kind() == reflect.Slice {
		items := make([]string, value.Len())
		for i := range value.Len() {
			items[i] = fmt.Sprint(value.Index(i).Interface())
		}

		return strings.Join(items, ",")
	}

	return fmt.Sprint(value.Interface())
}

// generateYAMLFile writes the defaults as a commented config.yaml.
func generateYAMLFile() string {
	cfg := &config.ServerConfig{}
	cfg.SetDefaults()

	var yamlContent strings.Builder

	encoderOpts := []yaml.EncodeOption{
		config.GetDurationEncoderOption(),
		yaml.Indent(2),
	}
	if err := yaml.NewEncoder(&yamlContent, encoderOpts...).Encode(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal config to YAML")
	}

	var sb strings.Builder
	sb.WriteString(yamlFileHeader)

	keepItems := false

	for line := range strings.SplitSeq(yamlContent.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Top-level keys (e.g., "basic:") are section headers.
		if !strings.HasPrefix(line, " ") {
			fmt.Fprintf(&sb, "\n%s\n", line)

			keepItems = false

			continue
		}

		if strings.HasPrefix(trimmed, "secret:") {
			sb.WriteString(secretComment + "\n")
		}

		if isEssentialYAML(trimmed) {
			sb.WriteString(line + "\n")

			keepItems = strings.HasSuffix(trimmed, ":")

			continue
		}

		// list items of an essential key
		if keepItems && strings.HasPrefix(trimmed, "- ") {
			sb.WriteString(line + "\n")

			continue
		}

		keepItems = false

		indentSize := len(line) - len(strings.TrimLeft(line, " "))
		fmt.Fprintf(&sb, "%s# %s\n", strings.Repeat(" ", indentSize), trimmed)
	}

	return sb.String()
}

func isEssentialYAML(trimmed string) bool {
	for _, key := range essentialYAML {
		if strings.HasPrefix(trimmed, key) {
			return true
		}
	}

	return false
}
