// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	errNotConfigStruct = errors.New("environment target is not a pointer to a struct")
	errUnsupportedKind = errors.New("field kind cannot be set from the environment")

	durationType = reflect.TypeFor[time.Duration]()
)

// EnvError names the GALAXY_CONSOLE_* variable that could not be applied.
type EnvError struct {
	Variable string
	Field    string
	Value    string
	Err      error
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("%s=%q (%s): %v", e.Variable, e.Value, e.Field, e.Err)
}

func (e *EnvError) Unwrap() error {
	return e.Err
}

// envField is one settable config field carrying an `env` tag.
type envField struct {
	value     reflect.Value
	name      string
	variable  string
	overwrite bool
}

// applyEnv copies GALAXY_CONSOLE_* variables into the config fields that
// name them in their `env` tag. Without the "overwrite" option a variable
// only fills a field that is still zero. Every bad variable is reported,
// not just the first.
func applyEnv(target any) error {
	root := reflect.ValueOf(target)
	if root.Kind() != reflect.Pointer || root.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T", errNotConfigStruct, target)
	}

	var errs []error

	for _, f := range collectEnvFields(root.Elem(), nil) {
		raw, ok := os.LookupEnv(f.variable)
		if !ok || (!f.overwrite && !f.value.IsZero()) {
			continue
		}

		parsed, err := parseEnvValue(f.value.Type(), raw)
		if err != nil {
			errs = append(errs, &EnvError{Variable: f.variable, Field: f.name, Value: raw, Err: err})

			continue
		}

		f.value.Set(parsed)
	}

	return errors.Join(errs...)
}

// collectEnvFields flattens the config sections into their tagged leaves.
func collectEnvFields(section reflect.Value, path []string) []envField {
	var fields []envField

	sectionType := section.Type()

	for i := range section.NumField() {
		structField := sectionType.Field(i)
		value := section.Field(i)

		if !structField.IsExported() {
			continue
		}

		tag, hasTag := structField.Tag.Lookup("env")
		if !hasTag {
			if value.Kind() == reflect.Struct {
				fields = append(fields, collectEnvFields(value, append(path, structField.Name))...)
			}

			continue
		}

		variable, options, _ := strings.Cut(tag, ",")

		fields = append(fields, envField{
			value:     value,
			name:      strings.Join(append(path, structField.Name), "."),
			variable:  variable,
			overwrite: options == "overwrite",
		})
	}

	return fields
}

func parseEnvValue(t reflect.Type, raw string) (reflect.Value, error) {
	if t == durationType {
		d, err := time.ParseDuration(raw)

		return reflect.ValueOf(d), err
	}

	out := reflect.New(t).Elem()

	switch t.Kind() {
	case reflect.String:
		out.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return out, err
		}

		out.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, t.Bits())
		if err != nil {
			return out, err
		}

		out.SetInt(n)
	case reflect.Float64:
		x, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return out, err
		}

		out.SetFloat(x)
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			return out, fmt.Errorf("%w: %s", errUnsupportedKind, t)
		}

		// comma separated, blanks dropped
		items := []string{}

		for item := range strings.SplitSeq(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}

		out.Set(reflect.ValueOf(items))
	default:
		return out, fmt.Errorf("%w: %s", errUnsupportedKind, t)
	}

	return out, nil
}

// loadDotEnv reads the first .env found in the working directory or next to
// the console binary. Variables already present in the process environment
// are left alone. A missing file is not an error.
func loadDotEnv() error {
	for _, path := range dotEnvCandidates() {
		data, err := os.ReadFile(path) // #nosec G304 - fixed file name in known directories
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		vars, badLines := parseDotEnv(data)
		for _, line := range badLines {
			log.Warn().
				Str("path", path).
				Int("line", line).
				Msg("Ignoring .env line without KEY=value")
		}

		applied := 0

		for key, value := range vars {
			if _, set := os.LookupEnv(key); set {
				continue
			}

			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("set %s from %s: %w", key, path, err)
			}

			applied++
		}

		log.Info().
			Str("path", path).
			Int("applied", applied).
			Msg("Loaded console settings from .env")

		return nil
	}

	log.Debug().Msg("No .env file found")

	return nil
}

func dotEnvCandidates() []string {
	var dirs []string

	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Dir(exe); len(dirs) == 0 || dir != dirs[0] {
			dirs = append(dirs, dir)
		}
	}

	paths := make([]string, len(dirs))
	for i, dir := range dirs {
		paths[i] = filepath.Join(dir, ".env")
	}

	return paths
}

// parseDotEnv reads KEY=value lines. Blank lines and # comments are
// skipped, an optional "export " prefix is dropped and a value wrapped in
// matching single or double quotes is unwrapped. The 1-based numbers of
// malformed lines are returned alongside.
func parseDotEnv(data []byte) (map[string]string, []int) {
	vars := map[string]string{}

	var badLines []int

	scanner := bufio.NewScanner(bytes.NewReader(data))

	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			badLines = append(badLines, lineNumber)

			continue
		}

		value = strings.TrimSpace(value)
		if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
			value = value[1 : n-1]
		}

		vars[key] = value
	}

	return vars, badLines
}
