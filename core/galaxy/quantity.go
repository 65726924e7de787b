// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package galaxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

var errNegativeQuantity = errors.New("quantity cannot be negative")

// Bytes is a memory quantity. It is written as a plain number in JSON and
// accepts human forms such as "512M" or "4GiB" (binary multiples) when read
// from JSON, YAML or a form.
type Bytes int64

// ParseBytes parses a memory quantity. A bare number is a count of bytes.
func ParseBytes(s string) (Bytes, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid memory quantity %q: %w", s, err)
	}

	if n < 0 {
		return 0, fmt.Errorf("%w: %q", errNegativeQuantity, s)
	}

	return Bytes(n), nil
}

// String renders b exactly, using the largest binary unit that divides it.
func (b Bytes) String() string {
	suffixes := []struct {
		size   int64
		suffix string
	}{
		{units.TiB, "TiB"},
		{units.GiB, "GiB"},
		{units.MiB, "MiB"},
		{units.KiB, "KiB"},
	}

	for _, s := range suffixes {
		if b != 0 && int64(b)%s.size == 0 {
			return strconv.FormatInt(int64(b)/s.size, 10) + s.suffix
		}
	}

	return strconv.FormatInt(int64(b), 10)
}

// Human renders b rounded for display, e.g. "1.5GiB".
func (b Bytes) Human() string {
	return units.BytesSize(float64(b))
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(b), 10)), nil
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	return b.set(raw)
}

// MarshalYAML writes the exact human form so that exported confs stay readable.
func (b Bytes) MarshalYAML() (any, error) {
	return b.String(), nil
}

func (b *Bytes) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}

	return b.set(raw)
}

func (b *Bytes) set(raw any) error {
	var s string

	switch v := raw.(type) {
	case nil:
		*b = 0

		return nil
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		s = fmt.Sprint(v)
	}

	parsed, err := ParseBytes(s)
	if err != nil {
		return err
	}

	*b = parsed

	return nil
}

// ParseMillicores parses a cpu quantity: "500m" is 500 millicores and a bare
// number such as "2" or "1.5" counts whole cores.
func ParseMillicores(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if milli, ok := strings.CutSuffix(s, "m"); ok {
		n, err := strconv.ParseInt(milli, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid cpu quantity %q", s)
		}

		return n, nil
	}

	cores, err := strconv.ParseFloat(s, 64)
	if err != nil || cores < 0 || cores >= math.MaxInt64/1000 {
		return 0, fmt.Errorf("invalid cpu quantity %q", s)
	}

	return int64(cores*1000 + 0.5), nil
}
