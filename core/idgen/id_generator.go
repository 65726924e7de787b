// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package idgen makes short opaque identifiers for requests and static asset cache busting.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

const entropyBytes = 4

// Make returns a base36 millisecond timestamp followed by 8 hex characters of entropy.
//
// IDs made later sort after earlier ones as long as the timestamp width does not change.
func Make() string {
	return MakeAt(time.Now())
}

// MakeAt is Make with an explicit clock.
func MakeAt(t time.Time) string {
	var entropy [entropyBytes]byte

	_, _ = rand.Read(entropy[:])

	return strconv.FormatInt(t.UnixMilli(), 36) + hex.EncodeToString(entropy[:])
}
