// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package assets exposes the stylesheet, images and robots.txt embedded in the binary.
*/
package assets

import (
	"embed"
)

// FS holds the files under assets/. It is assigned by package main.
var FS embed.FS
