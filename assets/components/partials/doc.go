// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package partials holds the page chrome and the forms shared by several
console pages.
*/
package partials
