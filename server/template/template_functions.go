// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package template

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/number"

	"codeberg.org/galaxy/console/core/galaxy"
	"codeberg.org/galaxy/console/server/request_context"
)

const millicoresPerCore = 1000

// RelativeTimeData holds the numeric value and description for relative time.
type RelativeTimeData struct {
	Value       string
	Description string
}

// NaturalTime formats a time.Time value as a natural language string.
// The zero time renders as a dash.
func NaturalTime(date time.Time) string {
	if date.IsZero() {
		return "-"
	}

	return date.UTC().Format("2 January 2006, 15:04 MST")
}

// RelativeTime describes how long ago date was, relative to now.
func RelativeTime(date, now time.Time) RelativeTimeData {
	if date.IsZero() {
		return RelativeTimeData{Value: "-"}
	}

	duration := now.Sub(date)
	if duration < 0 {
		return RelativeTimeData{Value: NaturalTime(date)}
	}

	if duration < time.Minute {
		return RelativeTimeData{Value: "Just now"}
	}

	return RelativeTimeData{Value: FormatDuration(duration), Description: "ago"}
}

// FormatDuration returns a human-readable string representation of a time.Duration,
// in the largest unit that fits, e.g. "2 hours" or "3 days".
func FormatDuration(duration time.Duration) string {
	if duration <= 0 {
		return ""
	}

	pluralize := func(value int, singular, plural string) string {
		if value == 1 {
			return singular
		}

		return plural
	}

	const (
		hoursInDay  = 24
		daysInWeek  = 7
		daysInMonth = 30
	)

	switch {
	case duration < time.Minute:
		seconds := int(duration.Seconds())
		if seconds == 0 {
			return "moments"
		}

		return fmt.Sprintf("%d %s", seconds, pluralize(seconds, "second", "seconds"))
	case duration < time.Hour:
		minutes := int(duration.Minutes())

		return fmt.Sprintf("%d %s", minutes, pluralize(minutes, "minute", "minutes"))
	case duration < hoursInDay*time.Hour:
		hours := int(duration.Hours())

		return fmt.Sprintf("%d %s", hours, pluralize(hours, "hour", "hours"))
	case duration < daysInWeek*hoursInDay*time.Hour:
		days := int(duration.Hours() / hoursInDay)

		return fmt.Sprintf("%d %s", days, pluralize(days, "day", "days"))
	case duration < daysInMonth*hoursInDay*time.Hour:
		weeks := int(duration.Hours() / (hoursInDay * daysInWeek))

		return fmt.Sprintf("%d %s", weeks, pluralize(weeks, "week", "weeks"))
	}

	months := int(duration.Hours() / (hoursInDay * daysInMonth))

	return fmt.Sprintf("%d %s", months, pluralize(months, "month", "months"))
}

// FormatBytes renders a memory quantity rounded for display.
func FormatBytes(b galaxy.Bytes) string {
	return b.Human()
}

// FormatMillicores renders a cpu quantity: whole cores as "2 cores",
// fractions as "1.5 cores" and anything under a core as "250m".
func FormatMillicores(millicores int64) string {
	switch {
	case millicores < millicoresPerCore:
		return strconv.FormatInt(millicores, 10) + "m"
	case millicores == millicoresPerCore:
		return "1 core"
	case millicores%millicoresPerCore == 0:
		return strconv.FormatInt(millicores/millicoresPerCore, 10) + " cores"
	}

	cores := strconv.FormatFloat(float64(millicores)/millicoresPerCore, 'f', 3, 64)
	cores = strings.TrimRight(cores, "0")

	return cores + " cores"
}

// FormatNumber formats n with the digit grouping of the request locale.
func FormatNumber(ctx context.Context, n int) string {
	return request_context.FromContext(ctx).Printer.Sprint(number.Decimal(n))
}

// FormatPercent formats a 0-100 value as a percentage in the request locale.
func FormatPercent(ctx context.Context, percent float64) string {
	return request_context.FromContext(ctx).Printer.Sprint(
		number.Percent(percent/100, number.MaxFractionDigits(1)))
}

// IsFirstPathPart checks if the first part of the current path matches the given path.
func IsFirstPathPart(currentPath, pathToCheck string) bool {
	currentPath = strings.Trim(currentPath, "/")
	pathToCheck = strings.Trim(pathToCheck, "/")

	first, _, _ := strings.Cut(currentPath, "/")

	return first == pathToCheck
}
