// Package util provides small formatting helpers shared by the front ends.
package util

import "strconv"

// Pluralize returns singular if count is 1, otherwise plural.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// Count renders "N noun" with the noun pluralized for N,
// e.g. Count(1, "core", "cores") is "1 core".
func Count(n int, singular, plural string) string {
	return strconv.Itoa(n) + " " + Pluralize(n, singular, plural)
}
