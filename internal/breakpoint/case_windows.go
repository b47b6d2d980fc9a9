//go:build windows

package breakpoint

import "strings"

// normalizeCase folds breakpoint file names on case-insensitive hosts so
// "A.LUA" and "a.lua" address the same breakpoint.
func normalizeCase(s string) string { return strings.ToLower(s) }
