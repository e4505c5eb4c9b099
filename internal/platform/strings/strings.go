// Package strings holds the few string helpers shared by modules and the ledger repos
package strings

import std "strings"

// IfEmpty returns def when in has no elements
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// Require returns s, panicking with what in the message when s is blank
func Require(s, what string) string {
	if std.TrimSpace(s) == "" {
		panic(what + " is required")
	}
	return s
}

// MountPath normalizes a route prefix to one leading slash, no trailing slash and no
// empty segments ("v1//reviews/" becomes "/v1/reviews"). A prefix that reduces to "/"
// panics
func MountPath(s string) string {
	var segs []string
	for _, seg := range std.Split(std.TrimSpace(s), "/") {
		if seg = std.TrimSpace(seg); seg != "" {
			segs = append(segs, seg)
		}
	}
	if len(segs) == 0 {
		panic("mount path is required")
	}
	return "/" + std.Join(segs, "/")
}

// NullIfBlank maps blank text to a NULL query argument
func NullIfBlank(s string) any {
	if std.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// FromNull reads a nullable text column; NULL reads as ""
func FromNull(ps *string) string {
	if ps == nil {
		return ""
	}
	return *ps
}
