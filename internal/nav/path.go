package nav

import "strings"

// Normalize strips trailing slashes. The root path stays "/".
func Normalize(path string) string {
	if path == "" {
		return ""
	}
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// Matches reports whether href names the page at current. Only exact
// matches of the normalized paths count; "/docs" does not match
// "/docs/getting-started".
func Matches(current, href string) bool {
	return Normalize(current) == Normalize(href)
}
