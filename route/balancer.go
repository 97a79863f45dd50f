package route

import (
	"strings"
	"unicode"
)

var writePrefixes = []string{
	"insert",
	"update",
	"delete",
	"truncate",
	"create",
	"alter",
	"drop",
	"copy",
}

var readPrefixes = []string{
	"select",
	"with",
	"values",
	"show",
	"explain",
}

// RequiresWrite classifies a SQL statement by its leading keyword: true for
// mutating statements, false for read-only ones, _default for anything it
// cannot classify (DO blocks, function calls with side effects).
func RequiresWrite(sql string, _default bool) bool {
	trimmed := strings.ToLower(strings.TrimLeftFunc(sql, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}))

	for _, prefix := range writePrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	for _, prefix := range readPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return false
		}
	}

	return _default
}
