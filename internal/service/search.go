package service

import (
	"strings"

	"golang.org/x/text/cases"
)

// SearchWindow is how many of the newest rows a text search looks at.
// Matches outside the window are not found.
const SearchWindow = 200

// Filter narrows a public listing.
type Filter struct {
	Query      string
	CategoryID string
}

// matchesText reports whether any field contains q, ignoring case.
func matchesText(q string, fields ...string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return true
	}
	folder := cases.Fold()
	return containsFolded(folder, folder.String(q), fields)
}

// containsFolded reports whether any field contains the already folded
// needle. A Caser holds state, so each caller brings its own.
func containsFolded(folder cases.Caser, needle string, fields []string) bool {
	for _, f := range fields {
		if strings.Contains(folder.String(f), needle) {
			return true
		}
	}
	return false
}

// filterText keeps rows whose text fields match q.
func filterText[T any](rows []T, q string, text func(*T) []string) []T {
	q = strings.TrimSpace(q)
	if q == "" {
		return rows
	}
	folder := cases.Fold()
	needle := folder.String(q)
	out := rows[:0:0]
	for i := range rows {
		if containsFolded(folder, needle, text(&rows[i])) {
			out = append(out, rows[i])
		}
	}
	return out
}
