package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"finance-hub/internal/content"
)

// MaxSlugBase is the rune limit of a derived slug before its suffix.
const MaxSlugBase = 60

var (
	slugStrip   = regexp.MustCompile(`[^a-z0-9а-яё\s-]`)
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugHyphens = regexp.MustCompile(`-+`)
	slugValid   = regexp.MustCompile(`^[a-z0-9а-яё]+(-[a-z0-9а-яё]+)*$`)
)

// Slugify lowercases title and reduces it to letters, digits and single
// hyphens, capped at MaxSlugBase runes.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(strings.TrimSpace(s), "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return strings.TrimRight(content.Truncate(s, MaxSlugBase), "-")
}

// DeriveSlug builds a publishable slug from title and the last four digits
// of t in epoch milliseconds. The result depends only on its arguments.
func DeriveSlug(title string, t time.Time) string {
	suffix := fmt.Sprintf("%04d", t.UnixMilli()%10000)
	base := Slugify(title)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// normalizeSlug checks a caller-supplied slug.
func normalizeSlug(slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugValid.MatchString(slug) {
		return "", Invalid("slug", "Только строчные буквы, цифры и дефисы")
	}
	return slug, nil
}
