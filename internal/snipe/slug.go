package snipe

import (
	"regexp"
	"strings"
)

// Venues whose platform slug does not follow the standard normalization.
var slugOverrides = map[string]string{
	"don angie":    "don-angie",
	"temple court": "temple-court",
	"le bernardin": "le-bernardin",
	"carbone":      "carbone",
	"l'artusi":     "lartusi",
}

var (
	slugStripRe    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapseRe = regexp.MustCompile(`[\s_]+`)
)

// NormalizeSlug converts a restaurant display name to its venue URL slug,
// e.g. "Temple Court" -> "temple-court". Known irregular venues are
// looked up in an override table first.
func NormalizeSlug(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if slug, ok := slugOverrides[lower]; ok {
		return slug
	}
	slug := strings.ReplaceAll(lower, "'", "")
	slug = strings.ReplaceAll(slug, "&", "and")
	slug = slugStripRe.ReplaceAllString(slug, "")
	slug = slugCollapseRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
