package groups

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeName turns a project name into a group slug: lower case, runs of
// anything outside [a-z0-9] collapsed to one hyphen, no leading or trailing
// hyphen. A name with nothing usable gets a random 8-hex-character slug.
func SanitizeName(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return randomHex()
	}
	return slug
}

// randomHex returns 8 random lowercase hex characters.
func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
