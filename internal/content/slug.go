package content

import (
	"fmt"
	"regexp"
	"strings"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidateSlug checks that slug is lowercase alphanumerics separated by
// single hyphens. The slug doubles as a filename, so anything else is
// rejected before it reaches the filesystem.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: slug %q must contain only lowercase letters, digits and single hyphens", ErrInvalidInput, slug)
	}
	return nil
}

// Slugify derives a slug from free text such as a title.
func Slugify(s string) string {
	var sb strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingHyphen = false
			sb.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return sb.String()
}
