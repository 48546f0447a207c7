package shared

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify builds a URL slug from a title: accents are stripped, non-ASCII
// runes dropped, and runs of other characters collapse to single dashes.
// Text with no ASCII representation (most Tajik titles) yields the fallback.
func Slugify(value, fallback string) string {
	stripped, _, err := transform.String(slugStripper, value)
	if err != nil {
		stripped = value
	}

	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(stripped) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return fallback
	}
	return slug
}

// URLSlug prefixes a slug with the record ID, the canonical public URL form.
func URLSlug(id int64, slug string) string {
	return strconv.FormatInt(id, 10) + "-" + slug
}
