package headings

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	lower      = cases.Lower(language.Und)
)

// Slugify derives an anchor id from heading text: lowercase, strip
// non-word characters, collapse whitespace runs into single hyphens.
// Compatibility decomposition runs first so accented letters keep their
// base letter ("Café" becomes "cafe"). Text with no word characters yields
// the empty string.
func Slugify(text string) string {
	s := lower.String(norm.NFKD.String(text))
	s = nonWord.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return whitespace.ReplaceAllString(s, "-")
}
