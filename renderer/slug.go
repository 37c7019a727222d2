package renderer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify folds s to a lower case anchor. Accents are removed after NFKD
// decomposition; runs of separators collapse into one dash.
func Slugify(s string) string {
	decomposed := norm.NFKD.String(strings.TrimSpace(s))
	var sb strings.Builder
	lastDash := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(unicode.ToLower(r))
			lastDash = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == '/':
			if sb.Len() == 0 || lastDash {
				continue
			}
			sb.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(sb.String(), "-")
}

func headingID(text string) string {
	if slug := Slugify(text); slug != "" {
		return slug
	}
	return "section"
}
