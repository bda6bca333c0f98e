package timetable

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slugReplacer handles the characters that do not decompose into a base
// letter plus a combining mark, and the word separators.
var slugReplacer = strings.NewReplacer(
	"ł", "l",
	" ", "-",
	"/", "-",
	"_", "-",
)

// Slug converts a station name into its URL slug:
// "Kraków Główny" -> "krakow-glowny".
func Slug(name string) string {
	s := slugReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
