// utils/labels.go
package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	labelSpaceRE = regexp.MustCompile(`\s+`)
	labelPunctRE = regexp.MustCompile(`[.:;_\-/]+`)
)

// letters that do not decompose under NFD
var foldReplacer = strings.NewReplacer("ł", "l", "Ł", "l", "đ", "d", "ø", "o", "ß", "ss")

// NormalizeLabel folds a header label for matching: lower case, accents removed,
// punctuation turned into spaces, whitespace collapsed. "Dł. geogr. stacji" and
// "dl geogr stacji" normalize to the same string.
func NormalizeLabel(label string) string {
	s := foldReplacer.Replace(strings.TrimPrefix(label, "\uFEFF"))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	s = labelPunctRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(labelSpaceRE.ReplaceAllString(s, " "))
}
