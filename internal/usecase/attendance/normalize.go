package attendance

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Organically-typed subject names use legacy ideograph variants that never
// appear in canonically-spelled channel names. The table maps each variant
// to its canonical form.
var variantIdeographs = map[rune]rune{
	'髙': '高',
	'﨑': '崎',
	'濵': '濱',
	'邉': '邊',
	'𠮷': '吉',
	'德': '徳',
	'栁': '柳',
}

// NormalizeName strips all whitespace (including U+3000), folds character
// widths and substitutes legacy ideograph variants so typed subject names
// compare equal to destination names. Matching is exact after normalization.
func NormalizeName(name string) string {
	folded := width.Fold.String(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		if canonical, ok := variantIdeographs[r]; ok {
			return canonical
		}
		return r
	}, folded)
}
