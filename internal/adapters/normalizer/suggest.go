package normalizer

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// Suggest returns an ASCII transliteration of r to show next to an unmapped
// character, or "" when there is nothing useful to say.
func Suggest(r rune) string {
	s := strings.TrimSpace(unidecode.Unidecode(string(r)))
	if s == "" || s == string(r) || strings.Contains(s, "[?]") {
		return ""
	}
	return s
}
