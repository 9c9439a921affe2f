package slug

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// foldAccents maps common Latin letters with diacritics to ASCII.
var foldAccents = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"ç", "c",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ğ", "g",
	"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i", "i̇", "i",
	"ñ", "n",
	"ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o", "ø", "o",
	"ş", "s", "ß", "ss",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
)

// Generate creates a URL-friendly slug from the given name, so a category
// such as "Health & Fitness" can be addressed as "health-fitness".
//
// Examples:
//   - "Health & Fitness" → "health-fitness"
//   - "Café Éditeur" → "cafe-editeur"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	s := foldAccents.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = slugRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Equal reports whether a and b produce the same non-empty slug.
func Equal(a, b string) bool {
	sa := Generate(a)
	return sa != "" && sa == Generate(b)
}
