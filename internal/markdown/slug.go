package markdown

import (
	"strings"
	"unicode"

	gmast "github.com/yuin/goldmark/ast"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent strips combining marks after canonical decomposition, so
// "Déjà Vu" slugs to "deja-vu".
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts heading text to a URL-safe anchor identifier.
func Slugify(text string) string {
	flat, _, err := transform.String(deaccent, text)
	if err != nil {
		flat = text
	}

	var b strings.Builder
	lastDash := true // suppress leading dashes
	for _, r := range strings.ToLower(flat) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// Non-ASCII letters survive (CJK headings etc.).
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// slugIDs implements goldmark's parser.IDs with Slugify and duplicate
// disambiguation ("usage", "usage-1", ...). One instance per parse.
type slugIDs struct {
	used map[string]bool
}

func newSlugIDs() *slugIDs { return &slugIDs{used: map[string]bool{}} }

func (s *slugIDs) Generate(value []byte, _ gmast.NodeKind) []byte {
	return s.generate(string(value))
}

func (s *slugIDs) generate(text string) []byte {
	slug := Slugify(text)
	if slug == "" {
		slug = "section"
	}
	if !s.used[slug] {
		s.used[slug] = true
		return []byte(slug)
	}
	for i := 1; ; i++ {
		candidate := slug + "-" + itoa(i)
		if !s.used[candidate] {
			s.used[candidate] = true
			return []byte(candidate)
		}
	}
}

func (s *slugIDs) Put(value []byte) {
	s.used[string(value)] = true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
