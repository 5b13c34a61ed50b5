package validation

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	javascriptPattern = regexp.MustCompile(`(?i)javascript:`)
	vbscriptPattern   = regexp.MustCompile(`(?i)vbscript:`)
	eventAttrPattern  = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

// Entities produced by SanitizeInput. An ampersand that already starts one
// of these is left alone so sanitizing twice changes nothing.
var producedEntities = []string{"&amp;", "&lt;", "&gt;", "&quot;", "&#x27;", "&#x2F;"}

var entityFor = map[rune]string{
	'<':  "&lt;",
	'>':  "&gt;",
	'"':  "&quot;",
	'\'': "&#x27;",
	'/':  "&#x2F;",
}

// SanitizeInput makes untrusted text safe to embed in HTML. It removes NUL
// bytes, trims, strips tags and script URIs and event handler attributes
// until none remain, then HTML-encodes & < > " ' /.
func SanitizeInput(raw string) string {
	s := strings.ReplaceAll(raw, "\x00", "")
	s = strings.TrimSpace(s)

	for {
		prev := s
		s = tagPattern.ReplaceAllString(s, "")
		s = javascriptPattern.ReplaceAllString(s, "")
		s = vbscriptPattern.ReplaceAllString(s, "")
		s = eventAttrPattern.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
		if s == prev {
			break
		}
	}

	return encodeEntities(s)
}

func encodeEntities(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i, r := range s {
		if r == '&' {
			if startsProducedEntity(s[i:]) {
				b.WriteByte('&')
			} else {
				b.WriteString("&amp;")
			}
			continue
		}
		if ent, ok := entityFor[r]; ok {
			b.WriteString(ent)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func startsProducedEntity(s string) bool {
	for _, ent := range producedEntities {
		if strings.HasPrefix(s, ent) {
			return true
		}
	}
	return false
}
