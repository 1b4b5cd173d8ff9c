package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripTags removes every HTML tag from s and keeps the text content.
// Script and style bodies are dropped along with their tags.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var (
		b    strings.Builder
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	n := string(name)
	return n == "script" || n == "style"
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9 _-]`)
	slugDashes  = regexp.MustCompile(`[\s-]+`)
)

// SanitizeTitle turns s into a slug: accents folded, lower-cased, only
// a-z, 0-9, underscores and single dashes kept, no leading or trailing dash.
func SanitizeTitle(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(StripTags(folded))
	folded = strings.NewReplacer(".", "-", "/", "-", "&", "").Replace(folded)
	folded = slugInvalid.ReplaceAllString(folded, "")
	folded = slugDashes.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-")
}
