package sanitizer

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StripHTML returns the text content of s with all markup removed, escaped
// so it is safe to place in an HTML document as is. Content of script and
// style elements is dropped entirely. Entities in the input are decoded by
// the tokenizer and escaped again on output, so escaped markup never comes
// back live.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<>&'\"") {
		return s
	}

	var (
		b    strings.Builder
		skip int
		z    = html.NewTokenizer(strings.NewReader(s))
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			if isRawText(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawText(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.WriteString(html.EscapeString(string(z.Text())))
			}
		}
	}
}

func isRawText(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style:
		return true
	}
	return false
}
