package wiki

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags separate words when stripped; inline tags (the searchmatch spans
// MediaWiki wraps around hits) are removed without adding a space.
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true, "td": true,
}

// StripHTML reduces a search snippet to plain text: tags removed, entities
// decoded, whitespace (including &nbsp;) collapsed to single spaces.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				sb.WriteByte(' ')
			}
		}
	}
}
