package wiki

import "strings"

const upperhex = "0123456789ABCDEF"

// EncodeTitle turns an article title into its /wiki/ path segment: spaces
// become underscores, then every byte outside the encodeURIComponent
// unreserved set is percent-encoded, except '/' which stays literal so that
// subpages ("Deep Space 9/Season 1") keep their hierarchy.
func EncodeTitle(title string) string {
	path := strings.ReplaceAll(title, " ", "_")

	var sb strings.Builder
	sb.Grow(len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if shouldKeep(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}
	return sb.String()
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')', '/':
		return true
	}
	return false
}

// ArticleURL joins a wiki base URL and a title into an article link.
func ArticleURL(baseURL, title string) string {
	return strings.TrimRight(baseURL, "/") + "/wiki/" + EncodeTitle(title)
}
