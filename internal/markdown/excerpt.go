package markdown

import "strings"

// Excerpt returns a plain-text preview of content for list views: markdown
// marker characters (#, *, `) are dropped, runs of whitespace collapse to a
// single space, and the result is cut to at most n runes.
func Excerpt(content string, n int) string {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '#', '*', '`':
			return -1
		}
		return r
	}, content)

	words := strings.Fields(stripped)
	joined := strings.Join(words, " ")

	runes := []rune(joined)
	if n >= 0 && len(runes) > n {
		return string(runes[:n])
	}
	return joined
}
