package markdown

import "strings"

// parseInline tokenizes one line of block text. Scanning is leftmost-first:
// at each byte the tokenizer tries code, image, link, bold and italic, in
// that order, and the first construct that closes wins. Code spans are
// literal; bold, italic and link labels are tokenized recursively.
//
// Closer lookups go through forward-only cursors, so a line full of
// unmatched openers is still scanned in linear time.
func parseInline(s string) []Span {
	p := &inlineParser{
		s:         s,
		brackets:  byteCursor{s: s, c: ']'},
		parens:    byteCursor{s: s, c: ')'},
		backticks: byteCursor{s: s, c: '`'},
		badClose:  -1,
	}

	var (
		out []Span
		buf strings.Builder
	)
	flushText := func() {
		if buf.Len() > 0 {
			out = append(out, Span{Kind: SpanText, Text: buf.String()})
			buf.Reset()
		}
	}

	for i := 0; i < len(s); {
		if sp, n, ok := p.match(i); ok {
			flushText()
			out = append(out, sp)
			i += n
			continue
		}
		buf.WriteByte(s[i])
		i++
	}
	flushText()
	return out
}

// byteCursor finds the next occurrence of c. Successive calls must not move
// from backwards; the last answer is reused while it still lies ahead.
type byteCursor struct {
	s     string
	c     byte
	at    int
	known bool
}

func (k *byteCursor) next(from int) int {
	if k.known && (k.at < 0 || k.at >= from) {
		return k.at
	}
	k.known = true
	if from >= len(k.s) {
		k.at = -1
		return -1
	}
	if idx := strings.IndexByte(k.s[from:], k.c); idx >= 0 {
		k.at = from + idx
	} else {
		k.at = -1
	}
	return k.at
}

type inlineParser struct {
	s                           string
	brackets, parens, backticks byteCursor
	// badClose is a "]" already known not to end a link or image target.
	badClose int
}

// match reports the span starting at s[i] and how many bytes it consumed.
func (p *inlineParser) match(i int) (Span, int, bool) {
	s := p.s[i:]
	switch s[0] {
	case '`':
		return p.codeSpan(i)
	case '!':
		if strings.HasPrefix(s, "![") {
			alt, url, n, ok := p.bracketTarget(i + 2)
			if !ok {
				return Span{}, 0, false
			}
			return Span{Kind: SpanImage, Text: alt, URL: url}, n + 2, true
		}
	case '[':
		label, url, n, ok := p.bracketTarget(i + 1)
		if !ok || label == "" {
			return Span{}, 0, false
		}
		return Span{Kind: SpanLink, URL: url, Children: parseInline(label)}, n + 1, true
	case '*':
		if strings.HasPrefix(s, "**") {
			if sp, n, ok := emphasis(s, "**", SpanBold); ok {
				return sp, n, true
			}
		}
		return emphasis(s, "*", SpanItalic)
	}
	return Span{}, 0, false
}

func (p *inlineParser) codeSpan(i int) (Span, int, bool) {
	end := p.backticks.next(i + 1)
	if end <= i+1 {
		return Span{}, 0, false
	}
	return Span{Kind: SpanCode, Text: p.s[i+1 : end]}, end - i + 1, true
}

func emphasis(s, delim string, kind SpanKind) (Span, int, bool) {
	rest := s[len(delim):]
	end := strings.Index(rest, delim)
	if end <= 0 {
		return Span{}, 0, false
	}
	return Span{Kind: kind, Children: parseInline(rest[:end])}, 2*len(delim) + end, true
}

// bracketTarget parses `label](url)` starting at from and returns the
// length consumed from from.
func (p *inlineParser) bracketTarget(from int) (label, url string, n int, ok bool) {
	closeLabel := p.brackets.next(from)
	if closeLabel < 0 || closeLabel == p.badClose {
		return "", "", 0, false
	}
	if closeLabel+1 >= len(p.s) || p.s[closeLabel+1] != '(' {
		p.badClose = closeLabel
		return "", "", 0, false
	}
	closeURL := p.parens.next(closeLabel + 2)
	if closeURL <= closeLabel+2 {
		p.badClose = closeLabel
		return "", "", 0, false
	}
	url = strings.TrimSpace(p.s[closeLabel+2 : closeURL])
	if url == "" || !safeURL(url) {
		p.badClose = closeLabel
		return "", "", 0, false
	}
	return p.s[from:closeLabel], url, closeURL + 1 - from, true
}

var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// safeURL rejects script-capable schemes such as javascript: and data:.
// Relative references have no scheme and are always allowed.
func safeURL(url string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, url)

	colon := strings.IndexByte(cleaned, ':')
	if colon < 0 {
		return true
	}
	scheme := cleaned[:colon]
	if strings.ContainsAny(scheme, "/?#") {
		return true
	}
	return allowedSchemes[strings.ToLower(scheme)]
}
