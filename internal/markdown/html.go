package markdown

import (
	"io"
	"strings"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;")
)

// RenderHTML parses src and returns its HTML.
func RenderHTML(src string) string {
	return Parse(src).HTML()
}

// HTML returns the markup for the tree.
func (t *Tree) HTML() string {
	var b strings.Builder
	t.writeHTML(&b)
	return b.String()
}

// WriteHTML writes the markup for the tree to w.
func (t *Tree) WriteHTML(w io.Writer) error {
	_, err := io.WriteString(w, t.HTML())
	return err
}

func (t *Tree) writeHTML(b *strings.Builder) {
	// list is the list element currently open: "", "ul" or "ol".
	list := ""
	closeList := func() {
		if list != "" {
			b.WriteString("</" + list + ">\n")
			list = ""
		}
	}

	for _, blk := range t.Blocks {
		if blk.Kind == BlockListItem {
			want := "ul"
			if blk.Ordered {
				want = "ol"
			}
			if list != want {
				closeList()
				b.WriteString("<" + want + ">\n")
				list = want
			}
			writeListItem(b, blk)
			continue
		}
		closeList()

		switch blk.Kind {
		case BlockHeading:
			tag := "h" + string(rune('0'+blk.Level))
			b.WriteString("<" + tag + ">")
			writeLines(b, blk.Lines)
			b.WriteString("</" + tag + ">\n")
		case BlockRule:
			b.WriteString("<hr>\n")
		case BlockQuote:
			b.WriteString("<blockquote>")
			writeLines(b, blk.Lines)
			b.WriteString("</blockquote>\n")
		case BlockCode:
			b.WriteString("<pre><code")
			if blk.Lang != "" {
				b.WriteString(` class="language-` + attrEscaper.Replace(blk.Lang) + `"`)
			}
			b.WriteString(">")
			b.WriteString(textEscaper.Replace(blk.Code))
			b.WriteString("</code></pre>\n")
		case BlockParagraph:
			b.WriteString("<p>")
			writeLines(b, blk.Lines)
			b.WriteString("</p>\n")
		}
	}
	closeList()
}

func writeListItem(b *strings.Builder, blk Block) {
	switch {
	case blk.Task:
		b.WriteString(`<li class="task-list-item"><input type="checkbox"`)
		if blk.Checked {
			b.WriteString(" checked")
		}
		b.WriteString(" disabled> ")
	case blk.Ordered:
		b.WriteString(`<li value="` + blk.Number + `">`)
	default:
		b.WriteString("<li>")
	}
	writeLines(b, blk.Lines)
	b.WriteString("</li>\n")
}

func writeLines(b *strings.Builder, lines [][]Span) {
	for i, line := range lines {
		if i > 0 {
			b.WriteString("<br>\n")
		}
		writeSpans(b, line)
	}
}

func writeSpans(b *strings.Builder, spans []Span) {
	for _, sp := range spans {
		switch sp.Kind {
		case SpanText:
			b.WriteString(textEscaper.Replace(sp.Text))
		case SpanCode:
			b.WriteString("<code>" + textEscaper.Replace(sp.Text) + "</code>")
		case SpanBold:
			b.WriteString("<strong>")
			writeSpans(b, sp.Children)
			b.WriteString("</strong>")
		case SpanItalic:
			b.WriteString("<em>")
			writeSpans(b, sp.Children)
			b.WriteString("</em>")
		case SpanLink:
			b.WriteString(`<a href="` + attrEscaper.Replace(sp.URL) + `" target="_blank" rel="noopener noreferrer">`)
			writeSpans(b, sp.Children)
			b.WriteString("</a>")
		case SpanImage:
			b.WriteString(`<img src="` + attrEscaper.Replace(sp.URL) + `" alt="` + attrEscaper.Replace(sp.Text) + `">`)
		}
	}
}
