// Package markdown turns memo text into a render tree and the tree into HTML.
//
// Rendering happens in two passes. The block scanner walks the input line by
// line and decides what each line is (fence, heading, rule, quote, list item,
// paragraph text). Only then does the inline tokenizer run, and only over the
// text of non-code blocks, so emphasis and link syntax can never reach into a
// fenced block or break block markup that was already decided.
//
// Parse is total: any input yields a tree, and constructs that don't close
// (a fence without its end, "**" without a partner) come out as literal
// text. Output depends only on the input, so rendering the same string twice
// gives byte-identical HTML.
package markdown

// BlockKind identifies a block-level node.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockRule
	BlockQuote
	BlockListItem
	BlockCode
)

func (k BlockKind) String() string {
	switch k {
	case BlockParagraph:
		return "paragraph"
	case BlockHeading:
		return "heading"
	case BlockRule:
		return "hr"
	case BlockQuote:
		return "blockquote"
	case BlockListItem:
		return "listItem"
	case BlockCode:
		return "codeBlock"
	}
	return "unknown"
}

// Block is one block-level node.
//
// Lines holds the inline content of text-bearing blocks. Headings and list
// items always have exactly one line; paragraphs and quotes have one entry per
// source line, and the HTML writer joins them with line breaks. Code blocks
// keep their body verbatim in Code and have no Lines.
type Block struct {
	Kind  BlockKind
	Lines [][]Span

	// Heading
	Level int

	// List item
	Ordered bool
	Number  string // literal marker digits for ordered items, e.g. "3"
	Task    bool
	Checked bool

	// Code block
	Lang string
	Code string
}

// SpanKind identifies an inline node.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanBold
	SpanItalic
	SpanCode
	SpanLink
	SpanImage
)

func (k SpanKind) String() string {
	switch k {
	case SpanText:
		return "text"
	case SpanBold:
		return "bold"
	case SpanItalic:
		return "italic"
	case SpanCode:
		return "code"
	case SpanLink:
		return "link"
	case SpanImage:
		return "image"
	}
	return "unknown"
}

// Span is one inline node. Text holds literal text for SpanText and SpanCode
// and the alt text for SpanImage. Bold, italic and link labels carry nested
// spans in Children.
type Span struct {
	Kind     SpanKind
	Text     string
	URL      string
	Children []Span
}

// Tree is the parsed form of one memo.
type Tree struct {
	Blocks []Block
}

// CodeBlock describes one fenced block, in document order.
type CodeBlock struct {
	Index int
	Lang  string
	Code  string
}

// CodeBlocks lists the fenced code blocks of the tree.
func (t *Tree) CodeBlocks() []CodeBlock {
	var out []CodeBlock
	for _, b := range t.Blocks {
		if b.Kind != BlockCode {
			continue
		}
		out = append(out, CodeBlock{Index: len(out), Lang: b.Lang, Code: b.Code})
	}
	return out
}
