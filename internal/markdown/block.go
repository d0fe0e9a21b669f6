package markdown

import "strings"

const fence = "```"

// Parse scans src into a Tree. Block rules are tried in a fixed order and
// the first match wins:
//
//	fenced code, heading (#, ##, ###), rule (---), quote (> ),
//	task item (- [x] / - [ ]), ordered item (N. ), unordered item (- ),
//	blank line, paragraph text.
func Parse(src string) *Tree {
	lines := splitLines(src)
	s := &scanner{}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if lang, ok := fenceOpen(line); ok {
			if code, ok := inlineFence(line); ok {
				s.flush()
				s.blocks = append(s.blocks, Block{Kind: BlockCode, Code: code})
				continue
			}
			if end := fenceClose(lines, i+1); end >= 0 {
				s.flush()
				s.blocks = append(s.blocks, Block{
					Kind: BlockCode,
					Lang: lang,
					Code: strings.Join(lines[i+1:end], "\n"),
				})
				i = end
				continue
			}
			// Unterminated fence: the marker line is ordinary text.
			s.text(BlockParagraph, line)
			continue
		}

		if level, text, ok := heading(line); ok {
			s.flush()
			s.single(Block{Kind: BlockHeading, Level: level}, text)
			continue
		}

		if strings.TrimRight(line, " \t") == "---" {
			s.flush()
			s.blocks = append(s.blocks, Block{Kind: BlockRule})
			continue
		}

		if text, ok := quote(line); ok {
			s.text(BlockQuote, text)
			continue
		}

		if checked, text, ok := taskItem(line); ok {
			s.flush()
			s.single(Block{Kind: BlockListItem, Task: true, Checked: checked}, text)
			continue
		}

		if num, text, ok := orderedItem(line); ok {
			s.flush()
			s.single(Block{Kind: BlockListItem, Ordered: true, Number: num}, text)
			continue
		}

		if text, ok := strings.CutPrefix(line, "- "); ok {
			s.flush()
			s.single(Block{Kind: BlockListItem}, text)
			continue
		}

		if strings.TrimSpace(line) == "" {
			s.flush()
			continue
		}

		s.text(BlockParagraph, line)
	}

	s.flush()
	return &Tree{Blocks: s.blocks}
}

// scanner accumulates blocks. open is the paragraph or quote still taking
// lines; anything else is appended whole.
type scanner struct {
	blocks []Block
	open   *Block
}

func (s *scanner) single(b Block, text string) {
	b.Lines = [][]Span{parseInline(text)}
	s.blocks = append(s.blocks, b)
}

func (s *scanner) text(kind BlockKind, line string) {
	if s.open == nil || s.open.Kind != kind {
		s.flush()
		s.open = &Block{Kind: kind}
	}
	s.open.Lines = append(s.open.Lines, parseInline(line))
}

func (s *scanner) flush() {
	if s.open == nil {
		return
	}
	s.blocks = append(s.blocks, *s.open)
	s.open = nil
}

func splitLines(src string) []string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	return strings.Split(src, "\n")
}

func fenceOpen(line string) (lang string, ok bool) {
	rest, ok := strings.CutPrefix(strings.TrimLeft(line, " "), fence)
	if !ok {
		return "", false
	}
	if fields := strings.Fields(rest); len(fields) > 0 {
		lang = fields[0]
	}
	return lang, true
}

// inlineFence handles a block opened and closed on one line: ```code```.
func inlineFence(line string) (string, bool) {
	body := strings.TrimSpace(line)[len(fence):]
	inner, ok := strings.CutSuffix(body, fence)
	if !ok || inner == "" {
		return "", false
	}
	return inner, true
}

func fenceClose(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == fence {
			return j
		}
	}
	return -1
}

func heading(line string) (int, string, bool) {
	for level := 3; level >= 1; level-- {
		marker := strings.Repeat("#", level) + " "
		if text, ok := strings.CutPrefix(line, marker); ok {
			return level, text, true
		}
	}
	return 0, "", false
}

func quote(line string) (string, bool) {
	if line == ">" {
		return "", true
	}
	return strings.CutPrefix(line, "> ")
}

func taskItem(line string) (checked bool, text string, ok bool) {
	if len(line) < 5 || !strings.HasPrefix(line, "- [") || line[4] != ']' {
		return false, "", false
	}
	switch line[3] {
	case 'x', 'X':
		checked = true
	case ' ':
	default:
		return false, "", false
	}
	rest := line[5:]
	if rest != "" && rest[0] != ' ' {
		return false, "", false
	}
	return checked, strings.TrimPrefix(rest, " "), true
}

func orderedItem(line string) (num, text string, ok bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || !strings.HasPrefix(line[i:], ". ") {
		return "", "", false
	}
	return line[:i], line[i+2:], true
}
