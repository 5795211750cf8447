// Package content turns stored article and news text into renderable blocks
// and sanitised HTML.
package content

import (
	"strings"
	"unicode/utf8"
)

// BlockKind identifies how a line of body text is rendered.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading2
	Heading3
	Break
)

// Block is one rendered unit of body text.
type Block struct {
	Kind BlockKind
	Text string
}

// IsHeading2 and friends let templates switch on the kind.
func (b Block) IsHeading2() bool  { return b.Kind == Heading2 }
func (b Block) IsHeading3() bool  { return b.Kind == Heading3 }
func (b Block) IsBreak() bool     { return b.Kind == Break }
func (b Block) IsParagraph() bool { return b.Kind == Paragraph }

// Parse splits text into blocks line by line. "## " and "### " prefixes
// start headings, blank lines become breaks and anything else is a paragraph.
func Parse(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "### "):
			blocks = append(blocks, Block{Kind: Heading3, Text: strings.TrimSpace(line[4:])})
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, Block{Kind: Heading2, Text: strings.TrimSpace(line[3:])})
		case strings.TrimSpace(line) == "":
			blocks = append(blocks, Block{Kind: Break})
		default:
			blocks = append(blocks, Block{Kind: Paragraph, Text: line})
		}
	}
	return blocks
}

// WordsPerMinute is the reading speed behind ReadingTime.
const WordsPerMinute = 200

// ReadingTime estimates minutes needed to read text, never less than one.
func ReadingTime(text string) int {
	words := len(strings.Fields(text))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
