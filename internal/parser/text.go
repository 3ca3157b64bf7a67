package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/lessongest/internal/docstream"
)

// spaceTwips is the indent one leading space contributes; four spaces (or
// one tab) make one nesting level.
const spaceTwips = 180

// TextParser handles plain text files.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*docstream.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	doc := &docstream.Document{Title: baseTitle(filename)}
	for _, para := range splitParagraphs(lines) {
		doc.AddParagraph(para)
	}
	return doc, nil
}

// splitParagraphs groups lines into paragraphs at blank lines. The first
// line's leading whitespace becomes the paragraph's start indent.
func splitParagraphs(lines []string) []docstream.Paragraph {
	var out []docstream.Paragraph
	var current []string
	indent := 0

	flush := func() {
		if len(current) > 0 {
			out = append(out, docstream.Paragraph{
				Runs:        []docstream.Run{{Text: strings.Join(current, "\n")}},
				Style:       "Normal",
				StartIndent: indent,
			})
			current = nil
		}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if len(current) == 0 {
			indent = leadingIndent(line)
		}
		current = append(current, strings.TrimSpace(line))
	}
	flush()
	return out
}

func leadingIndent(line string) int {
	spaces := 0
	for _, r := range line {
		switch r {
		case ' ':
			spaces++
		case '\t':
			spaces += 4
		default:
			return spaces * spaceTwips
		}
	}
	return spaces * spaceTwips
}
