package parser

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/lessongest/internal/docstream"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

type mdWalker struct {
	src   []byte
	doc   *docstream.Document
	lists int
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*docstream.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(src))

	w := &mdWalker{
		src: src,
		doc: &docstream.Document{Title: baseTitle(filename), Lists: docstream.ListStyles{}},
	}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, "Normal")
	}
	return w.doc, nil
}

func (w *mdWalker) block(n ast.Node, style string) {
	switch node := n.(type) {
	case *ast.Heading:
		w.paragraph(node, headingStyle(node.Level), nil)
	case *ast.Paragraph, *ast.TextBlock:
		w.paragraph(node, style, nil)
	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c, "Quote")
		}
	case *ast.List:
		w.list(node, 0)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		w.code(node)
	case *east.Table:
		w.table(node)
	case *ast.ThematicBreak, *ast.HTMLBlock:
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c, style)
		}
	}
}

// list registers a glyph for every list, nested ones included, so sibling
// sublists of different types keep their own numbering.
func (w *mdWalker) list(l *ast.List, level int) {
	w.lists++
	id := fmt.Sprintf("md-%d", w.lists)
	glyph := docstream.Glyph{Type: "bullet", Symbol: string(l.Marker)}
	if l.IsOrdered() {
		glyph = docstream.Glyph{Type: "decimal", Symbol: fmt.Sprintf("%%%d%c", level+1, l.Marker)}
	}
	w.doc.Lists.Set(id, level, glyph)

	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch child := c.(type) {
			case *ast.List:
				w.list(child, level+1)
			case *ast.Paragraph, *ast.TextBlock:
				w.paragraph(child, "ListParagraph", &docstream.Bullet{ListID: id, NestingLevel: level})
			default:
				w.block(child, "Normal")
			}
		}
	}
}

func (w *mdWalker) paragraph(n ast.Node, style string, bullet *docstream.Bullet) {
	var runs []docstream.Run
	var images []docstream.Image
	w.inlines(n, docstream.Run{}, &runs, &images)

	para := docstream.Paragraph{Runs: trimTrailing(runs), Style: style, Bullet: bullet}
	if strings.TrimSpace(para.Text()) != "" {
		w.doc.AddParagraph(para)
	}
	for _, img := range images {
		w.doc.AddImage(img)
	}
}

// inlines flattens inline children into runs. Emphasis level 1 is italic
// and level 2 bold; images are lifted out as separate blocks.
func (w *mdWalker) inlines(n ast.Node, style docstream.Run, runs *[]docstream.Run, images *[]docstream.Image) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			run := style
			run.Text = string(node.Segment.Value(w.src))
			if node.HardLineBreak() {
				run.Text += "\n"
			} else if node.SoftLineBreak() {
				run.Text += " "
			}
			*runs = append(*runs, run)
		case *ast.String:
			run := style
			run.Text = string(node.Value)
			*runs = append(*runs, run)
		case *ast.CodeSpan:
			w.inlines(node, style, runs, images)
		case *ast.Emphasis:
			inner := style
			if node.Level >= 2 {
				inner.Bold = true
			} else {
				inner.Italic = true
			}
			w.inlines(node, inner, runs, images)
		case *ast.Link:
			inner := style
			inner.Link = string(node.Destination)
			w.inlines(node, inner, runs, images)
		case *ast.AutoLink:
			run := style
			run.Text = string(node.Label(w.src))
			run.Link = string(node.URL(w.src))
			*runs = append(*runs, run)
		case *ast.Image:
			dest := string(node.Destination)
			var alt []docstream.Run
			w.inlines(node, docstream.Run{}, &alt, images)
			altText := (&docstream.Paragraph{Runs: alt}).Text()
			*images = append(*images, docstream.Image{
				Key:     strings.TrimSuffix(path.Base(dest), path.Ext(dest)),
				AltText: altText,
			})
		default:
			w.inlines(node, style, runs, images)
		}
	}
}

func trimTrailing(runs []docstream.Run) []docstream.Run {
	if len(runs) > 0 {
		last := &runs[len(runs)-1]
		last.Text = strings.TrimRight(last.Text, " \n")
	}
	return runs
}

func (w *mdWalker) code(n ast.Node) {
	var buf strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(w.src))
	}
	body := strings.TrimRight(buf.String(), "\n")
	if body == "" {
		return
	}
	w.doc.AddParagraph(docstream.PlainParagraph(body, "Code"))
}

func (w *mdWalker) table(t *east.Table) {
	var rows [][][]docstream.Paragraph
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		var row [][]docstream.Paragraph
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			var runs []docstream.Run
			var images []docstream.Image
			w.inlines(c, docstream.Run{}, &runs, &images)
			row = append(row, []docstream.Paragraph{{Runs: trimTrailing(runs), Style: "Normal"}})
		}
		rows = append(rows, row)
	}
	w.doc.AddTable(docstream.Table{Rows: rows})
}
