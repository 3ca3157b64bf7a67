package parser

import (
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/lessongest/internal/docstream"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

type htmlWalker struct {
	doc   *docstream.Document
	lists int
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*docstream.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &docstream.Document{Title: baseTitle(filename), Lists: docstream.ListStyles{}}

	// Extract title from <title> tag if present.
	if title := findTitle(root); title != "" {
		doc.Title = title
	}

	w := &htmlWalker{doc: doc}
	if body := findBody(root); body != nil {
		w.walk(body, "Normal")
	} else {
		w.walk(root, "Normal")
	}
	return doc, nil
}

func (w *htmlWalker) walk(n *html.Node, style string) {
	if n.Type == html.ElementNode {
		if level := headingLevel(n.Data); level > 0 {
			w.paragraph(n, headingStyle(level), nil)
			return
		}

		// Skip non-content elements.
		switch n.Data {
		case "script", "style", "nav", "footer", "header":
			return
		case "p", "figcaption":
			if n.Data == "figcaption" {
				style = "Caption"
			}
			w.paragraph(n, style, nil)
			return
		case "blockquote":
			style = "Quote"
			if !hasBlockChild(n) {
				w.paragraph(n, style, nil)
				return
			}
		case "ul", "ol":
			w.list(n, 0)
			return
		case "table":
			w.table(n)
			return
		case "img":
			w.image(n)
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, style)
	}
}

// list emits one paragraph per <li>. Every <ul>/<ol> gets its own list id,
// so sibling sublists keep their own glyphs.
func (w *htmlWalker) list(n *html.Node, level int) {
	w.lists++
	id := fmt.Sprintf("html-%d", w.lists)
	glyph := docstream.Glyph{Type: "bullet", Symbol: "•"}
	if n.Data == "ol" {
		glyph = docstream.Glyph{Type: "decimal", Symbol: fmt.Sprintf("%%%d.", level+1)}
	}
	w.doc.Lists.Set(id, level, glyph)

	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		w.paragraph(li, "ListParagraph", &docstream.Bullet{ListID: id, NestingLevel: level})
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				w.list(c, level+1)
			}
		}
	}
}

func (w *htmlWalker) paragraph(n *html.Node, style string, bullet *docstream.Bullet) {
	var runs []docstream.Run
	collectRuns(n, docstream.Run{}, &runs)
	if len(runs) > 0 {
		runs[0].Text = strings.TrimLeft(runs[0].Text, " ")
		runs[len(runs)-1].Text = strings.TrimRight(runs[len(runs)-1].Text, " ")
	}
	para := docstream.Paragraph{Runs: runs, Style: style, Bullet: bullet}
	if strings.TrimSpace(para.Text()) == "" {
		return
	}
	w.doc.AddParagraph(para)
}

func (w *htmlWalker) table(n *html.Node) {
	var rows [][][]docstream.Paragraph
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var row [][]docstream.Paragraph
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					row = append(row, []docstream.Paragraph{docstream.PlainParagraph(textContent(c), "Normal")})
				}
			}
			rows = append(rows, row)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	if len(rows) > 0 {
		w.doc.AddTable(docstream.Table{Rows: rows})
	}
}

func (w *htmlWalker) image(n *html.Node) {
	src := attr(n, "src")
	if src == "" {
		return
	}
	key := strings.TrimSuffix(path.Base(src), path.Ext(src))
	w.doc.AddImage(docstream.Image{Key: key, AltText: attr(n, "alt")})
}

// collectRuns flattens inline content into runs, carrying bold, italic,
// underline and link state down the tree.
func collectRuns(n *html.Node, style docstream.Run, out *[]docstream.Run) {
	switch n.Type {
	case html.TextNode:
		text := collapseSpace(n.Data)
		if text == "" {
			return
		}
		run := style
		run.Text = text
		*out = append(*out, run)
		return
	case html.ElementNode:
		switch n.Data {
		case "b", "strong":
			style.Bold = true
		case "i", "em":
			style.Italic = true
		case "u", "ins":
			style.Underline = true
		case "a":
			style.Link = attr(n, "href")
		case "br":
			*out = append(*out, docstream.Run{Text: "\n"})
			return
		case "ul", "ol", "script", "style":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectRuns(c, style, out)
	}
}

// collapseSpace folds runs of HTML whitespace into single spaces, keeping a
// leading or trailing space so adjacent runs stay separated.
func collapseSpace(s string) string {
	if strings.TrimSpace(s) == "" {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(strings.Fields(s), " ")
	if strings.IndexAny(s[:1], " \t\r\n") == 0 {
		out = " " + out
	}
	if strings.IndexAny(s[len(s)-1:], " \t\r\n") == 0 {
		out += " "
	}
	return out
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "p", "ul", "ol", "table", "h1", "h2", "h3", "h4", "h5", "h6":
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
