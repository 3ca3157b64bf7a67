package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/fumiama/go-docx"

	"github.com/dgallion1/lessongest/internal/docstream"
)

// DOCXParser handles .docx files. go-docx supplies runs, styles and tables;
// list numbering and paragraph indents come from the package XML directly
// because go-docx does not parse numbering.xml.
type DOCXParser struct{}

// docxParaProps is what the body XML says about one top-level paragraph.
type docxParaProps struct {
	numID  string
	ilvl   int
	left   int
	images []docstream.Image
}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*docstream.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	size := int64(len(data))

	d, err := docx.Parse(bytes.NewReader(data), size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), size)
	if err != nil {
		return nil, fmt.Errorf("open docx package: %w", err)
	}
	lists, err := readZipXML(zr, "word/numbering.xml", parseNumbering)
	if err != nil {
		return nil, err
	}
	props, err := readZipXML(zr, "word/document.xml", parseBodyProps)
	if err != nil {
		return nil, err
	}

	doc := &docstream.Document{Title: baseTitle(filename), Lists: lists}
	if doc.Lists == nil {
		doc.Lists = docstream.ListStyles{}
	}

	images := 0
	k := 0
	for _, item := range d.Document.Body.Items {
		switch el := item.(type) {
		case *docx.Paragraph:
			var pp docxParaProps
			if k < len(props) {
				pp = props[k]
			}
			k++

			para, drawings := docxParagraph(el)
			para.StartIndent = pp.left
			if pp.numID != "" && pp.numID != "0" {
				para.Bullet = &docstream.Bullet{ListID: pp.numID, NestingLevel: pp.ilvl}
			}
			if strings.TrimSpace(para.Text()) != "" || drawings == 0 {
				doc.AddParagraph(para)
			}
			for i := 0; i < drawings; i++ {
				images++
				img := docstream.Image{Key: fmt.Sprintf("%s_image_%d", doc.Title, images)}
				if i < len(pp.images) && pp.images[i].Key != "" {
					img = pp.images[i]
				}
				doc.AddImage(img)
			}
		case *docx.Table:
			doc.AddTable(docxTable(el))
		}
	}
	return doc, nil
}

// docxParagraph converts runs and hyperlinks into stream runs and counts
// inline drawings.
func docxParagraph(para *docx.Paragraph) (docstream.Paragraph, int) {
	out := docstream.Paragraph{Style: "Normal"}
	if para.Properties != nil && para.Properties.Style != nil {
		out.Style = para.Properties.Style.Val
	}
	drawings := 0
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			run, n := docxRun(c)
			drawings += n
			if run.Text != "" {
				out.Runs = append(out.Runs, run)
			}
		case *docx.Hyperlink:
			run, n := docxRun(&c.Run)
			drawings += n
			run.Link = c.ID
			if run.Text != "" {
				out.Runs = append(out.Runs, run)
			}
		}
	}
	return out, drawings
}

func docxRun(r *docx.Run) (docstream.Run, int) {
	var run docstream.Run
	if rp := r.RunProperties; rp != nil {
		run.Bold = rp.Bold != nil
		run.Italic = rp.Italic != nil
		run.Underline = rp.Underline != nil
	}
	var buf strings.Builder
	drawings := 0
	for _, rc := range r.Children {
		switch t := rc.(type) {
		case *docx.Text:
			buf.WriteString(t.Text)
		case *docx.Tab:
			buf.WriteByte('\t')
		case *docx.BarterRabbet:
			buf.WriteByte('\n')
		case *docx.Drawing:
			drawings++
		}
	}
	run.Text = buf.String()
	return run, drawings
}

func docxTable(t *docx.Table) docstream.Table {
	rows := make([][][]docstream.Paragraph, 0, len(t.TableRows))
	for _, tr := range t.TableRows {
		row := make([][]docstream.Paragraph, 0, len(tr.TableCells))
		for _, tc := range tr.TableCells {
			cell := make([]docstream.Paragraph, 0, len(tc.Paragraphs))
			for _, p := range tc.Paragraphs {
				para, _ := docxParagraph(p)
				cell = append(cell, para)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return docstream.Table{Rows: rows}
}

// readZipXML parses one package part. A missing part yields the zero value.
func readZipXML[T any](zr *zip.Reader, name string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := zr.Open(name)
	if err != nil {
		return zero, nil
	}
	defer f.Close()
	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

// parseNumbering resolves every w:num to its abstract definition and
// records one glyph per level: numFmt is the glyph type, lvlText the
// rendered symbol.
func parseNumbering(r io.Reader) (docstream.ListStyles, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, err
	}

	abstract := make(map[string]map[int]docstream.Glyph)
	for _, an := range xmlquery.Find(root, "//*[local-name()='abstractNum']") {
		levels := make(map[int]docstream.Glyph)
		for _, lvl := range xmlquery.Find(an, "./*[local-name()='lvl']") {
			ilvl, err := strconv.Atoi(wordAttr(lvl, "ilvl"))
			if err != nil {
				continue
			}
			levels[ilvl] = docstream.Glyph{
				Type:   childVal(lvl, "numFmt"),
				Symbol: childVal(lvl, "lvlText"),
			}
		}
		abstract[wordAttr(an, "abstractNumId")] = levels
	}

	lists := docstream.ListStyles{}
	for _, num := range xmlquery.Find(root, "//*[local-name()='num']") {
		id := wordAttr(num, "numId")
		levels, ok := abstract[childVal(num, "abstractNumId")]
		if id == "" || !ok {
			continue
		}
		for lvl, g := range levels {
			lists.Set(id, lvl, g)
		}
	}
	return lists, nil
}

// parseBodyProps reads numbering, indent and drawing names for each
// top-level body paragraph, in document order.
func parseBodyProps(r io.Reader) ([]docxParaProps, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, err
	}

	var out []docxParaProps
	for _, p := range xmlquery.Find(root, "//*[local-name()='body']/*[local-name()='p']") {
		var pp docxParaProps
		if numPr := xmlquery.FindOne(p, "./*[local-name()='pPr']/*[local-name()='numPr']"); numPr != nil {
			pp.numID = childVal(numPr, "numId")
			pp.ilvl, _ = strconv.Atoi(childVal(numPr, "ilvl"))
		}
		if ind := xmlquery.FindOne(p, "./*[local-name()='pPr']/*[local-name()='ind']"); ind != nil {
			left := wordAttr(ind, "left")
			if left == "" {
				left = wordAttr(ind, "start")
			}
			pp.left, _ = strconv.Atoi(left)
		}
		for _, dp := range xmlquery.Find(p, ".//*[local-name()='docPr']") {
			pp.images = append(pp.images, docstream.Image{
				Key:     wordAttr(dp, "name"),
				AltText: wordAttr(dp, "descr"),
			})
		}
		out = append(out, pp)
	}
	return out, nil
}

// wordAttr returns an attribute by local name, whatever its prefix.
func wordAttr(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// childVal returns the w:val attribute of the first child element with the
// given local name.
func childVal(n *xmlquery.Node, local string) string {
	c := xmlquery.FindOne(n, "./*[local-name()='"+local+"']")
	if c == nil {
		return ""
	}
	return wordAttr(c, "val")
}
