// Package docstream holds the flat, style-annotated paragraph stream that
// format readers produce and the tree builder consumes.
package docstream

// Run is a contiguous piece of text sharing one set of style flags.
type Run struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Link      string
}

// Bullet ties a paragraph to a list definition.
type Bullet struct {
	ListID       string
	NestingLevel int
}

// Glyph describes how one nesting level of a list is rendered.
type Glyph struct {
	Type   string // decimal, lowerLetter, upperRoman, bullet, ...
	Symbol string // rendered text for bullets, level text for numbered lists
}

// ListStyles maps list id -> nesting level -> glyph.
type ListStyles map[string]map[int]Glyph

// Lookup returns the glyph for a bullet, if the document defines one.
func (ls ListStyles) Lookup(b *Bullet) (Glyph, bool) {
	if ls == nil || b == nil {
		return Glyph{}, false
	}
	levels, ok := ls[b.ListID]
	if !ok {
		return Glyph{}, false
	}
	g, ok := levels[b.NestingLevel]
	return g, ok
}

// Set records a glyph, creating the level map as needed.
func (ls ListStyles) Set(listID string, level int, g Glyph) {
	levels, ok := ls[listID]
	if !ok {
		levels = make(map[int]Glyph)
		ls[listID] = levels
	}
	levels[level] = g
}

// Paragraph is one paragraph of the stream.
type Paragraph struct {
	Runs  []Run
	Style string // named style tier, e.g. "Normal", "Heading3", "Title"

	Bullet *Bullet

	// NestingLevel is an explicit indent level. When nil the builder
	// quantizes StartIndent instead.
	NestingLevel *int
	StartIndent  int // twips
}

// Text concatenates all runs.
func (p *Paragraph) Text() string {
	n := 0
	for _, r := range p.Runs {
		n += len(r.Text)
	}
	buf := make([]byte, 0, n)
	for _, r := range p.Runs {
		buf = append(buf, r.Text...)
	}
	return string(buf)
}

// Table is a grid of cells, each holding its own paragraphs.
type Table struct {
	Rows [][][]Paragraph
}

// Image is an embedded picture referenced by key.
type Image struct {
	Key     string
	AltText string
}

// Block is one body element: exactly one field is set.
type Block struct {
	Paragraph *Paragraph
	Table     *Table
	Image     *Image
}

// Document is a full paragraph stream plus its list-style table.
type Document struct {
	Title  string
	Blocks []Block
	Lists  ListStyles
}

// AddParagraph appends a paragraph block.
func (d *Document) AddParagraph(p Paragraph) {
	d.Blocks = append(d.Blocks, Block{Paragraph: &p})
}

// AddTable appends a table block.
func (d *Document) AddTable(t Table) {
	d.Blocks = append(d.Blocks, Block{Table: &t})
}

// AddImage appends an image block.
func (d *Document) AddImage(img Image) {
	d.Blocks = append(d.Blocks, Block{Image: &img})
}

// PlainParagraph builds a single-run paragraph with the given style.
func PlainParagraph(text, style string) Paragraph {
	return Paragraph{Runs: []Run{{Text: text}}, Style: style}
}
