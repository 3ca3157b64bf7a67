// Package builder turns a paragraph stream into an ordered node sequence.
package builder

import (
	"regexp"
	"strings"

	"github.com/dgallion1/lessongest/internal/classify"
	"github.com/dgallion1/lessongest/internal/doctree"
	"github.com/dgallion1/lessongest/internal/docstream"
)

// DefaultIndentUnit is one nesting level in twips (half an inch).
const DefaultIndentUnit = 720

// DefaultFieldLabels are the label-only lines captured as scalar fields.
var DefaultFieldLabels = []string{"Title", "Subtitle", "Prompt", "Instructions"}

// Options controls tree building.
type Options struct {
	IndentUnit  int
	FieldLabels []string
}

// DefaultOptions returns the standard builder settings.
func DefaultOptions() Options {
	return Options{
		IndentUnit:  DefaultIndentUnit,
		FieldLabels: DefaultFieldLabels,
	}
}

// Result is a built tree plus the scalar fields captured along the way.
type Result struct {
	Title  string            `json:"title,omitempty"`
	Fields map[string]string `json:"fields"`
	Nodes  []doctree.Node    `json:"nodes"`
}

// State is the pending context carried from one paragraph to the next.
type State interface{ pending() string }

// NoContext means nothing is pending.
type NoContext struct{}

// AwaitingContinuation means a label-only line was seen and the next
// paragraph supplies the field's value.
type AwaitingContinuation struct{ Field string }

func (NoContext) pending() string              { return "" }
func (a AwaitingContinuation) pending() string { return a.Field }

var (
	labelPattern     = regexp.MustCompile(`^([\p{L}][\p{L} ]{0,39}):\s*(.*)$`)
	imageOnlyPattern = regexp.MustCompile(`(?i)^\[image:([^\s\]]+)\]$`)
)

// Builder builds node trees. It holds only configuration and is safe for
// concurrent use.
type Builder struct {
	indentUnit int
	labels     map[string]string
}

// New creates a Builder. Zero option values fall back to defaults.
func New(opts Options) *Builder {
	if opts.IndentUnit <= 0 {
		opts.IndentUnit = DefaultIndentUnit
	}
	if opts.FieldLabels == nil {
		opts.FieldLabels = DefaultFieldLabels
	}
	labels := make(map[string]string, len(opts.FieldLabels))
	for _, l := range opts.FieldLabels {
		labels[strings.ToLower(strings.TrimSpace(l))] = fieldKey(l)
	}
	return &Builder{indentUnit: opts.IndentUnit, labels: labels}
}

// BuildTree builds a node sequence with default options.
func BuildTree(doc *docstream.Document) []doctree.Node {
	return New(DefaultOptions()).Build(doc).Nodes
}

// Build walks the stream and emits one node per paragraph, table or image.
func (b *Builder) Build(doc *docstream.Document) *Result {
	res := &Result{Title: doc.Title, Fields: make(map[string]string)}
	var state State = NoContext{}

	for _, blk := range doc.Blocks {
		switch {
		case blk.Paragraph != nil:
			var node *doctree.Node
			node, state = b.step(state, blk.Paragraph, doc.Lists, res.Fields)
			if node != nil {
				res.Nodes = append(res.Nodes, *node)
			}
		case blk.Table != nil:
			state = NoContext{}
			res.Nodes = append(res.Nodes, TableNode(blk.Table))
		case blk.Image != nil:
			state = NoContext{}
			res.Nodes = append(res.Nodes, imageNode(blk.Image))
		}
	}
	return res
}

// step consumes one paragraph. It returns the node to emit (nil when the
// paragraph fed a field) and the next state.
func (b *Builder) step(state State, p *docstream.Paragraph, lists docstream.ListStyles, fields map[string]string) (*doctree.Node, State) {
	text := strings.TrimSpace(p.Text())
	tier := classify.StyleTier(p.Style)

	if field := state.pending(); field != "" {
		if text == "" {
			return nil, state
		}
		if tier < 3 && !classify.IsHeading(text, p.Style) {
			fields[field] = text
			return nil, NoContext{}
		}
	}

	if text != "" && (tier == 1 || tier == 2) {
		key := "title"
		if tier == 2 {
			key = "subtitle"
		}
		if _, seen := fields[key]; !seen {
			fields[key] = text
			return nil, NoContext{}
		}
	}

	if m := labelPattern.FindStringSubmatch(text); m != nil {
		if key, ok := b.labels[strings.ToLower(strings.TrimSpace(m[1]))]; ok {
			value := strings.TrimSpace(m[2])
			if value == "" {
				return nil, AwaitingContinuation{Field: key}
			}
			fields[key] = value
			return nil, NoContext{}
		}
	}

	if m := imageOnlyPattern.FindStringSubmatch(text); m != nil {
		node := doctree.Node{Kind: doctree.KindImage, ImageKey: m[1], Indent: b.indent(p)}
		return &node, NoContext{}
	}

	node := b.ParagraphNode(p, lists)
	return &node, NoContext{}
}

// ParagraphNode classifies a single paragraph.
func (b *Builder) ParagraphNode(p *docstream.Paragraph, lists docstream.ListStyles) doctree.Node {
	indent := b.indent(p)
	var glyph *docstream.Glyph
	if g, ok := lists.Lookup(p.Bullet); ok {
		glyph = &g
	}
	hint := classify.Classify(p.Text(), p.Style, classify.Context{
		Bullet: p.Bullet,
		Glyph:  glyph,
		Indent: indent,
	})

	node := doctree.Node{
		Kind:    hint.Kind,
		Level:   hint.Level,
		Indent:  indent,
		Inlines: spans(p.Runs),
	}
	ExtractAudioTag(&node)
	return node
}

func (b *Builder) indent(p *docstream.Paragraph) int {
	switch {
	case p.NestingLevel != nil:
		return max(*p.NestingLevel, 0)
	case p.Bullet != nil:
		return max(p.Bullet.NestingLevel, 0)
	case p.StartIndent > 0:
		return p.StartIndent / b.indentUnit
	}
	return 0
}

func spans(runs []docstream.Run) []doctree.InlineSpan {
	if len(runs) == 0 {
		return nil
	}
	out := make([]doctree.InlineSpan, 0, len(runs))
	for _, r := range runs {
		// Link targets are resolved downstream by the assembler.
		out = append(out, doctree.InlineSpan{
			Text:      r.Text,
			Bold:      r.Bold,
			Italic:    r.Italic,
			Underline: r.Underline,
		})
	}
	return out
}

// TableNode flattens a table block. Each cell becomes its paragraphs joined
// by newlines; short rows are padded so every row has Cols entries.
func TableNode(t *docstream.Table) doctree.Node {
	cols := 0
	for _, row := range t.Rows {
		cols = max(cols, len(row))
	}
	cells := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = make([]string, cols)
		for j, cell := range row {
			lines := make([]string, 0, len(cell))
			for k := range cell {
				lines = append(lines, cell[k].Text())
			}
			cells[i][j] = strings.TrimSpace(strings.Join(lines, "\n"))
		}
	}
	return doctree.Node{
		Kind:  doctree.KindTable,
		Rows:  len(t.Rows),
		Cols:  cols,
		Cells: cells,
	}
}

func imageNode(img *docstream.Image) doctree.Node {
	n := doctree.Node{Kind: doctree.KindImage, ImageKey: img.Key}
	if img.AltText != "" {
		n.Extra = map[string]any{"alt": img.AltText}
	}
	return n
}

func fieldKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}
