package doctree

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags a Node. The string values are the wire format.
type Kind string

const (
	KindHeading      Kind = "heading"
	KindParagraph    Kind = "paragraph"
	KindListItem     Kind = "list_item"
	KindNumberedItem Kind = "numbered_item"
	KindTable        Kind = "table"
	KindImage        Kind = "image"
	KindMiscItem     Kind = "misc_item"
)

// ErrInvalidNode marks structurally invalid input, usually an upstream builder bug.
var ErrInvalidNode = errors.New("invalid node")

// InlineSpan is one styled run of text. Order within a node is significant.
type InlineSpan struct {
	Text      string `json:"text" yaml:"text"`
	Bold      bool   `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty" yaml:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty" yaml:"underline,omitempty"`
	Link      string `json:"link,omitempty" yaml:"link,omitempty"`
}

// Node is one classified unit of document content. Kind decides which
// fields are populated; the rest stay at their zero value and are omitted
// from JSON.
type Node struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	Indent int    `json:"indent" yaml:"indent"`
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`

	AudioKey     string `json:"audio_key,omitempty" yaml:"audio_key,omitempty"`
	AudioSeq     int    `json:"audio_seq,omitempty" yaml:"audio_seq,omitempty"`
	AudioSection string `json:"audio_section,omitempty" yaml:"audio_section,omitempty"`

	// Heading only, 1..6.
	Level int `json:"level,omitempty" yaml:"level,omitempty"`

	// heading, paragraph, list_item, numbered_item, misc_item.
	Inlines []InlineSpan `json:"inlines,omitempty" yaml:"inlines,omitempty"`

	// Table only. Cells is row-major and every row has Cols entries.
	Rows  int        `json:"rows,omitempty" yaml:"rows,omitempty"`
	Cols  int        `json:"cols,omitempty" yaml:"cols,omitempty"`
	Cells [][]string `json:"cells,omitempty" yaml:"cells,omitempty"`

	// Image only.
	ImageKey string `json:"image_key,omitempty" yaml:"image_key,omitempty"`
	ImageURL string `json:"image_url,omitempty" yaml:"image_url,omitempty"`

	// Non-structural extension fields such as caption or alt text.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Tree is an ordered node sequence for one section/language pair.
type Tree []Node

// IsTextKind reports whether k carries inline spans.
func IsTextKind(k Kind) bool {
	switch k {
	case KindHeading, KindParagraph, KindListItem, KindNumberedItem, KindMiscItem:
		return true
	}
	return false
}

// PlainText concatenates the text of all inlines.
func (n *Node) PlainText() string {
	var sb strings.Builder
	for _, in := range n.Inlines {
		sb.WriteString(in.Text)
	}
	return sb.String()
}

// FirstText returns the first non-blank inline text. Tables fall back to the
// first non-blank cell and images to their key, so every kind has a lead text.
func (n *Node) FirstText() string {
	for _, in := range n.Inlines {
		if strings.TrimSpace(in.Text) != "" {
			return in.Text
		}
	}
	for _, row := range n.Cells {
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				return c
			}
		}
	}
	return n.ImageKey
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	out := n
	if n.Inlines != nil {
		out.Inlines = append([]InlineSpan(nil), n.Inlines...)
	}
	if n.Cells != nil {
		out.Cells = make([][]string, len(n.Cells))
		for i, row := range n.Cells {
			out.Cells[i] = append([]string(nil), row...)
		}
	}
	if n.Extra != nil {
		out.Extra = make(map[string]any, len(n.Extra))
		for k, v := range n.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// CloneTree deep-copies every node of t.
func CloneTree(t []Node) []Node {
	if t == nil {
		return nil
	}
	out := make([]Node, len(t))
	for i := range t {
		out[i] = t[i].Clone()
	}
	return out
}

// Validate checks the structural invariants of a single node.
func Validate(n *Node) error {
	if n.Indent < 0 {
		return fmt.Errorf("%w: %s has negative indent %d", ErrInvalidNode, n.Kind, n.Indent)
	}
	switch n.Kind {
	case KindHeading:
		if n.Level < 1 || n.Level > 6 {
			return fmt.Errorf("%w: heading level %d outside 1..6", ErrInvalidNode, n.Level)
		}
	case KindTable:
		if len(n.Cells) != n.Rows {
			return fmt.Errorf("%w: table declares %d rows, has %d", ErrInvalidNode, n.Rows, len(n.Cells))
		}
		for i, row := range n.Cells {
			if len(row) != n.Cols {
				return fmt.Errorf("%w: table row %d has %d cells, declared cols %d", ErrInvalidNode, i, len(row), n.Cols)
			}
		}
	case KindParagraph, KindListItem, KindNumberedItem, KindMiscItem, KindImage:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidNode, n.Kind)
	}
	return nil
}

// ValidateTree validates every node, reporting the first failure with its index.
func ValidateTree(t []Node) error {
	for i := range t {
		if err := Validate(&t[i]); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
	}
	return nil
}
