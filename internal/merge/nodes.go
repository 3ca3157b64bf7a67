package merge

import (
	"strings"

	"github.com/dgallion1/lessongest/internal/doctree"
)

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// mergePair merges a matched pair according to the primary node's kind.
// Neither input is modified.
func mergePair(p, s *doctree.Node) doctree.Node {
	switch p.Kind {
	case doctree.KindHeading, doctree.KindParagraph, doctree.KindListItem, doctree.KindMiscItem:
		return mergeText(p, s)
	case doctree.KindTable:
		return mergeTable(p, s)
	default:
		return mergeGeneric(p, s)
	}
}

// mergeText replaces the primary spans with the secondary's. A secondary
// that reduces to one non-empty span is a full-line translation; otherwise
// spans merge by position and trailing empty spans are trimmed.
func mergeText(p, s *doctree.Node) doctree.Node {
	out := p.Clone()
	adoptAudio(&out, s)

	var only *doctree.InlineSpan
	nonEmpty := 0
	for i := range s.Inlines {
		if !blank(s.Inlines[i].Text) {
			nonEmpty++
			only = &s.Inlines[i]
		}
	}
	if nonEmpty == 1 {
		span := *only
		if span.Link == "" && len(p.Inlines) == 1 {
			span.Link = p.Inlines[0].Link
		}
		out.Inlines = []doctree.InlineSpan{span}
		return out
	}

	n := max(len(p.Inlines), len(s.Inlines))
	spans := make([]doctree.InlineSpan, 0, n)
	for i := 0; i < n; i++ {
		var ps, ss doctree.InlineSpan
		if i < len(p.Inlines) {
			ps = p.Inlines[i]
		}
		if i < len(s.Inlines) {
			ss = s.Inlines[i]
		}
		if blank(ss.Text) {
			spans = append(spans, ps)
			continue
		}
		if ss.Link == "" {
			ss.Link = ps.Link
		}
		spans = append(spans, ss)
	}
	out.Inlines = trimTrailingEmpty(spans)
	return out
}

func trimTrailingEmpty(spans []doctree.InlineSpan) []doctree.InlineSpan {
	end := len(spans)
	for end > 0 && blank(spans[end-1].Text) {
		end--
	}
	if end == 0 {
		return nil
	}
	return spans[:end]
}

// sameShape reports whether two tables have identical row counts and
// per-row cell counts.
func sameShape(a, b *doctree.Node) bool {
	if a.Rows != b.Rows || len(a.Cells) != len(b.Cells) {
		return false
	}
	for i := range a.Cells {
		if len(a.Cells[i]) != len(b.Cells[i]) {
			return false
		}
	}
	return true
}

// mergeTable merges cell by cell when shapes agree. Any shape difference
// keeps the primary table unchanged.
func mergeTable(p, s *doctree.Node) doctree.Node {
	out := p.Clone()
	if s.Kind != doctree.KindTable || !sameShape(p, s) {
		return out
	}
	for i, row := range s.Cells {
		for j, cell := range row {
			if !blank(cell) {
				out.Cells[i][j] = cell
			}
		}
	}
	adoptAudio(&out, s)
	return out
}

// mergeGeneric lays every populated secondary field over the primary, then
// restores the structural fields from the primary wherever it has them.
func mergeGeneric(p, s *doctree.Node) doctree.Node {
	out := s.Clone()
	fill := p.Clone()

	if !hasText(out.Inlines) {
		out.Inlines = fill.Inlines
	}
	if out.ImageKey == "" {
		out.ImageKey = fill.ImageKey
	}
	if out.ImageURL == "" {
		out.ImageURL = fill.ImageURL
	}
	if len(out.Cells) == 0 {
		out.Rows, out.Cols, out.Cells = fill.Rows, fill.Cols, fill.Cells
	}
	if len(fill.Extra) > 0 {
		merged := fill.Extra
		for k, v := range out.Extra {
			merged[k] = v
		}
		out.Extra = merged
	}

	out.Kind = p.Kind
	out.Indent = p.Indent
	out.Level = p.Level
	if p.ID != "" {
		out.ID = p.ID
	}
	if p.AudioKey != "" {
		out.AudioKey = p.AudioKey
	}
	if p.AudioSeq != 0 {
		out.AudioSeq = p.AudioSeq
	}
	if p.AudioSection != "" {
		out.AudioSection = p.AudioSection
	}
	return out
}

// adoptAudio copies audio metadata the primary lacks from the secondary.
func adoptAudio(dst *doctree.Node, s *doctree.Node) {
	if dst.AudioKey == "" {
		dst.AudioKey = s.AudioKey
	}
	if dst.AudioSeq == 0 {
		dst.AudioSeq = s.AudioSeq
	}
	if dst.AudioSection == "" {
		dst.AudioSection = s.AudioSection
	}
}

func hasText(spans []doctree.InlineSpan) bool {
	for _, in := range spans {
		if !blank(in.Text) {
			return true
		}
	}
	return false
}

// Substantive reports whether n carries real content rather than being an
// empty structural placeholder. Text kinds need non-blank inline text,
// tables a non-blank cell; other kinds need a populated non-metadata field.
func Substantive(n *doctree.Node) bool {
	switch {
	case doctree.IsTextKind(n.Kind):
		return hasText(n.Inlines)
	case n.Kind == doctree.KindTable:
		for _, row := range n.Cells {
			for _, c := range row {
				if !blank(c) {
					return true
				}
			}
		}
		return false
	}
	if hasText(n.Inlines) || n.ImageKey != "" || n.ImageURL != "" || len(n.Cells) > 0 {
		return true
	}
	for _, v := range n.Extra {
		if s, ok := v.(string); ok {
			if !blank(s) {
				return true
			}
			continue
		}
		if v != nil {
			return true
		}
	}
	return false
}
