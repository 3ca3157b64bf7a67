package classify

import (
	"strings"

	"github.com/dgallion1/lessongest/internal/doctree"
	"github.com/dgallion1/lessongest/internal/docstream"
)

// Hint is the classifier's verdict for one paragraph.
type Hint struct {
	Kind  doctree.Kind
	Level int // heading only
}

// Context is the style context surrounding a paragraph.
type Context struct {
	Bullet *docstream.Bullet
	Glyph  *docstream.Glyph // nil when the document has no glyph for Bullet
	Indent int
}

var miscStyles = map[string]bool{
	"caption":      true,
	"quote":        true,
	"intensequote": true,
	"note":         true,
	"tip":          true,
}

// IsMiscStyle reports whether style marks a side item (caption, quote, note).
func IsMiscStyle(style string) bool {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(style), " ", ""))
	return miscStyles[s]
}

// Classify decides the node kind for a paragraph. It never fails: anything
// it cannot place is a paragraph.
func Classify(text, style string, ctx Context) Hint {
	if strings.TrimSpace(text) == "" {
		return Hint{Kind: doctree.KindParagraph}
	}

	// Numbered heading styles carry list metadata too; the style tier wins.
	if ctx.Bullet != nil && StyleTier(style) < 3 {
		if ctx.Glyph == nil {
			return Hint{Kind: doctree.KindListItem}
		}
		return Hint{Kind: GlyphKind(*ctx.Glyph)}
	}

	if h, ok := HeadingHint(text, style); ok {
		return h
	}
	if IsMiscStyle(style) {
		return Hint{Kind: doctree.KindMiscItem}
	}
	return Hint{Kind: ManualListKind(text)}
}
