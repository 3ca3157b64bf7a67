package classify

import (
	"regexp"
	"strings"

	"github.com/dgallion1/lessongest/internal/doctree"
	"github.com/dgallion1/lessongest/internal/docstream"
)

// numberedGlyphTypes are list numbering formats that render an ordinal.
var numberedGlyphTypes = map[string]bool{
	"decimal":               true,
	"decimalzero":           true,
	"decimalenclosedparen":  true,
	"decimalenclosedcircle": true,
	"decimalfullwidth":      true,
	"lowerletter":           true,
	"upperletter":           true,
	"lowerroman":            true,
	"upperroman":            true,
	"alphabetic":            true,
	"roman":                 true,
	"ordinal":               true,
	"cardinaltext":          true,
	"ordinaltext":           true,
	"ganada":                true,
	"chosung":               true,
	"ideographdigital":      true,
	"japanesecounting":      true,
}

// bulletSymbols are glyphs Word and friends use for unordered lists. Word's
// Courier "o" is left out: typed at line start it is usually an article.
const bulletSymbols = "•◦▪▫●○■□◆◇➢➤►▸✓✔–*·-"

// manualNumbered are tried in order against text typed without list metadata.
var manualNumbered = []*regexp.Regexp{
	regexp.MustCompile(`^\d{1,3}\.\s+\S`),
	regexp.MustCompile(`^\d{1,3}\)\s+\S`),
	regexp.MustCompile(`^[A-Za-z]\.\s+\S`),
}

// manualRoman accepts well-formed numerals up to 399 followed by a dot.
var manualRoman = regexp.MustCompile(`^((?i)c{0,3}(?:xc|xl|l?x{0,3})(?:ix|iv|v?i{0,3}))\.\s+\S`)

var manualBullet = regexp.MustCompile(`^[` + strings.ReplaceAll(regexp.QuoteMeta(bulletSymbols), "-", `\-`) + `]\s+\S`)

// levelPlaceholder matches numbering level text such as "%1." or "(%2)".
var levelPlaceholder = regexp.MustCompile(`%[1-9]`)

// GlyphKind maps list glyph metadata to a node kind. Unknown or empty glyphs
// default to a bullet.
func GlyphKind(g docstream.Glyph) doctree.Kind {
	t := strings.ToLower(strings.TrimSpace(g.Type))
	if numberedGlyphTypes[t] {
		return doctree.KindNumberedItem
	}
	if t == "" && levelPlaceholder.MatchString(g.Symbol) {
		return doctree.KindNumberedItem
	}
	return doctree.KindListItem
}

// ManualListKind inspects the rendered prefix of a manually typed list line.
// It returns KindParagraph when no marker is recognised.
func ManualListKind(text string) doctree.Kind {
	line := strings.TrimSpace(text)
	for _, re := range manualNumbered {
		if re.MatchString(line) {
			return doctree.KindNumberedItem
		}
	}
	if isRomanItem(line) {
		return doctree.KindNumberedItem
	}
	if manualBullet.MatchString(line) {
		return doctree.KindListItem
	}
	return doctree.KindParagraph
}

// isRomanItem requires a non-empty numeral in a single case, so words such
// as "Mix." or "Civ." are not taken for list markers.
func isRomanItem(line string) bool {
	m := manualRoman.FindStringSubmatch(line)
	if m == nil || m[1] == "" {
		return false
	}
	return m[1] == strings.ToUpper(m[1]) || m[1] == strings.ToLower(m[1])
}
