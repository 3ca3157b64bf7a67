// Package classify decides node kinds from paragraph text and style context.
// Every function is pure and total: anything unrecognised degrades to a
// paragraph.
package classify

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/dgallion1/lessongest/internal/doctree"
)

// HeuristicLevel is the heading level assigned when a heading is inferred
// from text rather than from an explicit style tier. Tiers 1 and 2 are
// reserved for document and lesson titles.
const HeuristicLevel = 3

var (
	glossPattern     = regexp.MustCompile(`^\(\s*[^()]{1,24}\)$`)
	variantPattern   = regexp.MustCompile(`\[\s*\d{1,3}\s*\]\s*$`)
	capsCharset      = regexp.MustCompile(`^[A-ZÀ-ÖØ-Þ0-9 '’‘"“”&/:,.!?()\-–—•·]{2,80}$`)
	capsRun          = regexp.MustCompile(`[A-Z]{2,}`)
	timeRangePattern = regexp.MustCompile(`^[A-Z][A-Za-z ]{0,40}:\s*\d{1,2}:\d{2}\s*[-–—~]\s*\d{1,2}:\d{2}\s*$`)
	styleTierPattern = regexp.MustCompile(`(?i)^heading\s*(\d)$`)
)

// StyleTier maps a named paragraph style to its heading tier. Title is tier
// 1, Subtitle tier 2, HeadingN tier N; anything else is 0.
func StyleTier(style string) int {
	s := strings.TrimSpace(style)
	switch strings.ToLower(s) {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	m := styleTierPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// HeadingLevel returns the heading level for a content line, or 0 when the
// line is not a heading. Tier 1 and 2 styles are not content headings and
// also return 0 unless a text heuristic fires.
func HeadingLevel(text, style string) int {
	line := strings.TrimSpace(text)
	if line == "" {
		return 0
	}
	if glossPattern.MatchString(line) {
		return 0
	}
	if tier := StyleTier(style); tier >= 3 {
		if tier > 6 {
			tier = 6
		}
		return tier
	}
	if variantPattern.MatchString(line) {
		return HeuristicLevel
	}
	if isShoutedHeader(line) {
		return HeuristicLevel
	}
	if timeRangePattern.MatchString(line) {
		return HeuristicLevel
	}
	return 0
}

// IsHeading reports whether the line classifies as a content heading.
func IsHeading(text, style string) bool {
	return HeadingLevel(text, style) > 0
}

func isHeaderSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '-', '–', '—', '/', ':', '•', '·':
		return true
	}
	return false
}

func isForeignLetter(r rune) bool {
	return unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r)
}

// headerPunct is the non-ASCII punctuation the caps charset accepts.
const headerPunct = "’‘“”–—•·"

func isForeignRune(r rune) bool {
	if r <= unicode.MaxASCII || strings.ContainsRune(headerPunct, r) {
		return false
	}
	return !unicode.Is(unicode.Latin, r)
}

// isShoutedHeader is the ALL-CAPS heuristic. A lone shouted token such as an
// acronym is rejected.
func isShoutedHeader(line string) bool {
	first := []rune(line)[0]
	if isForeignLetter(first) {
		return false
	}

	var sb strings.Builder
	mixed := false
	for _, r := range line {
		if isForeignLetter(r) {
			mixed = true
		}
		if isForeignRune(r) {
			continue
		}
		sb.WriteRune(r)
	}
	stripped := strings.Join(strings.Fields(sb.String()), " ")

	if !capsCharset.MatchString(stripped) {
		return false
	}
	if !capsRun.MatchString(stripped) {
		return false
	}
	if mixed && countUpperLatin(stripped) < 2 {
		return false
	}
	for _, r := range line {
		if unicode.Is(unicode.Latin, r) && unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			break
		}
	}

	if len(strings.FieldsFunc(stripped, isHeaderSeparator)) < 2 &&
		len(strings.FieldsFunc(line, isHeaderSeparator)) < 2 {
		return false
	}
	return true
}

func countUpperLatin(s string) int {
	n := 0
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			n++
		}
	}
	return n
}

// HeadingHint wraps HeadingLevel into a Hint.
func HeadingHint(text, style string) (Hint, bool) {
	lvl := HeadingLevel(text, style)
	if lvl == 0 {
		return Hint{}, false
	}
	return Hint{Kind: doctree.KindHeading, Level: lvl}, true
}
