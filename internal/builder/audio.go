package builder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/lessongest/internal/doctree"
)

var (
	audioTagPattern    = regexp.MustCompile(`(?i)\[audio:([^\s\]]+)\]`)
	audioSuffixPattern = regexp.MustCompile(`^(.+)_(\d+)$`)
)

// NormalizeAudioKey zero-pads a numeric suffix to two digits
// ("1.1_practice_3" -> "1.1_practice_03"). Phrase keys have no variants and
// are returned untouched, as are keys without a numeric suffix.
func NormalizeAudioKey(key string) string {
	prefix, n, ok := splitAudioKey(key)
	if !ok || isPhraseKey(prefix) {
		return key
	}
	return fmt.Sprintf("%s_%02d", prefix, n)
}

func splitAudioKey(key string) (string, int, bool) {
	m := audioSuffixPattern.FindStringSubmatch(key)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

func isPhraseKey(prefix string) bool {
	parts := strings.FieldsFunc(strings.ToLower(prefix), func(r rune) bool {
		return r == '_' || r == '.' || r == '-'
	})
	if len(parts) == 0 {
		return false
	}
	first, last := parts[0], parts[len(parts)-1]
	return first == "phrase" || first == "phrases" || last == "phrase" || last == "phrases"
}

// FindAudioTag returns the raw key of the first [audio:<key>] tag in text.
func FindAudioTag(text string) (string, bool) {
	m := audioTagPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractAudioTag copies an embedded [audio:<key>] tag into the node's audio
// metadata. The visible text keeps the tag. A node that already has an
// audio key is left alone, which makes the call idempotent.
func ExtractAudioTag(n *doctree.Node) bool {
	if n.AudioKey != "" || !doctree.IsTextKind(n.Kind) {
		return false
	}
	raw, ok := FindAudioTag(n.PlainText())
	if !ok {
		return false
	}
	n.AudioKey = NormalizeAudioKey(raw)
	if prefix, seq, ok := splitAudioKey(raw); ok {
		n.AudioSeq = seq
		if n.AudioSection == "" {
			n.AudioSection = prefix
		}
	}
	return true
}

// ExtractAudioTags runs ExtractAudioTag over every node in place.
func ExtractAudioTags(nodes []doctree.Node) int {
	found := 0
	for i := range nodes {
		if ExtractAudioTag(&nodes[i]) {
			found++
		}
	}
	return found
}
