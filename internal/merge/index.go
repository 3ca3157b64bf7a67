package merge

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/lessongest/internal/doctree"
)

// SoftKey is the content-derived alignment key used when a node has no
// explicit id or audio position.
type SoftKey struct {
	Kind   doctree.Kind
	Indent int
	Hash   string
}

// TextHash returns the first 12 hex characters of the BLAKE3 digest of the
// NFC-normalized, trimmed text.
func TextHash(text string) string {
	sum := blake3.Sum256([]byte(norm.NFC.String(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])[:12]
}

// SoftKeyOf computes the soft key of n. Nodes without any lead text have no
// soft key.
func SoftKeyOf(n *doctree.Node) (SoftKey, bool) {
	text := n.FirstText()
	if strings.TrimSpace(text) == "" {
		return SoftKey{}, false
	}
	return SoftKey{Kind: n.Kind, Indent: n.Indent, Hash: TextHash(text)}, true
}

type audioPos struct {
	section string
	seq     int
}

// Index holds the lookup tables over a secondary tree plus the set of
// secondary nodes already consumed by a match. One Index serves one merge.
type Index struct {
	nodes    []doctree.Node
	consumed []bool

	byID    map[string][]int
	byAudio map[audioPos][]int
	bySoft  map[SoftKey][]int
}

// NewIndex builds the id, audio-position and soft-key indices over secondary.
// Each key maps to every position carrying it, in document order.
func NewIndex(secondary []doctree.Node) *Index {
	ix := &Index{
		nodes:    secondary,
		consumed: make([]bool, len(secondary)),
		byID:     make(map[string][]int),
		byAudio:  make(map[audioPos][]int),
		bySoft:   make(map[SoftKey][]int),
	}
	for i := range secondary {
		n := &secondary[i]
		if n.ID != "" {
			ix.byID[n.ID] = append(ix.byID[n.ID], i)
		}
		if pos, ok := audioPosOf(n); ok {
			ix.byAudio[pos] = append(ix.byAudio[pos], i)
		}
		if sk, ok := SoftKeyOf(n); ok {
			ix.bySoft[sk] = append(ix.bySoft[sk], i)
		}
	}
	return ix
}

func audioPosOf(n *doctree.Node) (audioPos, bool) {
	if n.AudioSection == "" && n.AudioSeq == 0 {
		return audioPos{}, false
	}
	return audioPos{section: n.AudioSection, seq: n.AudioSeq}, true
}

// Len is the number of secondary nodes.
func (ix *Index) Len() int { return len(ix.nodes) }

// Node returns the secondary node at i.
func (ix *Index) Node(i int) *doctree.Node { return &ix.nodes[i] }

// Consumed reports whether secondary node i has already been matched.
func (ix *Index) Consumed(i int) bool { return ix.consumed[i] }

// Available reports whether secondary node i may still satisfy p: it must be
// unconsumed and of a compatible kind.
func (ix *Index) Available(i int, p *doctree.Node) bool {
	if i < 0 || i >= len(ix.nodes) || ix.consumed[i] {
		return false
	}
	return Compatible(p.Kind, ix.nodes[i].Kind)
}

func (ix *Index) consume(i int) { ix.consumed[i] = true }

// first returns the first available candidate from a posting list.
func (ix *Index) first(candidates []int, p *doctree.Node) (int, bool) {
	for _, i := range candidates {
		if ix.Available(i, p) {
			return i, true
		}
	}
	return -1, false
}

// Compatible reports whether nodes of kinds a and b may be aligned: any two
// text kinds, or identical kinds.
func Compatible(a, b doctree.Kind) bool {
	if a == b {
		return true
	}
	return doctree.IsTextKind(a) && doctree.IsTextKind(b)
}
