package merge

import "github.com/dgallion1/lessongest/internal/doctree"

// Strategy names the matcher that paired two nodes.
type Strategy string

const (
	StrategyID         Strategy = "id"
	StrategyAudio      Strategy = "audio"
	StrategySoftKey    Strategy = "soft_key"
	StrategyPositional Strategy = "positional"
)

// Matcher looks up the secondary counterpart of the primary node p at
// position pos. It returns the secondary index, or false when it has none.
// Matchers never consume; the engine does that once a match is accepted.
type Matcher struct {
	Strategy Strategy
	Find     func(p *doctree.Node, pos int, ix *Index) (int, bool)
}

// DefaultMatchers is the fixed priority chain: explicit id, audio position,
// soft key, then same position.
func DefaultMatchers() []Matcher {
	return []Matcher{
		{Strategy: StrategyID, Find: matchID},
		{Strategy: StrategyAudio, Find: matchAudio},
		{Strategy: StrategySoftKey, Find: matchSoftKey},
		{Strategy: StrategyPositional, Find: matchPosition},
	}
}

func matchID(p *doctree.Node, _ int, ix *Index) (int, bool) {
	if p.ID == "" {
		return -1, false
	}
	return ix.first(ix.byID[p.ID], p)
}

func matchAudio(p *doctree.Node, _ int, ix *Index) (int, bool) {
	pos, ok := audioPosOf(p)
	if !ok {
		return -1, false
	}
	return ix.first(ix.byAudio[pos], p)
}

func matchSoftKey(p *doctree.Node, _ int, ix *Index) (int, bool) {
	sk, ok := SoftKeyOf(p)
	if !ok {
		return -1, false
	}
	return ix.first(ix.bySoft[sk], p)
}

func matchPosition(p *doctree.Node, pos int, ix *Index) (int, bool) {
	if !ix.Available(pos, p) {
		return -1, false
	}
	return pos, true
}
