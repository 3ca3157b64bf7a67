// Package merge aligns a secondary-language node tree with its primary and
// produces a single merged tree.
package merge

import (
	"fmt"

	"github.com/dgallion1/lessongest/internal/doctree"
)

const (
	// DefaultSkewLengthRatio and DefaultSkewUnmatchedRatio were chosen
	// empirically and still need validating against a bilingual corpus.
	DefaultSkewLengthRatio    = 1.5
	DefaultSkewUnmatchedRatio = 0.3
)

// Options tunes the engine. Zero values fall back to the defaults.
type Options struct {
	// Secondary is treated as independently ordered when
	// len(secondary) > SkewLengthRatio*len(primary) and
	// unmatched > SkewUnmatchedRatio*len(primary).
	SkewLengthRatio    float64 `yaml:"skew_length_ratio" json:"skew_length_ratio"`
	SkewUnmatchedRatio float64 `yaml:"skew_unmatched_ratio" json:"skew_unmatched_ratio"`

	Matchers []Matcher `yaml:"-" json:"-"`
}

// DefaultOptions returns the standard thresholds and matcher chain.
func DefaultOptions() Options {
	return Options{
		SkewLengthRatio:    DefaultSkewLengthRatio,
		SkewUnmatchedRatio: DefaultSkewUnmatchedRatio,
		Matchers:           DefaultMatchers(),
	}
}

// Stats describes how a merge went.
type Stats struct {
	Matched   map[Strategy]int `json:"matched"`
	Unmatched int              `json:"unmatched"`
	Appended  int              `json:"appended"`
	Skewed    bool             `json:"skewed"`
}

// Engine merges trees. It holds only configuration and is safe for
// concurrent use.
type Engine struct {
	opts Options
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.SkewLengthRatio <= 0 {
		opts.SkewLengthRatio = DefaultSkewLengthRatio
	}
	if opts.SkewUnmatchedRatio <= 0 {
		opts.SkewUnmatchedRatio = DefaultSkewUnmatchedRatio
	}
	if len(opts.Matchers) == 0 {
		opts.Matchers = DefaultMatchers()
	}
	return &Engine{opts: opts}
}

// Merge merges with default options.
func Merge(primary, secondary []doctree.Node) ([]doctree.Node, error) {
	return New(DefaultOptions()).Merge(primary, secondary)
}

// Merge returns a new tree; neither input is modified.
func (e *Engine) Merge(primary, secondary []doctree.Node) ([]doctree.Node, error) {
	out, _, err := e.MergeWithStats(primary, secondary)
	return out, err
}

// Align pairs every primary node with at most one secondary node. The
// result holds the secondary index per primary position, -1 for no match,
// along with the winning strategy.
func (e *Engine) Align(primary, secondary []doctree.Node) ([]int, []Strategy, *Index) {
	ix := NewIndex(secondary)
	pairs := make([]int, len(primary))
	strategies := make([]Strategy, len(primary))
	for pos := range primary {
		pairs[pos] = -1
		p := &primary[pos]
		for _, m := range e.opts.Matchers {
			i, ok := m.Find(p, pos, ix)
			if !ok || !ix.Available(i, p) {
				continue
			}
			ix.consume(i)
			pairs[pos] = i
			strategies[pos] = m.Strategy
			break
		}
	}
	return pairs, strategies, ix
}

// MergeWithStats is Merge plus a description of the alignment.
func (e *Engine) MergeWithStats(primary, secondary []doctree.Node) ([]doctree.Node, *Stats, error) {
	stats := &Stats{Matched: make(map[Strategy]int)}
	if err := doctree.ValidateTree(primary); err != nil {
		return nil, nil, fmt.Errorf("primary: %w", err)
	}
	if err := doctree.ValidateTree(secondary); err != nil {
		return nil, nil, fmt.Errorf("secondary: %w", err)
	}
	if len(secondary) == 0 {
		return doctree.CloneTree(primary), stats, nil
	}

	pairs, strategies, ix := e.Align(primary, secondary)

	merged := make([]doctree.Node, 0, len(primary))
	for pos := range primary {
		i := pairs[pos]
		if i < 0 {
			merged = append(merged, primary[pos].Clone())
			continue
		}
		stats.Matched[strategies[pos]]++
		merged = append(merged, mergePair(&primary[pos], ix.Node(i)))
	}

	var unmatched []int
	for i := range secondary {
		if !ix.Consumed(i) && Substantive(&secondary[i]) {
			unmatched = append(unmatched, i)
		}
	}
	stats.Unmatched = len(unmatched)

	if e.skewed(len(primary), len(secondary), len(unmatched)) {
		stats.Skewed = true
		return doctree.CloneTree(secondary), stats, nil
	}

	for _, i := range unmatched {
		merged = append(merged, secondary[i].Clone())
	}
	stats.Appended = len(unmatched)
	return merged, stats, nil
}

func (e *Engine) skewed(primaryLen, secondaryLen, unmatched int) bool {
	p := float64(primaryLen)
	return float64(secondaryLen) > e.opts.SkewLengthRatio*p &&
		float64(unmatched) > e.opts.SkewUnmatchedRatio*p
}
