// Package resolve assembles a lesson bundle into a single-language payload.
package resolve

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/dgallion1/lessongest/internal/builder"
	"github.com/dgallion1/lessongest/internal/doctree"
	"github.com/dgallion1/lessongest/internal/merge"
)

var (
	// ErrMissingField is returned when a required scalar has no primary value.
	ErrMissingField = errors.New("missing required field")
	// ErrNoPrimary is returned for a bundle that names no primary language.
	ErrNoPrimary = errors.New("bundle has no primary language")
)

// Options configures a Resolver.
type Options struct {
	Merge merge.Options
	// Required lists scalar fields that must have a primary-language value.
	Required []string
}

// Resolver resolves bundles. It holds only configuration; lookups travel in
// the bundle, so one Resolver can serve concurrent calls.
type Resolver struct {
	engine   *merge.Engine
	required []string
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	return &Resolver{engine: merge.New(opts.Merge), required: opts.Required}
}

// Resolve resolves with default options.
func Resolve(b *Bundle, target Lang) (*Payload, error) {
	return New(Options{Merge: merge.DefaultOptions()}).Resolve(b, target)
}

type audioLookup map[string]map[int]string

func newAudioLookup(entries []AudioEntry) audioLookup {
	l := make(audioLookup)
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		if l[e.Section] == nil {
			l[e.Section] = make(map[int]string)
		}
		l[e.Section][e.Seq] = e.Key
	}
	return l
}

func (l audioLookup) key(section string, seq int) (string, bool) {
	k, ok := l[section][seq]
	return k, ok
}

// Resolve builds the payload for target. Rich content is merged only when
// target is the bundle's secondary language; any other target gets the
// primary trees. The bundle is not modified.
func (r *Resolver) Resolve(b *Bundle, target Lang) (*Payload, error) {
	if b == nil || b.Primary == "" {
		return nil, ErrNoPrimary
	}
	if target == "" {
		target = b.Primary
	}
	for _, name := range r.required {
		if _, ok := Clean(b.Scalars[name][b.Primary]); !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}

	audio := newAudioLookup(b.Audio)
	p := &Payload{
		ID:      b.ID,
		Lang:    target,
		Fields:  r.fields(b.Scalars, b.Primary, target),
		Content: make(map[string][]doctree.Node, len(b.Content)),
	}

	for name, pair := range b.Content {
		tree, err := r.tree(b, pair, target, audio)
		if err != nil {
			return nil, fmt.Errorf("content %s: %w", name, err)
		}
		p.Content[name] = tree
	}

	if len(b.Collections) > 0 {
		p.Collections = make(map[string][]ResolvedItem, len(b.Collections))
	}
	for name, items := range b.Collections {
		sorted := append([]Item(nil), items...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SortOrder < sorted[j].SortOrder })

		resolved := make([]ResolvedItem, 0, len(sorted))
		for _, it := range sorted {
			ri := ResolvedItem{ID: it.ID, Fields: r.fields(it.Scalars, b.Primary, target)}
			if len(it.Content) > 0 {
				ri.Content = make(map[string][]doctree.Node, len(it.Content))
			}
			for cname, pair := range it.Content {
				tree, err := r.tree(b, pair, target, audio)
				if err != nil {
					return nil, fmt.Errorf("%s %s content %s: %w", name, it.ID, cname, err)
				}
				ri.Content[cname] = tree
			}
			resolved = append(resolved, ri)
		}
		p.Collections[name] = resolved
	}
	return p, nil
}

func (r *Resolver) fields(scalars map[string]Variants, primary, target Lang) map[string]string {
	out := make(map[string]string, len(scalars))
	for name, v := range scalars {
		if s, ok := SelectScalar(v, primary, target); ok {
			out[name] = s
		}
	}
	return out
}

// SelectScalar picks the target-language value when it is usable, else the
// primary-language value.
func SelectScalar(v Variants, primary, target Lang) (string, bool) {
	if s, ok := Clean(v[target]); ok {
		return s, true
	}
	return Clean(v[primary])
}

// Clean turns a decoded scalar into display text. Strings are trimmed;
// blank strings, nil and structured values (maps, slices, structs) count as
// no value.
func Clean(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return "", false
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	return s, s != ""
}

func (r *Resolver) tree(b *Bundle, pair TreePair, target Lang, audio audioLookup) ([]doctree.Node, error) {
	var out []doctree.Node
	if target == b.Secondary && target != b.Primary && len(pair.Secondary) > 0 {
		// Enrichment works on a per-call copy of the secondary tree.
		sec := doctree.CloneTree(pair.Secondary)
		builder.ExtractAudioTags(sec)
		enrichAudio(sec, audio)
		merged, err := r.engine.Merge(pair.Primary, sec)
		if err != nil {
			return nil, err
		}
		out = merged
	} else {
		if err := doctree.ValidateTree(pair.Primary); err != nil {
			return nil, err
		}
		out = doctree.CloneTree(pair.Primary)
	}

	enrichImages(out, b.Images)
	enrichAudio(out, audio)
	resolveLinks(out, b.Links)
	return out, nil
}

func enrichImages(nodes []doctree.Node, images ImageLookup) {
	for i := range nodes {
		n := &nodes[i]
		if n.ImageKey == "" {
			continue
		}
		if u, ok := images.URL(n.ImageKey); ok {
			n.ImageURL = u
		}
	}
}

func enrichAudio(nodes []doctree.Node, audio audioLookup) {
	for i := range nodes {
		n := &nodes[i]
		if n.AudioKey != "" || (n.AudioSection == "" && n.AudioSeq == 0) {
			continue
		}
		if k, ok := audio.key(n.AudioSection, n.AudioSeq); ok {
			n.AudioKey = k
		}
	}
}

// resolveLinks fills inline link targets. A span whose link is a known
// reference gets the reference's URL; an unlinked span whose whole text is
// a known anchor gets that anchor's URL.
func resolveLinks(nodes []doctree.Node, links map[string]string) {
	if len(links) == 0 {
		return
	}
	for i := range nodes {
		for j := range nodes[i].Inlines {
			span := &nodes[i].Inlines[j]
			if span.Link != "" {
				if u, ok := links[span.Link]; ok {
					span.Link = u
				}
				continue
			}
			anchor := strings.TrimSpace(span.Text)
			if anchor == "" {
				continue
			}
			if u, ok := links[anchor]; ok {
				span.Link = u
			}
		}
	}
}
