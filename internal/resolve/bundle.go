package resolve

import "github.com/dgallion1/lessongest/internal/doctree"

// Lang is a language code such as "en" or "es".
type Lang string

// Variants holds one scalar field's value per language. Values come from
// decoded JSON or YAML, so structured values (maps, slices) can appear and
// are treated as absent.
type Variants map[Lang]any

// TreePair is one named rich-content field: a primary tree and an optional
// secondary-language tree.
type TreePair struct {
	Primary   []doctree.Node `json:"primary" yaml:"primary"`
	Secondary []doctree.Node `json:"secondary,omitempty" yaml:"secondary,omitempty"`
}

// Item is one entry of an ordered collection (a section, transcript line,
// question, exercise or phrase).
type Item struct {
	ID        string              `json:"id" yaml:"id"`
	SortOrder int                 `json:"sort_order" yaml:"sort_order"`
	Scalars   map[string]Variants `json:"scalars,omitempty" yaml:"scalars,omitempty"`
	Content   map[string]TreePair `json:"content,omitempty" yaml:"content,omitempty"`
}

// ImageLookup maps image keys to URLs. Lesson entries override Global.
type ImageLookup struct {
	Lesson map[string]string `json:"lesson,omitempty" yaml:"lesson,omitempty"`
	Global map[string]string `json:"global,omitempty" yaml:"global,omitempty"`
}

// URL returns the resolved URL for key.
func (l ImageLookup) URL(key string) (string, bool) {
	if u, ok := l.Lesson[key]; ok && u != "" {
		return u, true
	}
	if u, ok := l.Global[key]; ok && u != "" {
		return u, true
	}
	return "", false
}

// AudioEntry binds an audio position to a stored audio key.
type AudioEntry struct {
	Section string `json:"section" yaml:"section"`
	Seq     int    `json:"seq" yaml:"seq"`
	Key     string `json:"key" yaml:"key"`
}

// Bundle is the resolver's working unit for one lesson. It is produced by
// a fetch layer and consumed once per Resolve call.
type Bundle struct {
	ID        string `json:"id" yaml:"id"`
	Primary   Lang   `json:"primary" yaml:"primary"`
	Secondary Lang   `json:"secondary,omitempty" yaml:"secondary,omitempty"`

	Scalars     map[string]Variants `json:"scalars,omitempty" yaml:"scalars,omitempty"`
	Content     map[string]TreePair `json:"content,omitempty" yaml:"content,omitempty"`
	Collections map[string][]Item   `json:"collections,omitempty" yaml:"collections,omitempty"`

	Images ImageLookup       `json:"images" yaml:"images"`
	Audio  []AudioEntry      `json:"audio,omitempty" yaml:"audio,omitempty"`
	Links  map[string]string `json:"links,omitempty" yaml:"links,omitempty"`
}

// ResolvedItem is an Item with its fields and trees resolved.
type ResolvedItem struct {
	ID      string                    `json:"id"`
	Fields  map[string]string         `json:"fields,omitempty"`
	Content map[string][]doctree.Node `json:"content,omitempty"`
}

// Payload is the assembled output for one target language.
type Payload struct {
	ID          string                    `json:"id"`
	Lang        Lang                      `json:"lang"`
	Fields      map[string]string         `json:"fields"`
	Content     map[string][]doctree.Node `json:"content"`
	Collections map[string][]ResolvedItem `json:"collections,omitempty"`
}
