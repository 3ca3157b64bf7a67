package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dgallion1/lessongest/internal/doctree"
)

func TestNormalizeAudioKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.1_practice_3", "1.1_practice_03"},
		{"1.1_practice_12", "1.1_practice_12"},
		{"dialogue_007", "dialogue_07"},
		{"phrase_3", "phrase_3"},
		{"2.4_phrase_5", "2.4_phrase_5"},
		{"intro", "intro"},
		{"_4", "_4"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAudioKey(tt.in))
		})
	}
}

func TestExtractAudioTag(t *testing.T) {
	n := doctree.Node{
		Kind:    doctree.KindParagraph,
		Inlines: []doctree.InlineSpan{{Text: "Hello "}, {Text: "[AUDIO:1.1_practice_3]"}},
	}
	assert.True(t, ExtractAudioTag(&n))
	assert.Equal(t, "1.1_practice_03", n.AudioKey)
	assert.Equal(t, 3, n.AudioSeq)
	assert.Equal(t, "1.1_practice", n.AudioSection)
	assert.Equal(t, "[AUDIO:1.1_practice_3]", n.Inlines[1].Text, "visible text keeps the tag")

	assert.False(t, ExtractAudioTag(&n), "second run is a no-op")
	assert.Equal(t, "1.1_practice_03", n.AudioKey)
}

func TestExtractAudioTag_KeepsExistingSection(t *testing.T) {
	n := doctree.Node{
		Kind:         doctree.KindParagraph,
		AudioSection: "dialogue",
		Inlines:      []doctree.InlineSpan{{Text: "[audio:d1_2]"}},
	}
	ExtractAudioTag(&n)
	assert.Equal(t, "dialogue", n.AudioSection)
	assert.Equal(t, 2, n.AudioSeq)
}

func TestExtractAudioTags_SkipsTablesAndUntagged(t *testing.T) {
	nodes := []doctree.Node{
		{Kind: doctree.KindTable, Rows: 1, Cols: 1, Cells: [][]string{{"[audio:x_1]"}}},
		{Kind: doctree.KindParagraph, Inlines: []doctree.InlineSpan{{Text: "no tag"}}},
		{Kind: doctree.KindListItem, Inlines: []doctree.InlineSpan{{Text: "[audio:vocab_4]"}}},
	}
	assert.Equal(t, 1, ExtractAudioTags(nodes))
	assert.Equal(t, "vocab_04", nodes[2].AudioKey)
}
