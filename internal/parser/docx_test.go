package parser

import (
	"strings"
	"testing"
)

const numberingXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:abstractNum w:abstractNumId="0">
    <w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/><w:lvlText w:val="%1."/></w:lvl>
    <w:lvl w:ilvl="1"><w:numFmt w:val="lowerLetter"/><w:lvlText w:val="%2)"/></w:lvl>
  </w:abstractNum>
  <w:abstractNum w:abstractNumId="1">
    <w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/><w:lvlText w:val="•"/></w:lvl>
  </w:abstractNum>
  <w:num w:numId="3"><w:abstractNumId w:val="0"/></w:num>
  <w:num w:numId="4"><w:abstractNumId w:val="1"/></w:num>
  <w:num w:numId="9"><w:abstractNumId w:val="7"/></w:num>
</w:numbering>`

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
  xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Lesson</w:t></w:r></w:p>
    <w:p><w:pPr><w:numPr><w:ilvl w:val="1"/><w:numId w:val="3"/></w:numPr><w:ind w:left="1440"/></w:pPr><w:r><w:t>item</w:t></w:r></w:p>
    <w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
    <w:p><w:r><w:drawing><wp:inline><wp:docPr w:id="1" name="cat_photo" descr="a cat"/></wp:inline></w:drawing></w:r></w:p>
  </w:body>
</w:document>`

func TestParseNumbering(t *testing.T) {
	lists, err := parseNumbering(strings.NewReader(numberingXML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lists) != 2 {
		t.Fatalf("expected 2 resolvable lists, got %d", len(lists))
	}
	if g := lists["3"][0]; g.Type != "decimal" || g.Symbol != "%1." {
		t.Errorf("unexpected level 0 glyph %+v", g)
	}
	if g := lists["3"][1]; g.Type != "lowerLetter" {
		t.Errorf("expected lowerLetter at level 1, got %+v", g)
	}
	if g := lists["4"][0]; g.Type != "bullet" || g.Symbol != "•" {
		t.Errorf("unexpected bullet glyph %+v", g)
	}
}

func TestParseBodyProps(t *testing.T) {
	props, err := parseBodyProps(strings.NewReader(documentXML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Table cell paragraphs are not top-level body paragraphs.
	if len(props) != 3 {
		t.Fatalf("expected 3 top-level paragraphs, got %d", len(props))
	}
	if props[0].numID != "" || props[0].left != 0 {
		t.Errorf("expected plain first paragraph, got %+v", props[0])
	}
	if props[1].numID != "3" || props[1].ilvl != 1 || props[1].left != 1440 {
		t.Errorf("unexpected list paragraph props %+v", props[1])
	}
	if len(props[2].images) != 1 || props[2].images[0].Key != "cat_photo" || props[2].images[0].AltText != "a cat" {
		t.Errorf("unexpected drawing props %+v", props[2].images)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		ok       bool
	}{
		{"lesson.docx", true},
		{"LESSON.DOCX", true},
		{"notes.markdown", true},
		{"page.htm", true},
		{"slides.pptx", false},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.filename)
		if (err == nil) != tt.ok {
			t.Errorf("ForFile(%q): expected ok=%v, got err=%v", tt.filename, tt.ok, err)
		}
		if IsSupportedExtension(tt.filename) != tt.ok {
			t.Errorf("IsSupportedExtension(%q): expected %v", tt.filename, tt.ok)
		}
	}
}
