package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/lessongest/internal/docstream"
)

// CSVParser handles CSV files. The whole file becomes one table whose
// first row is the header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*docstream.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &docstream.Document{Title: baseTitle(filename)}
	if len(records) == 0 {
		return doc, nil
	}

	rows := make([][][]docstream.Paragraph, len(records))
	for i, rec := range records {
		rows[i] = make([][]docstream.Paragraph, len(rec))
		for j, cell := range rec {
			rows[i][j] = []docstream.Paragraph{docstream.PlainParagraph(cell, "Normal")}
		}
	}
	doc.AddTable(docstream.Table{Rows: rows})
	return doc, nil
}
