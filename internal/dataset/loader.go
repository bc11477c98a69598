// Package dataset loads the curated Q&A knowledge base from a delimited
// text source and exposes it as an immutable in-memory snapshot.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"faqbot/internal/domain"
)

var (
	// ErrEmptyDataset indicates that no usable row survived validation.
	ErrEmptyDataset = errors.New("dataset: no usable rows")
	// ErrMalformedRow indicates a row with fewer than the two mandatory
	// columns (question, answer).
	ErrMalformedRow = errors.New("dataset: malformed row")
)

// Column order of the source sheet. A header row is required; Japanese
// headers from the original spreadsheet and their English equivalents are
// both recognized.
const (
	colQuestion = iota
	colAnswer
	colCategory
	colReference
	colRemarks
	colFAQID
	colDisplayOrder
	columnCount
)

// defaultDisplayOrder sorts rows without an explicit order last.
const defaultDisplayOrder = 999

var headerAliases = map[string]int{
	"質問":            colQuestion,
	"question":      colQuestion,
	"回答":            colAnswer,
	"answer":        colAnswer,
	"対応カテゴリー":       colCategory,
	"category":      colCategory,
	"根拠資料":          colReference,
	"reference":     colReference,
	"source":        colReference,
	"備考":            colRemarks,
	"remarks":       colRemarks,
	"notes":         colRemarks,
	"faq_id":        colFAQID,
	"表示順序":          colDisplayOrder,
	"display_order": colDisplayOrder,
}

// Load parses the delimited source into an ordered sequence of entries.
// Rows whose question or answer is blank are dropped; a row that does not
// even carry both mandatory columns fails the whole load.
func Load(r io.Reader) ([]domain.QAEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	cols := mapHeader(header)

	var entries []domain.QAEntry
	rowNum := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: %w", rowNum, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("%w: row %d has %d column(s)", ErrMalformedRow, rowNum, len(rec))
		}

		entry := domain.QAEntry{
			ID:           len(entries) + 1,
			Question:     field(rec, cols[colQuestion]),
			Answer:       field(rec, cols[colAnswer]),
			Category:     field(rec, cols[colCategory]),
			Reference:    field(rec, cols[colReference]),
			Remarks:      field(rec, cols[colRemarks]),
			FAQID:        field(rec, cols[colFAQID]),
			DisplayOrder: orderField(rec, cols[colDisplayOrder]),
		}
		if entry.Question == "" || entry.Answer == "" {
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, ErrEmptyDataset
	}
	return entries, nil
}

// LoadFile opens and parses the source file at path.
func LoadFile(path string) ([]domain.QAEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// mapHeader resolves each source column to its canonical position. Columns
// with unrecognized headers keep their positional meaning.
func mapHeader(header []string) [columnCount]int {
	var cols [columnCount]int
	for i := range cols {
		cols[i] = -1
	}
	recognized := false
	for idx, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if col, ok := headerAliases[key]; ok && cols[col] == -1 {
			cols[col] = idx
			recognized = true
		}
	}
	if !recognized {
		for i := range cols {
			cols[i] = i
		}
	}
	return cols
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func orderField(rec []string, idx int) int {
	raw := field(rec, idx)
	if raw == "" {
		return defaultDisplayOrder
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultDisplayOrder
	}
	return n
}
