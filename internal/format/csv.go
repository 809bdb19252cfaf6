package format

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// DefaultColumns is the positional layout assumed for CSV files that carry
// no recognisable header row.
var DefaultColumns = []string{
	"location",
	"source",
	"target",
	"id",
	"fuzzy",
	"context",
	"translator_comments",
	"developer_comments",
}

// SourceTargetColumns is the fixed layout used when re-reading a CSV file
// whose default interpretation produced nothing usable.
var SourceTargetColumns = []string{"source", "target"}

// CSVLoader reads comma, semicolon or tab separated files.
//
// With no explicit columns the first row is checked for a header naming
// known fields; otherwise rows are mapped onto DefaultColumns. With explicit
// columns the rows are mapped positionally and a first row that repeats the
// column names is dropped.
type CSVLoader struct {
	columns []string
}

// NewCSVLoader returns a loader using header detection and DefaultColumns.
func NewCSVLoader() *CSVLoader {
	return &CSVLoader{}
}

// NewCSVLoaderWithColumns returns a loader that forces the given layout.
func NewCSVLoaderWithColumns(columns ...string) *CSVLoader {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return &CSVLoader{columns: cols}
}

func (l *CSVLoader) Format() string { return CSV }

func (l *CSVLoader) Extensions() []string { return []string{".csv", ".tsv"} }

// Load parses data into CSV units.
func (l *CSVLoader) Load(data []byte) (*Store, error) {
	data = clean(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		if isEmptyRow(row) {
			continue
		}
		rows = append(rows, row)
	}

	columns := l.columns
	if len(rows) > 0 {
		if columns == nil {
			if header, ok := detectHeader(rows[0]); ok {
				columns = header
				rows = rows[1:]
			} else {
				columns = DefaultColumns
			}
		} else if sameColumns(rows[0], columns) {
			rows = rows[1:]
		}
	}

	store := &Store{Format: CSV, Units: make([]Unit, 0, len(rows))}
	for _, row := range rows {
		store.Units = append(store.Units, newCSVUnit(row, columns))
	}
	return store, nil
}

// csvUnit is one CSV row mapped onto named fields.
type csvUnit struct {
	location string
	source   string
	target   string
	id       string
	fuzzy    bool
	context  string
}

func newCSVUnit(row, columns []string) csvUnit {
	var u csvUnit
	for i, name := range columns {
		if i >= len(row) {
			break
		}
		value := row[i]
		switch name {
		case "location":
			u.location = value
		case "source":
			u.source = value
		case "target":
			u.target = value
		case "id":
			u.id = value
		case "fuzzy":
			u.fuzzy = isFuzzyValue(value)
		case "context":
			u.context = value
		}
	}
	return u
}

func (u csvUnit) Source() string       { return u.source }
func (u csvUnit) Target() string       { return u.target }
func (u csvUnit) IsTranslatable() bool { return u.source != "" }
func (u csvUnit) IsTranslated() bool   { return u.target != "" && !u.fuzzy }

// detectHeader reports whether row names only known fields and includes a
// source column. The returned names are normalised to lower case.
func detectHeader(row []string) ([]string, bool) {
	known := make(map[string]bool, len(DefaultColumns))
	for _, c := range DefaultColumns {
		known[c] = true
	}

	header := make([]string, len(row))
	hasSource := false
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		if !known[name] {
			return nil, false
		}
		if name == "source" {
			hasSource = true
		}
		header[i] = name
	}
	return header, hasSource
}

func sameColumns(row, columns []string) bool {
	if len(row) < len(columns) {
		return false
	}
	for i, c := range columns {
		if !strings.EqualFold(strings.TrimSpace(row[i]), c) {
			return false
		}
	}
	return true
}

func isFuzzyValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "fuzzy", "true", "yes", "1":
		return true
	}
	return false
}

// sniffDelimiter picks the separator that occurs most often on the first
// line, preferring comma on ties.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte{byte(d)}); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
