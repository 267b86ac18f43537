package core

// parser.go decodes CSV and JSON byte streams into a lazily-produced
// sequence of raw records. Structural problems confined to a single row
// (column count mismatch, non-object array element) are reported on that
// row and parsing continues; only an undecodable stream is fatal.

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

// parsedRow is one element of the parse stream: either a raw record or a
// row-level parse failure.
type parsedRow struct {
	index    int
	record   RawRecord
	parseErr string // non-empty means the row is skipped with this reason
}

// rowIterator yields parsed rows one at a time. Next returns io.EOF at
// the end of input and a *FormatError when the stream cannot be decoded
// at all.
type rowIterator interface {
	Next() (parsedRow, error)
}

// newRowIterator builds the iterator for the declared format. Header (or
// top-level array) decoding happens up front so whole-file failures are
// detected before any row is processed.
func newRowIterator(r io.Reader, format Format) (rowIterator, error) {
	switch format {
	case FormatCSV:
		return newCSVIterator(r)
	case FormatJSON:
		return newJSONIterator(r)
	}
	return nil, formatErrf(format, "unsupported format %q", format)
}

// csvIterator reads data rows after a mandatory header line. Header cells
// are matched to schema field names case-insensitively and independent of
// column order; unmatched cells are ignored.
type csvIterator struct {
	r    *csv.Reader
	cols []string // per position: canonical field name, or "" if unmatched
	row  int      // 1-based data row counter
}

func newCSVIterator(r io.Reader) (*csvIterator, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, formatErrf(FormatCSV, "missing header row")
	}
	if err != nil {
		return nil, &FormatError{Format: FormatCSV, Err: err}
	}

	cols := make([]string, len(header))
	for i, cell := range header {
		name := cleanHeaderCell(cell)
		if canonicalFieldNames[name] {
			cols[i] = name
		}
	}

	return &csvIterator{r: cr, cols: cols}, nil
}

func (it *csvIterator) Next() (parsedRow, error) {
	rec, err := it.r.Read()
	if err == io.EOF {
		return parsedRow{}, io.EOF
	}
	if err != nil {
		return parsedRow{}, &FormatError{Format: FormatCSV, Err: err}
	}

	it.row++
	if len(rec) != len(it.cols) {
		return parsedRow{index: it.row, parseErr: "column count mismatch"}, nil
	}

	raw := make(RawRecord, len(it.cols))
	for i, name := range it.cols {
		if name != "" {
			raw[name] = rec[i]
		}
	}
	return parsedRow{index: it.row, record: raw}, nil
}

// cleanHeaderCell normalizes a CSV header cell for field matching: trims
// whitespace, unwraps the Excel formula form ="value", and lowercases.
func cleanHeaderCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	}
	s = strings.Trim(s, `"'`)
	return strings.ToLower(strings.TrimSpace(s))
}

// jsonIterator reads elements of a top-level JSON array without buffering
// the whole document. Array indices are 0-based.
type jsonIterator struct {
	dec   *json.Decoder
	index int
}

func newJSONIterator(r io.Reader) (*jsonIterator, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, &FormatError{Format: FormatJSON, Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, formatErrf(FormatJSON, "top-level JSON value is not an array")
	}

	return &jsonIterator{dec: dec}, nil
}

func (it *jsonIterator) Next() (parsedRow, error) {
	if !it.dec.More() {
		// Consume the closing bracket; a decode error here means the
		// document was truncated.
		if _, err := it.dec.Token(); err != nil {
			return parsedRow{}, &FormatError{Format: FormatJSON, Err: err}
		}
		return parsedRow{}, io.EOF
	}

	var raw json.RawMessage
	if err := it.dec.Decode(&raw); err != nil {
		return parsedRow{}, &FormatError{Format: FormatJSON, Err: err}
	}

	idx := it.index
	it.index++

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return parsedRow{index: idx, parseErr: "not an object"}, nil
	}

	rec := make(RawRecord, len(obj))
	for k, v := range obj {
		name := strings.ToLower(strings.TrimSpace(k))
		if !canonicalFieldNames[name] {
			continue
		}
		s, ok := jsonValueString(v)
		if !ok {
			return parsedRow{index: idx, parseErr: "field " + strconv.Quote(k) + ": unsupported value"}, nil
		}
		rec[name] = s
	}
	return parsedRow{index: idx, record: rec}, nil
}

// jsonValueString renders a scalar or array-of-string JSON value as the
// untyped string the validator consumes. Nested objects and mixed arrays
// are rejected.
func jsonValueString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", true
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			s, ok := elem.(string)
			if !ok {
				return "", false
			}
			parts[i] = s
		}
		return strings.Join(parts, ", "), true
	}
	return "", false
}
