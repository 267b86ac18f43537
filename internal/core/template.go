package core

// template.go produces the blank CSV template users fill in before
// importing. The example row uses the schema placeholders, which are
// chosen so the row itself would import cleanly.

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/aurumcrm/exchange/internal/schema"
)

// TemplateFilename is the suggested download name for the import template.
const TemplateFilename = "customers_import_template.csv"

// WriteTemplate writes the CSV import template: the canonical header row
// followed by one example row.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)

	names := schema.Names()
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	example := make([]string, 0, len(names))
	for _, f := range schema.Fields() {
		example = append(example, f.Placeholder)
	}
	if err := cw.Write(example); err != nil {
		return fmt.Errorf("write example row: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
