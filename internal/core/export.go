package core

// export.go streams the full customer record set to the client in CSV or
// JSON. Rows come out in ascending identity-key order, so two exports of
// unchanged data are byte-identical. Records are written as they arrive
// from the store; the full set is never held in memory.

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aurumcrm/exchange/internal/schema"
)

// csvFlushEvery bounds how many rows the csv writer buffers before a flush.
const csvFlushEvery = 1000

// Export writes every customer to w in the requested format. The output of
// a CSV export can be fed straight back into Import.
func (s *Service) Export(ctx context.Context, w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		return s.ExportCSV(ctx, w)
	case FormatJSON:
		return s.ExportJSON(ctx, w)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ExportCSV writes the record set as RFC 4180 CSV: a header row of
// canonical field names followed by one row per customer.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	names := schema.Names()

	if err := cw.Write(names); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rows := 0
	row := make([]string, len(names))
	err := s.store.Each(ctx, func(c *Customer) error {
		for i, name := range names {
			row[i] = c.FieldValue(name)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		rows++
		if rows%csvFlushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	slog.Info("export finished", "format", FormatCSV, "rows", rows)
	return nil
}

// ExportJSON writes the record set as a JSON array of objects. Fields
// appear in canonical order, blank fields are omitted, and tags are
// emitted as a string array.
func (s *Service) ExportJSON(ctx context.Context, w io.Writer) error {
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return err
	}

	rows := 0
	err := s.store.Each(ctx, func(c *Customer) error {
		if rows > 0 {
			if _, err := io.WriteString(w, ",\n"); err != nil {
				return err
			}
		}
		obj, err := marshalCustomer(c)
		if err != nil {
			return err
		}
		if _, err := w.Write(obj); err != nil {
			return err
		}
		rows++
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, "\n]\n"); err != nil {
		return err
	}

	slog.Info("export finished", "format", FormatJSON, "rows", rows)
	return nil
}

// marshalCustomer builds one export object by hand so that field order
// follows the schema and empty values disappear, neither of which
// encoding/json offers for a map.
func marshalCustomer(c *Customer) ([]byte, error) {
	buf := []byte{'{'}
	first := true

	for _, f := range schema.Fields() {
		if f.Type == schema.FieldList {
			if len(c.Tags) == 0 {
				continue
			}
			arr, err := json.Marshal(c.Tags)
			if err != nil {
				return nil, err
			}
			buf = appendMember(buf, &first, f.Name, arr)
			continue
		}

		val := c.FieldValue(f.Name)
		if val == "" {
			continue
		}
		str, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		buf = appendMember(buf, &first, f.Name, str)
	}

	return append(buf, '}'), nil
}

func appendMember(buf []byte, first *bool, name string, value []byte) []byte {
	if !*first {
		buf = append(buf, ',')
	}
	*first = false
	buf = append(buf, '"')
	buf = append(buf, name...)
	buf = append(buf, '"', ':')
	return append(buf, value...)
}

// ExportFilename returns the suggested download name for an export, for
// example customers_export_2026-09-01.csv.
func ExportFilename(format Format, now time.Time) string {
	return fmt.Sprintf("customers_export_%s.%s", now.Format(time.DateOnly), format)
}
