package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aurumcrm/exchange/internal/core"
	"github.com/aurumcrm/exchange/internal/logging"
	"github.com/aurumcrm/exchange/internal/schema"
)

// handleHealth reports liveness and the current store size.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.CustomerCount(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"customers":      count,
		"active_imports": s.service.ActiveImports(),
	})
}

// handleImport runs an import from an uploaded file. The file arrives as
// the multipart form field "file"; requests without a multipart body are
// read raw, which keeps curl piping workable. The format comes from the
// format query parameter or the uploaded filename.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, filename, err := importBody(r)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}
	defer body.Close()

	format, ok := formatFromRequest(r, filename)
	if !ok {
		writeError(r.Context(), w, http.StatusBadRequest, "unsupported format, use csv or json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	logger := logging.WithFields(r.Context(), "format", format, "filename", filename)
	logger.Info("import started")

	result, err := s.service.Import(ctx, body, format)
	if err != nil {
		s.writeImportError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// importBody extracts the import stream from the request. Multipart
// requests must carry the file in the "file" field.
func importBody(r *http.Request) (io.ReadCloser, string, error) {
	ct := r.Header.Get("Content-Type")
	if len(ct) >= 19 && ct[:19] == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("missing multipart field %q", "file")
		}
		return file, header.Filename, nil
	}
	return r.Body, "", nil
}

// writeImportError maps pipeline errors to HTTP status codes.
func (s *Server) writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	var formatErr *core.FormatError

	switch {
	// Size and encoding failures surface wrapped in a FormatError, so they
	// are matched first to keep their specific status codes.
	case errors.Is(err, core.ErrFileTooLarge):
		writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "file exceeds the maximum import size")
	case errors.Is(err, core.ErrInvalidUTF8):
		writeError(r.Context(), w, http.StatusBadRequest, "file is not valid UTF-8")
	case errors.As(err, &formatErr):
		writeError(r.Context(), w, http.StatusBadRequest, formatErr.Error())
	case errors.Is(err, core.ErrTooManyImports):
		w.Header().Set("Retry-After", "30")
		writeError(r.Context(), w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, core.ErrStoreUnavailable):
		writeError(r.Context(), w, http.StatusServiceUnavailable, "store unavailable, import aborted")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(r.Context(), w, http.StatusGatewayTimeout, "import timed out")
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "import failed")
	}
}

// handleExport streams the full record set as a file download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, ok := formatFromRequest(r, "")
	if !ok {
		writeError(r.Context(), w, http.StatusBadRequest, "unsupported format, use csv or json")
		return
	}

	filename := core.ExportFilename(format, time.Now())
	switch format {
	case core.FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	case core.FormatJSON:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.service.Export(r.Context(), w, format); err != nil {
		// Headers are gone; all that is left is to log.
		logging.FromContext(r.Context()).Error("export failed", "format", format, "error", err)
	}
}

// handleTemplate serves the blank CSV import template.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", core.TemplateFilename))

	if err := core.WriteTemplate(w); err != nil {
		logging.FromContext(r.Context()).Error("template write failed", "error", err)
	}
}

// customerView is the list representation of one customer.
type customerView struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
	Tags   []string          `json:"tags,omitempty"`
}

// handleList returns one page of customers.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 50)
	if pageSize > 500 {
		pageSize = 500
	}

	customers, total, err := s.service.ListCustomers(r.Context(), page, pageSize)
	if err != nil {
		if errors.Is(err, core.ErrStoreUnavailable) {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "list failed")
		return
	}

	views := make([]customerView, 0, len(customers))
	for _, c := range customers {
		views = append(views, toView(c))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"customers": views,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func toView(c *core.Customer) customerView {
	fields := make(map[string]string)
	for _, name := range schema.Names() {
		if name == "tags" {
			continue
		}
		if v := c.FieldValue(name); v != "" {
			fields[name] = v
		}
	}
	return customerView{
		ID:     c.ID.String(),
		Fields: fields,
		Tags:   c.Tags,
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
