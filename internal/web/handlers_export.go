package web

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/sheetprep/internal/core"
	"github.com/JonMunkholm/sheetprep/internal/logging"
	"github.com/JonMunkholm/sheetprep/internal/sink"
)

// exportName derives the download name from the uploaded file name.
// "march.xlsx" -> "march_processed.csv"
func exportName(filename, ext string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." {
		base = "data"
	}
	return base + "_processed." + ext
}

// handleExport downloads the current table as CSV (default) or XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}

	// Buffer so a write failure can still produce an error response.
	var buf bytes.Buffer
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = core.WriteCSV(&buf, sess.Current)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = core.WriteXLSX(&buf, sess.Current)
	default:
		respondError(w, r, badRequest(fmt.Errorf("invalid request: unsupported export format %q, use csv or xlsx", format)))
		return
	}
	if err != nil {
		respondError(w, r, fmt.Errorf("export %s: %w", format, err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(sess.Filename, format)))
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "session_id", sess.ID, "error", err)
	}
}

// handleExportPostgres copies the current table into a new database table.
func (s *Server) handleExportPostgres(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil || !s.exporter.Enabled() {
		respondError(w, r, sink.ErrDisabled)
		return
	}

	var req postgresExportRequest
	if err := s.decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := sink.TableName(req.Table); err != nil {
		respondError(w, r, badRequest(err))
		return
	}

	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.exporter.Export(r.Context(), req.Table, sess.Current, sink.Options{Replace: req.Replace})
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}
