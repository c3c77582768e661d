package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/sheetprep/internal/core"
	"github.com/JonMunkholm/sheetprep/internal/logging"
	"github.com/JonMunkholm/sheetprep/internal/session"
	"github.com/JonMunkholm/sheetprep/internal/web/templates"
)

// multipartMemory is the part of a multipart form kept in memory; the
// rest spills to temporary files.
const multipartMemory = 8 << 20

// sessionResponse is the API view of a session.
type sessionResponse struct {
	ID              string     `json:"id"`
	Filename        string     `json:"filename"`
	Format          string     `json:"format"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	OriginalRows    int        `json:"original_rows"`
	Rows            int        `json:"rows"`
	Columns         []string   `json:"columns"`
	TemporalColumns []string   `json:"temporal_columns"`
	History         []string   `json:"history"`
	Warnings        []string   `json:"warnings"`
	Preview         [][]string `json:"preview"`
}

func (s *Server) sessionView(sess session.Session) sessionResponse {
	return sessionResponse{
		ID:              sess.ID,
		Filename:        sess.Filename,
		Format:          sess.Format.String(),
		CreatedAt:       sess.CreatedAt,
		UpdatedAt:       sess.UpdatedAt,
		OriginalRows:    sess.Original.Len(),
		Rows:            sess.Current.Len(),
		Columns:         sess.Current.Columns,
		TemporalColumns: core.TemporalColumns(sess.Current),
		History:         sess.History,
		Warnings:        sess.Warnings,
		Preview:         s.preview(sess.Current),
	}
}

// sessionParams is the HTML view of a session.
func sessionParams(sess session.Session, preview [][]string) templates.SessionParams {
	return templates.SessionParams{
		ID:              sess.ID,
		Filename:        sess.Filename,
		OriginalRows:    sess.Original.Len(),
		Rows:            sess.Current.Len(),
		Columns:         sess.Current.Columns,
		TemporalColumns: core.TemporalColumns(sess.Current),
		History:         sess.History,
		Warnings:        sess.Warnings,
		Preview:         preview,
	}
}

// preview returns the leading rows of t as display strings.
func (s *Server) preview(t *core.Table) [][]string {
	return core.Head(t, s.cfg.Upload.PreviewRows).Strings()[1:]
}

// respondSession writes a session as JSON, or as the session partial for
// htmx requests.
func (s *Server) respondSession(w http.ResponseWriter, r *http.Request, status int, v any, sess session.Session) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := templates.SessionView(sessionParams(sess, s.preview(sess.Current))).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render session", "error", err)
		}
		return
	}
	render.Status(r, status)
	render.JSON(w, r, v)
}

// handleUpload loads a multipart file into a new session.
//
// Form fields: file (required), sheet, delimiter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, fmt.Errorf("file too large: %w", err))
			return
		}
		respondError(w, r, badRequest(fmt.Errorf("no file provided: %w", err)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, badRequest(errors.New("no file provided")))
		return
	}
	defer file.Close()

	format, err := core.FormatFromFilename(header.Filename)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}

	loader := core.Loader{
		Sheet:          r.FormValue("sheet"),
		HeaderScanRows: s.cfg.Upload.HeaderScanRows,
	}
	if d := r.FormValue("delimiter"); d != "" {
		delim, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			respondError(w, r, badRequest(fmt.Errorf("invalid request: delimiter must be a single character, got %q", d)))
			return
		}
		loader.Delimiter = delim
	}

	// Parsing holds the whole file in memory, so bound concurrent loads.
	if err := s.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	start := time.Now()
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	table, err := loader.Load(data, format)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sess := s.store.Create(header.Filename, format, table)
	logging.FromContext(r.Context()).Info("file loaded",
		"session_id", sess.ID,
		"filename", header.Filename,
		"format", format.String(),
		"bytes", len(data),
		"rows", table.Len(),
		"duration", time.Since(start),
	)

	w.Header().Set("Location", "/api/sessions/"+sess.ID)
	s.respondSession(w, r, http.StatusCreated, s.sessionView(sess), sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.respondSession(w, r, http.StatusOK, s.sessionView(sess), sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Reset(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.respondSession(w, r, http.StatusOK, s.sessionView(sess), sess)
}

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page("sheetprep", templates.UploadForm()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleSessionPage renders a full page for one session.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	body := templates.SessionView(sessionParams(sess, s.preview(sess.Current)))
	if err := templates.Page(sess.Filename, body).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render session page", "error", err)
	}
}

// statusResponse reports load capacity and live sessions.
type statusResponse struct {
	Sessions int                   `json:"sessions"`
	Loads    session.LimiterStatus `json:"loads"`
	Export   bool                  `json:"database_export"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, statusResponse{
		Sessions: s.store.Len(),
		Loads:    s.limiter.Status(),
		Export:   s.exporter != nil && s.exporter.Enabled(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "ok")
}
