package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/sheetprep/internal/core"
)

// current returns the session's current table.
func (s *Server) current(r *http.Request) (*core.Table, error) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return sess.Current, nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	t, err := s.current(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, core.Summarize(t))
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	t, err := s.current(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, core.Describe(t))
}

// handleDateBounds reports the first and last day of a timestamp column,
// the defaults for a date filter.
func (s *Server) handleDateBounds(w http.ResponseWriter, r *http.Request) {
	t, err := s.current(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	bounds, err := core.DateBounds(t, chi.URLParam(r, "column"))
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	render.JSON(w, r, bounds)
}

type findResponse struct {
	Rows    int        `json:"rows"`
	Target  *float64   `json:"target,omitempty"`
	Columns []string   `json:"columns"`
	Preview [][]string `json:"preview"`
}

// handleFind lists rows at a column's minimum, maximum or a given value.
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	var req findRequest
	if err := s.decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	t, err := s.current(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var value float64
	if req.Value != nil {
		value = *req.Value
	}
	res, err := core.FindRows(t, req.Column, core.FindOp(req.Op), value)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	render.JSON(w, r, findResponse{
		Rows:    res.Table.Len(),
		Target:  res.Target,
		Columns: res.Table.Columns,
		Preview: s.preview(res.Table),
	})
}

type analyzeResponse struct {
	core.AnalysisResult
	Preview [][]string `json:"preview"`
}

// handleAnalyze aggregates a column, optionally over rows matching a value.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := s.decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	t, err := s.current(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := core.Analyze(t, core.Analysis{
		FromColumn: req.FromColumn,
		Value:      req.Value,
		Func:       core.AnalysisFunc(req.Func),
		Target:     req.Target,
		Operand:    req.Operand,
	})
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	render.JSON(w, r, analyzeResponse{AnalysisResult: res, Preview: s.preview(res.Table)})
}
