package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetprep/internal/core"
	"github.com/JonMunkholm/sheetprep/internal/logging"
	"github.com/JonMunkholm/sheetprep/internal/session"
)

// stepResponse is a session after one processing step plus the step's
// details.
type stepResponse struct {
	sessionResponse
	Region     *core.Region        `json:"region,omitempty"`
	Conversion *conversionResponse `json:"conversion,omitempty"`
	Filter     *filterResponse     `json:"filter,omitempty"`
}

type conversionResponse struct {
	Columns []core.ColumnConversion `json:"columns"`
	Failed  []string                `json:"failed"`
	Unknown []string                `json:"unknown"`
}

type filterResponse struct {
	OriginalCount int `json:"original_count"`
	FilteredCount int `json:"filtered_count"`
}

// runStep applies steps to the session's current table. On error the
// session keeps its previous table.
func (s *Server) runStep(w http.ResponseWriter, r *http.Request, steps core.Steps, conv core.Converter) {
	id := chi.URLParam(r, "id")
	p := core.Pipeline{
		Logger:    logging.WithFields(r.Context(), "session_id", id),
		Converter: conv,
	}

	var out core.Outcome
	sess, err := s.store.Update(id, func(current *core.Table) (session.Change, error) {
		var err error
		out, err = p.Run(current, steps)
		if err != nil {
			return session.Change{}, err
		}
		return session.Change{Table: out.Table, History: out.History, Warnings: out.Warnings}, nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := stepResponse{sessionResponse: s.sessionView(sess), Region: out.Region}
	if c := out.Conversion; c != nil {
		resp.Conversion = &conversionResponse{Columns: c.Columns, Failed: c.Failed, Unknown: c.Unknown}
	}
	if f := out.Filter; f != nil {
		resp.Filter = &filterResponse{OriginalCount: f.OriginalCount, FilteredCount: f.FilteredCount}
	}
	s.respondSession(w, r, http.StatusOK, resp, sess)
}

// handleRegion selects the data rows. A failed auto-detection keeps every
// row and is reported in warnings.
func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := s.decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	policy, err := req.policy()
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.runStep(w, r, core.Steps{Region: policy}, core.Converter{})
}

// handleConvert turns the named columns into timestamps.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := s.decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	s.runStep(w, r, core.Steps{Convert: req.Columns}, core.Converter{DayFirst: req.DayFirst})
}

// handleFilter keeps rows whose timestamp falls in an inclusive date range.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := s.decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	f, err := req.filter()
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.runStep(w, r, core.Steps{Filter: &f}, core.Converter{})
}
