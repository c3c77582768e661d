package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetprep/internal/config"
	"github.com/JonMunkholm/sheetprep/internal/core"
	"github.com/JonMunkholm/sheetprep/internal/logging"
	"github.com/JonMunkholm/sheetprep/internal/session"
	"github.com/JonMunkholm/sheetprep/internal/sink"
)

const statementCSV = "Date,Description,Amount\n" +
	"Statement Period,,\n" +
	",,\n" +
	"01-03-2024,Coffee,3.50\n" +
	"01-04-2024,Lunch,12\n" +
	"01-05-2024,Rent,900\n" +
	",,\n" +
	"Total,,915.5\n"

type fakeExporter struct {
	enabled bool
	got     *core.Table
	err     error
}

func (f *fakeExporter) Enabled() bool { return f.enabled }

func (f *fakeExporter) Export(_ context.Context, table string, t *core.Table, _ sink.Options) (sink.Result, error) {
	if f.err != nil {
		return sink.Result{}, f.err
	}
	f.got = t
	return sink.Result{Table: table, Columns: t.Columns, Rows: int64(t.Len())}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second, ShutdownTimeout: time.Second},
		Upload:  config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second, HeaderScanRows: 5, PreviewRows: 10},
		Session: config.SessionConfig{TTL: time.Minute, MaxSessions: 10, JanitorInterval: time.Minute},
		Rate:    config.RateLimitConfig{Enabled: false},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, exp TableExporter) *Server {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	srv := NewServer(Deps{
		Config:   cfg,
		Store:    session.NewStore(session.Options{Logger: logging.Discard()}),
		Exporter: exp,
		Logger:   logging.Discard(),
	})
	t.Cleanup(func() {
		if srv.rate != nil {
			srv.rate.Close()
		}
	})
	return srv
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func upload(t *testing.T, srv *Server, filename, content string) sessionResponse {
	t.Helper()
	rec := do(t, srv, uploadRequest(t, filename, []byte(content), nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

func postJSON(t *testing.T, srv *Server, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, srv, req)
}

func postForm(t *testing.T, srv *Server, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return do(t, srv, req)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestUpload_CSV(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "statement.csv", statementCSV)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "statement.csv", s.Filename)
	assert.Equal(t, "csv", s.Format)
	assert.Equal(t, 7, s.Rows)
	assert.Equal(t, []string{"Date", "Description", "Amount"}, s.Columns)
	assert.Len(t, s.Preview, 7)
	assert.Equal(t, []string{"Loaded statement.csv"}, s.History)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/sessions/"+s.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, s.ID, decodeBody[sessionResponse](t, rec).ID)
}

func TestUpload_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Report"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Date", "Amount", "Note"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"2024-01-02", 5, "x"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "book.xlsx", buf.String())
	assert.Equal(t, "xlsx", s.Format)
	assert.Equal(t, []string{"Date", "Amount", "Note"}, s.Columns)
	assert.Equal(t, 1, s.Rows)
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		code     string
	}{
		{"unsupported type", "notes.pdf", "x", http.StatusBadRequest, "LOAD004"},
		{"no file", "", "", http.StatusBadRequest, "FILE002"},
		{"empty csv", "empty.csv", "  \n", http.StatusBadRequest, "LOAD003"},
		{"bad workbook", "broken.xlsx", "not a zip", http.StatusBadRequest, "LOAD002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil, nil)
			rec := do(t, srv, uploadRequest(t, tt.filename, []byte(tt.content), map[string]string{"sheet": ""}))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 64
	srv := newTestServer(t, cfg, nil)

	rec := do(t, srv, uploadRequest(t, "big.csv", bytes.Repeat([]byte("a,b\n"), 100), nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeBody[ErrorResponse](t, rec).Code)
}

func TestUpload_Delimiter(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	rec := do(t, srv, uploadRequest(t, "semi.csv", []byte("a;b\n1;2\n"), map[string]string{"delimiter": ";"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"a", "b"}, decodeBody[sessionResponse](t, rec).Columns)
}

func TestProcessingSteps(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "statement.csv", statementCSV)
	base := "/api/sessions/" + s.ID

	rec := postJSON(t, srv, base+"/region", map[string]any{"mode": "auto", "cut_at_blank": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	step := decodeBody[stepResponse](t, rec)
	require.NotNil(t, step.Region)
	assert.Equal(t, core.Region{Start: 2, End: 4}, *step.Region)
	assert.Equal(t, 3, step.Rows)
	assert.Equal(t, 7, step.OriginalRows)

	rec = postJSON(t, srv, base+"/convert", map[string]any{"columns": []string{"Date", "Nope"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	step = decodeBody[stepResponse](t, rec)
	require.NotNil(t, step.Conversion)
	assert.Equal(t, []string{"Nope"}, step.Conversion.Unknown)
	assert.Empty(t, step.Conversion.Failed)
	assert.Equal(t, []string{"Date"}, step.TemporalColumns)
	assert.Len(t, step.Warnings, 1)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/date-bounds/Date", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bounds := decodeBody[core.DateRange](t, rec)
	assert.Equal(t, core.Date{Year: 2024, Month: time.January, Day: 3}, bounds.Start)
	assert.Equal(t, core.Date{Year: 2024, Month: time.January, Day: 5}, bounds.End)

	rec = postJSON(t, srv, base+"/filter", map[string]any{"column": "Date", "start": "2024-01-04", "end": "2024-01-05"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	step = decodeBody[stepResponse](t, rec)
	require.NotNil(t, step.Filter)
	assert.Equal(t, 3, step.Filter.OriginalCount)
	assert.Equal(t, 2, step.Filter.FilteredCount)
	assert.Equal(t, 2, step.Rows)
	assert.Len(t, step.History, 4)

	rec = postJSON(t, srv, base+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reset := decodeBody[sessionResponse](t, rec)
	assert.Equal(t, 7, reset.Rows)
	assert.Equal(t, "Reset to original data", reset.History[len(reset.History)-1])
}

func TestProcessingSteps_FormEncoded(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "statement.csv", statementCSV)
	base := "/api/sessions/" + s.ID

	rec := postForm(t, srv, base+"/region", url.Values{"mode": {"manual"}, "start": {"2"}, "end": {"4"}}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	step := decodeBody[stepResponse](t, rec)
	require.NotNil(t, step.Region)
	assert.Equal(t, core.Region{Start: 2, End: 4}, *step.Region)
	assert.Equal(t, 3, step.Rows)

	// Only the second checkbox is ticked.
	rec = postForm(t, srv, base+"/convert", url.Values{"columns.1": {"Date"}}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := rec.Body.String()
	assert.True(t, strings.HasPrefix(page, `<div id="session">`))
	assert.Contains(t, page, "<legend>Filter by date</legend>")
	assert.Contains(t, page, `<option value="Date">Date</option>`)

	rec = postForm(t, srv, base+"/filter", url.Values{"column": {"Date"}, "start": {"2024-01-04"}, "end": {"2024-01-05"}}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "2 of 7 rows, 3 columns.")

	got := decodeBody[sessionResponse](t, do(t, srv, httptest.NewRequest(http.MethodGet, base, nil)))
	assert.Equal(t, []string{"Date"}, got.TemporalColumns)
	assert.Len(t, got.History, 4)
}

func TestProcessingSteps_FormErrors(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "statement.csv", statementCSV)
	base := "/api/sessions/" + s.ID

	tests := []struct {
		name string
		path string
		form url.Values
	}{
		{"unknown field", "/region", url.Values{"mode": {"auto"}, "colour": {"red"}}},
		{"bad number", "/region", url.Values{"mode": {"manual"}, "start": {"two"}, "end": {"4"}}},
		{"no columns ticked", "/convert", url.Values{"day_first": {"true"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postForm(t, srv, base+tt.path, tt.form, false)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "REQ001", decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

func TestRegion_DetectionFailureWarns(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "statement.csv", statementCSV)

	rec := postJSON(t, srv, "/api/sessions/"+s.ID+"/region", map[string]any{
		"mode": "auto", "method": "numeric-pattern", "skip_words": []string{"statement", "total"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	step := decodeBody[stepResponse](t, rec)
	assert.Equal(t, 7, step.Rows)
	require.Len(t, step.Warnings, 1)
	assert.Contains(t, step.Warnings[0], "Could not detect data start")
}

func TestStepErrors(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "statement.csv", statementCSV)
	base := "/api/sessions/" + s.ID

	tests := []struct {
		name   string
		path   string
		body   map[string]any
		status int
		code   string
	}{
		{"manual out of range", "/region", map[string]any{"mode": "manual", "start": 2, "end": 1}, http.StatusBadRequest, "REG001"},
		{"manual missing end", "/region", map[string]any{"mode": "manual", "start": 0}, http.StatusBadRequest, "REQ001"},
		{"unknown mode", "/region", map[string]any{"mode": "magic"}, http.StatusBadRequest, "REQ001"},
		{"unknown method", "/region", map[string]any{"mode": "auto", "method": "guess"}, http.StatusBadRequest, "REG004"},
		{"no columns", "/convert", map[string]any{"columns": []string{}}, http.StatusBadRequest, "REQ001"},
		{"bad date", "/filter", map[string]any{"column": "Date", "start": "01/02/2024", "end": "2024-01-05"}, http.StatusBadRequest, "REQ001"},
		{"inverted range", "/filter", map[string]any{"column": "Date", "start": "2024-02-01", "end": "2024-01-01"}, http.StatusBadRequest, "DATE001"},
		{"not temporal", "/filter", map[string]any{"column": "Amount", "start": "2024-01-01", "end": "2024-01-02"}, http.StatusBadRequest, "DATE002"},
		{"unknown column", "/filter", map[string]any{"column": "Nope", "start": "2024-01-01", "end": "2024-01-02"}, http.StatusBadRequest, "COL001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, srv, base+tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeBody[ErrorResponse](t, rec).Code)
		})
	}

	got := decodeBody[sessionResponse](t, do(t, srv, httptest.NewRequest(http.MethodGet, base, nil)))
	assert.Equal(t, 7, got.Rows, "failed steps leave the session unchanged")
	assert.Equal(t, []string{"Loaded statement.csv"}, got.History)
}

func TestValidationErrorListsFields(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "statement.csv", statementCSV)

	rec := postJSON(t, srv, "/api/sessions/"+s.ID+"/filter", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)

	var fields []string
	for _, f := range resp.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"column", "start", "end"}, fields)
}

func TestFilter_Skip(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "statement.csv", statementCSV)

	rec := postJSON(t, srv, "/api/sessions/"+s.ID+"/filter", map[string]any{"column": "Date", "skip": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 7, decodeBody[stepResponse](t, rec).Rows)
}

func TestQueries(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "sales.csv", "Region,Amount\nNorth,10\nSouth,5\nNorth,30\n")
	base := "/api/sessions/" + s.ID

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, base+"/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[core.Summary](t, rec)
	assert.Equal(t, 3, summary.Overview.Rows)
	require.Len(t, summary.Numeric, 1)
	assert.Equal(t, 30.0, summary.Numeric[0].Max)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/describe", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	desc := decodeBody[core.Description](t, rec)
	assert.Equal(t, "number", desc.Columns[1].Kind)

	rec = postJSON(t, srv, base+"/find", map[string]any{"column": "Amount", "op": "max"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	found := decodeBody[findResponse](t, rec)
	assert.Equal(t, 1, found.Rows)
	require.NotNil(t, found.Target)
	assert.Equal(t, 30.0, *found.Target)

	rec = postJSON(t, srv, base+"/find", map[string]any{"column": "Amount", "op": "equals"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, srv, base+"/analyze", map[string]any{"from_column": "Region", "value": "North", "func": "sum", "target": "Amount"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[analyzeResponse](t, rec)
	assert.Equal(t, 40.0, res.Result)
	assert.Equal(t, 2, res.Rows)

	rec = postJSON(t, srv, base+"/analyze", map[string]any{"func": "divide", "target": "Amount", "operand": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "COL003", decodeBody[ErrorResponse](t, rec).Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/date-bounds/Amount", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "sales.csv", "Region,Amount\nNorth,10\nSouth,5\n")
	base := "/api/sessions/" + s.ID

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, base+"/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Region,Amount\nNorth,10\nSouth,5\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sales_processed.csv")

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(core.ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Region", "Amount"}, rows[0])

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, base+"/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportPostgres(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, nil, nil)
		s := upload(t, srv, "a.csv", "x\n1\n")
		rec := postJSON(t, srv, "/api/sessions/"+s.ID+"/export/postgres", map[string]any{"table": "t"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "DB003", decodeBody[ErrorResponse](t, rec).Code)
	})

	t.Run("enabled", func(t *testing.T) {
		exp := &fakeExporter{enabled: true}
		srv := newTestServer(t, nil, exp)
		s := upload(t, srv, "a.csv", "x\n1\n2\n")
		rec := postJSON(t, srv, "/api/sessions/"+s.ID+"/export/postgres", map[string]any{"table": "march_sales"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		res := decodeBody[sink.Result](t, rec)
		assert.Equal(t, int64(2), res.Rows)
		require.NotNil(t, exp.got)
		assert.Equal(t, 2, exp.got.Len())
	})

	t.Run("bad table name", func(t *testing.T) {
		srv := newTestServer(t, nil, &fakeExporter{enabled: true})
		s := upload(t, srv, "a.csv", "x\n1\n")
		rec := postJSON(t, srv, "/api/sessions/"+s.ID+"/export/postgres", map[string]any{"table": "1bad"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("database error", func(t *testing.T) {
		srv := newTestServer(t, nil, &fakeExporter{enabled: true, err: errors.New(`relation "t" already exists`)})
		s := upload(t, srv, "a.csv", "x\n1\n")
		rec := postJSON(t, srv, "/api/sessions/"+s.ID+"/export/postgres", map[string]any{"table": "t"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "DB002", decodeBody[ErrorResponse](t, rec).Code)
	})
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	s := upload(t, srv, "a.csv", "x\n1\n")
	path := "/api/sessions/" + s.ID

	rec := do(t, srv, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SES001", decodeBody[ErrorResponse](t, rec).Code)
}

func TestPages(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-post="/api/sessions"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	s := upload(t, srv, "<b>.csv", "Name\n<script>\n")
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/sessions/"+s.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
	assert.NotContains(t, rec.Body.String(), "<script>\n")
	for _, step := range []string{"region", "convert", "reset"} {
		assert.Contains(t, rec.Body.String(), `hx-post="/api/sessions/`+s.ID+`/`+step+`"`)
	}
	assert.Contains(t, rec.Body.String(), `name="columns.0" value="Name"`)
	assert.NotContains(t, rec.Body.String(), "Filter by date", "no temporal columns yet")

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/sessions/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTMXErrorPartial(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	req.Header.Set("HX-Request", "true")

	rec := do(t, srv, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), `<div class="alert"`))
	assert.Contains(t, rec.Body.String(), "SES001")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	srv := newTestServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decodeBody[ErrorResponse](t, rec).Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	srv := newTestServer(t, cfg, nil)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[statusResponse](t, rec)
	assert.Equal(t, 2, status.Loads.MaxConcurrent)
	assert.False(t, status.Export)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "pages are not behind the key")
}

func TestRateLimiter_WindowAndPrune(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	defer rl.Close()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("a"))

	now = now.Add(3 * time.Minute)
	rl.prune()
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()

	rl.Close()
	rl.Close()
}

func TestShutdownWaitsForLoads(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	require.True(t, srv.limiter.TryAcquire())
	go func() {
		time.Sleep(20 * time.Millisecond)
		srv.limiter.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
