package web

import (
	"bytes"
	"database/sql"
	stderrors "errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hpungsan/carbonmatch/internal/asc"
	"github.com/hpungsan/carbonmatch/internal/catalog"
	"github.com/hpungsan/carbonmatch/internal/config"
	"github.com/hpungsan/carbonmatch/internal/errors"
	"github.com/hpungsan/carbonmatch/internal/export"
	"github.com/hpungsan/carbonmatch/internal/match"
	"github.com/hpungsan/carbonmatch/internal/ops"
)

// previewRows bounds the rows rendered on the result page; downloads are complete.
const previewRows = 200

// catalogPreviewRows is how much of the normalized catalog the result page shows.
const catalogPreviewRows = 20

// multipartMemory is how much of an upload ParseMultipartForm keeps in memory.
const multipartMemory = 16 << 20

var errHistoryDisabled = &errors.CarbonError{
	Code:    errors.ErrNotFound,
	Status:  http.StatusNotFound,
	Message: "run history is disabled",
}

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
	results  *resultCache
}

// NewHandlers wires handlers to the ledger (nil to disable history) and a
// fresh result cache sized from cfg.
func NewHandlers(database *sql.DB, cfg *config.Config, renderer *Renderer) *Handlers {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.DisableHistory {
		database = nil
	}
	return &Handlers{
		db:       database,
		cfg:      cfg,
		renderer: renderer,
		results:  newResultCache(cfg.ResultTTL(), cfg.MaxCachedResults),
	}
}

func (h *Handlers) page(title, nav string) PageData {
	return PageData{
		Title:   title,
		Version: h.renderer.version,
		Nav:     nav,
		History: h.db != nil,
	}
}

// HandleIndex handles GET /: the upload form.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	d, err := catalog.ParseDelimiter(h.cfg.DefaultDelimiter)
	if err != nil {
		d = ','
	}
	h.renderer.renderPage(w, "index", IndexPageData{
		PageData:      h.page("Match", "match"),
		Theta:         h.cfg.DefaultThresholdArcsec,
		Delimiter:     catalog.DelimiterName(d),
		KeepUnmatched: h.cfg.KeepUnmatched,
		Index:         h.cfg.MatchIndex,
		MaxUploadMB:   h.cfg.MaxUploadMB,
	})
}

// HandleMatch handles POST /match: run the pipeline on uploaded files.
func (h *Handlers) HandleMatch(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.cfg.MaxUploadBytes()
	if r.ContentLength > maxBytes {
		h.renderer.renderError(w, r, errors.NewPayloadTooLarge(maxBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.renderer.renderError(w, r, errors.NewPayloadTooLarge(maxBytes))
			return
		}
		h.renderer.renderError(w, r, errors.NewInvalidRequest("expected a multipart upload with catalog and asc files"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	input, err := h.matchInput(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := ops.Match(r.Context(), h.cfg, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.results.Put(out)

	if h.db != nil {
		if err := ops.RecordRun(h.db, out); err != nil {
			log.Printf("failed to record run %s: %v", out.ID, err)
		}
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, map[string]any{
			"id":       out.ID,
			"summary":  out.Summary(out.ThresholdArcsec, out.KeepUnmatched),
			"warnings": out.Warnings,
			"links":    resultLinks(out.ID),
		})
		return
	}

	http.Redirect(w, r, resultURL(out.ID, out.ThresholdArcsec, out.KeepUnmatched), http.StatusSeeOther)
}

// matchInput reads the multipart form into ops.MatchInput.
func (h *Handlers) matchInput(r *http.Request) (ops.MatchInput, error) {
	var input ops.MatchInput

	catFiles := r.MultipartForm.File["catalog"]
	if len(catFiles) == 0 {
		return input, errors.NewInvalidRequest("catalog file is required")
	}
	data, err := readPart(catFiles[0])
	if err != nil {
		return input, err
	}
	input.CatalogName = catFiles[0].Filename
	input.Catalog = data

	for _, fh := range r.MultipartForm.File["asc"] {
		data, err := readPart(fh)
		if err != nil {
			return input, err
		}
		input.ASCFiles = append(input.ASCFiles, asc.File{Name: fh.Filename, Data: data})
	}

	if input.Delimiter, err = catalog.ParseDelimiter(r.FormValue("delimiter")); err != nil {
		return input, err
	}
	if s := r.FormValue("theta"); s != "" {
		if input.ThresholdArcsec, err = parseTheta(s); err != nil {
			return input, err
		}
	}
	input.KeepUnmatched = parseBool(r.FormValue("keep_unmatched"))
	input.Index = r.FormValue("index")
	return input, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("open upload %s: %w", fh.Filename, err))
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read upload %s: %w", fh.Filename, err))
	}
	return buf.Bytes(), nil
}

// HandleResult handles GET /results/{id}: summary and preview, re-filtered
// by the theta and keep query parameters.
func (h *Handlers) HandleResult(w http.ResponseWriter, r *http.Request) {
	out, theta, keep, err := h.lookup(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out.Document(theta, keep))
		return
	}

	records := out.Records(theta, keep)
	truncated := 0
	if len(records) > previewRows {
		truncated = len(records) - previewRows
		records = records[:previewRows]
	}

	summary := out.Summary(theta, keep)
	files := make([]FileView, len(summary.Files))
	for i, recs := range out.FileRecords(theta) {
		if len(recs) > previewRows {
			recs = recs[:previewRows]
		}
		files[i] = FileView{FileSummary: summary.Files[i], Records: recs}
	}

	preview := CatalogPreview{Table: out.CatalogTable()}
	if n := len(preview.Rows); n > catalogPreviewRows {
		preview.More = n - catalogPreviewRows
		preview.Rows = preview.Rows[:catalogPreviewRows]
	}

	h.renderer.renderPage(w, "result", ResultPageData{
		PageData:  h.page("Result", "match"),
		Summary:   summary,
		Warnings:  out.Warnings,
		Records:   records,
		Extra:     out.Catalog.Columns,
		Truncated: truncated,
		Query:     template.URL(resultQuery(theta, keep)),
		Files:     files,
		Catalog:   preview,
	})
}

// HandleMatchesCSV handles GET /results/{id}/matches.csv.
func (h *Handlers) HandleMatchesCSV(w http.ResponseWriter, r *http.Request) {
	out, theta, keep, err := h.lookup(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.download(w, r, ops.DefaultResultName(out.Catalog.Name, ops.FormatCSV), "text/csv; charset=utf-8", func(wr io.Writer) error {
		return export.WriteCSV(wr, out.MatchTable(theta, keep))
	})
}

// HandleMatchesXLSX handles GET /results/{id}/matches.xlsx.
func (h *Handlers) HandleMatchesXLSX(w http.ResponseWriter, r *http.Request) {
	out, theta, keep, err := h.lookup(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.download(w, r, ops.DefaultResultName(out.Catalog.Name, ops.FormatXLSX),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		func(wr io.Writer) error {
			return ops.WriteResult(wr, out, ops.FormatXLSX, theta, keep)
		})
}

// HandleCatalogCSV handles GET /results/{id}/catalog.csv: the normalized catalog.
func (h *Handlers) HandleCatalogCSV(w http.ResponseWriter, r *http.Request) {
	out, _, _, err := h.lookup(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	name := ops.SanitizeForFilename(strings.TrimSuffix(out.Catalog.Name, filepath.Ext(out.Catalog.Name))) + "-normalized.csv"
	h.download(w, r, name, "text/csv; charset=utf-8", func(wr io.Writer) error {
		return export.WriteCSV(wr, out.CatalogTable())
	})
}

// download buffers the body so a failed write still yields an error page.
func (h *Handlers) download(w http.ResponseWriter, r *http.Request, filename, contentType string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// lookup resolves {id} in the cache and the theta/keep query parameters,
// which default to the values the run was submitted with.
func (h *Handlers) lookup(r *http.Request) (*ops.MatchOutput, float64, bool, error) {
	id := r.PathValue("id")
	if !ops.ValidRunID(id) {
		return nil, 0, false, errors.NewInvalidRequest(fmt.Sprintf("invalid run id %q", id))
	}
	out, ok := h.results.Get(id)
	if !ok {
		return nil, 0, false, errors.NewNotFound(id)
	}

	q := r.URL.Query()
	theta := out.ThresholdArcsec
	if s := q.Get("theta"); s != "" {
		v, err := parseTheta(s)
		if err != nil {
			return nil, 0, false, err
		}
		theta = v
	}
	keep := out.KeepUnmatched
	if s := q.Get("keep"); s != "" {
		keep = parseBool(s)
	}
	return out, theta, keep, nil
}

// HandleRuns handles GET /runs: the run ledger.
func (h *Handlers) HandleRuns(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.renderer.renderError(w, r, errHistoryDisabled)
		return
	}

	result, err := ops.ListRuns(h.db, ops.ListRunsInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	items := make([]RunItem, len(result.Items))
	for i, run := range result.Items {
		items[i] = RunItem{Run: run, Cached: h.results.Has(run.ID)}
	}

	h.renderer.renderPage(w, "runs", RunsPageData{
		PageData:   h.page("Runs", "runs"),
		Items:      items,
		Pagination: result.Pagination,
		Message:    r.URL.Query().Get("message"),
	})
}

// HandlePurge handles POST /runs/purge: permanently delete ledger rows.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.renderer.renderError(w, r, errHistoryDisabled)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	var input ops.PurgeRunsInput
	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.PurgeRuns(h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/runs?message="+url.QueryEscape(result.Message), http.StatusSeeOther)
}

// HandleHelp handles GET /help.
func (h *Handlers) HandleHelp(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "help", HelpPageData{
		PageData: h.page("Help", "help"),
		Body:     h.renderer.help,
	})
}

// parseTheta accepts a decimal point or a decimal comma.
func parseTheta(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("theta %q is not a number", s))
	}
	if err := match.ValidateThreshold(v); err != nil {
		return 0, err
	}
	return v, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBool accepts the values an HTML checkbox or a script would send.
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}

func resultQuery(theta float64, keep bool) string {
	q := url.Values{}
	q.Set("theta", strconv.FormatFloat(theta, 'f', -1, 64))
	q.Set("keep", strconv.FormatBool(keep))
	return q.Encode()
}

func resultURL(id string, theta float64, keep bool) string {
	return "/results/" + id + "?" + resultQuery(theta, keep)
}

func resultLinks(id string) map[string]string {
	base := "/results/" + id
	return map[string]string{
		"result":       base,
		"matches_csv":  base + "/matches.csv",
		"matches_xlsx": base + "/matches.xlsx",
		"catalog_csv":  base + "/catalog.csv",
	}
}
