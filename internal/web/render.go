package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/carbonmatch/internal/db"
	"github.com/hpungsan/carbonmatch/internal/errors"
	"github.com/hpungsan/carbonmatch/internal/export"
	"github.com/hpungsan/carbonmatch/internal/ops"
	"github.com/hpungsan/carbonmatch/internal/sky"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "match", "runs", "help"
	History bool   // run ledger enabled
}

// IndexPageData is the template data for the upload form.
type IndexPageData struct {
	PageData
	Theta         float64
	Delimiter     string
	KeepUnmatched bool
	Index         string
	MaxUploadMB   int
}

// ResultPageData is the template data for a run's result page.
type ResultPageData struct {
	PageData
	Summary   ops.Summary
	Warnings  []ops.Warning
	Records   []ops.MatchRecord
	Extra     []string
	Truncated int          // rows not shown in the preview
	Query     template.URL // theta and keep, for the download links
	Files     []FileView
	Catalog   CatalogPreview
}

// FileView is one ASC file's counts and its matches within θ.
type FileView struct {
	ops.FileSummary
	Records []ops.MatchRecord
}

// CatalogPreview is the head of the normalized catalog.
type CatalogPreview struct {
	export.Table
	More int // rows not shown
}

// RunsPageData is the template data for the run history page.
type RunsPageData struct {
	PageData
	Items      []RunItem
	Pagination ops.Pagination
	Message    string
}

// RunItem is a ledger row plus whether its tables are still cached.
type RunItem struct {
	db.Run
	Cached bool
}

// HelpPageData is the template data for the help page.
type HelpPageData struct {
	PageData
	Body template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Code       string
	Message    string
	Details    []string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	help      template.HTML
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
		"formatTime":  formatTime,
		"formatCount": formatCount,
		"arcsec":      formatArcsec,
		"degrees":     func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) },
		"sexaRA":      sky.SexaRA,
		"sexaDec":     sky.SexaDec,
		"deref":       deref,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"index":  "index.html",
		"result": "result.html",
		"runs":   "runs.html",
		"help":   "help.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	help := template.HTML("")
	if md, err := fs.ReadFile(templateFS, "help.md"); err == nil {
		help = renderMarkdown(string(md))
	} else {
		log.Printf("help page unavailable: %v", err)
	}

	return &Renderer{
		templates: templates,
		help:      help,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.Printf("template %q not found", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	cErr, ok := errors.As(err)
	if !ok {
		cErr = errors.NewInternal(err)
	}
	if cErr.Code == errors.ErrInternal {
		log.Printf("internal error on %s %s: %v", req.Method, req.URL.Path, cErr.Details["internal_error"])
	}

	status := cErr.Status
	message := cErr.Message

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(cErr.Code),
				"message": message,
				"status":  status,
				"details": publicDetails(cErr),
			},
		})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Code:       string(cErr.Code),
		Message:    message,
		Details:    detailLines(cErr),
	})
}

// publicDetails drops the wrapped internal error text.
func publicDetails(e *errors.CarbonError) map[string]any {
	if e.Code == errors.ErrInternal {
		return nil
	}
	return e.Details
}

// detailLines lists the per-row reasons attached to EMPTY_INPUT errors.
func detailLines(e *errors.CarbonError) []string {
	if lines, ok := e.Details["errors"].([]string); ok {
		return lines
	}
	return nil
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// markdown renders GitHub-flavoured tables in the help page.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatArcsec renders a separation with four decimals; nil is a dash.
func formatArcsec(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

// formatCount formats an integer with comma thousands separators.
func formatCount(n int) string {
	if n < 0 {
		return "-" + formatCount(-n)
	}
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// deref dereferences a *float64, returning 0 if nil.
func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
