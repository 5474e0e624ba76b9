package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/carbonmatch/internal/asc"
	"github.com/hpungsan/carbonmatch/internal/catalog"
	"github.com/hpungsan/carbonmatch/internal/config"
	"github.com/hpungsan/carbonmatch/internal/errors"
	"github.com/hpungsan/carbonmatch/internal/ops"
)

// Inline result limits.
const (
	DefaultInlineLimit = 50
	MaxInlineLimit     = 1000
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance. A nil db or disabled
// history leaves the run ledger tools without a backend.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.DisableHistory {
		db = nil
	}
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// MatchRunRequest represents the arguments for match_run.
type MatchRunRequest struct {
	CatalogPath   string   `json:"catalog_path,omitempty"`
	CatalogText   string   `json:"catalog_text,omitempty"`
	CatalogName   string   `json:"catalog_name,omitempty"`
	Delimiter     string   `json:"delimiter,omitempty"`
	ASCPaths      []string `json:"asc_paths,omitempty"`
	ASCText       string   `json:"asc_text,omitempty"`
	Theta         *float64 `json:"theta,omitempty"`
	KeepUnmatched *bool    `json:"keep_unmatched,omitempty"`
	Index         string   `json:"index,omitempty"`
	Limit         int      `json:"limit,omitempty"`
	OutPath       string   `json:"out_path,omitempty"`
	Format        string   `json:"format,omitempty"`
}

// CatalogNormalizeRequest represents the arguments for catalog_normalize.
type CatalogNormalizeRequest struct {
	CatalogPath string `json:"catalog_path,omitempty"`
	CatalogText string `json:"catalog_text,omitempty"`
	CatalogName string `json:"catalog_name,omitempty"`
	Delimiter   string `json:"delimiter,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	OutPath     string `json:"out_path,omitempty"`
}

// ASCParseRequest represents the arguments for asc_parse.
type ASCParseRequest struct {
	ASCPaths []string `json:"asc_paths,omitempty"`
	ASCText  string   `json:"asc_text,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// RunsListRequest represents the arguments for runs_list.
type RunsListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// RunsPurgeRequest represents the arguments for runs_purge.
type RunsPurgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// Response types

// MatchRunResponse is the match_run result.
type MatchRunResponse struct {
	ID        string            `json:"id"`
	Summary   ops.Summary       `json:"summary"`
	Warnings  []ops.Warning     `json:"warnings"`
	Matches   []ops.MatchRecord `json:"matches"`
	Truncated int               `json:"truncated,omitempty"`
	Saved     *ops.SaveOutput   `json:"saved,omitempty"`
}

// CatalogNormalizeResponse is the catalog_normalize result.
type CatalogNormalizeResponse struct {
	Name      string             `json:"name"`
	Encoding  string             `json:"encoding"`
	Delimiter string             `json:"delimiter"`
	RAColumn  string             `json:"ra_column"`
	DecColumn string             `json:"dec_column"`
	IDColumn  string             `json:"id_column,omitempty"`
	Columns   []string           `json:"columns,omitempty"`
	RowCount  int                `json:"row_count"`
	Rows      []catalog.Row      `json:"rows"`
	Rejected  []catalog.RowError `json:"rejected,omitempty"`
	Truncated int                `json:"truncated,omitempty"`
	Warnings  []ops.Warning      `json:"warnings"`
	Saved     *ops.SaveOutput    `json:"saved,omitempty"`
}

// ASCParseResponse is the asc_parse result.
type ASCParseResponse struct {
	Files      []asc.FileStats `json:"files"`
	PointCount int             `json:"point_count"`
	Points     []asc.Point     `json:"points"`
	Truncated  int             `json:"truncated,omitempty"`
	Warnings   []ops.Warning   `json:"warnings"`
}

// Handler implementations

// HandleMatchRun handles the match_run tool call.
func (h *Handlers) HandleMatchRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MatchRunRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	name, data, err := h.readCatalog(input.CatalogPath, input.CatalogText, input.CatalogName)
	if err != nil {
		return errorResult(err), nil
	}
	ascFiles, err := h.readASC(input.ASCPaths, input.ASCText)
	if err != nil {
		return errorResult(err), nil
	}
	delim, err := catalog.ParseDelimiter(input.Delimiter)
	if err != nil {
		return errorResult(err), nil
	}

	var format ops.Format
	if input.Format != "" {
		if format, err = ops.ParseFormat(input.Format); err != nil {
			return errorResult(err), nil
		}
	}

	matchInput := ops.MatchInput{
		CatalogName:   name,
		Catalog:       data,
		Delimiter:     delim,
		ASCFiles:      ascFiles,
		KeepUnmatched: h.cfg.KeepUnmatched,
		Index:         input.Index,
	}
	if input.Theta != nil {
		if *input.Theta == 0 {
			return errorResult(errors.NewInvalidRequest("theta must be a positive number of arcseconds")), nil
		}
		matchInput.ThresholdArcsec = *input.Theta
	}
	if input.KeepUnmatched != nil {
		matchInput.KeepUnmatched = *input.KeepUnmatched
	}

	out, err := ops.Match(ctx, h.cfg, matchInput)
	if err != nil {
		return errorResult(err), nil
	}
	if err := ops.RecordRun(h.db, out); err != nil {
		return errorResult(err), nil
	}

	resp := MatchRunResponse{
		ID:       out.ID,
		Summary:  out.Summary(out.ThresholdArcsec, out.KeepUnmatched),
		Warnings: out.Warnings,
	}
	records := out.Records(out.ThresholdArcsec, out.KeepUnmatched)
	resp.Matches, resp.Truncated = truncate(records, input.Limit)

	if input.OutPath != "" {
		saved, err := ops.Save(out, ops.SaveInput{
			Path:            input.OutPath,
			Format:          format,
			ThresholdArcsec: out.ThresholdArcsec,
			KeepUnmatched:   out.KeepUnmatched,
		})
		if err != nil {
			return errorResult(err), nil
		}
		resp.Saved = saved
	}

	return successResult(resp)
}

// HandleCatalogNormalize handles the catalog_normalize tool call.
func (h *Handlers) HandleCatalogNormalize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CatalogNormalizeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	name, data, err := h.readCatalog(input.CatalogPath, input.CatalogText, input.CatalogName)
	if err != nil {
		return errorResult(err), nil
	}
	delim, err := catalog.ParseDelimiter(input.Delimiter)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Normalize(ops.NormalizeInput{Name: name, Data: data, Delimiter: delim})
	if err != nil {
		return errorResult(err), nil
	}

	t := result.Table
	resp := CatalogNormalizeResponse{
		Name:      t.Name,
		Encoding:  string(t.Encoding),
		Delimiter: t.Delimiter,
		RAColumn:  t.RAColumn,
		DecColumn: t.DecColumn,
		IDColumn:  t.IDColumn,
		Columns:   t.Columns,
		RowCount:  len(t.Rows),
		Rejected:  t.Rejected,
		Warnings:  result.Warnings,
	}
	resp.Rows, resp.Truncated = truncate(t.Rows, input.Limit)

	if input.OutPath != "" {
		saved, err := ops.SaveCatalog(t, input.OutPath)
		if err != nil {
			return errorResult(err), nil
		}
		resp.Saved = saved
	}

	return successResult(resp)
}

// HandleASCParse handles the asc_parse tool call.
func (h *Handlers) HandleASCParse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ASCParseRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	files, err := h.readASC(input.ASCPaths, input.ASCText)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.ParseASC(files)
	if err != nil {
		return errorResult(err), nil
	}

	resp := ASCParseResponse{
		Files:      result.Points.Files,
		PointCount: len(result.Points.Points),
		Warnings:   result.Warnings,
	}
	resp.Points, resp.Truncated = truncate(result.Points.Points, input.Limit)
	return successResult(resp)
}

// HandleRunsList handles the runs_list tool call.
func (h *Handlers) HandleRunsList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunsListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if h.db == nil {
		return errorResult(errors.NewInvalidRequest("run history is disabled")), nil
	}

	result, err := ops.ListRuns(h.db, ops.ListRunsInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRunsPurge handles the runs_purge tool call.
func (h *Handlers) HandleRunsPurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunsPurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if h.db == nil {
		return errorResult(errors.NewInvalidRequest("run history is disabled")), nil
	}

	result, err := ops.PurgeRuns(h.db, ops.PurgeRunsInput{
		OlderThanDays: input.OlderThanDays,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Input helpers

// readCatalog resolves exactly one of path or text.
func (h *Handlers) readCatalog(path, text, name string) (string, []byte, error) {
	switch {
	case path != "" && text != "":
		return "", nil, errors.NewInvalidRequest("give catalog_path or catalog_text, not both")
	case path != "":
		data, err := ops.ReadInput(path, h.cfg.MaxUploadBytes())
		if err != nil {
			return "", nil, err
		}
		if name == "" {
			name = filepath.Base(path)
		}
		return name, data, nil
	case text != "":
		if name == "" {
			name = "catalog.csv"
		}
		return name, []byte(text), nil
	}
	return "", nil, errors.NewInvalidRequest("catalog_path or catalog_text is required")
}

// readASC reads asc_paths and appends asc_text as a file named "inline.asc".
func (h *Handlers) readASC(paths []string, text string) ([]asc.File, error) {
	files, err := ops.ReadASCFiles(paths, h.cfg.MaxUploadBytes())
	if err != nil {
		return nil, err
	}
	if text != "" {
		files = append(files, asc.File{Name: "inline.asc", Data: []byte(text)})
	}
	if len(files) == 0 {
		return nil, errors.NewInvalidRequest("asc_paths or asc_text is required")
	}
	return files, nil
}

// truncate returns at most limit items (default DefaultInlineLimit) and
// how many were left out.
func truncate[T any](items []T, limit int) ([]T, int) {
	if limit <= 0 {
		limit = DefaultInlineLimit
	}
	if limit > MaxInlineLimit {
		limit = MaxInlineLimit
	}
	if items == nil {
		items = []T{}
	}
	if len(items) <= limit {
		return items, 0
	}
	return items[:limit], len(items) - limit
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if cErr, ok := errors.As(err); ok {
		message := cErr.Message
		// keep wrapper context such as "obs.asc: "
		if full := err.Error(); full != cErr.Error() {
			message = strings.TrimSuffix(full, cErr.Error()) + cErr.Message
		}
		errorObj := map[string]any{
			"code":    cErr.Code,
			"message": message,
			"status":  cErr.Status,
		}
		if cErr.Code != errors.ErrInternal && cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, err := json.Marshal(payload)
	if err != nil {
		content = []byte(fmt.Sprintf(`{"error":{"code":"INTERNAL","message":%q,"status":500}}`, "failed to encode error"))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
