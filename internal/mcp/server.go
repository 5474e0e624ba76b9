package mcp

import (
	"database/sql"
	"log"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/carbonmatch/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
	ledger  bool // needs the run ledger
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"match_run": {
		def:     matchRunToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMatchRun },
	},
	"catalog_normalize": {
		def:     catalogNormalizeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCatalogNormalize },
	},
	"asc_parse": {
		def:     ascParseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleASCParse },
	},
	"runs_list": {
		def:     runsListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRunsList },
		ledger:  true,
	},
	"runs_purge": {
		def:     runsPurgeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRunsPurge },
		ledger:  true,
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the carbonmatch tools registered.
// Tools listed in cfg.DisabledTools are skipped, and so are the run
// ledger tools when history is disabled.
func NewServer(db *sql.DB, cfg *config.Config, version string) *server.MCPServer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := server.NewMCPServer(
		"carbonmatch",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg)

	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Printf("ignoring unknown disabled_tools: %v", unknown)
	}
	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] || (entry.ledger && h.db == nil) {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(db, cfg, version))
}
