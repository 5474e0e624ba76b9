package mcp

import "github.com/mark3labs/mcp-go/mcp"

var matchRunToolDef = mcp.NewTool("match_run",
	mcp.WithDescription("Cross-match a reference catalog against ASC position files. "+
		"Every catalog row is paired with its nearest ASC point; pairs closer than theta arcseconds are returned. "+
		"Give the catalog as catalog_path or catalog_text, and ASC input as asc_paths and/or asc_text."),
	mcp.WithString("catalog_path", mcp.Description("Path to a CSV/TSV/semicolon catalog file")),
	mcp.WithString("catalog_text", mcp.Description("Catalog contents, instead of catalog_path")),
	mcp.WithString("catalog_name", mcp.Description("Display name for catalog_text (default: catalog.csv)")),
	mcp.WithString("delimiter", mcp.Description("Catalog delimiter"), mcp.Enum("auto", "comma", "tab", "semicolon")),
	mcp.WithArray("asc_paths", mcp.Description("Paths to ASC files"), mcp.WithStringItems()),
	mcp.WithString("asc_text", mcp.Description("ASC contents, instead of or in addition to asc_paths")),
	mcp.WithNumber("theta", mcp.Description("Match threshold in arcseconds (default from config)")),
	mcp.WithBoolean("keep_unmatched", mcp.Description("Keep catalog rows beyond theta with within_threshold=false")),
	mcp.WithString("index", mcp.Description("Nearest-neighbour search strategy"), mcp.Enum("auto", "brute", "kdtree")),
	mcp.WithNumber("limit", mcp.Description("Maximum matches returned inline (default: 50, max: 1000)")),
	mcp.WithString("out_path", mcp.Description("Also write all matches to this file")),
	mcp.WithString("format", mcp.Description("Output file format (default: from out_path extension)"), mcp.Enum("csv", "xlsx", "json")),
)

var catalogNormalizeToolDef = mcp.NewTool("catalog_normalize",
	mcp.WithDescription("Normalize a catalog to decimal-degree ra/dec, reporting detected columns and rejected rows."),
	mcp.WithString("catalog_path", mcp.Description("Path to the catalog file")),
	mcp.WithString("catalog_text", mcp.Description("Catalog contents, instead of catalog_path")),
	mcp.WithString("catalog_name", mcp.Description("Display name for catalog_text")),
	mcp.WithString("delimiter", mcp.Description("Catalog delimiter"), mcp.Enum("auto", "comma", "tab", "semicolon")),
	mcp.WithNumber("limit", mcp.Description("Maximum rows returned inline (default: 50, max: 1000)")),
	mcp.WithString("out_path", mcp.Description("Write the normalized catalog to this .csv file")),
)

var ascParseToolDef = mcp.NewTool("asc_parse",
	mcp.WithDescription("Parse ASC files into positions, reporting per-file point and skipped-line counts."),
	mcp.WithArray("asc_paths", mcp.Description("Paths to ASC files"), mcp.WithStringItems()),
	mcp.WithString("asc_text", mcp.Description("ASC contents, instead of or in addition to asc_paths")),
	mcp.WithNumber("limit", mcp.Description("Maximum points returned inline (default: 50, max: 1000)")),
)

var runsListToolDef = mcp.NewTool("runs_list",
	mcp.WithDescription("List recorded match runs, newest first."),
	mcp.WithNumber("limit", mcp.Description("Max results (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Pagination offset")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var runsPurgeToolDef = mcp.NewTool("runs_purge",
	mcp.WithDescription("Permanently delete recorded runs. Matched tables are never stored, only run metadata."),
	mcp.WithNumber("older_than_days", mcp.Description("Only purge runs recorded more than N days ago")),
	mcp.WithDestructiveHintAnnotation(true),
)
