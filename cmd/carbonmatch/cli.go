package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/carbonmatch/internal/catalog"
	"github.com/hpungsan/carbonmatch/internal/config"
	"github.com/hpungsan/carbonmatch/internal/errors"
	"github.com/hpungsan/carbonmatch/internal/export"
	"github.com/hpungsan/carbonmatch/internal/ops"
	"github.com/hpungsan/carbonmatch/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// db is nil when run history is disabled.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "carbonmatch",
		Usage:   "Cross-match a reference catalog against ASC position files",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(db, cfg),
			matchCmd(db, cfg),
			normalizeCmd(cfg),
			runsCmd(db),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: cfg.Bind, Usage: "Address to bind (use 0.0.0.0 for network access)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: cfg.Port, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("port must be between 1 and 65535, got %d", port)))
			}
			srv := web.NewServer(db, cfg, Version, c.String("bind"), port)
			return web.Run(srv)
		},
	}
}

// matchCmd creates the match command.
func matchCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Match a catalog against ASC files (result to stdout, or --out)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "catalog", Aliases: []string{"c"}, Required: true, Usage: "Catalog file (CSV, TSV or semicolon separated)"},
			&cli.StringFlag{Name: "delimiter", Aliases: []string{"d"}, Value: cfg.DefaultDelimiter, Usage: "Catalog delimiter: auto|comma|tab|semicolon"},
			&cli.StringSliceFlag{Name: "asc", Aliases: []string{"a"}, Required: true, Usage: "ASC file (repeatable)"},
			&cli.StringFlag{Name: "theta", Aliases: []string{"t"}, Usage: "Threshold in arcseconds (default from config)"},
			&cli.BoolFlag{Name: "keep-unmatched", Value: cfg.KeepUnmatched, Usage: "Keep catalog rows beyond theta with within_threshold=false"},
			&cli.StringFlag{Name: "index", Value: cfg.MatchIndex, Usage: "Search strategy: auto|brute|kdtree"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the result to this file instead of stdout"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: csv|xlsx|json (default: from --out extension, else csv)"},
		},
		Action: func(c *cli.Context) error {
			maxBytes := cfg.MaxUploadBytes()
			catPath := c.String("catalog")
			data, err := ops.ReadInput(catPath, maxBytes)
			if err != nil {
				return outputError(err)
			}
			ascFiles, err := ops.ReadASCFiles(c.StringSlice("asc"), maxBytes)
			if err != nil {
				return outputError(err)
			}
			delim, err := catalog.ParseDelimiter(c.String("delimiter"))
			if err != nil {
				return outputError(err)
			}

			input := ops.MatchInput{
				CatalogName:   filepath.Base(catPath),
				Catalog:       data,
				Delimiter:     delim,
				ASCFiles:      ascFiles,
				KeepUnmatched: c.Bool("keep-unmatched"),
				Index:         c.String("index"),
			}
			if s := c.String("theta"); s != "" {
				theta, err := parseTheta(s)
				if err != nil {
					return outputError(err)
				}
				input.ThresholdArcsec = theta
			}

			out := c.String("out")
			format, err := resolveFormat(c.String("format"), out)
			if err != nil {
				return outputError(err)
			}
			if out == "" && format == ops.FormatXLSX {
				return outputError(errors.NewInvalidRequest("xlsx output needs --out"))
			}

			result, err := ops.Match(c.Context, cfg, input)
			if err != nil {
				return outputError(err)
			}
			if err := ops.RecordRun(db, result); err != nil {
				fmt.Fprintf(c.App.ErrWriter, "warning: run not recorded: %v\n", err)
			}
			printWarnings(c.App.ErrWriter, result.Warnings)

			if out == "" {
				if err := ops.WriteResult(c.App.Writer, result, format, result.ThresholdArcsec, result.KeepUnmatched); err != nil {
					return outputError(err)
				}
				return nil
			}

			saved, err := ops.Save(result, ops.SaveInput{
				Path:            out,
				Format:          format,
				ThresholdArcsec: result.ThresholdArcsec,
				KeepUnmatched:   result.KeepUnmatched,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, map[string]any{
				"id":       result.ID,
				"summary":  result.Summary(result.ThresholdArcsec, result.KeepUnmatched),
				"warnings": result.Warnings,
				"saved":    saved,
			})
		},
	}
}

// normalizeCmd creates the normalize command.
func normalizeCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "normalize",
		Usage: "Write a catalog with decimal-degree id,ra,dec columns",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "catalog", Aliases: []string{"c"}, Required: true, Usage: "Catalog file"},
			&cli.StringFlag{Name: "delimiter", Aliases: []string{"d"}, Value: cfg.DefaultDelimiter, Usage: "Catalog delimiter: auto|comma|tab|semicolon"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write CSV to this file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			catPath := c.String("catalog")
			data, err := ops.ReadInput(catPath, cfg.MaxUploadBytes())
			if err != nil {
				return outputError(err)
			}
			delim, err := catalog.ParseDelimiter(c.String("delimiter"))
			if err != nil {
				return outputError(err)
			}

			result, err := ops.Normalize(ops.NormalizeInput{
				Name:      filepath.Base(catPath),
				Data:      data,
				Delimiter: delim,
			})
			if err != nil {
				return outputError(err)
			}
			printWarnings(c.App.ErrWriter, result.Warnings)

			out := c.String("out")
			if out == "" {
				if err := export.WriteCSV(c.App.Writer, ops.NormalizedTable(result.Table)); err != nil {
					return outputError(errors.NewInternal(err))
				}
				return nil
			}

			saved, err := ops.SaveCatalog(result.Table, out)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, saved)
		},
	}
}

// runsCmd creates the runs command group.
func runsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect or purge the run history",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
					&cli.IntFlag{Name: "offset", Usage: "Pagination offset"},
				},
				Action: func(c *cli.Context) error {
					if db == nil {
						return outputError(errors.NewInvalidRequest("run history is disabled"))
					}
					output, err := ops.ListRuns(db, ops.ListRunsInput{
						Limit:  c.Int("limit"),
						Offset: c.Int("offset"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:  "purge",
				Usage: "Permanently delete recorded runs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "older-than", Usage: "Only purge runs older than duration (e.g., 7d)"},
				},
				Action: func(c *cli.Context) error {
					if db == nil {
						return outputError(errors.NewInvalidRequest("run history is disabled"))
					}
					var input ops.PurgeRunsInput
					if s := c.String("older-than"); s != "" {
						days, err := parseDuration(s)
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
						input.OlderThanDays = &days
					}

					output, err := ops.PurgeRuns(db, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
		},
	}
}

// Helper functions

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if cErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// printWarnings reports non-fatal input problems on stderr.
func printWarnings(w io.Writer, warnings []ops.Warning) {
	for _, wn := range warnings {
		fmt.Fprintf(w, "warning: [%s] %s\n", wn.Code, wn.Message)
	}
}

// resolveFormat picks the output format from --format, then the --out
// extension, then csv.
func resolveFormat(flag, out string) (ops.Format, error) {
	if flag != "" {
		return ops.ParseFormat(flag)
	}
	if out != "" {
		return ops.FormatFromPath(out), nil
	}
	return ops.FormatCSV, nil
}

// parseTheta accepts a decimal point or a decimal comma.
func parseTheta(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil || v <= 0 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("theta must be a positive number of arcseconds, got %q", s))
	}
	return v, nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
