package ops

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hpungsan/carbonmatch/internal/asc"
	"github.com/hpungsan/carbonmatch/internal/catalog"
	"github.com/hpungsan/carbonmatch/internal/errors"
	"github.com/hpungsan/carbonmatch/internal/export"
)

// Format is a result file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. Empty means csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("unknown format %q; use csv, xlsx or json", s))
}

// FormatFromPath picks the format from a file extension, defaulting to csv.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return FormatCSV
}

// ReadInput reads a catalog or ASC file from disk, refusing symlinks and
// anything larger than maxBytes (0 means unlimited).
func ReadInput(path string, maxBytes int64) ([]byte, error) {
	if err := ValidatePath(path, PathCheckRead); err != nil {
		return nil, err
	}
	f, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open %s: %w", path, err))
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read %s: %w", path, err))
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errors.NewPayloadTooLarge(maxBytes)
	}
	return data, nil
}

// ReadASCFiles reads every path into an asc.File named by its base name.
func ReadASCFiles(paths []string, maxBytes int64) ([]asc.File, error) {
	files := make([]asc.File, 0, len(paths))
	for _, p := range paths {
		data, err := ReadInput(p, maxBytes)
		if err != nil {
			return nil, err
		}
		files = append(files, asc.File{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

// ResultDocument is the JSON form of a run.
type ResultDocument struct {
	Summary  Summary       `json:"summary"`
	Warnings []Warning     `json:"warnings"`
	Matches  []MatchRecord `json:"matches"`
}

// Document builds the JSON form of the run at theta.
func (o *MatchOutput) Document(theta float64, keepUnmatched bool) ResultDocument {
	return ResultDocument{
		Summary:  o.Summary(theta, keepUnmatched),
		Warnings: o.Warnings,
		Matches:  o.Records(theta, keepUnmatched),
	}
}

// WriteResult writes the run at theta in format f. XLSX output carries the
// normalized catalog as a second sheet.
func WriteResult(w io.Writer, out *MatchOutput, f Format, theta float64, keepUnmatched bool) error {
	switch f {
	case FormatCSV, "":
		return export.WriteCSV(w, out.MatchTable(theta, keepUnmatched))
	case FormatXLSX:
		return export.WriteXLSX(w, out.MatchTable(theta, keepUnmatched), out.CatalogTable())
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Document(theta, keepUnmatched))
	}
	return errors.NewInvalidRequest(fmt.Sprintf("unknown format %q", f))
}

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	Path            string
	Format          Format // default: from the path extension
	ThresholdArcsec float64
	KeepUnmatched   bool
}

// SaveOutput contains the result of a save.
type SaveOutput struct {
	Path    string `json:"path"`
	Format  Format `json:"format"`
	Rows    int    `json:"rows"`
	SavedAt int64  `json:"saved_at"`
}

// Save writes a run's matches to a file.
func Save(out *MatchOutput, input SaveInput) (*SaveOutput, error) {
	f := input.Format
	if f == "" {
		f = FormatFromPath(input.Path)
	}
	if err := ValidatePath(input.Path, PathCheckWrite, "."+string(f)); err != nil {
		return nil, err
	}

	err := writeAtomic(input.Path, func(w io.Writer) error {
		return WriteResult(w, out, f, input.ThresholdArcsec, input.KeepUnmatched)
	})
	if err != nil {
		return nil, err
	}

	return &SaveOutput{
		Path:    input.Path,
		Format:  f,
		Rows:    len(out.Rows(input.ThresholdArcsec, input.KeepUnmatched)),
		SavedAt: time.Now().Unix(),
	}, nil
}

// SaveCatalog writes a normalized catalog as CSV.
func SaveCatalog(t *catalog.Table, path string) (*SaveOutput, error) {
	if err := ValidatePath(path, PathCheckWrite, ".csv"); err != nil {
		return nil, err
	}
	err := writeAtomic(path, func(w io.Writer) error {
		return export.WriteCSV(w, NormalizedTable(t))
	})
	if err != nil {
		return nil, err
	}
	return &SaveOutput{Path: path, Format: FormatCSV, Rows: len(t.Rows), SavedAt: time.Now().Unix()}, nil
}

// writeAtomic writes to a temp file next to path and renames it into place,
// so an existing file survives a failed write.
func writeAtomic(path string, write func(io.Writer) error) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewInternal(fmt.Errorf("failed to create output file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := write(file); err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close output file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted since ValidatePath
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("output path is a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("output file already exists; overwriting is not supported on Windows")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize output: %w", err))
	}

	success = true
	return nil
}
