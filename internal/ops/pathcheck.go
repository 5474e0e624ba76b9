package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/carbonmatch/internal/errors"
)

// PathCheckMode indicates whether the path check is for reading or writing.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // catalog or ASC input
	PathCheckWrite                      // result export
)

// ValidatePath checks a file path handed to the CLI or an MCP tool:
//  1. it is not empty
//  2. its extension is one of exts, when exts is given (case-insensitive)
//  3. inputs exist and are regular files; outputs have an existing parent directory
//  4. the final component is not a symlink
func ValidatePath(path string, mode PathCheckMode, exts ...string) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidRequest("path is required")
	}

	cleaned := filepath.Clean(path)
	if len(exts) > 0 && !hasExt(cleaned, exts) {
		return errors.NewInvalidRequest(fmt.Sprintf("path must have one of the extensions %v", exts))
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	info, lerr := os.Lstat(absPath)
	if lerr == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}

	switch mode {
	case PathCheckRead:
		if lerr != nil {
			if os.IsNotExist(lerr) {
				return errors.NewFileNotFound(path)
			}
			return errors.NewInvalidRequest(fmt.Sprintf("cannot stat %s: %v", path, lerr))
		}
		if !info.Mode().IsRegular() {
			return errors.NewInvalidRequest(fmt.Sprintf("%s is not a regular file", path))
		}
	case PathCheckWrite:
		if lerr == nil && info.IsDir() {
			return errors.NewInvalidRequest(fmt.Sprintf("%s is a directory", path))
		}
		parent, err := os.Stat(filepath.Dir(absPath))
		if err != nil || !parent.IsDir() {
			return errors.NewInvalidRequest(fmt.Sprintf("directory for %s does not exist", path))
		}
	}

	return nil
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// SanitizeForFilename sanitizes a string for safe use in a filename.
// Removes/replaces characters that could be used for path traversal or injection.
func SanitizeForFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	s = result.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-. ")

	if s == "" {
		s = "unnamed"
	}
	return s
}

// DefaultResultName is the download name for a run's match export:
// <catalog stem>-matches.<ext>.
func DefaultResultName(catalogName string, f Format) string {
	stem := strings.TrimSuffix(filepath.Base(catalogName), filepath.Ext(catalogName))
	return SanitizeForFilename(stem) + "-matches." + string(f)
}
