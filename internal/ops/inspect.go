package ops

import (
	"fmt"
	"strings"

	"github.com/hpungsan/carbonmatch/internal/asc"
	"github.com/hpungsan/carbonmatch/internal/catalog"
	"github.com/hpungsan/carbonmatch/internal/charset"
	"github.com/hpungsan/carbonmatch/internal/errors"
)

// NormalizeInput contains parameters for the Normalize operation.
type NormalizeInput struct {
	Name      string
	Data      []byte
	Delimiter rune // catalog.Auto to sniff
}

// NormalizeOutput contains the normalized catalog and any warnings.
type NormalizeOutput struct {
	Table    *catalog.Table `json:"table"`
	Warnings []Warning      `json:"warnings"`
}

// Normalize reads a catalog upload. SCHEMA_ERROR and EMPTY_INPUT are
// returned as errors; rejected rows and encoding fallback become warnings.
func Normalize(input NormalizeInput) (*NormalizeOutput, error) {
	if len(input.Data) == 0 {
		return nil, errors.NewInvalidRequest("catalog file is required")
	}
	table, err := catalog.Normalize(input.Data, catalog.Options{Name: input.Name, Delimiter: input.Delimiter})
	if err != nil {
		return nil, err
	}

	warnings := []Warning{}
	if table.Encoding == charset.Latin1 {
		warnings = append(warnings, warningFrom(errors.NewEncoding(table.Name)))
	}
	if n := len(table.Rejected); n > 0 {
		first := table.Rejected[0]
		warnings = append(warnings, Warning{
			Code:    errors.ErrValueFormat,
			Message: fmt.Sprintf("%s: %d %s rejected (first at line %d: %s)", table.Name, n, plural(n, "row", "rows"), first.Line, first.Reason),
		})
	}
	return &NormalizeOutput{Table: table, Warnings: warnings}, nil
}

// ParseASCOutput contains the parsed point set and any warnings.
type ParseASCOutput struct {
	Points   *asc.PointSet `json:"points"`
	Warnings []Warning     `json:"warnings"`
}

// ParseASC reads one or more ASC uploads. Skipped lines never fail the
// operation; a set with no points at all is reported as an EMPTY_INPUT warning.
func ParseASC(files []asc.File) (*ParseASCOutput, error) {
	if len(files) == 0 {
		return nil, errors.NewInvalidRequest("at least one ASC file is required")
	}
	set := asc.Parse(files)

	warnings := []Warning{}
	for _, f := range set.Files {
		if f.Encoding == charset.Latin1 {
			warnings = append(warnings, warningFrom(errors.NewEncoding(f.Name)))
		}
		if f.Skipped > 0 {
			warnings = append(warnings, Warning{
				Code:    errors.ErrValueFormat,
				Message: skippedMessage(f),
			})
		}
	}
	if len(set.Points) == 0 {
		warnings = append(warnings, warningFrom(errors.NewEmptyInput("ASC files", set.Skipped())))
	}
	return &ParseASCOutput{Points: set, Warnings: warnings}, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func skippedMessage(f asc.FileStats) string {
	msg := fmt.Sprintf("%s: %d %s skipped", f.Name, f.Skipped, plural(f.Skipped, "line", "lines"))
	if lines := lineList(f.SkippedLines, f.Skipped); lines != "" {
		msg += " (" + lines + ")"
	}
	return msg
}

// lineList renders "line 3, 7" with an ellipsis when only the first few
// of total lines were kept.
func lineList(lines []int, total int) string {
	if len(lines) == 0 {
		return ""
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprint(l)
	}
	s := plural(len(lines), "line ", "lines ") + strings.Join(parts, ", ")
	if total > len(lines) {
		s += ", ..."
	}
	return s
}
