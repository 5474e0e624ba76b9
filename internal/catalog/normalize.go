package catalog

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hpungsan/carbonmatch/internal/charset"
	"github.com/hpungsan/carbonmatch/internal/errors"
	"github.com/hpungsan/carbonmatch/internal/sky"
)

// maxReportedErrors bounds the row errors copied into an EMPTY_INPUT error.
const maxReportedErrors = 5

// Normalize parses a delimited catalog with a header row.
//
// It fails with SCHEMA_ERROR when no right ascension / declination pair can
// be identified, and with EMPTY_INPUT when no data row survives. Rows whose
// coordinates cannot be parsed are left out and listed in Table.Rejected.
func Normalize(data []byte, opts Options) (*Table, error) {
	name := opts.Name
	if name == "" {
		name = "catalog"
	}

	text, enc := charset.Decode(data)

	delim := opts.Delimiter
	if delim == Auto {
		first, _, _ := strings.Cut(text, "\n")
		delim = sniff(first)
	}

	lines := strings.Split(text, "\n")
	next := 0
	// nextRecord returns the next non-blank physical line as a record.
	// Each line is parsed on its own so an unbalanced quote cannot pull
	// the following rows into one field.
	nextRecord := func() (rec []string, lineNo int, err error) {
		for next < len(lines) {
			line := strings.TrimSuffix(lines[next], "\r")
			next++
			if strings.TrimSpace(line) == "" {
				continue
			}
			rec, err := readLine(line, delim)
			return rec, next, err
		}
		return nil, 0, io.EOF
	}

	header, _, err := nextRecord()
	if err == io.EOF {
		return nil, errors.NewEmptyInput(name, 0)
	}
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s: unreadable header: %v", name, err))
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == "" {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	cols := resolveColumns(header)
	var missing []string
	if cols[FieldRA] < 0 {
		missing = append(missing, string(FieldRA))
	}
	if cols[FieldDec] < 0 {
		missing = append(missing, string(FieldDec))
	}
	if len(missing) > 0 {
		return nil, errors.NewSchema(missing, header)
	}

	t := &Table{
		Name:      name,
		Encoding:  enc,
		Delimiter: DelimiterName(delim),
		RAColumn:  header[cols[FieldRA]],
		DecColumn: header[cols[FieldDec]],
	}
	if cols[FieldID] >= 0 {
		t.IDColumn = header[cols[FieldID]]
	}

	var extra []int
	for i, h := range header {
		if i == cols[FieldRA] || i == cols[FieldDec] || i == cols[FieldID] {
			continue
		}
		extra = append(extra, i)
		t.Columns = append(t.Columns, h)
	}

	need := max(cols[FieldRA], cols[FieldDec]) + 1

	for index := 0; ; index++ {
		rec, line, err := nextRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			reason := err.Error()
			var pe *csv.ParseError
			if stderrors.As(err, &pe) {
				reason = pe.Err.Error()
			}
			t.Rejected = append(t.Rejected, RowError{Index: index, Line: line, Reason: reason})
			continue
		}

		if len(rec) < need {
			t.Rejected = append(t.Rejected, RowError{
				Index:  index,
				Line:   line,
				Reason: fmt.Sprintf("row has %d fields, need at least %d", len(rec), need),
			})
			continue
		}

		ra, err := sky.ParseRA(rec[cols[FieldRA]])
		if err != nil {
			t.Rejected = append(t.Rejected, rowError(index, line, t.RAColumn, rec[cols[FieldRA]], err))
			continue
		}
		dec, err := sky.ParseDec(rec[cols[FieldDec]])
		if err != nil {
			t.Rejected = append(t.Rejected, rowError(index, line, t.DecColumn, rec[cols[FieldDec]], err))
			continue
		}

		id := ""
		if i := cols[FieldID]; i >= 0 && i < len(rec) {
			id = strings.TrimSpace(rec[i])
		}
		if id == "" {
			id = strconv.Itoa(index)
		}

		row := Row{
			Record: sky.Record{ID: id, RA: ra, Dec: dec},
			Index:  index,
			Line:   line,
		}
		if len(extra) > 0 {
			row.Extra = make([]string, len(extra))
			for j, i := range extra {
				if i < len(rec) {
					row.Extra[j] = strings.TrimSpace(rec[i])
				}
			}
		}
		t.Rows = append(t.Rows, row)
	}

	if len(t.Rows) == 0 {
		cErr := errors.NewEmptyInput(name, len(t.Rejected))
		reasons := make([]string, 0, maxReportedErrors)
		for _, re := range t.Rejected {
			if len(reasons) == maxReportedErrors {
				break
			}
			reasons = append(reasons, fmt.Sprintf("line %d: %s", re.Line, re.Reason))
		}
		cErr.Details["errors"] = reasons
		return nil, cErr
	}

	return t, nil
}

// readLine splits one physical line into fields.
func readLine(line string, delim rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.Read()
}

func rowError(index, line int, column, value string, err error) RowError {
	reason := err.Error()
	if cErr, ok := errors.As(err); ok {
		reason = cErr.Message
	}
	return RowError{Index: index, Line: line, Column: column, Value: value, Reason: reason}
}
