package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/conceptpipe/fault"
)

// utf8BOM is stripped from the head of source files before parsing.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor parses tabular sources into work items.
type Extractor struct {
	mapping FieldMapping
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor with the given field mapping. A nil mapping uses
// DefaultMapping.
func New(mapping FieldMapping, opts ...Option) *Extractor {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	e := &Extractor{
		mapping: mapping,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract parses one source file into an ordered sequence of work items.
// Warnings cover skipped rows and heuristic mapping fallbacks; a returned
// error is always a classified fault. A structurally valid file with zero
// data rows yields an empty slice and no error.
func (e *Extractor) Extract(path string) ([]WorkItem, []string, error) {
	ctx := fault.Context{Op: fault.OpExtract, File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fault.Classify(err, ctx)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, fault.New(fault.KindParse, ctx, "file is empty")
	}

	// Plain-text sources carry no tabular structure: the whole file is one
	// concept, processed exactly like a one-row file.
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return FromText(string(data), path), nil, nil
	}

	headers, rows, err := readRows(data, delimiterFor(path))
	if err != nil {
		return nil, nil, fault.Classify(err, ctx)
	}
	if headers == nil {
		return nil, nil, fault.New(fault.KindParse, ctx, "file has no rows")
	}

	canonical, warnings, ferr := e.resolveHeaders(headers, ctx)
	if ferr != nil {
		return nil, warnings, ferr
	}

	items := e.buildItems(path, canonical, rows, &warnings)

	e.logger.Debug("Extraction complete",
		"file", path,
		"items", len(items),
		"rows", len(rows),
		"warnings", len(warnings))

	return items, warnings, nil
}

// FromText wraps an inline text blob as a single-row, single-file source, so
// the orchestrator processes it exactly like file input.
func FromText(text, name string) []WorkItem {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return []WorkItem{{
		Row:     1,
		Concept: trimmed,
		Source:  SourceRef{File: name, Row: 1, TotalRows: 1},
	}}
}

// resolveHeaders maps raw headers to canonical names, validating that the
// mandatory concept field is covered. Explicit mapping wins; the keyword
// heuristic runs second and always produces a warning. With no candidate at
// all, extraction fails with a validation fault.
func (e *Extractor) resolveHeaders(headers []string, ctx fault.Context) ([]string, []string, error) {
	var warnings []string
	canonical := e.mapping.apply(headers)

	for _, name := range canonical {
		if name == FieldConcept {
			return canonical, warnings, nil
		}
	}

	guessed, ok := guessConceptColumn(headers)
	if !ok {
		return nil, warnings, fault.New(fault.KindValidation, ctx,
			"no column maps to the mandatory %q field (headers: %s)",
			FieldConcept, strings.Join(headers, ", "))
	}

	warnings = append(warnings, fmt.Sprintf(
		"no explicit mapping for %q; falling back to column %q by keyword match — update the column mapping to make this explicit",
		FieldConcept, guessed))

	for i, h := range headers {
		if h == guessed {
			canonical[i] = FieldConcept
			break
		}
	}
	return canonical, warnings, nil
}

// buildItems converts data rows into work items. Rows whose concept is empty
// after trimming are skipped with a warning; row numbers stay 1-based and
// anchored to the row's physical position, so they are stable regardless of
// skips and blank lines.
func (e *Extractor) buildItems(path string, canonical []string, rows []row, warnings *[]string) []WorkItem {
	total := len(rows)
	items := make([]WorkItem, 0, total)

	for _, r := range rows {
		rowNum := r.num

		item := WorkItem{
			Row:    rowNum,
			Source: SourceRef{File: path, Row: rowNum, TotalRows: total},
		}
		for col, value := range r.fields {
			if col >= len(canonical) {
				break
			}
			value = strings.TrimSpace(value)
			switch canonical[col] {
			case FieldConcept:
				item.Concept = value
			case FieldBody:
				item.Body = value
			default:
				if value != "" {
					if item.Extras == nil {
						item.Extras = make(map[string]string)
					}
					item.Extras[canonical[col]] = value
				}
			}
		}

		if item.Concept == "" {
			*warnings = append(*warnings, fmt.Sprintf("%s: row %d skipped, empty %s field", path, rowNum, FieldConcept))
			continue
		}
		items = append(items, item)
	}
	return items
}

// delimiterFor selects the field delimiter from the file extension.
func delimiterFor(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

// row is one parsed data row with its 1-based data row number.
type row struct {
	num    int
	fields []string
}

// readRows parses delimited text into a header and data rows. LazyQuotes
// tolerates the stray quotes real-world exports carry; ragged rows are
// allowed and validated per-field later. Row numbers are derived from the
// physical line of each record, so blank lines the reader drops do not
// renumber later rows.
func readRows(data []byte, delimiter rune) ([]string, []row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	headerLine, _ := r.FieldPos(0)

	var rows []row
	for {
		fields, err := r.Read()
		if err == io.EOF {
			return headers, rows, nil
		}
		if err != nil {
			return nil, nil, err
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, row{num: line - headerLine, fields: fields})
	}
}
