package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format of an import or export file
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx". An empty string selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported format %q, want csv or xlsx", s)
}

// FormatFromFilename picks the format from a file extension
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Metadata comment lines written at the top of every export
const (
	markerExport      = "# FlashPod Export"
	prefixDeckName    = "# Deck Name: "
	prefixDescription = "# Description: "
	prefixCards       = "# Cards: "
	prefixExportDate  = "# Export Date: "
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	TermColumn       string // Column with the card front
	DefinitionColumn string // Column with the card back
	TagsColumn       string // Column with the tags, optional
	SheetName        string // Sheet to import, first sheet when empty
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		TermColumn:       "A",
		DefinitionColumn: "B",
		TagsColumn:       "C",
	}
}

// Metadata is what a FlashPod export says about its deck
type Metadata struct {
	DeckName         string `json:"deck_name,omitempty"`
	Description      string `json:"description,omitempty"`
	IsFlashPodExport bool   `json:"is_flashpod_export"`
}

// Row is one card read from a file
type Row struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Tags       string `json:"tags,omitempty"`
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	Metadata       Metadata `json:"metadata"`
	Cards          []Row    `json:"cards"`
	TotalProcessed int      `json:"total_processed"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors,omitempty"`
}

type columns struct {
	term, definition, tags int
}

func (c ImportConfig) columns() (columns, error) {
	var cols columns
	var err error
	if cols.term, err = columnToIndex(c.TermColumn); err != nil {
		return cols, err
	}
	if cols.definition, err = columnToIndex(c.DefinitionColumn); err != nil {
		return cols, err
	}
	cols.tags = -1
	if c.TagsColumn != "" {
		if cols.tags, err = columnToIndex(c.TagsColumn); err != nil {
			return cols, err
		}
	}
	return cols, nil
}

// Parse reads cards from r in the given format
func Parse(r io.Reader, format Format, config ImportConfig) (*ImportResult, error) {
	switch format {
	case FormatXLSX:
		return ParseXLSX(r, config)
	case FormatCSV, "":
		return ParseCSV(r, config)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// ParseCSV reads cards from a CSV file. Lines starting with '#' are comments
// and may carry export metadata; a first row whose term is "term" or
// "front" is a header.
func ParseCSV(r io.Reader, config ImportConfig) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	// Metadata values may contain commas, so they are read line by line
	// before the CSV reader skips the comment lines.
	var md Metadata
	for _, line := range strings.Split(string(data), "\n") {
		readMetadata(strings.TrimRight(line, "\r"), &md)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.Comment = '#'

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	result, err := parseRows(rows, config)
	if err != nil {
		return nil, err
	}
	result.Metadata = md
	return result, nil
}

// ParseXLSX reads cards from a workbook, using the configured sheet or the
// first one
func ParseXLSX(r io.Reader, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return parseRows(rows, config)
}

func parseRows(rows [][]string, config ImportConfig) (*ImportResult, error) {
	cols, err := config.columns()
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Cards: make([]Row, 0, len(rows))}
	headerChecked := false
	for i, row := range rows {
		first := ""
		if len(row) > 0 {
			first = strings.TrimSpace(row[0])
		}
		if strings.HasPrefix(first, "#") {
			readMetadata(first, &result.Metadata)
			continue
		}
		if isBlank(row) {
			continue
		}
		if !headerChecked {
			headerChecked = true
			if h := strings.ToLower(cell(row, cols.term)); h == "term" || h == "front" {
				continue
			}
		}

		result.TotalProcessed++
		card := Row{
			Term:       cell(row, cols.term),
			Definition: cell(row, cols.definition),
			Tags:       cell(row, cols.tags),
		}
		if card.Term == "" || card.Definition == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: term and definition are required", i+1))
			continue
		}
		result.Cards = append(result.Cards, card)
	}
	return result, nil
}

func readMetadata(line string, md *Metadata) {
	switch {
	case strings.HasPrefix(line, markerExport):
		md.IsFlashPodExport = true
	case strings.HasPrefix(line, prefixDeckName):
		md.DeckName = strings.TrimSpace(strings.TrimPrefix(line, prefixDeckName))
	case strings.HasPrefix(line, prefixDescription):
		md.Description = strings.TrimSpace(strings.TrimPrefix(line, prefixDescription))
	}
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// columnToIndex converts a column letter (A, B, ..., AA) to a 0-based index
func columnToIndex(column string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(column))
	if err != nil {
		return 0, fmt.Errorf("invalid column %q: %w", column, err)
	}
	return n - 1, nil
}
