package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/flashpod/pkg/models"
)

const cardsSheet = "Cards"

var header = []string{"Term", "Definition", "Tags"}

var unsafeFilenameChars = regexp.MustCompile(`[^\w\-.]`)

// Filename is the download name of a deck export, e.g. "Spanish_Verbs_12.csv"
func Filename(deck *models.Deck, format Format) string {
	return fmt.Sprintf("%s_%d.%s", unsafeFilenameChars.ReplaceAllString(deck.Name, "_"), deck.ID, format)
}

// ContentType is the MIME type of an export format
func ContentType(format Format) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Export writes deck and its cards to w in the given format
func Export(w io.Writer, format Format, deck *models.Deck, cards []models.Card, exportedAt time.Time) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, deck, cards, exportedAt)
	case FormatCSV, "":
		return WriteCSV(w, deck, cards, exportedAt)
	}
	return fmt.Errorf("unsupported format %q", format)
}

func metadataLines(deck *models.Deck, cards []models.Card, exportedAt time.Time) []string {
	lines := []string{markerExport, prefixDeckName + deck.Name}
	if deck.Description != "" {
		lines = append(lines, prefixDescription+deck.Description)
	}
	return append(lines,
		fmt.Sprintf("%s%d", prefixCards, len(cards)),
		prefixExportDate+exportedAt.Format(time.RFC3339),
	)
}

func cardRecord(c models.Card) []string {
	return []string{c.FrontContent, c.BackContent, c.Tags}
}

// WriteCSV writes the metadata comment block, a blank line, the header and
// one record per card
func WriteCSV(w io.Writer, deck *models.Deck, cards []models.Card, exportedAt time.Time) error {
	for _, line := range metadataLines(deck, cards, exportedAt) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, c := range cards {
		if err := cw.Write(cardRecord(c)); err != nil {
			return fmt.Errorf("failed to write card %d: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook laid out like the CSV export,
// with each metadata line in its own row of column A
func WriteXLSX(w io.Writer, deck *models.Deck, cards []models.Card, exportedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), cardsSheet)

	row := 1
	put := func(values []string) error {
		cellRef, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(cardsSheet, cellRef, &values)
	}

	for _, line := range metadataLines(deck, cards, exportedAt) {
		if err := put([]string{line}); err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
	}
	row++ // blank separator row
	if err := put(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, c := range cards {
		if err := put(cardRecord(c)); err != nil {
			return fmt.Errorf("failed to write card %d: %w", c.ID, err)
		}
	}
	if err := f.SetColWidth(cardsSheet, "A", "B", 40); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
