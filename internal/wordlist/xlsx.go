package wordlist

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// headerCell is skipped when it is the first cell of the first row.
const headerCell = "word"

// loadXLSXDeck reads words from column A of the workbook's first sheet.
func loadXLSXDeck(path string) (Deck, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Deck{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for read-only workbook.
			_ = cerr
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Deck{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Deck{}, fmt.Errorf("failed to read rows: %w", err)
	}

	var words []string
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), headerCell) {
			continue
		}
		if word, ok := cleanWord(row[0]); ok {
			words = append(words, word)
		}
	}
	if len(words) == 0 {
		return Deck{}, fmt.Errorf("word list is empty")
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Deck{Title: title, Words: words}, nil
}
