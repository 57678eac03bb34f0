// Package wordlist loads word lists from files.
package wordlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Deck is a loaded word list with optional per-deck settings.
type Deck struct {
	Title    string
	Words    []string
	Settings DeckSettings
}

// LoadDeck reads a deck from path. Files ending in .yaml or .yml are parsed
// as YAML decks, .xlsx workbooks are read from their first column, and
// anything else is read one word per line.
func LoadDeck(path string) (Deck, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAMLDeck(path)
	case ".xlsx":
		return loadXLSXDeck(path)
	default:
		words, err := LoadWords(path)
		if err != nil {
			return Deck{}, err
		}
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return Deck{Title: title, Words: words}, nil
	}
}

// LoadWords reads one word per line from the provided file path. Blank lines
// and lines starting with '#' are skipped.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()
	return readWords(file)
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		if word, ok := cleanWord(line); ok {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return words, nil
}

// cleanWord trims w and converts it to NFC, so a precomposed and a decomposed
// spelling of the same word are stored and counted as one.
func cleanWord(w string) (string, bool) {
	w = strings.TrimSpace(w)
	if w == "" {
		return "", false
	}
	return norm.NFC.String(w), true
}
