package wordlist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DeckSettings are optional overrides stored in a YAML deck. Durations are
// milliseconds.
type DeckSettings struct {
	ExposureMs    *int    `yaml:"exposure"`
	IntervalMs    *int    `yaml:"interval"`
	VariabilityMs *int    `yaml:"variability"`
	Mask          *bool   `yaml:"mask"`
	MaskMs        *int    `yaml:"mask-duration"`
	Case          *string `yaml:"case"`
}

type yamlDeck struct {
	Title    string       `yaml:"title"`
	Words    []string     `yaml:"words"`
	Settings DeckSettings `yaml:"settings"`
}

func loadYAMLDeck(path string) (Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Deck{}, err
	}
	return parseYAMLDeck(data)
}

func parseYAMLDeck(data []byte) (Deck, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var raw yamlDeck
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Deck{}, fmt.Errorf("word list is empty")
		}
		return Deck{}, fmt.Errorf("failed to decode deck: %w", err)
	}
	words := make([]string, 0, len(raw.Words))
	for _, w := range raw.Words {
		if word, ok := cleanWord(w); ok {
			words = append(words, word)
		}
	}
	if len(words) == 0 {
		return Deck{}, fmt.Errorf("word list is empty")
	}
	return Deck{Title: raw.Title, Words: words, Settings: raw.Settings}, nil
}
