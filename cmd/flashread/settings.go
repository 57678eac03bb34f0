package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/flashread/internal/config"
	"github.com/verte-zerg/flashread/internal/model"
	"github.com/verte-zerg/flashread/internal/session"
	"github.com/verte-zerg/flashread/internal/wordlist"
)

const (
	defaultCount       = 25
	defaultExposureMs  = 150
	defaultIntervalMs  = 1000
	defaultVariability = 0
	defaultMaskMs      = 100
	defaultCase        = string(model.CaseOriginal)
)

// sessionFlags holds the flags shared by the run and bench commands.
// Durations are milliseconds.
type sessionFlags struct {
	words         string
	count         int
	shuffle       bool
	maxLength     int
	exposureMs    int
	intervalMs    int
	variabilityMs int
	mask          bool
	maskMs        int
	textCase      string
}

func addSessionFlags(cmd *cobra.Command, f *sessionFlags, count int) {
	flags := cmd.Flags()
	flags.IntVar(&f.count, "count", count, "words per session (0 = whole list)")
	flags.BoolVar(&f.shuffle, "shuffle", false, "shuffle the word list")
	flags.IntVar(&f.maxLength, "max-length", 0, "skip words longer than N characters (0 = no limit)")
	flags.IntVar(&f.exposureMs, "exposure", defaultExposureMs, "word exposure in ms")
	flags.IntVar(&f.intervalMs, "interval", defaultIntervalMs, "interval between words in ms")
	flags.IntVar(&f.variabilityMs, "variability", defaultVariability, "random interval variation in ms (+/-)")
	flags.BoolVar(&f.mask, "mask", false, "show a mask after each word")
	flags.IntVar(&f.maskMs, "mask-duration", defaultMaskMs, "mask duration in ms")
	flags.StringVar(&f.textCase, "case", defaultCase, "text case: original, uppercase or lowercase")
}

// applyFileConfig copies config values into flags the user did not set.
func applyFileConfig(cmd *cobra.Command, f *sessionFlags, cfg config.SessionConfig) {
	applyConfig(cmd, "words", &f.words, cfg.Words)
	applyConfig(cmd, "count", &f.count, cfg.Count)
	applyConfig(cmd, "shuffle", &f.shuffle, cfg.Shuffle)
	applyConfig(cmd, "exposure", &f.exposureMs, cfg.ExposureMs)
	applyConfig(cmd, "interval", &f.intervalMs, cfg.IntervalMs)
	applyConfig(cmd, "variability", &f.variabilityMs, cfg.VariabilityMs)
	applyConfig(cmd, "mask", &f.mask, cfg.Mask)
	applyConfig(cmd, "mask-duration", &f.maskMs, cfg.MaskMs)
	applyConfig(cmd, "case", &f.textCase, cfg.Case)
}

// applyDeckSettings lets a deck override the config file but not flags.
func applyDeckSettings(cmd *cobra.Command, f *sessionFlags, s wordlist.DeckSettings) {
	applyConfig(cmd, "exposure", &f.exposureMs, s.ExposureMs)
	applyConfig(cmd, "interval", &f.intervalMs, s.IntervalMs)
	applyConfig(cmd, "variability", &f.variabilityMs, s.VariabilityMs)
	applyConfig(cmd, "mask", &f.mask, s.Mask)
	applyConfig(cmd, "mask-duration", &f.maskMs, s.MaskMs)
	applyConfig(cmd, "case", &f.textCase, s.Case)
}

func applyConfig[T any](cmd *cobra.Command, name string, target, value *T) {
	if value == nil {
		return
	}
	if f := cmd.Flags().Lookup(name); f == nil || f.Changed {
		return
	}
	*target = *value
}

// modelConfig validates the flags and converts them to a session config.
func (f sessionFlags) modelConfig() (model.Config, error) {
	if f.count < 0 {
		return model.Config{}, fmt.Errorf("--count must be >= 0")
	}
	if f.maxLength < 0 {
		return model.Config{}, fmt.Errorf("--max-length must be >= 0")
	}
	textCase, err := model.ParseTextCase(f.textCase)
	if err != nil {
		return model.Config{}, fmt.Errorf("--case: %w", err)
	}
	settings := model.Settings{
		Exposure:            ms(f.exposureMs),
		IntervalBase:        ms(f.intervalMs),
		IntervalVariability: ms(f.variabilityMs),
		MaskEnabled:         f.mask,
		MaskDuration:        ms(f.maskMs),
		TextCase:            textCase,
	}
	if err := session.Validate([]string{"-"}, settings); err != nil {
		return model.Config{}, err
	}
	return model.Config{
		WordListPath: f.words,
		Count:        f.count,
		Shuffle:      f.shuffle,
		Settings:     settings,
	}, nil
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
