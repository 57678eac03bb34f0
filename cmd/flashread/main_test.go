package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/flashread/internal/clock"
	"github.com/verte-zerg/flashread/internal/config"
	"github.com/verte-zerg/flashread/internal/generator"
	"github.com/verte-zerg/flashread/internal/model"
	"github.com/verte-zerg/flashread/internal/session"
	"github.com/verte-zerg/flashread/internal/wordlist"
)

func newTestCmd(f *sessionFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&f.words, "words", "", "")
	addSessionFlags(cmd, f, defaultCount)
	return cmd
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestSettingsPrecedence(t *testing.T) {
	var f sessionFlags
	cmd := newTestCmd(&f)
	if err := cmd.Flags().Parse([]string{"--exposure", "90"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	applyFileConfig(cmd, &f, config.SessionConfig{
		ExposureMs: intPtr(200),
		IntervalMs: intPtr(700),
		Mask:       boolPtr(true),
		Case:       strPtr("lowercase"),
	})
	applyDeckSettings(cmd, &f, wordlist.DeckSettings{
		IntervalMs: intPtr(400),
		Case:       strPtr("uppercase"),
	})

	cfg, err := f.modelConfig()
	if err != nil {
		t.Fatalf("model config: %v", err)
	}
	s := cfg.Settings
	if s.Exposure != 90*time.Millisecond {
		t.Fatalf("flag must win, got exposure %s", s.Exposure)
	}
	if s.IntervalBase != 400*time.Millisecond || s.TextCase != model.CaseUppercase {
		t.Fatalf("deck must override config, got %+v", s)
	}
	if !s.MaskEnabled || s.MaskDuration != defaultMaskMs*time.Millisecond {
		t.Fatalf("config mask not applied: %+v", s)
	}
	if cfg.Count != defaultCount {
		t.Fatalf("expected default count, got %d", cfg.Count)
	}
}

func TestModelConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*sessionFlags)
		want   string
	}{
		{"count", func(f *sessionFlags) { f.count = -1 }, "--count"},
		{"max-length", func(f *sessionFlags) { f.maxLength = -2 }, "--max-length"},
		{"case", func(f *sessionFlags) { f.textCase = "title" }, "--case"},
		{"exposure", func(f *sessionFlags) { f.exposureMs = 0 }, "exposure"},
		{"mask", func(f *sessionFlags) { f.mask = true; f.maskMs = 0 }, "mask duration"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var f sessionFlags
			newTestCmd(&f)
			tc.mutate(&f)
			_, err := f.modelConfig()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestModelConfigSettingsErrorsAreSentinel(t *testing.T) {
	var f sessionFlags
	newTestCmd(&f)
	f.intervalMs = -5
	_, err := f.modelConfig()
	if !errors.Is(err, session.ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestStatsConfig(t *testing.T) {
	cfg, err := statsConfig("2024-03-01", 5, 3, 7)
	if err != nil {
		t.Fatalf("stats config: %v", err)
	}
	if cfg.Since == nil || cfg.Since.Month() != time.March || cfg.Last != 5 || cfg.TopMissed != 7 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := statsConfig("yesterday", 0, 3, 7); err == nil {
		t.Fatalf("expected invalid --since error")
	}
	if _, err := statsConfig("", 0, 0, 7); err == nil {
		t.Fatalf("expected invalid --curve-window error")
	}
}

func TestSelectWords(t *testing.T) {
	gen := generator.NewSeeded(1)
	words, err := selectWords(gen, []string{"casa", "elefante", "mare"}, model.Config{Count: 4}, 4)
	if err != nil {
		t.Fatalf("select words: %v", err)
	}
	want := []string{"casa", "mare", "casa", "mare"}
	if strings.Join(words, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", words, want)
	}
	if _, err := selectWords(gen, []string{"elefante"}, model.Config{}, 3); err == nil {
		t.Fatalf("expected error when every word is filtered out")
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	lines := strings.Split(defaultConfigTemplate(), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			lines[i] = strings.TrimPrefix(line, "# ")
		}
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template keys must decode: %v", err)
	}
	if cfg.Session.ExposureMs == nil || *cfg.Session.ExposureMs != defaultExposureMs {
		t.Fatalf("unexpected exposure %v", cfg.Session.ExposureMs)
	}
	if cfg.Session.Case == nil || *cfg.Session.Case != defaultCase {
		t.Fatalf("unexpected case %v", cfg.Session.Case)
	}
}

func TestRunHeadless(t *testing.T) {
	if testing.Short() {
		t.Skip("runs on the wall clock")
	}
	settings := model.Settings{
		Exposure: 20 * time.Millisecond,
		TextCase: model.CaseOriginal,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, e, err := runHeadless(ctx, clock.NewMonotonic(), syntheticWords(2), settings, generator.NewSeeded(1))
	if err != nil {
		t.Fatalf("run headless: %v", err)
	}
	if res.TotalWords != 2 || res.Accuracy != 100 {
		t.Fatalf("unexpected result %+v", res)
	}
	agg, ok := e.Aggregate()
	if !ok || agg.Count != 8 {
		t.Fatalf("expected 8 timed phases, got %+v", agg)
	}
}

func TestRunHeadlessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	settings := model.Settings{Exposure: time.Second, TextCase: model.CaseOriginal}
	_, _, err := runHeadless(ctx, clock.NewMonotonic(), syntheticWords(1), settings, generator.NewSeeded(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSyntheticWords(t *testing.T) {
	words := syntheticWords(3)
	if len(words) != 3 || words[0] != "word001" || words[2] != "word003" {
		t.Fatalf("unexpected words %v", words)
	}
}

func restoreLogger(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() {
		_ = closeLogging()
		slog.SetDefault(prev)
	})
}

func TestSetupLoggingVerboseUsesDefaultLogPath(t *testing.T) {
	restoreLogger(t)
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	f, err := setupLogging("", true)
	if err != nil {
		t.Fatalf("setup logging: %v", err)
	}
	if f == nil || f.Name() != config.DefaultLogPath() {
		t.Fatalf("expected log file at %s, got %v", config.DefaultLogPath(), f)
	}
	logOut = f
	slog.Debug("debug line", "word", "casa")
	if err := closeLogging(); err != nil {
		t.Fatalf("close logging: %v", err)
	}
	if logOut != nil {
		t.Fatalf("log file still referenced after close")
	}
	if err := closeLogging(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := f.WriteString("late"); err == nil {
		t.Fatalf("expected writes to a closed log file to fail")
	}
	data, err := os.ReadFile(filepath.Join(dir, "flashread", "flashread.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "debug line") {
		t.Fatalf("debug record missing from log:\n%s", data)
	}
}

func TestSetupLoggingQuietWritesNothing(t *testing.T) {
	restoreLogger(t)
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	f, err := setupLogging("", false)
	if err != nil || f != nil {
		t.Fatalf("expected no log file, got %v %v", f, err)
	}
	if _, err := os.Stat(config.DefaultLogPath()); !os.IsNotExist(err) {
		t.Fatalf("quiet logging created %s", config.DefaultLogPath())
	}
}

func TestStatsTextReportClosesLogFile(t *testing.T) {
	restoreLogger(t)
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	logPath := filepath.Join(dir, "logs", "run.log")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"stats", "--text", "--log-file", logPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out.String(), "No sessions found.") {
		t.Fatalf("unexpected report:\n%s", out.String())
	}
	if logOut != nil {
		t.Fatalf("log file left open after the command finished")
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}
