package cmd

import (
	"log/slog"
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "upload", "ask", "voice", "documents", "version"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestNewLoggerHonorsVerbose(t *testing.T) {
	verbose = false
	defer func() { verbose = false }()

	logger := newLogger()
	if logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug enabled without --verbose")
	}

	verbose = true
	logger = newLogger()
	if !logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug not enabled with --verbose")
	}
}
