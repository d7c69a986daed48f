package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"trivia-session-service/internal/config"
)

func TestRootCommandWiresSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "migrate", "seed"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("expected %s subcommand, got %v (%v)", name, sub, err)
		}
	}
	for _, flag := range []string{"port", "config", "log-level"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Fatalf("expected --%s flag", flag)
		}
	}
}

func TestMigrateRequiresPostgres(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "absent.yaml")})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "postgres url not configured") {
		t.Fatalf("expected missing postgres error, got %v", err)
	}
}

func TestSetupLoggingPrefersFlag(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var cfg config.Config
	cfg.Log.Level = "error"
	setupLogging(cfg, "debug")
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("expected flag level to win, got %s", zerolog.GlobalLevel())
	}

	setupLogging(cfg, "")
	if zerolog.GlobalLevel() != zerolog.ErrorLevel {
		t.Fatalf("expected config level, got %s", zerolog.GlobalLevel())
	}

	setupLogging(config.Config{}, "shouting")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", zerolog.GlobalLevel())
	}
}
