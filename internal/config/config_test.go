package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"wristcal/internal/config"
)

func TestConfig(t *testing.T) {
	t.Run("normalize fills zero values", func(t *testing.T) {
		var cfg config.Config
		cfg.Normalize()

		if cfg.Listen == "" || cfg.Timezone == "" || cfg.AccountsPath == "" {
			t.Errorf("normalize left empty fields: %+v", cfg)
		}
		if cfg.CacheTTLMinutes != 50 {
			t.Errorf("CacheTTLMinutes = %d, want 50", cfg.CacheTTLMinutes)
		}
		if cfg.LookBackMinutes != 60 {
			t.Errorf("LookBackMinutes = %d, want 60", cfg.LookBackMinutes)
		}
		if cfg.MinColumnSpanMinutes != 30 {
			t.Errorf("MinColumnSpanMinutes = %d, want 30", cfg.MinColumnSpanMinutes)
		}
		if cfg.AllDayHorizonDays != 31 {
			t.Errorf("AllDayHorizonDays = %d, want 31", cfg.AllDayHorizonDays)
		}
		if cfg.LogLevel != "INFO" {
			t.Errorf("LogLevel = %q, want INFO", cfg.LogLevel)
		}
	})

	t.Run("normalize keeps explicit values", func(t *testing.T) {
		cfg := config.Config{TimedHorizonHours: 36, AllDayHorizonDays: 7}
		cfg.Normalize()
		if cfg.TimedHorizonHours != 36 || cfg.AllDayHorizonDays != 7 {
			t.Errorf("normalize clobbered explicit horizons: %+v", cfg)
		}
	})

	t.Run("load creates default config on first run", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")

		cfg, err := config.Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(cfg, config.DefaultConfig()) {
			t.Errorf("first-run config = %+v, want defaults", cfg)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("default config file not written: %v", err)
		}

		// Second load reads the file it just wrote.
		again, err := config.Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(cfg, again) {
			t.Error("reloaded config differs from saved defaults")
		}
	})

	t.Run("load round-trips a saved config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		in := config.DefaultConfig()
		in.Listen = "0.0.0.0:9000"
		in.TimedHorizonHours = 36

		if err := config.Save(path, in); err != nil {
			t.Fatal(err)
		}
		out, err := config.Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if out.Listen != "0.0.0.0:9000" || out.TimedHorizonHours != 36 {
			t.Errorf("round-trip lost values: %+v", out)
		}
	})
}

func TestAccounts(t *testing.T) {
	writeAccounts := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "accounts.json")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("load and lookup", func(t *testing.T) {
		path := writeAccounts(t, `{
			"home": {
				"identities": ["user@example.com"],
				"ical-urls": ["https://example.com/a.ics", "https://example.com/b.ics"],
				"excluded-events": ["Commute"]
			}
		}`)

		accounts, err := config.LoadAccounts(path)
		if err != nil {
			t.Fatal(err)
		}

		acct, err := accounts.Lookup("home")
		if err != nil {
			t.Fatal(err)
		}
		if len(acct.ICalURLs) != 2 || acct.Identities[0] != "user@example.com" {
			t.Errorf("account = %+v", acct)
		}

		if _, err := accounts.Lookup("nobody"); !errors.Is(err, config.ErrUnknownAccount) {
			t.Errorf("err = %v, want ErrUnknownAccount", err)
		}
	})

	t.Run("all URLs are deduplicated and sorted", func(t *testing.T) {
		path := writeAccounts(t, `{
			"a": {"ical-urls": ["https://example.com/z.ics", "https://example.com/a.ics"]},
			"b": {"ical-urls": ["https://example.com/a.ics", ""]}
		}`)

		accounts, err := config.LoadAccounts(path)
		if err != nil {
			t.Fatal(err)
		}
		got := accounts.AllURLs()
		want := []string{"https://example.com/a.ics", "https://example.com/z.ics"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("AllURLs = %v, want %v", got, want)
		}
	})

	t.Run("malformed registry is an error", func(t *testing.T) {
		path := writeAccounts(t, `{"home": [`)
		if _, err := config.LoadAccounts(path); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := config.LoadAccounts(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
