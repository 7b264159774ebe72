package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. The account registry (which keys map to which feeds)
// lives in a separate JSON document; see accounts.go.

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration. Windowing values
// are fixed for the process lifetime; changing them means redeploying.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone all event times are converted into
	// before filtering and layout (e.g. "US/Eastern").
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of "DEBUG", "INFO", "ERROR".
	LogLevel string `yaml:"log_level" json:"log_level"`

	// AccountsPath is the path of the JSON account registry.
	AccountsPath string `yaml:"accounts_path" json:"accounts_path"`

	// CacheTTLMinutes is how long a fetched feed stays fresh.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" json:"cache_ttl_minutes"`

	// LookBackMinutes is how far behind the request time the display
	// window starts.
	LookBackMinutes int `yaml:"look_back_minutes" json:"look_back_minutes"`

	// TimedHorizonHours bounds timed events: an event whose end falls
	// past request time + horizon is not shown.
	TimedHorizonHours int `yaml:"timed_horizon_hours" json:"timed_horizon_hours"`

	// AllDayHorizonDays bounds how far ahead all-day events are
	// expanded. Independent of TimedHorizonHours; the two lanes have
	// separate horizons.
	AllDayHorizonDays int `yaml:"all_day_horizon_days" json:"all_day_horizon_days"`

	// MinColumnSpanMinutes is the minimum visual duration an event
	// reserves in its column, regardless of its true length.
	MinColumnSpanMinutes int `yaml:"min_column_span_minutes" json:"min_column_span_minutes"`

	// AlarmMarker is the summary substring that routes an event out of
	// the column lanes and into the device's alarm handling.
	AlarmMarker string `yaml:"alarm_marker" json:"alarm_marker"`

	// PrecacheCron is a cron-style schedule for periodic cache warming.
	// If empty, no warming job runs.
	PrecacheCron string `yaml:"precache_cron" json:"precache_cron"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:               "127.0.0.1:8081",
		Timezone:             "US/Eastern",
		LogLevel:             "INFO",
		AccountsPath:         "/etc/wristcal/accounts.json",
		CacheTTLMinutes:      50,
		LookBackMinutes:      60,
		TimedHorizonHours:    12,
		AllDayHorizonDays:    31,
		MinColumnSpanMinutes: 30,
		AlarmMarker:          "[ALARM]",
		PrecacheCron:         "*/45 * * * *",
		BasicAuth:            nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8081"
	}
	if c.Timezone == "" {
		c.Timezone = "US/Eastern"
	}
	switch c.LogLevel {
	case "DEBUG", "INFO", "ERROR":
		// ok
	default:
		c.LogLevel = "INFO"
	}
	if c.AccountsPath == "" {
		c.AccountsPath = "/etc/wristcal/accounts.json"
	}
	if c.CacheTTLMinutes <= 0 {
		c.CacheTTLMinutes = 50
	}
	if c.LookBackMinutes <= 0 {
		c.LookBackMinutes = 60
	}
	if c.TimedHorizonHours <= 0 {
		c.TimedHorizonHours = 12
	}
	if c.AllDayHorizonDays <= 0 {
		c.AllDayHorizonDays = 31
	}
	if c.MinColumnSpanMinutes <= 0 {
		c.MinColumnSpanMinutes = 30
	}
	if c.AlarmMarker == "" {
		c.AlarmMarker = "[ALARM]"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".wristcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}
