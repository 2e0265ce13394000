package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"checkoutsdk/pkg/types"
)

// EnvPrefix namespaces the environment overrides applied by ApplyEnv.
const EnvPrefix = "CHECKOUTD_"

// Config holds runtime parameters for the bridge daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr           string           `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel       string           `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogJSON        bool             `json:"log_json" yaml:"log_json" toml:"log_json"`
	LogFile        string           `json:"log_file" yaml:"log_file" toml:"log_file"`
	AllowedOrigins []string         `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	PollIntervalMS int              `json:"poll_interval_ms" yaml:"poll_interval_ms" toml:"poll_interval_ms"`
	MaxSessions    int              `json:"max_sessions" yaml:"max_sessions" toml:"max_sessions"`
	HostURL        string           `json:"host_url" yaml:"host_url" toml:"host_url"`
	Viewport       types.Viewport   `json:"viewport" yaml:"viewport" toml:"viewport"`
	Widget         types.HostConfig `json:"widget" yaml:"widget" toml:"widget"`
}

// PollInterval returns the configured poll interval, or zero when unset.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return 0
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays CHECKOUTD_* variables read through getenv onto cfg.
// Unset variables leave the file value in place.
func ApplyEnv(cfg Config, getenv func(string) string) (Config, error) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(EnvPrefix + key)); v != "" {
			*dst = v
		}
	}
	str("ADDR", &cfg.Addr)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FILE", &cfg.LogFile)
	str("HOST_URL", &cfg.HostURL)
	str("WIDGET_URL", &cfg.Widget.URL)
	str("HOST_APP_NAME", &cfg.Widget.HostAppName)
	str("HOST_LOGO_URL", &cfg.Widget.HostLogoURL)
	str("HOST_API_KEY", &cfg.Widget.HostAPIKey)

	if v := strings.TrimSpace(getenv(EnvPrefix + "VARIANT")); v != "" {
		cfg.Widget.Variant = types.Variant(v)
	}
	if v := strings.TrimSpace(getenv(EnvPrefix + "ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v := strings.TrimSpace(getenv(EnvPrefix + "LOG_JSON")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%sLOG_JSON: %w", EnvPrefix, err)
		}
		cfg.LogJSON = b
	}
	if v := strings.TrimSpace(getenv(EnvPrefix + "POLL_INTERVAL_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%sPOLL_INTERVAL_MS: %w", EnvPrefix, err)
		}
		cfg.PollIntervalMS = n
	}
	if v := strings.TrimSpace(getenv(EnvPrefix + "MAX_SESSIONS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%sMAX_SESSIONS: %w", EnvPrefix, err)
		}
		cfg.MaxSessions = n
	}
	return cfg, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
