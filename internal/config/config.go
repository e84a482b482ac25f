package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/buildenv/internal/buildcfg"
	"github.com/eugenenazirov/buildenv/internal/host"
	"github.com/eugenenazirov/buildenv/internal/pkgconfig"
)

const (
	defaultPort           = "8080"
	defaultFormat         = FormatYAML
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Output formats of the resolve command.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatEnv  = "env"
)

// detectHost is replaced in tests.
var detectHost = host.Detect

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > env file > config file
// (YAML or TOML) > Defaults
type Config struct {
	Targets         []string
	Options         buildcfg.OptionSet
	Format          string
	PkgConfig       string
	ProfilerPackage string
	LogLevel        string

	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// fileConfig represents the configuration file structure. Files ending in
// .toml are read as TOML, everything else as YAML.
type fileConfig struct {
	Targets              []string          `yaml:"targets" toml:"targets"`
	Options              map[string]string `yaml:"options" toml:"options"`
	Format               string            `yaml:"format" toml:"format"`
	PkgConfig            string            `yaml:"pkg_config" toml:"pkg_config"`
	ProfilerPackage      string            `yaml:"profiler_package" toml:"profiler_package"`
	LogLevel             string            `yaml:"log_level" toml:"log_level"`
	Server               fileServer        `yaml:"server" toml:"server"`
	EnableRequestLogging *bool             `yaml:"enable_request_logging" toml:"enable_request_logging"`
}

// fileServer represents the server section.
type fileServer struct {
	Port                string        `yaml:"port" toml:"port"`
	ShutdownGracePeriod string        `yaml:"shutdown_grace_period" toml:"shutdown_grace_period"`
	ReadHeaderTimeout   string        `yaml:"read_header_timeout" toml:"read_header_timeout"`
	WriteTimeout        string        `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout         string        `yaml:"idle_timeout" toml:"idle_timeout"`
	RateLimit           fileRateLimit `yaml:"rate_limit" toml:"rate_limit"`
}

// fileRateLimit represents the rate limit section.
type fileRateLimit struct {
	RPS   *float64 `yaml:"rps" toml:"rps"`
	Burst *int     `yaml:"burst" toml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Targets        []string
	OptionArgs     []string
	Format         *string
	PkgConfig      *string
	LogLevel       *string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > env file > config file > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		fileCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
		if err := applyFileConfig(&cfg, fileCfg); err != nil {
			return Config{}, fmt.Errorf("apply config file: %w", err)
		}
	}

	getenv := os.Getenv
	if overrides != nil && overrides.EnvFile != "" {
		vars, err := godotenv.Read(overrides.EnvFile)
		if err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
		getenv = func(key string) string {
			if v, ok := os.LookupEnv(key); ok && v != "" {
				return v
			}
			return vars[key]
		}
	}
	applyEnvConfig(&cfg, getenv)

	levelSet := cfg.LogLevel != defaultLogLevel
	if overrides != nil {
		if overrides.LogLevel != nil && *overrides.LogLevel != "" {
			levelSet = true
		}
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	// verbose builds also get verbose logs unless a level was chosen.
	if !levelSet && cfg.Options.Enabled(buildcfg.OptVerbose) {
		cfg.LogLevel = "debug"
	}

	if len(cfg.Targets) == 0 {
		cfg.Targets = []string{string(host.DefaultTarget(detectHost()))}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Options:              buildcfg.OptionSet{},
		Format:               defaultFormat,
		PkgConfig:            pkgconfig.DefaultBinary,
		ProfilerPackage:      buildcfg.ProfilerPackage,
		LogLevel:             defaultLogLevel,
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML or TOML file.
func loadFromFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
		return &fileCfg, nil
	}
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &fileCfg, nil
}

// applyFileConfig applies file configuration to the Config struct.
func applyFileConfig(cfg *Config, fileCfg *fileConfig) error {
	if len(fileCfg.Targets) > 0 {
		cfg.Targets = trimAll(fileCfg.Targets)
	}

	for key, value := range fileCfg.Options {
		cfg.Options[key] = value
	}

	if fileCfg.Format != "" {
		cfg.Format = fileCfg.Format
	}
	if fileCfg.PkgConfig != "" {
		cfg.PkgConfig = fileCfg.PkgConfig
	}
	if fileCfg.ProfilerPackage != "" {
		cfg.ProfilerPackage = fileCfg.ProfilerPackage
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}

	server := fileCfg.Server
	if server.Port != "" {
		cfg.Port = server.Port
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"shutdown_grace_period", server.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", server.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", server.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", server.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("server.%s: %w", d.name, err)
		}
		*d.dst = value
	}

	if fileCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *fileCfg.EnableRequestLogging
	}

	if server.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *server.RateLimit.RPS
	}
	if server.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *server.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config, getenv func(string) string) {
	if raw := strings.TrimSpace(getenv("BUILDENV_TARGETS")); raw != "" {
		if targets := splitList(raw); len(targets) > 0 {
			cfg.Targets = targets
		}
	}

	if format := strings.TrimSpace(getenv("BUILDENV_FORMAT")); format != "" {
		cfg.Format = format
	}

	if level := strings.TrimSpace(getenv("BUILDENV_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if bin := strings.TrimSpace(getenv("PKG_CONFIG")); bin != "" {
		cfg.PkgConfig = bin
	}

	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if rps := strings.TrimSpace(getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if len(overrides.Targets) > 0 {
		cfg.Targets = trimAll(overrides.Targets)
	}

	if len(overrides.OptionArgs) > 0 {
		opts, err := buildcfg.ParseOptionArgs(overrides.OptionArgs)
		if err != nil {
			return fmt.Errorf("parse options: %w", err)
		}
		for key, value := range opts {
			cfg.Options[key] = value
		}
	}

	if overrides.Format != nil && *overrides.Format != "" {
		cfg.Format = *overrides.Format
	}

	if overrides.PkgConfig != nil && *overrides.PkgConfig != "" {
		cfg.PkgConfig = *overrides.PkgConfig
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	switch cfg.Format {
	case FormatYAML, FormatJSON, FormatEnv:
	default:
		return fmt.Errorf("unknown output format %q (want yaml, json or env)", cfg.Format)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if len(cfg.Targets) == 0 {
		return fmt.Errorf("targets cannot be empty")
	}
	return nil
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
