package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Geocoder backends.
const (
	GeocoderOpenWeather = "openweather"
	GeocoderGoogle      = "google"
)

type AppConfig struct {
	Port string

	// OpenWeatherMap credentials and host.
	OpenWeatherAPIKey string
	APIBaseURL        string

	// Geocoder selects the geocoding backend; GoogleAPIKey is only used by "google".
	Geocoder     string
	GoogleAPIKey string

	// HTTPTimeout bounds outbound provider calls (0 = no timeout).
	HTTPTimeout time.Duration

	// HistoryFile is the search history location ("" = keep in memory).
	HistoryFile string
	// HistoryMaxAge drops entries not searched for this long (0 = keep forever).
	HistoryMaxAge        time.Duration
	HistoryPruneInterval time.Duration

	StaticDir string

	LogLevel  string
	LogPretty bool
}

func defaults() *AppConfig {
	return &AppConfig{
		Port:                 "3001",
		APIBaseURL:           "https://api.openweathermap.org",
		Geocoder:             GeocoderOpenWeather,
		HistoryFile:          "data/searchHistory.json",
		HistoryPruneInterval: time.Hour,
		StaticDir:            "client/dist",
		LogLevel:             "info",
	}
}

// Load reads configuration from .env, an optional YAML file and the
// environment. Environment variables (including those from .env) take
// precedence over the file.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Err(err).Msg("no .env file found or error loading it")
	}
	cfg := defaults()

	path := getenvDefault("CONFIG_FILE", "config.yaml")
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.OpenWeatherAPIKey = getenvDefault("API_KEY", getenvDefault("OPENWEATHER_API_KEY", cfg.OpenWeatherAPIKey))
	cfg.APIBaseURL = getenvDefault("API_BASE_URL", cfg.APIBaseURL)
	cfg.Geocoder = strings.ToLower(getenvDefault("GEOCODER", cfg.Geocoder))
	cfg.GoogleAPIKey = getenvDefault("GOOGLE_GEOCODER_API_KEY", cfg.GoogleAPIKey)
	cfg.StaticDir = getenvDefault("STATIC_DIR", cfg.StaticDir)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = getenvBool("LOG_PRETTY", cfg.LogPretty)

	// An explicitly empty HISTORY_FILE selects the memory store.
	if v, ok := os.LookupEnv("HISTORY_FILE"); ok {
		cfg.HistoryFile = v
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.HistoryMaxAge, err = getenvDuration("HISTORY_MAX_AGE", cfg.HistoryMaxAge); err != nil {
		return nil, err
	}
	if cfg.HistoryPruneInterval, err = getenvDuration("HISTORY_PRUNE_INTERVAL", cfg.HistoryPruneInterval); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Geocoder {
	case GeocoderOpenWeather, GeocoderGoogle:
	default:
		return fmt.Errorf("invalid GEOCODER %q: must be %q or %q", c.Geocoder, GeocoderOpenWeather, GeocoderGoogle)
	}
	if c.HTTPTimeout < 0 || c.HistoryMaxAge < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.HistoryMaxAge > 0 && c.HistoryPruneInterval <= 0 {
		return fmt.Errorf("HISTORY_PRUNE_INTERVAL must be positive when HISTORY_MAX_AGE is set")
	}
	return nil
}

// loadFile overlays the YAML file at path onto cfg. A missing file is ignored.
func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return file.apply(cfg)
}

// fileConfig mirrors AppConfig with durations as strings ("15m", "24h").
type fileConfig struct {
	Port                 *string `yaml:"port"`
	APIKey               *string `yaml:"api_key"`
	APIBaseURL           *string `yaml:"api_base_url"`
	Geocoder             *string `yaml:"geocoder"`
	GoogleAPIKey         *string `yaml:"google_geocoder_api_key"`
	HTTPTimeout          *string `yaml:"http_timeout"`
	HistoryFile          *string `yaml:"history_file"`
	HistoryMaxAge        *string `yaml:"history_max_age"`
	HistoryPruneInterval *string `yaml:"history_prune_interval"`
	StaticDir            *string `yaml:"static_dir"`
	LogLevel             *string `yaml:"log_level"`
	LogPretty            *bool   `yaml:"log_pretty"`
}

func (f fileConfig) apply(cfg *AppConfig) error {
	setString(&cfg.Port, f.Port)
	setString(&cfg.OpenWeatherAPIKey, f.APIKey)
	setString(&cfg.APIBaseURL, f.APIBaseURL)
	setString(&cfg.Geocoder, f.Geocoder)
	setString(&cfg.GoogleAPIKey, f.GoogleAPIKey)
	setString(&cfg.HistoryFile, f.HistoryFile)
	setString(&cfg.StaticDir, f.StaticDir)
	setString(&cfg.LogLevel, f.LogLevel)
	if f.LogPretty != nil {
		cfg.LogPretty = *f.LogPretty
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"http_timeout", f.HTTPTimeout, &cfg.HTTPTimeout},
		{"history_max_age", f.HistoryMaxAge, &cfg.HistoryMaxAge},
		{"history_prune_interval", f.HistoryPruneInterval, &cfg.HistoryPruneInterval},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
