package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/koleo-cli/koleo/internal/cache"
	"github.com/koleo-cli/koleo/internal/koleo"
	"github.com/koleo-cli/koleo/internal/logging"
)

// ErrInvalidConfig indicates the config file exists but cannot be parsed.
var ErrInvalidConfig = errors.New("invalid config file")

// ErrUnknownKey is returned by Set for keys that are not settable.
var ErrUnknownKey = errors.New("unknown config key")

// Config holds user preferences. It is persisted as YAML.
type Config struct {
	FavouriteStation     string            `yaml:"favourite_station,omitempty"`
	Aliases              map[string]string `yaml:"aliases,omitempty"`
	DisableCache         bool              `yaml:"disable_cache"`
	UseRomanNumerals     bool              `yaml:"use_roman_numerals"`
	PlatformFirst        bool              `yaml:"platform_first"`
	ShowConnectionID     bool              `yaml:"show_connection_id"`
	UseCountryFlagsEmoji bool              `yaml:"use_country_flags_emoji"`
	UseStationTypeEmoji  bool              `yaml:"use_station_type_emoji"`
	Auth                 map[string]string `yaml:"auth,omitempty"`

	Cache   CacheConfig   `yaml:"cache"`
	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`

	path   string
	dirty  bool
	dotenv map[string]string
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Path        string        `yaml:"path,omitempty"`
	DefaultTTL  time.Duration `yaml:"default_ttl"`
	CalendarTTL time.Duration `yaml:"calendar_ttl"`
}

// APIConfig controls how the timetable service is reached.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	WebURL  string        `yaml:"web_url"`
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"backoff"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig controls diagnostic output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// New returns a config with default settings bound to the default path.
func New() *Config {
	return &Config{
		Aliases: map[string]string{},
		Cache: CacheConfig{
			DefaultTTL:  cache.DefaultTTL,
			CalendarTTL: cache.CalendarTTL,
		},
		API: APIConfig{
			BaseURL: koleo.DefaultBaseURL,
			WebURL:  koleo.DefaultWebURL,
			Retries: koleo.DefaultRetries,
			Backoff: koleo.DefaultBackoff,
			Timeout: koleo.DefaultTimeout,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: logging.FormatConsole,
		},
		path: DefaultPath(),
	}
}

// Load reads the config at path, or the default path when empty. A missing
// file yields defaults. A .env file next to the config is read for
// credential variables.
func Load(path string) (*Config, error) {
	cfg := New()
	if path != "" {
		cfg.path = path
	}

	data, err := os.ReadFile(cfg.path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, cfg.path, unmarshalErr)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if cfg.Aliases == nil {
		cfg.Aliases = map[string]string{}
	}

	dotenv, err := readDotEnv(filepath.Join(filepath.Dir(cfg.path), dotEnvFile))
	if err != nil {
		return nil, err
	}
	cfg.dotenv = dotenv

	return cfg, nil
}

// Path returns the file the config is loaded from and saved to.
func (c *Config) Path() string {
	return c.path
}

// SetPath rebinds the config to path for the next Save.
func (c *Config) SetPath(path string) {
	c.path = path
}

// Dir returns the directory holding the config file.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// Dirty reports whether the config changed since it was loaded or saved.
func (c *Config) Dirty() bool {
	return c.dirty
}

// MarkDirty flags the config for saving.
func (c *Config) MarkDirty() {
	c.dirty = true
}

// Save writes the config if it changed. The file is written to a temporary
// path and renamed over the target.
func (c *Config) Save() error {
	if !c.dirty {
		return nil
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(c.path), 0o750); mkdirErr != nil {
		return fmt.Errorf("creating config directory: %w", mkdirErr)
	}

	tmpPath := c.path + ".tmp"
	if writeErr := os.WriteFile(tmpPath, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing config temp file: %w", writeErr)
	}
	if renameErr := os.Rename(tmpPath, c.path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming config temp file: %w", renameErr)
	}

	c.dirty = false
	return nil
}

// SetFavouriteStation stores the default station for board commands.
func (c *Config) SetFavouriteStation(station string) {
	if c.FavouriteStation == station {
		return
	}
	c.FavouriteStation = station
	c.dirty = true
}

// AddAlias maps alias to a station slug.
func (c *Config) AddAlias(alias, slug string) {
	c.Aliases[alias] = slug
	c.dirty = true
}

// RemoveAlias deletes an alias. Returns false if it did not exist.
func (c *Config) RemoveAlias(alias string) bool {
	if _, ok := c.Aliases[alias]; !ok {
		return false
	}
	delete(c.Aliases, alias)
	c.dirty = true
	return true
}

// AliasNames returns the aliases in sorted order.
func (c *Config) AliasNames() []string {
	names := make([]string, 0, len(c.Aliases))
	for k := range c.Aliases {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetAuthValue stores a single credential cookie.
func (c *Config) SetAuthValue(name, value string) {
	if c.Auth == nil {
		c.Auth = map[string]string{}
	}
	if c.Auth[name] == value {
		return
	}
	c.Auth[name] = value
	c.dirty = true
}

// SettableKeys lists the keys accepted by Set.
func SettableKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type setter func(c *Config, value string) error

func boolSetter(field func(*Config) *bool) setter {
	return func(c *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected true or false: %w", err)
		}
		*field(c) = b
		return nil
	}
}

func stringSetter(field func(*Config) *string) setter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

func durationSetter(field func(*Config) *time.Duration) setter {
	return func(c *Config, value string) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		if d < 0 {
			return errors.New("duration must not be negative")
		}
		*field(c) = d
		return nil
	}
}

func ttlSetter(field func(*Config) *time.Duration) setter {
	return func(c *Config, value string) error {
		d, err := cache.ParseTTL(value)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

var setters = map[string]setter{
	"favourite_station":       stringSetter(func(c *Config) *string { return &c.FavouriteStation }),
	"disable_cache":           boolSetter(func(c *Config) *bool { return &c.DisableCache }),
	"use_roman_numerals":      boolSetter(func(c *Config) *bool { return &c.UseRomanNumerals }),
	"platform_first":          boolSetter(func(c *Config) *bool { return &c.PlatformFirst }),
	"show_connection_id":      boolSetter(func(c *Config) *bool { return &c.ShowConnectionID }),
	"use_country_flags_emoji": boolSetter(func(c *Config) *bool { return &c.UseCountryFlagsEmoji }),
	"use_station_type_emoji":  boolSetter(func(c *Config) *bool { return &c.UseStationTypeEmoji }),
	"cache.path":              stringSetter(func(c *Config) *string { return &c.Cache.Path }),
	"cache.default_ttl":       ttlSetter(func(c *Config) *time.Duration { return &c.Cache.DefaultTTL }),
	"cache.calendar_ttl":      ttlSetter(func(c *Config) *time.Duration { return &c.Cache.CalendarTTL }),
	"api.base_url":            stringSetter(func(c *Config) *string { return &c.API.BaseURL }),
	"api.web_url":             stringSetter(func(c *Config) *string { return &c.API.WebURL }),
	"api.backoff":             durationSetter(func(c *Config) *time.Duration { return &c.API.Backoff }),
	"api.timeout":             durationSetter(func(c *Config) *time.Duration { return &c.API.Timeout }),
	"api.retries": func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("expected a non-negative integer, got %q", value)
		}
		c.API.Retries = n
		return nil
	},
	"logging.level":  stringSetter(func(c *Config) *string { return &c.Logging.Level }),
	"logging.format": stringSetter(func(c *Config) *string { return &c.Logging.Format }),
	"logging.file":   stringSetter(func(c *Config) *string { return &c.Logging.File }),
}

// Set assigns a preference by its dotted YAML key, e.g. "api.retries".
func (c *Config) Set(key, value string) error {
	set, ok := setters[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("%w: %s (valid keys: %s)", ErrUnknownKey, key, strings.Join(SettableKeys(), ", "))
	}
	if err := set(c, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	c.dirty = true
	return nil
}
