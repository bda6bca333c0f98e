package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"

	"github.com/koleo-cli/koleo/internal/cache"
	"github.com/koleo-cli/koleo/internal/logging"
)

// Environment variables read by the config layer.
const (
	EnvHome      = "KOLEO_HOME"
	EnvLogLevel  = "KOLEO_LOG_LEVEL"
	EnvLogFormat = "KOLEO_LOG_FORMAT"

	// EnvAuthPrefix prefixes credential cookie variables, e.g.
	// KOLEO_AUTH__KOLEO_TOKEN sets the "_koleo_token" cookie.
	EnvAuthPrefix = "KOLEO_AUTH_"

	configFile = "config.yaml"
	cacheFile  = "cache.json"
	dotEnvFile = ".env"
	appDirName = "koleo"
	appDirAlt  = "koleo-cli"
)

// DefaultDir resolves the directory holding config.yaml. It checks (in order):
//  1. KOLEO_HOME
//  2. ~/Library/Preferences/koleo-cli on macOS
//  3. %LOCALAPPDATA%\koleo-cli on Windows
//  4. os.UserConfigDir()/koleo ($XDG_CONFIG_HOME/koleo)
//
// Falls back to ~/.koleo when no config dir can be determined.
func DefaultDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}

	switch runtime.GOOS {
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Preferences", appDirAlt)
		}
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, appDirAlt)
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appDirName
	}
	return filepath.Join(home, "."+appDirName)
}

// DefaultPath returns the default config.yaml location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), configFile)
}

func readDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vars, nil
}

// getEnv looks up key in the process environment, then in the .env file.
func (c *Config) getEnv(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return c.dotenv[key]
}

// CachePath returns the cache file location: KOLEO_CACHE_PATH, then
// cache.path, then cache.json next to the config file.
func (c *Config) CachePath() string {
	if p := c.getEnv(cache.EnvCachePath); p != "" {
		return p
	}
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(c.Dir(), cacheFile)
}

// CacheEnabled reports whether caching is on. disable_cache wins over
// KOLEO_CACHE_ENABLED.
func (c *Config) CacheEnabled() bool {
	if c.DisableCache {
		return false
	}
	return cache.ParseEnabled(c.getEnv(cache.EnvCacheEnabled))
}

// Credentials returns the auth cookie map with KOLEO_AUTH_<NAME> variables
// applied on top. Names are lower-cased. The result is a copy; env values
// are never written back to config.yaml.
func (c *Config) Credentials() map[string]string {
	out := make(map[string]string, len(c.Auth))
	for k, v := range c.Auth {
		out[k] = v
	}

	apply := func(key, value string) {
		name, ok := strings.CutPrefix(key, EnvAuthPrefix)
		if !ok || name == "" || value == "" {
			return
		}
		out[strings.ToLower(name)] = value
	}
	for k, v := range c.dotenv {
		apply(k, v)
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		apply(k, v)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// LoggingConfig builds the logger config with KOLEO_LOG_LEVEL and
// KOLEO_LOG_FORMAT applied.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: logging.OutputStderr,
		File:   c.Logging.File,
	}
	if cfg.File != "" {
		cfg.Output = logging.OutputFile
	}
	if v := c.getEnv(EnvLogLevel); v != "" {
		cfg.Level = v
	}
	if v := c.getEnv(EnvLogFormat); v != "" {
		cfg.Format = v
	}
	return cfg
}

// ResolveStation maps an alias to its station; other names pass through.
func (c *Config) ResolveStation(name string) string {
	if target, ok := c.Aliases[name]; ok {
		return target
	}
	if target, ok := c.Aliases[strings.ToLower(name)]; ok {
		return target
	}
	return name
}
