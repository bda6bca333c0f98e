package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
)

// StoreVersion is the schema version written to the cache file.
const StoreVersion = "1.0.0"

// supportedVersions are the cache file schema versions Load accepts.
const supportedVersions = "^1.0.0"

// ErrCacheCorrupted indicates the cache file exists but cannot be parsed.
// The store is not silently reset; the user clears it explicitly.
var ErrCacheCorrupted = errors.New("cache file corrupted")

// storeData is the serialized form of the store.
type storeData struct {
	Version string            `json:"version"`
	Cache   map[string]*Entry `json:"cache"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDisabled turns Get into a permanent miss and Set into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(s *Store) { s.disabled = disabled }
}

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is an in-memory key/value cache with per-entry expiry, persisted to a
// single JSON file. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	path     string
	entries  map[string]*Entry
	dirty    bool
	disabled bool
	now      func() time.Time
	logger   zerolog.Logger
}

// New returns an empty store bound to path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:    path,
		entries: make(map[string]*Entry),
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the store from path. A missing file yields an empty store.
// Unparsable content or an unsupported schema version returns ErrCacheCorrupted.
func Load(path string, opts ...Option) (*Store, error) {
	s := New(path, opts...)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var sd storeData
	if unmarshalErr := json.Unmarshal(data, &sd); unmarshalErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCacheCorrupted, path, unmarshalErr)
	}

	if sd.Version != "" {
		if versionErr := checkVersion(sd.Version); versionErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCacheCorrupted, path, versionErr)
		}
	}

	for key, entry := range sd.Cache {
		if entry == nil {
			continue
		}
		entry.Key = key
		s.entries[key] = entry
	}

	s.logger.Debug().Str("path", path).Int("entries", len(s.entries)).Msg("cache loaded")
	return s, nil
}

func checkVersion(v string) error {
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid schema version %q: %w", v, err)
	}
	constraint, err := semver.NewConstraint(supportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("unsupported schema version %s (want %s)", v, supportedVersions)
	}
	return nil
}

// Get returns the value stored under key. An expired entry is evicted, the
// store is marked dirty and the lookup misses.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return nil, false
	}

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	if entry.IsExpired(s.now()) {
		delete(s.entries, key)
		s.dirty = true
		return nil, false
	}

	return entry.Value, true
}

// Set stores value under key for ttl and returns value unchanged. A ttl <= 0
// means DefaultTTL.
func (s *Store) Set(key string, value json.RawMessage, ttl time.Duration) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return value
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.entries[key] = NewEntry(key, value, ttl, s.now())
	s.dirty = true
	return value
}

// Delete removes key. Returns true if an entry was removed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	s.dirty = true
	return true
}

// Clear removes every entry and marks the store dirty.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*Entry)
	s.dirty = true
}

// Prune removes every expired entry and returns how many were removed.
// The store is marked dirty only if something was removed.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pruneLocked()
}

func (s *Store) pruneLocked() int {
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if entry.IsExpired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		s.dirty = true
	}
	return removed
}

// Save persists the store if it is dirty: expired entries are pruned, the
// mapping is written to a temporary file and renamed over the target.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if s.path == "" {
		return errors.New("cache path not set")
	}

	pruned := s.pruneLocked()

	data, err := json.Marshal(storeData{Version: StoreVersion, Cache: s.entries})
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(s.path), 0o750); mkdirErr != nil {
		return fmt.Errorf("creating cache directory: %w", mkdirErr)
	}

	tmpPath := s.path + ".tmp"
	if writeErr := os.WriteFile(tmpPath, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing cache temp file: %w", writeErr)
	}

	if renameErr := os.Rename(tmpPath, s.path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming cache temp file: %w", renameErr)
	}

	s.dirty = false
	s.logger.Debug().
		Str("path", s.path).
		Int("entries", len(s.entries)).
		Int("pruned", pruned).
		Msg("cache saved")
	return nil
}

// Dirty reports whether the store changed since it was loaded or last saved.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Len returns the number of entries, including expired ones not yet evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns copies of all entries sorted by key.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// IsEnabled reports whether reads and writes go through the cache.
func (s *Store) IsEnabled() bool {
	return !s.disabled
}

// Path returns the cache file path.
func (s *Store) Path() string {
	return s.path
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}
