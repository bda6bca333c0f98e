package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Entry is a single cached value with its absolute expiry.
// On disk it is encoded as a two-element array: [expires_at, value].
type Entry struct {
	// Key is the cache key; it is not part of the encoded pair.
	Key string

	// ExpiresAt is the expiry as unix seconds. The entry is visible while
	// ExpiresAt > now.
	ExpiresAt int64

	// Value is the cached payload (JSON).
	Value json.RawMessage
}

// NewEntry creates an entry expiring ttl after now, truncated to whole seconds.
func NewEntry(key string, value json.RawMessage, ttl time.Duration, now time.Time) *Entry {
	return &Entry{Key: key, ExpiresAt: now.Add(ttl).Unix(), Value: value}
}

// IsExpired reports whether the entry is stale at now.
func (e *Entry) IsExpired(now time.Time) bool {
	return e.ExpiresAt <= now.Unix()
}

// TimeUntilExpiration returns the remaining lifetime at now, or 0 if expired.
func (e *Entry) TimeUntilExpiration(now time.Time) time.Duration {
	remaining := time.Unix(e.ExpiresAt, 0).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MarshalJSON encodes the entry as [expires_at, value].
func (e *Entry) MarshalJSON() ([]byte, error) {
	value := e.Value
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	return json.Marshal([]any{e.ExpiresAt, value})
}

// UnmarshalJSON decodes an [expires_at, value] pair.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("cannot unmarshal into nil Entry")
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("cache entry must be a [expires_at, value] pair, got %d elements", len(pair))
	}

	var expiresAt float64
	if err := json.Unmarshal(pair[0], &expiresAt); err != nil {
		return fmt.Errorf("cache entry expiry: %w", err)
	}

	e.ExpiresAt = int64(expiresAt)
	e.Value = json.RawMessage(bytes.Clone(pair[1]))
	return nil
}
