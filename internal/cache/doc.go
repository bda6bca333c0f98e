// Package cache provides the single-file response cache used by the CLI.
//
// Responses fetched from the timetable service are kept in memory for the
// lifetime of one invocation and persisted to a JSON file on exit. Key features:
//   - Every entry carries an absolute expiry (unix seconds); expired entries are
//     evicted lazily on read and pruned before the file is written
//   - The file is only rewritten when something changed (dirty tracking)
//   - Writes go to a temporary file that is renamed over the target
//   - Fetch collapses concurrent misses for the same key into one upstream call
//
// A corrupt cache file is reported as ErrCacheCorrupted rather than silently
// discarded; `koleo clear-cache` resets it.
package cache
