package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/koleo-cli/koleo/internal/cache"
)

// newClearCacheCmd empties the cache file. Without arguments the file is
// not read, so it also recovers from a corrupt cache. With keys, only those
// entries are removed.
func newClearCacheCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "clear-cache [key...]",
		Aliases: []string{"clear_cache"},
		Short:   "Remove cached responses",
		Example: `  # Drop everything
  koleo clear-cache

  # Drop one station board (keys are listed by cache-info)
  koleo clear-cache dep-18705-2024-03-25`,
		RunE: opts.withLog(func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			path := opts.app.cacheFile
			if path == "" {
				path = cfg.CachePath()
			}

			if len(args) == 0 {
				store := cache.New(path)
				store.Clear()
				if err := store.Save(); err != nil {
					return err
				}
				cmd.Printf("Cache cleared: %s\n", path)
				return nil
			}

			store, err := cache.Load(path)
			if err != nil {
				return err
			}
			removed := 0
			for _, key := range args {
				if store.Delete(key) {
					removed++
				} else {
					cmd.PrintErrf("No cache entry %q\n", key)
				}
			}
			if err := store.Save(); err != nil {
				return err
			}
			cmd.Printf("Removed %d of %d entries from %s\n", removed, len(args), store.Path())
			return nil
		}),
	}
}

// newCacheInfoCmd lists cached keys with their remaining lifetime.
func newCacheInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "cache-info",
		Aliases: []string{"cache_info"},
		Short:   "Show the cache file and its entries",
		Args:    cobra.NoArgs,
		RunE: opts.run(func(_ context.Context, cmd *cobra.Command, app *App, _ []string) error {
			store := app.store
			cmd.Printf("path:    %s\n", store.Path())
			cmd.Printf("enabled: %t\n", store.IsEnabled())
			cmd.Printf("entries: %d\n", store.Len())

			now := store.Now()
			for _, e := range store.Entries() {
				if e.IsExpired(now) {
					cmd.Printf("  %s  expired\n", e.Key)
					continue
				}
				cmd.Printf("  %s  expires in %s\n", e.Key, cache.FormatDuration(e.TimeUntilExpiration(now)))
			}
			return nil
		}),
	}
}
