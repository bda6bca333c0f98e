package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/koleo-cli/koleo/internal/config"
)

const redacted = "<redacted>"

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage preferences",
	}
	cmd.AddCommand(
		newConfigInitCmd(opts),
		newConfigShowCmd(opts),
		newConfigSetCmd(opts),
		newConfigPathCmd(opts),
	)
	return cmd
}

// newConfigInitCmd writes a default config file and a .gitignore that keeps
// credentials and the cache out of version control.
func newConfigInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file with default values",
		Example: `  # Create the default config
  koleo config init

  # Overwrite an existing config
  koleo config init --force`,
		Args: cobra.NoArgs,
		RunE: opts.withLog(func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				path = config.DefaultPath()
			}

			if !force {
				_, err := os.Stat(path)
				if err == nil {
					return userErrorf("configuration file already exists, use --force to overwrite")
				}
				if !os.IsNotExist(err) {
					return fmt.Errorf("cannot access config path %s: %w", path, err)
				}
			}

			cfg := config.New()
			cfg.SetPath(path)
			cfg.MarkDirty()
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			created, err := config.EnsureGitignore(cfg.Dir())
			if err != nil {
				return fmt.Errorf("failed to create .gitignore: %w", err)
			}

			cmd.Printf("Configuration initialized at %s\n", path)
			if created {
				cmd.Printf("Created .gitignore to keep credentials and cache out of version control\n")
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective preferences as YAML",
		Args:  cobra.NoArgs,
		RunE: opts.withLog(func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			shown := *cfg
			if len(cfg.Auth) > 0 {
				shown.Auth = make(map[string]string, len(cfg.Auth))
				for k := range cfg.Auth {
					shown.Auth[k] = redacted
				}
			}
			data, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			cmd.Print(string(data))
			return nil
		}),
	}
}

func newConfigSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a preference",
		Long:  "Change a preference. Keys: " + strings.Join(config.SettableKeys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: opts.withLog(func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return userWrap(err, "%v", err)
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			cmd.Printf("%s = %s\n", strings.ToLower(args[0]), args[1])
			return nil
		}),
	}
}

func newConfigPathCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config and cache file locations",
		Args:  cobra.NoArgs,
		RunE: opts.withLog(func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			cachePath := opts.app.cacheFile
			if cachePath == "" {
				cachePath = cfg.CachePath()
			}
			cmd.Printf("config: %s\n", cfg.Path())
			cmd.Printf("cache:  %s\n", cachePath)
			return nil
		}),
	}
}
