package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/koleo-cli/koleo/internal/config"
	"github.com/koleo-cli/koleo/internal/logging"
)

// rootOptions holds global flag values and the lazily built runtime.
type rootOptions struct {
	configPath string
	app        appOptions
	debug      bool

	cfg     *config.Config
	cfgErr  error
	logPath *logging.LogPathResult
}

// config returns the loaded preferences or the error that loading hit.
func (o *rootOptions) config() (*config.Config, error) {
	if o.cfgErr != nil {
		return nil, o.cfgErr
	}
	return o.cfg, nil
}

// withLog closes the log file once fn returns. PersistentPostRunE does not
// run when a command fails.
func (o *rootOptions) withLog(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, o.logPath.Close())
		}()
		return fn(cmd, args)
	}
}

// run wraps a command body that needs the runtime. The cache and
// preferences are saved after the body returns, even when it fails.
func (o *rootOptions) run(
	fn func(ctx context.Context, cmd *cobra.Command, app *App, args []string) error,
) func(*cobra.Command, []string) error {
	return o.withLog(func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := o.config()
		if err != nil {
			return err
		}
		app, err := newApp(cmd.Context(), cfg, cmd.OutOrStdout(), o.app)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, app.Close())
		}()
		return fn(cmd.Context(), cmd, app, args)
	})
}

// NewRootCmd creates the koleo command tree.
func NewRootCmd(ver string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "koleo",
		Short: "Polish railway timetables in your terminal",
		Long: `koleo shows departures, arrivals, train routes, connections and seat
occupancy from the Koleo timetable service. Responses are cached locally.`,
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.cfg, opts.cfgErr = config.Load(opts.configPath)
			cfg := opts.cfg
			if cfg == nil {
				cfg = config.New()
			}
			result := setupLogging(cmd, cfg)
			opts.logPath = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return opts.logPath.Close()
		},
		RunE: opts.run(func(ctx context.Context, cmd *cobra.Command, app *App, _ []string) error {
			if app.cfg.FavouriteStation == "" {
				return cmd.Help()
			}
			return showBoard(ctx, app, app.cfg.FavouriteStation, app.now(), boardDepartures)
		}),
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	flags.StringVar(&opts.app.cacheFile, "cache-file", "", "cache file (default next to the config file)")
	flags.BoolVar(&opts.app.ignoreCache, "ignore-cache", false, "bypass the response cache for this run")
	flags.BoolVar(&opts.app.noColor, "nocolor", false, "disable colors and formatting")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newBoardCmd(opts, boardDepartures),
		newBoardCmd(opts, boardArrivals),
		newBoardCmd(opts, boardAll),
		newStationsCmd(opts),
		newTrainRouteCmd(opts),
		newTrainCalendarCmd(opts),
		newTrainDetailCmd(opts),
		newConnectionsCmd(opts, connectionsFromArgs),
		newConnectionsCmd(opts, connectionsFromFavourite),
		newConnectionsCmd(opts, connectionsV3),
		newTrainStatsCmd(opts),
		newTrainConnectionStatsCmd(opts),
		newAliasesCmd(opts),
		newClearCacheCmd(opts),
		newCacheInfoCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// dateFlagHelp documents the accepted --date forms.
const dateFlagHelp = "date: DD-MM, YYYY-MM-DD, +N/-N days, +Nh, +Nm, HH:MM, DD-MM HH:MM (default now)"

// defaultNow is replaced in tests.
var defaultNow = time.Now

const rootCmdExample = `  # Departures from a station
  koleo departures krakow glowny

  # Arrivals on a given day after 18:00, saving the station as favourite
  koleo arrivals -d "18:00 26-03" --save warszawa centralna

  # Route of a train on a date
  koleo trainroute IC 1106 -d 2024-03-25

  # Connections with prices
  koleo connections krakow gdynia -p -l 3

  # Seat occupancy
  koleo trainstats IC 5300 -s krakow,warszawa

  # Save an alias
  koleo aliases add dom wieliczka rynek kopalnia`
