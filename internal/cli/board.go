package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/koleo-cli/koleo/internal/koleo"
)

// boardKind selects which trains a station board lists.
type boardKind int

const (
	boardDepartures boardKind = iota
	boardArrivals
	boardAll
)

type boardCmdDef struct {
	use     string
	aliases []string
	short   string
}

var boardCmds = map[boardKind]boardCmdDef{
	boardDepartures: {"departures", []string{"d", "dep", "odjazdy", "o"}, "List station departures"},
	boardArrivals:   {"arrivals", []string{"a", "arr", "przyjazdy", "p"}, "List station arrivals"},
	boardAll:        {"all", []string{"w", "wszystkie", "all_trains", "pociagi"}, "List all trains calling at a station"},
}

func newBoardCmd(opts *rootOptions, kind boardKind) *cobra.Command {
	var (
		date string
		save bool
	)
	def := boardCmds[kind]

	cmd := &cobra.Command{
		Use:     def.use + " [station...]",
		Aliases: def.aliases,
		Short:   def.short,
		Long: def.short + `.

The station is a name, slug or alias. Without one, the favourite station
is used.`,
		RunE: opts.run(func(ctx context.Context, _ *cobra.Command, app *App, args []string) error {
			station, err := app.stationArg(args)
			if err != nil {
				return err
			}
			at, err := app.parseDate(date)
			if err != nil {
				return err
			}
			if save && len(args) > 0 {
				app.cfg.SetFavouriteStation(station)
			}
			return showBoard(ctx, app, station, at, kind)
		}),
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", dateFlagHelp)
	cmd.Flags().BoolVarP(&save, "save", "s", false, "save the station as your favourite")
	return cmd
}

// boardRow is one train on a station board.
type boardRow struct {
	train     koleo.TrainOnStation
	at        time.Time
	departure bool
}

// showBoard prints the trains calling at station after at. Departures,
// arrivals and brands are fetched concurrently.
func showBoard(ctx context.Context, app *App, station string, at time.Time, kind boardKind) error {
	st, err := app.Station(ctx, station)
	if err != nil {
		return err
	}
	app.render.Println(app.render.Header(fmt.Sprintf("%s at %s", st.Name, at.Format("02-01 15:04"))),
		" ID: ", strconv.Itoa(st.ID))

	var (
		departures, arrivals []koleo.TrainOnStation
		brands               []koleo.Brand
	)
	g, gctx := errgroup.WithContext(ctx)
	if kind != boardArrivals {
		g.Go(func() (err error) {
			departures, err = app.Departures(gctx, st.ID, at)
			return err
		})
	}
	if kind != boardDepartures {
		g.Go(func() (err error) {
			arrivals, err = app.Arrivals(gctx, st.ID, at)
			return err
		})
	}
	g.Go(func() (err error) {
		brands, err = app.Brands(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	rows := boardRows(departures, arrivals, at)
	for _, row := range rows {
		app.render.Println(app.formatBoardRow(row, brands))
	}
	return nil
}

// boardRows merges and orders board entries, dropping trains at or before
// at. A departure sorts after an arrival at the same minute.
func boardRows(departures, arrivals []koleo.TrainOnStation, at time.Time) []boardRow {
	rows := make([]boardRow, 0, len(departures)+len(arrivals))
	for _, t := range departures {
		rows = append(rows, boardRow{train: t, at: t.Departure.On(at), departure: true})
	}
	for _, t := range arrivals {
		rows = append(rows, boardRow{train: t, at: t.Arrival.On(at)})
	}

	kept := rows[:0]
	for _, r := range rows {
		if r.at.After(at) {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].at.Equal(kept[j].at) {
			return kept[i].at.Before(kept[j].at)
		}
		return !kept[i].departure && kept[j].departure
	})
	return kept
}

func (a *App) formatBoardRow(row boardRow, brands []koleo.Brand) string {
	t := row.train
	clock := row.at.Format("15:04")
	if row.departure {
		clock = a.render.Departure(clock)
	} else {
		clock = a.render.Arrival(clock)
	}

	prefix := ""
	terminus := ""
	if len(t.Stations) > 0 {
		terminus = t.Stations[0].Name
		if a.cfg.ShowConnectionID {
			prefix = strconv.Itoa(t.Stations[0].TrainID) + " "
		}
	}

	return prefix + clock + " " + a.render.Brand(brandLogo(brands, t.BrandID)) + " " + t.TrainFullName +
		a.render.Station(" "+terminus+" "+a.position(t.Platform, t.Track))
}
