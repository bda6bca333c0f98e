package cli

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koleo-cli/koleo/internal/koleo"
	"github.com/koleo-cli/koleo/internal/timetable"
)

func newStationsCmd(opts *rootOptions) *cobra.Command {
	var kind, country string

	cmd := &cobra.Command{
		Use:     "stations [query...]",
		Aliases: []string{"s", "find", "f", "stacje", "ls", "q"},
		Short:   "Find stations by name",
		Long: `Find stations by name. Without a query every known station is listed.

--type filters by rail, bus or group (or a raw station type prefix).
--country filters by country code (pl, de, cz, ...); search results carry
no country, so it only applies to the full list.`,
		RunE: opts.run(func(ctx context.Context, _ *cobra.Command, app *App, args []string) error {
			return findStations(ctx, app, strings.Join(args, " "), kind, country)
		}),
	}

	cmd.Flags().StringVarP(&kind, "type", "t", "", "filter by station type: rail, bus, group")
	cmd.Flags().StringVar(&country, "country", "", "filter by country code: pl, de, ...")
	return cmd
}

// stationRow is a station as listed by the stations command.
type stationRow struct {
	id         int
	name       string
	typ        string
	country    string
	hasCountry bool
}

func findStations(ctx context.Context, app *App, query, kind, country string) error {
	var rows []stationRow
	if strings.TrimSpace(query) != "" {
		found, err := app.client.FindStation(ctx, query, "pl")
		if err != nil {
			return err
		}
		for _, st := range found {
			rows = append(rows, stationRow{id: st.ID, name: st.Name, typ: st.Type})
		}
	} else {
		all, err := app.Stations(ctx)
		if err != nil {
			return err
		}
		for _, st := range all {
			rows = append(rows, stationRow{id: st.ID, name: st.Name, typ: st.Type, country: st.Country, hasCountry: true})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })
	}

	for _, row := range rows {
		if line, ok := app.formatStationRow(row, kind, country); ok {
			app.render.Println(line)
		}
	}
	return nil
}

// formatStationRow renders a row, reporting false when a filter rejects it.
func (a *App) formatStationRow(row stationRow, kind, country string) (string, bool) {
	var info []string

	if row.hasCountry {
		c := timetable.Country(row.country)
		if country != "" {
			if !strings.EqualFold(c.Code, country) {
				return "", false
			}
		} else if a.cfg.UseCountryFlagsEmoji && c.Flag != "" {
			info = append(info, c.Flag)
		} else {
			info = append(info, c.Code)
		}
	}

	k := timetable.Kind(row.typ)
	if kind != "" {
		if !strings.EqualFold(k.Label, kind) && !strings.HasPrefix(strings.ToLower(row.typ), strings.ToLower(kind)) {
			return "", false
		}
	} else if a.cfg.UseStationTypeEmoji {
		info = append(info, k.Emoji)
	} else {
		info = append(info, k.Label)
	}

	label := row.name
	if len(info) > 0 {
		label = strings.Join(info, " ") + " " + row.name
	}
	return a.render.Header(label) + " ID: " + strconv.Itoa(row.id), true
}

// stationName looks up a station name by ID, preferring known stations.
func (a *App) stationName(ctx context.Context, known []koleo.Station, id int) (string, error) {
	for _, st := range known {
		if st.ID == id {
			return st.Name, nil
		}
	}
	st, err := a.StationByID(ctx, id)
	if err != nil {
		return "", err
	}
	return st.Name, nil
}
