package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/koleo-cli/koleo/internal/koleo"
	"github.com/koleo-cli/koleo/internal/timetable"
)

func newTrainCalendarCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "traincalendar <brand> <number> [name...]",
		Aliases: []string{"kursowanie", "tc", "k"},
		Short:   "Show the days a train runs on",
		Args:    cobra.MinimumNArgs(2),
		RunE: opts.run(func(ctx context.Context, _ *cobra.Command, app *App, args []string) error {
			return showTrainCalendar(ctx, app, args[0], strings.Join(args[1:], " "))
		}),
	}
}

func showTrainCalendar(ctx context.Context, app *App, brandArg, nameArg string) error {
	calendars, _, err := app.TrainCalendars(ctx, brandArg, nameArg)
	if err != nil {
		return err
	}
	brands, err := app.Brands(ctx)
	if err != nil {
		return err
	}

	for _, cal := range calendars {
		title := strconv.Itoa(cal.TrainNr)
		if cal.TrainName != "" {
			title += " " + cal.TrainName
		}
		app.render.Println(app.render.Brand(brandLogo(brands, cal.TrainBrand)), " ", app.render.Header(title), ":")

		days := make([]string, 0, len(cal.DateTrainMap))
		for day := range cal.DateTrainMap {
			days = append(days, day)
		}
		sort.Strings(days)
		for _, day := range days {
			app.render.Println("  ", app.render.Departure(day), ": ", app.render.Station(strconv.Itoa(cal.DateTrainMap[day])))
		}
	}
	return nil
}

// stationPair is the --show-stations / --stations A,B flag value.
type stationPair []string

func (p stationPair) validate(flag string) error {
	if len(p) != 0 && len(p) != 2 {
		return userErrorf("--%s takes exactly two stations: A,B", flag)
	}
	return nil
}

func newTrainRouteCmd(opts *rootOptions) *cobra.Command {
	var (
		date     string
		closest  bool
		stations []string
	)

	cmd := &cobra.Command{
		Use:     "trainroute <brand> <number> [name...]",
		Aliases: []string{"r", "tr", "t", "poc", "pociąg"},
		Short:   "Show a train's route on a date",
		Args:    cobra.MinimumNArgs(2),
		RunE: opts.run(func(ctx context.Context, _ *cobra.Command, app *App, args []string) error {
			if err := stationPair(stations).validate("show-stations"); err != nil {
				return err
			}
			at, err := app.parseDate(date)
			if err != nil {
				return err
			}
			calendars, _, err := app.TrainCalendars(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if closest {
				if at, err = closestDate(calendars[0], at); err != nil {
					return err
				}
			}
			trainID, err := trainOnDate(calendars[0], at)
			if err != nil {
				return err
			}
			return showTrainDetail(ctx, app, trainID, at, stations)
		}),
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", dateFlagHelp)
	cmd.Flags().BoolVar(&closest, "closest", false, "ignore --date and use the closest date from the train calendar")
	cmd.Flags().StringSliceVarP(&stations, "show-stations", "s", nil, "limit the route to A,B")
	return cmd
}

func newTrainDetailCmd(opts *rootOptions) *cobra.Command {
	var stations []string

	cmd := &cobra.Command{
		Use:     "traindetail <train-id>",
		Aliases: []string{"td", "tid", "id", "idpoc"},
		Short:   "Show a train's route by its Koleo ID",
		Args:    cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, _ *cobra.Command, app *App, args []string) error {
			if err := stationPair(stations).validate("show-stations"); err != nil {
				return err
			}
			id, err := parseID(args[0], "train id")
			if err != nil {
				return err
			}
			return showTrainDetail(ctx, app, id, time.Time{}, stations)
		}),
	}

	cmd.Flags().StringSliceVarP(&stations, "show-stations", "s", nil, "limit the route to A,B")
	return cmd
}

// routeSpan is the part of a route between two stops, inclusive.
type routeSpan struct {
	stops []koleo.TrainStop
	first koleo.TrainStop
	last  koleo.TrainStop
}

// selectSpan limits a route to the stops between stations[0] and
// stations[1]. With no stations the whole route is used.
func selectSpan(ctx context.Context, app *App, train koleo.TrainDetailResponse, stations []string) (routeSpan, error) {
	stops := train.Stops
	if len(stops) == 0 {
		return routeSpan{}, userErrorf("train %s has no stops", train.Train.TrainFullName)
	}
	if len(stations) == 0 {
		return routeSpan{stops: stops, first: stops[0], last: stops[len(stops)-1]}, nil
	}

	slugs := make([]string, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range stations[:2] {
		g.Go(func() error {
			st, err := app.Station(gctx, name)
			if err != nil {
				return err
			}
			slugs[i] = st.NameSlug
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return routeSpan{}, err
	}

	firstIdx, lastIdx := -1, -1
	for i, s := range stops {
		if firstIdx < 0 && s.StationSlug == slugs[0] {
			firstIdx = i
		}
		if s.StationSlug == slugs[1] {
			lastIdx = i
		}
	}
	switch {
	case firstIdx < 0:
		return routeSpan{}, userErrorf("train %s doesn't stop at %s", train.Train.TrainFullName, slugs[0])
	case lastIdx < 0:
		return routeSpan{}, userErrorf("train %s doesn't stop at %s", train.Train.TrainFullName, slugs[1])
	case firstIdx >= lastIdx:
		return routeSpan{}, userErrorf("station B has to be after station A")
	}
	span := stops[firstIdx : lastIdx+1]
	return routeSpan{stops: span, first: span[0], last: span[len(span)-1]}, nil
}

func showTrainDetail(ctx context.Context, app *App, trainID int, date time.Time, stations []string) error {
	train, err := app.Train(ctx, trainID)
	if err != nil {
		return err
	}
	span, err := selectSpan(ctx, app, train, stations)
	if err != nil {
		return err
	}
	if err := app.showTrainHeader(ctx, train, span, date); err != nil {
		return err
	}
	app.showRoute(span.stops, date)
	return nil
}

// showTrainHeader prints brand and name, the run description, travel time
// with average speed and the rolling stock per section.
func (a *App) showTrainHeader(ctx context.Context, train koleo.TrainDetailResponse, span routeSpan, date time.Time) error {
	brands, err := a.Brands(ctx)
	if err != nil {
		return err
	}
	a.render.Println(a.render.Brand(brandLogo(brands, train.Train.BrandID)), " ", a.render.Header(train.Train.TrainFullName))
	if train.Train.RunDesc != "" {
		a.render.Println("  ", train.Train.RunDesc)
	}

	start := span.first.Departure.On(date)
	end := timetable.RouteEnd(start, span.last.Arrival.On(date))
	travel := end.Sub(start)
	speed := timetable.Speed(span.last.Distance-span.first.Distance, travel)
	a.render.Println("  ", timetable.FormatTravelTime(travel), fmt.Sprintf(" %.1fkm/h", speed))

	for _, section := range vehicleSections(span.stops) {
		a.render.Println("  ", section.from, " - ", section.to, ": ", a.render.Departure(section.vehicle))
	}
	return nil
}

type vehicleSection struct {
	from, to, vehicle string
}

// vehicleSections groups consecutive stops served by the same vehicle type.
func vehicleSections(stops []koleo.TrainStop) []vehicleSection {
	var sections []vehicleSection
	for _, s := range stops {
		if s.VehicleType == "" {
			continue
		}
		n := len(sections)
		if n > 0 && sections[n-1].vehicle == s.VehicleType {
			sections[n-1].to = s.StationDisplayName
			continue
		}
		if n > 0 {
			sections[n-1].to = s.StationDisplayName
		}
		sections = append(sections, vehicleSection{from: s.StationDisplayName, to: s.StationDisplayName, vehicle: s.VehicleType})
	}
	return sections
}

// showRoute prints each stop with the distance from the first one.
func (a *App) showRoute(stops []koleo.TrainStop, date time.Time) {
	if len(stops) == 0 {
		return
	}
	base := stops[0].Distance
	for _, s := range stops {
		km := float64(s.Distance-base) / 1000
		a.render.Println(
			a.render.Underline(fmt.Sprintf("%5.1fkm", km)), " ",
			a.render.Departure(s.Arrival.On(date).Format("15:04")), " - ",
			a.render.Brand(s.Departure.On(date).Format("15:04")), " ",
			a.render.Station(s.StationDisplayName+" "+a.position(s.Platform, "")),
		)
	}
}
