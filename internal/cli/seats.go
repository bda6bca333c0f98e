package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/koleo-cli/koleo/internal/koleo"
	"github.com/koleo-cli/koleo/internal/timetable"
)

type seatOptions struct {
	seatType   string
	detailed   bool
	placeTypes bool
}

func newTrainStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		o        seatOptions
		date     string
		stations []string
	)

	cmd := &cobra.Command{
		Use:     "trainstats <brand> <number> [name...]",
		Aliases: []string{"ts", "tp", "miejsca", "frekwencja"},
		Short:   "Show seat occupancy of a train",
		Args:    cobra.MinimumNArgs(2),
		RunE: opts.run(func(ctx context.Context, _ *cobra.Command, app *App, args []string) error {
			if err := stationPair(stations).validate("stations"); err != nil {
				return err
			}
			at, err := app.parseDate(date)
			if err != nil {
				return err
			}
			return showTrainStats(ctx, app, args[0], strings.Join(args[1:], " "), at, stations, o)
		}),
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", dateFlagHelp)
	cmd.Flags().StringSliceVarP(&stations, "stations", "s", nil, "limit to the section A,B")
	cmd.Flags().StringVarP(&o.seatType, "type", "t", "", "limit to one seat class (name or ID)")
	cmd.Flags().BoolVar(&o.detailed, "detailed", false, "show the state of every seat")
	return cmd
}

func newTrainConnectionStatsCmd(opts *rootOptions) *cobra.Command {
	var o seatOptions

	cmd := &cobra.Command{
		Use:     "trainconnectionstats <connection-id>",
		Aliases: []string{"tcs"},
		Short:   "Show seat occupancy of a connection by its Koleo ID or v3 UUID",
		Args:    cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, _ *cobra.Command, app *App, args []string) error {
			id, err := app.connectionID(ctx, args[0])
			if err != nil {
				return err
			}
			return showConnectionStats(ctx, app, id, o)
		}),
	}

	cmd.Flags().StringVarP(&o.seatType, "type", "t", "", "limit to one seat class (name or ID)")
	cmd.Flags().BoolVar(&o.detailed, "detailed", false, "show the state of every seat")
	cmd.Flags().BoolVar(&o.placeTypes, "place-types", false, "list bookable place types (needs credentials)")
	return cmd
}

// connectionID accepts a numeric connection ID or a v3 connection UUID.
func (a *App) connectionID(ctx context.Context, arg string) (int, error) {
	if _, err := uuid.Parse(arg); err == nil {
		return a.client.ConnectionIDV3(ctx, arg)
	}
	return parseID(arg, "connection id")
}

func showTrainStats(
	ctx context.Context,
	app *App,
	brandArg, nameArg string,
	at time.Time,
	stations []string,
	o seatOptions,
) error {
	calendars, name, err := app.TrainCalendars(ctx, brandArg, nameArg)
	if err != nil {
		return err
	}
	trainID, err := trainOnDate(calendars[0], at)
	if err != nil {
		return err
	}
	train, err := app.Train(ctx, trainID)
	if err != nil {
		return err
	}
	if !timetable.SupportsSeats(train.Train.BrandID) {
		return userErrorf("brand %s is not supported", brandArg)
	}

	span, err := selectSpan(ctx, app, train, stations)
	if err != nil {
		return err
	}

	connections, err := app.client.Connections(ctx, koleo.ConnectionQuery{
		StartSlug: span.first.StationSlug,
		EndSlug:   span.last.StationSlug,
		BrandIDs:  []int{train.Train.BrandID},
		Date:      span.first.Departure.On(at),
		Direct:    true,
	})
	if err != nil {
		return err
	}

	var conn *koleo.Connection
	for i := range connections {
		if len(connections[i].Trains) > 0 && connections[i].Trains[0].TrainID == train.Train.ID {
			conn = &connections[i]
			break
		}
	}
	if conn == nil {
		return userErrorf("connection for train %s not found; try 'koleo clear-cache'", name)
	}

	ct := conn.Trains[0]
	if !timetable.SupportsSeats(ct.BrandID) {
		return userErrorf("brand %d is not supported", ct.BrandID)
	}
	if err := app.showTrainHeader(ctx, train, span, at); err != nil {
		return err
	}
	return app.showSeats(ctx, conn.ID, ct.BrandID, ct.TrainNr, o)
}

func showConnectionStats(ctx context.Context, app *App, connectionID int, o seatOptions) error {
	conn, err := app.client.Connection(ctx, connectionID)
	if errors.Is(err, koleo.ErrNotFound) {
		return userWrap(err, "connection not found: %d", connectionID)
	}
	if err != nil {
		return err
	}
	if len(conn.Trains) == 0 {
		return userErrorf("connection %d has no trains", connectionID)
	}

	ct := conn.Trains[0]
	if !timetable.SupportsSeats(ct.BrandID) {
		return userErrorf("brand %d is not supported", ct.BrandID)
	}
	train, err := app.Train(ctx, ct.TrainID)
	if err != nil {
		return err
	}

	span := routeSpan{stops: train.Stops}
	for i, s := range train.Stops {
		if s.StationID == conn.StartStationID {
			span.first = s
			span.stops = train.Stops[i:]
		}
		if s.StationID == conn.EndStationID {
			span.last = s
		}
	}
	if err := app.showTrainHeader(ctx, train, span, conn.Departure.Time()); err != nil {
		return err
	}
	if err := app.showSeats(ctx, connectionID, ct.BrandID, ct.TrainNr, o); err != nil {
		return err
	}
	if o.placeTypes {
		return app.showPlaceTypes(ctx, connectionID)
	}
	return nil
}

// showSeats prints free, reserved and blocked counts per seat class.
func (a *App) showSeats(ctx context.Context, connectionID, brandID, trainNr int, o seatOptions) error {
	types, err := timetable.ResolveSeatTypes(brandID, o.seatType)
	if errors.Is(err, timetable.ErrInvalidSeatType) {
		return userWrap(err, "invalid seat type %q", o.seatType)
	}
	if err != nil {
		return err
	}

	results := make([]koleo.SeatsAvailability, len(types))
	for i, st := range types {
		if results[i], err = a.client.SeatsAvailability(ctx, connectionID, trainNr, st.ID); err != nil {
			return err
		}
	}
	special := timetable.SpecialCompartments(results...)

	for i, st := range types {
		counts := timetable.CountSeats(results[i], special)
		if counts.Total() == 0 {
			continue
		}
		color := timetable.ClassColor(st.Name)
		total := strconv.Itoa(counts.Total())
		a.render.Println(a.render.Color(color, true, st.Name+":"))
		a.render.Println("  Free: ", a.render.Color(color, false,
			fmt.Sprintf("%d/%s, ~%s", counts.Free, total, a.render.Percent(counts.Percent(counts.Free)))))
		a.render.Println("  Reserved: ", a.render.Color(color, false, strconv.Itoa(counts.Reserved)))
		a.render.Println("  Blocked: ", a.render.Color(color, false, strconv.Itoa(counts.Blocked)))
		a.render.Println("  Total: ", a.render.Color(color, false,
			fmt.Sprintf("%d/%s, ~%s", counts.Taken(), total, a.render.Percent(counts.Percent(counts.Taken())))))
	}

	if !o.detailed {
		return nil
	}
	for i, st := range types {
		color := timetable.ClassColor(st.Name)
		a.render.Println(a.render.Color(color, true, st.Name+":"))
		for _, seat := range results[i].Seats {
			state := seat.State
			stateColor := colorBrand
			if seat.State == koleo.SeatFree {
				stateColor = colorDeparture
			}
			if sc, ok := special[seat.SpecialCompartmentTypeID]; ok {
				state += ", " + strings.ToUpper(strings.ReplaceAll(sc.Icon, "_", " "))
				if seat.State == koleo.SeatFree {
					stateColor = colorArrival
				}
			}
			a.render.Println(" ", a.render.Color(color, false, seat.CarriageNr), " ", seat.SeatNr, ": ",
				a.render.Color(stateColor, false, state))
		}
	}
	return nil
}

// showPlaceTypes lists the bookable place types of each train.
func (a *App) showPlaceTypes(ctx context.Context, connectionID int) error {
	nested, err := a.client.NestedTrainPlaceTypes(ctx, connectionID)
	if err != nil {
		return err
	}
	for _, tpt := range nested.TrainPlaceTypes {
		a.render.Println(a.render.Header(fmt.Sprintf("Train %d", tpt.TrainNr)))
		a.printPlaceType(tpt.PlaceType, 1)
	}
	return nil
}

func (a *App) printPlaceType(pt koleo.PlaceType, depth int) {
	if pt.Name != "" {
		line := strings.Repeat("  ", depth) + pt.Name
		if pt.Available {
			line += " " + a.render.Departure(a.render.Price(strconv.FormatFloat(pt.Price, 'f', 2, 64)))
		} else {
			line = a.render.Dim(line + " (unavailable)")
		}
		a.render.Println(line)
	}
	for _, child := range pt.PlaceTypes {
		a.printPlaceType(child, depth+1)
	}
}
