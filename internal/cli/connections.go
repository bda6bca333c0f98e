package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/koleo-cli/koleo/internal/koleo"
	"github.com/koleo-cli/koleo/internal/timetable"
)

// connectionsMode selects the connections command variant.
type connectionsMode int

const (
	connectionsFromArgs connectionsMode = iota
	connectionsFromFavourite
	connectionsV3
)

// searchAdvance is how far past the last departure the next page starts.
const searchAdvance = 30*time.Minute + time.Second

// priceConcurrency bounds parallel price lookups.
const priceConcurrency = 8

type connectionsOptions struct {
	date            string
	brands          []string
	direct          bool
	includePrices   bool
	onlyPurchasable bool
	length          int
}

func newConnectionsCmd(opts *rootOptions, mode connectionsMode) *cobra.Command {
	var o connectionsOptions

	cmd := &cobra.Command{
		Use:     "connections <start> <end>",
		Aliases: []string{"z", "szukaj", "path"},
		Short:   "Search connections from A to B",
		Args:    cobra.ExactArgs(2),
	}
	switch mode {
	case connectionsFromFavourite:
		cmd.Use = "destinations <end>"
		cmd.Aliases = []string{"do", "to"}
		cmd.Short = "Search connections from the favourite station to B"
		cmd.Args = cobra.ExactArgs(1)
	case connectionsV3:
		cmd.Use = "connections-v3 <start> <end>"
		cmd.Aliases = []string{"z3"}
		cmd.Short = "Search connections from A to B with the v3 search"
	}

	cmd.RunE = opts.run(func(ctx context.Context, _ *cobra.Command, app *App, args []string) error {
		start, end := "", args[len(args)-1]
		if mode == connectionsFromFavourite {
			var err error
			if start, err = app.stationArg(nil); err != nil {
				return err
			}
		} else {
			start = args[0]
		}
		if o.length < 1 {
			o.length = 1
		}
		if mode == connectionsV3 {
			return showConnectionsV3(ctx, app, start, end, o)
		}
		return showConnections(ctx, app, start, end, o)
	})

	cmd.Flags().StringVarP(&o.date, "date", "d", "", dateFlagHelp)
	cmd.Flags().StringSliceVarP(&o.brands, "brands", "b", nil, "brands to include (name or logo text, comma separated)")
	cmd.Flags().BoolVarP(&o.direct, "direct", "n", false, "only direct trains")
	cmd.Flags().BoolVarP(&o.includePrices, "include-prices", "p", false, "include ticket prices")
	cmd.Flags().BoolVar(&o.onlyPurchasable, "only-purchasable", false, "only connections purchasable on Koleo")
	cmd.Flags().IntVarP(&o.length, "length", "l", 1, "fetch at least n connections")
	return cmd
}

// searchContext is the data shared by both connection searches.
type searchContext struct {
	start, end koleo.Station
	brands     []koleo.Brand
	brandIDs   []int
	at         time.Time
}

// prepareSearch resolves both stations and the brand filter concurrently.
func prepareSearch(ctx context.Context, app *App, start, end string, o connectionsOptions) (searchContext, error) {
	var sc searchContext
	at, err := app.parseDate(o.date)
	if err != nil {
		return sc, err
	}
	sc.at = at

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sc.start, err = app.Station(gctx, start)
		return err
	})
	g.Go(func() (err error) {
		sc.end, err = app.Station(gctx, end)
		return err
	})
	g.Go(func() (err error) {
		sc.brands, err = app.Brands(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return sc, err
	}

	sc.brandIDs, err = filterBrands(sc.brands, o.brands)
	return sc, err
}

// filterBrands returns the IDs of brands matching the requested names or
// logo texts. No request means every brand.
func filterBrands(brands []koleo.Brand, requested []string) ([]int, error) {
	want := make(map[string]bool, len(requested))
	for _, r := range requested {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			want[r] = true
		}
	}

	ids := make([]int, 0, len(brands))
	for _, b := range brands {
		if len(want) == 0 || want[strings.ToLower(strings.TrimSpace(b.Name))] || want[strings.ToLower(strings.TrimSpace(b.LogoText))] {
			ids = append(ids, b.ID)
		}
	}
	if len(want) > 0 && len(ids) == 0 {
		return nil, userErrorf("no brands match: %s", strings.Join(requested, ", "))
	}
	return ids, nil
}

func (a *App) searchHeader(sc searchContext) string {
	return a.render.Header(fmt.Sprintf("%s → %s at %s", sc.start.Name, sc.end.Name, sc.at.Format("15:04 02-01")))
}

// spanLabel renders "HH:MM - HH:MM", adding dates when a side is not on
// the reference day.
func spanLabel(dep, arr, ref time.Time) string {
	depPart := dep.Format("15:04")
	if !sameDay(dep, ref) {
		depPart = dep.Format("02-01 ") + depPart
	}
	arrPart := arr.Format("15:04")
	if !sameDay(arr, dep) {
		arrPart = arr.Format("02-01 ") + arrPart
	}
	return depPart + " - " + arrPart
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func showConnections(ctx context.Context, app *App, start, end string, o connectionsOptions) error {
	sc, err := prepareSearch(ctx, app, start, end, o)
	if err != nil {
		return err
	}

	var results []koleo.Connection
	fetchDate := sc.at
	for len(results) < o.length {
		page, err := app.client.Connections(ctx, koleo.ConnectionQuery{
			StartSlug:       sc.start.NameSlug,
			EndSlug:         sc.end.NameSlug,
			BrandIDs:        sc.brandIDs,
			Date:            fetchDate,
			Direct:          o.direct,
			OnlyPurchasable: o.onlyPurchasable,
		})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		results = append(results, page...)
		fetchDate = page[len(page)-1].Departure.Time().Add(searchAdvance)
	}

	prices := make([]*koleo.Price, len(results))
	if o.includePrices {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(priceConcurrency)
		for i, c := range results {
			g.Go(func() (err error) {
				prices[i], err = app.client.Price(gctx, c.ID)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	app.render.Println(app.searchHeader(sc))
	for i, c := range results {
		if err := app.printConnection(ctx, sc, c, prices[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) printConnection(ctx context.Context, sc searchContext, c koleo.Connection, price *koleo.Price) error {
	dep, arr := c.Departure.Time(), c.Arrival.Time()

	line := a.render.Departure(spanLabel(dep, arr, sc.at)) + " " +
		timetable.FormatTravelTime(arr.Sub(dep)) + " " + strconv.Itoa(c.Distance) + "km"
	if price != nil {
		line += " " + a.render.Warning(a.render.Price(price.Value))
	}
	line += ":"
	if a.cfg.ShowConnectionID {
		line = strconv.Itoa(c.ID) + " " + line
	}

	known := []koleo.Station{sc.start, sc.end}

	if len(c.Trains) == 1 {
		t := c.Trains[0]
		from, to, err := a.trainEnds(ctx, known, &t)
		if err != nil {
			return err
		}
		a.render.Println(line, " ", a.render.Brand(brandLogo(sc.brands, t.BrandID)), " ", t.TrainFullName,
			a.render.Station(" "+from), " - ", a.render.Station(to))
		a.printConstrictions(c.ConstrictionInfo)
		return nil
	}

	a.render.Println(line)
	a.printConstrictions(c.ConstrictionInfo)

	var previousArrival time.Time
	for i := range c.Trains {
		t := &c.Trains[i]
		fs, _ := t.StartStop()
		ls, _ := t.EndStop()
		from, to, err := a.trainEnds(ctx, known, t)
		if err != nil {
			return err
		}
		fsDep, lsArr := fs.Departure.Time(), ls.Arrival.Time()
		if !previousArrival.IsZero() {
			fsName, _ := a.stationName(ctx, known, fs.StationID)
			a.render.Println("  ", timetable.FormatTravelTime(fsDep.Sub(previousArrival)), " at ", a.render.Station(fsName))
		}
		previousArrival = lsArr

		a.render.Println("  ", a.render.Brand(brandLogo(sc.brands, t.BrandID)), " ", t.TrainFullName, " ",
			a.render.Departure(fsDep.Format("15:04")), " ", a.render.Station(from), " - ",
			a.render.Departure(lsArr.Format("15:04")), " ", a.render.Station(to))
	}
	return nil
}

// trainEnds renders the boarding and alighting stops of a train with
// their positions.
func (a *App) trainEnds(ctx context.Context, known []koleo.Station, t *koleo.ConnectionTrain) (string, string, error) {
	fs, _ := t.StartStop()
	ls, _ := t.EndStop()
	fromName, err := a.stationName(ctx, known, t.StartStationID)
	if err != nil {
		return "", "", err
	}
	toName, err := a.stationName(ctx, known, t.EndStationID)
	if err != nil {
		return "", "", err
	}
	return fromName + " " + a.position(fs.Platform, fs.Track), toName + " " + a.position(ls.Platform, ls.Track), nil
}

func (a *App) printConstrictions(notes []string) {
	for _, n := range notes {
		a.render.Println(" ", a.render.Warning("- "+n))
	}
}

func showConnectionsV3(ctx context.Context, app *App, start, end string, o connectionsOptions) error {
	includePrices := o.includePrices || o.onlyPurchasable

	sc, err := prepareSearch(ctx, app, start, end, o)
	if err != nil {
		return err
	}

	var (
		attributes map[int]koleo.TrainAttribute
		stations   map[int]koleo.Station
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		attributes, err = app.TrainAttributes(gctx)
		return err
	})
	g.Go(func() (err error) {
		stations, err = app.Stations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	var results []koleo.ConnectionV3
	fetchDate := sc.at
	for len(results) < o.length {
		page, err := app.client.SearchConnectionsV3(ctx, koleo.ConnectionQuery{
			StartID:  sc.start.ID,
			EndID:    sc.end.ID,
			BrandIDs: sc.brandIDs,
			Date:     fetchDate,
			Direct:   o.direct,
		})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		results = append(results, page...)
		fetchDate = page[len(page)-1].Departure.Time().Add(searchAdvance)
	}

	prices := make([]*koleo.PriceV3, len(results))
	if includePrices {
		pg, pctx := errgroup.WithContext(ctx)
		pg.SetLimit(priceConcurrency)
		for i, c := range results {
			pg.Go(func() (err error) {
				prices[i], err = app.client.PriceV3(pctx, c.UUID)
				return err
			})
		}
		if err := pg.Wait(); err != nil {
			return err
		}
	}

	app.render.Println(app.searchHeader(sc))
	for i, c := range results {
		if o.onlyPurchasable && prices[i] == nil {
			continue
		}
		app.printConnectionV3(sc, c, prices[i], attributes, stations)
	}
	return nil
}

func (a *App) printConnectionV3(
	sc searchContext,
	c koleo.ConnectionV3,
	price *koleo.PriceV3,
	attributes map[int]koleo.TrainAttribute,
	stations map[int]koleo.Station,
) {
	dep, arr := c.Departure.Time(), c.Arrival.Time()
	line := a.render.Departure(spanLabel(dep, arr, sc.at)) + " " + timetable.FormatTravelTime(arr.Sub(dep))
	if price != nil {
		line += " " + a.render.Warning(a.render.Price(price.Price))
	}
	line += ":"
	if a.cfg.ShowConnectionID {
		line = c.UUID + " " + line
	}

	if len(c.Legs) == 1 && len(c.Constrictions) == 0 {
		a.render.Println(line, " ", a.formatLeg(c.Legs[0], sc.brands, stations))
		return
	}

	a.render.Println(line)
	for _, con := range c.Constrictions {
		name := attributes[con.AttributeDefinitionID].Name
		if name == "" {
			name = strconv.Itoa(con.AttributeDefinitionID)
		}
		a.render.Println(" ", a.render.Warning(fmt.Sprintf("- %s: %s", name, con.Annotation)))
	}
	for _, leg := range c.Legs {
		a.render.Println("  ", a.formatLeg(leg, sc.brands, stations))
	}
}

func minutesLabel(minutes int) string {
	return fmt.Sprintf("%dh%dm", minutes/60, minutes%60)
}

func stationLabel(stations map[int]koleo.Station, id int) string {
	if st, ok := stations[id]; ok {
		return st.Name
	}
	return strconv.Itoa(id)
}

func (a *App) formatLeg(leg koleo.Leg, brands []koleo.Brand, stations map[int]koleo.Station) string {
	switch leg.LegType {
	case koleo.LegWalk:
		return a.render.Color(colorArrival, false, a.render.Underline("WALK")) + " " + minutesLabel(leg.FootpathDuration) +
			" from " + a.render.Station(stationLabel(stations, leg.OriginStationID)) +
			" to " + a.render.Station(stationLabel(stations, leg.DestinationStationID))
	case koleo.LegStationChange:
		return minutesLabel(leg.Duration) + " at " + a.render.Station(stationLabel(stations, leg.StationID))
	case koleo.LegTrain:
		if len(leg.StopsInLeg) == 0 {
			return a.render.Brand(brandLogo(brands, leg.CommercialBrandID)) + " " + leg.TrainFullName
		}
		fs, ls := leg.StopsInLeg[0], leg.StopsInLeg[len(leg.StopsInLeg)-1]
		return a.render.Brand(brandLogo(brands, leg.CommercialBrandID)) + " " + leg.TrainFullName + " " +
			a.render.Departure(fs.Departure.Time().Format("15:04")) + " " +
			a.render.Station(stationLabel(stations, fs.StationID)+" "+a.position(fs.Platform, fs.Track)) + " - " +
			a.render.Departure(ls.Arrival.Time().Format("15:04")) + " " +
			a.render.Station(stationLabel(stations, ls.StationID)+" "+a.position(ls.Platform, ls.Track))
	default:
		return "unknown leg: " + leg.LegType
	}
}
