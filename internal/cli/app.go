package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/koleo-cli/koleo/internal/cache"
	"github.com/koleo-cli/koleo/internal/config"
	"github.com/koleo-cli/koleo/internal/koleo"
	"github.com/koleo-cli/koleo/internal/logging"
	"github.com/koleo-cli/koleo/internal/timetable"
)

// App is the per-invocation runtime shared by commands: preferences, the
// response cache and the service client.
type App struct {
	cfg     *config.Config
	store   *cache.Store
	fetcher *cache.Fetcher
	client  *koleo.Client
	render  *Renderer
	now     func() time.Time

	ttl         time.Duration
	calendarTTL time.Duration
}

// appOptions are the global flags that shape an App.
type appOptions struct {
	cacheFile   string
	ignoreCache bool
	noColor     bool
}

// newApp opens the cache and builds the service client. A corrupt cache
// file is fatal unless caching is off for this run.
func newApp(ctx context.Context, cfg *config.Config, out io.Writer, opts appOptions) (*App, error) {
	log := logging.FromContext(ctx)

	path := opts.cacheFile
	if path == "" {
		path = cfg.CachePath()
	}

	storeOpts := []cache.Option{cache.WithLogger(logging.ComponentLogger(*log, "cache"))}
	enabled := cfg.CacheEnabled() && !opts.ignoreCache

	var store *cache.Store
	if enabled {
		var err error
		store, err = cache.Load(path, storeOpts...)
		if err != nil {
			return nil, err
		}
	} else {
		store = cache.New(path, append(storeOpts, cache.WithDisabled(true))...)
	}

	httpClient := koleo.NewHTTPClient()
	httpClient.Retries = cfg.API.Retries
	httpClient.Backoff = cfg.API.Backoff
	httpClient.Timeout = cfg.API.Timeout

	client := koleo.NewClient(
		koleo.WithBaseURL(cfg.API.BaseURL),
		koleo.WithWebURL(cfg.API.WebURL),
		koleo.WithAuth(cfg.Credentials()),
		koleo.WithHTTP(httpClient),
		koleo.WithTokenHook(func(token string) {
			cfg.SetAuthValue(koleo.TokenCookie, token)
		}),
	)

	log.Debug().
		Str("component", "cli").
		Str("cache_path", store.Path()).
		Bool("cache_enabled", store.IsEnabled()).
		Str("base_url", cfg.API.BaseURL).
		Msg("runtime ready")

	return &App{
		cfg:         cfg,
		store:       store,
		fetcher:     cache.NewFetcher(store),
		client:      client,
		render:      NewRenderer(out, opts.noColor),
		now:         defaultNow,
		ttl:         cfg.Cache.DefaultTTL,
		calendarTTL: cfg.Cache.CalendarTTL,
	}, nil
}

// Close persists the cache and preferences if they changed.
func (a *App) Close() error {
	a.client.Close()
	return errors.Join(a.store.Save(), a.cfg.Save())
}

func (a *App) position(platform, track string) string {
	return timetable.PositionFormat{
		Roman:         a.cfg.UseRomanNumerals,
		PlatformFirst: a.cfg.PlatformFirst,
	}.Position(platform, track)
}

// parseDate resolves a --date value; empty means now.
func (a *App) parseDate(s string) (time.Time, error) {
	now := a.now()
	if s == "" {
		return now, nil
	}
	d, err := timetable.ParseDate(s, now)
	if err != nil {
		return time.Time{}, userWrap(err, "invalid date %q, expected %s", s, timetable.DateHelp)
	}
	return d, nil
}

// stationArg joins positional words into a station name, falling back to
// the favourite station.
func (a *App) stationArg(args []string) (string, error) {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name != "" {
		return name, nil
	}
	if a.cfg.FavouriteStation == "" {
		return "", userErrorf("no station given and favourite_station is not set (use --save or 'koleo config set favourite_station <station>')")
	}
	return a.cfg.FavouriteStation, nil
}

// Station resolves a user-typed station name through aliases, then by slug.
func (a *App) Station(ctx context.Context, name string) (koleo.Station, error) {
	slug := a.cfg.ResolveStation(name)
	if slug == name {
		slug = timetable.Slug(name)
	}
	st, err := cache.Fetch(ctx, a.fetcher, cache.GenerateKey("st", slug), a.ttl,
		func(ctx context.Context) (koleo.Station, error) {
			return a.client.StationBySlug(ctx, slug)
		})
	if errors.Is(err, koleo.ErrNotFound) {
		return koleo.Station{}, userWrap(err, "station not found: %s", name)
	}
	return st, err
}

// StationByID returns a station by its numeric ID.
func (a *App) StationByID(ctx context.Context, id int) (koleo.Station, error) {
	return cache.Fetch(ctx, a.fetcher, cache.GenerateKey("st", id), a.ttl,
		func(ctx context.Context) (koleo.Station, error) {
			return a.client.StationByID(ctx, id)
		})
}

// Stations returns every station indexed by ID.
func (a *App) Stations(ctx context.Context) (map[int]koleo.Station, error) {
	list, err := cache.Fetch(ctx, a.fetcher, "stations", a.ttl, a.client.Stations)
	if err != nil {
		return nil, err
	}
	out := make(map[int]koleo.Station, len(list))
	for _, st := range list {
		out[st.ID] = st
	}
	return out, nil
}

// Brands returns all train brands.
func (a *App) Brands(ctx context.Context) ([]koleo.Brand, error) {
	return cache.Fetch(ctx, a.fetcher, "brands", a.ttl, a.client.Brands)
}

// TrainAttributes returns train attribute definitions indexed by ID.
func (a *App) TrainAttributes(ctx context.Context) (map[int]koleo.TrainAttribute, error) {
	list, err := cache.Fetch(ctx, a.fetcher, "train-attributes", a.ttl, a.client.TrainAttributes)
	if err != nil {
		return nil, err
	}
	out := make(map[int]koleo.TrainAttribute, len(list))
	for _, attr := range list {
		out[attr.ID] = attr
	}
	return out, nil
}

// Departures returns the departures board of a station for the day of date.
func (a *App) Departures(ctx context.Context, stationID int, date time.Time) ([]koleo.TrainOnStation, error) {
	key := cache.GenerateKey("dep", stationID, date.Format(time.DateOnly))
	return cache.Fetch(ctx, a.fetcher, key, a.ttl, func(ctx context.Context) ([]koleo.TrainOnStation, error) {
		return a.client.Departures(ctx, stationID, date)
	})
}

// Arrivals returns the arrivals board of a station for the day of date.
func (a *App) Arrivals(ctx context.Context, stationID int, date time.Time) ([]koleo.TrainOnStation, error) {
	key := cache.GenerateKey("arr", stationID, date.Format(time.DateOnly))
	return cache.Fetch(ctx, a.fetcher, key, a.ttl, func(ctx context.Context) ([]koleo.TrainOnStation, error) {
		return a.client.Arrivals(ctx, stationID, date)
	})
}

// Train returns a train run with its stops.
func (a *App) Train(ctx context.Context, id int) (koleo.TrainDetailResponse, error) {
	train, err := cache.Fetch(ctx, a.fetcher, cache.GenerateKey("train", id), a.ttl,
		func(ctx context.Context) (koleo.TrainDetailResponse, error) {
			return a.client.Train(ctx, id)
		})
	if errors.Is(err, koleo.ErrNotFound) {
		return koleo.TrainDetailResponse{}, userWrap(err, "train not found: %d", id)
	}
	return train, err
}

// brandLogo returns the short brand label shown next to trains.
func brandLogo(brands []koleo.Brand, id int) string {
	for _, b := range brands {
		if b.ID == id {
			return b.LogoText
		}
	}
	return ""
}

// BrandByShortcut matches a brand by name or logo text, case-insensitively.
func (a *App) BrandByShortcut(ctx context.Context, s string) (koleo.Brand, error) {
	brands, err := a.Brands(ctx)
	if err != nil {
		return koleo.Brand{}, err
	}
	want := strings.ToLower(strings.TrimSpace(s))
	for _, b := range brands {
		if strings.ToLower(b.Name) == want {
			return b, nil
		}
	}
	for _, b := range brands {
		if strings.ToLower(b.LogoText) == want {
			return b, nil
		}
	}
	return koleo.Brand{}, userErrorf("invalid brand name: %s", s)
}

// TrainCalendars returns the run calendars of a train given as a brand and
// a "number [name]" string.
func (a *App) TrainCalendars(ctx context.Context, brandArg, nameArg string) ([]koleo.TrainCalendar, timetable.TrainName, error) {
	brand, err := a.BrandByShortcut(ctx, brandArg)
	if err != nil {
		return nil, timetable.TrainName{}, err
	}
	name, err := timetable.ParseTrainName(nameArg)
	if err != nil {
		return nil, timetable.TrainName{}, userWrap(err, "invalid train name: %q", nameArg)
	}

	key := cache.GenerateKey("tc", brand.Name, name.Number, name.String())
	resp, err := cache.Fetch(ctx, a.fetcher, key, a.calendarTTL,
		func(ctx context.Context) (koleo.TrainCalendarResponse, error) {
			return a.client.TrainCalendars(ctx, brand.Name, name.Number, name.Name)
		})
	if errors.Is(err, koleo.ErrNotFound) || (err == nil && len(resp.TrainCalendars) == 0) {
		return nil, name, &ExitError{
			Code:    ExitUsage,
			Message: fmt.Sprintf("train not found: nr=%d, name=%s", name.Number, name.Name),
			Err:     err,
		}
	}
	if err != nil {
		return nil, name, err
	}
	return resp.TrainCalendars, name, nil
}

// trainOnDate picks the train run of a calendar for date.
func trainOnDate(cal koleo.TrainCalendar, date time.Time) (int, error) {
	day := date.Format(time.DateOnly)
	id, ok := cal.DateTrainMap[day]
	if !ok || id == 0 {
		return 0, userErrorf("this train doesn't run on the selected date: %s", day)
	}
	return id, nil
}

// closestDate returns the first calendar date after date, or the last one
// before it when the train no longer runs.
func closestDate(cal koleo.TrainCalendar, date time.Time) (time.Time, error) {
	dates := make([]time.Time, 0, len(cal.Dates))
	for _, s := range cal.Dates {
		d, err := time.ParseInLocation(time.DateOnly, s, date.Location())
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return time.Time{}, userErrorf("train calendar has no dates")
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, d := range dates {
		if d.After(date) {
			return d, nil
		}
	}
	return dates[len(dates)-1], nil
}

// parseID parses a numeric command argument.
func parseID(s, what string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, userErrorf("invalid %s: %q", what, s)
	}
	return id, nil
}
