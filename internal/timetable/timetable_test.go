package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koleo-cli/koleo/internal/koleo"
)

func TestSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Kraków Główny", "krakow-glowny"},
		{"Łódź Fabryczna", "lodz-fabryczna"},
		{"Warszawa Zachodnia (Peron 8)", "warszawa-zachodnia-(peron-8)"},
		{"Bielsko-Biała Główna", "bielsko-biala-glowna"},
		{"Żywiec/Sól", "zywiec-sol"},
		{"gdynia_glowna", "gdynia-glowna"},
		{"ŚWINOUJŚCIE", "swinoujscie"},
		{"Ostrava hl.n.", "ostrava-hl.n."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 25, 14, 37, 12, 0, time.UTC)
	day := func(y int, m time.Month, d, h, min int) time.Time {
		return time.Date(y, m, d, h, min, 0, 0, time.UTC)
	}

	tests := []struct {
		in   string
		want time.Time
	}{
		{"27-03", day(2024, 3, 27, 0, 0)},
		{"1-4", day(2024, 4, 1, 0, 0)},
		{"2024-12-24", day(2024, 12, 24, 0, 0)},
		{"+1", day(2024, 3, 26, 0, 0)},
		{"-2", day(2024, 3, 23, 0, 0)},
		{"++1", time.Date(2024, 3, 26, 14, 37, 12, 0, time.UTC)},
		{"+2h", day(2024, 3, 25, 16, 0)},
		{"++2h", time.Date(2024, 3, 25, 16, 37, 12, 0, time.UTC)},
		{"-1h", day(2024, 3, 25, 13, 0)},
		{"+30m", time.Date(2024, 3, 25, 15, 7, 12, 0, time.UTC)},
		{"27-03 08:15", day(2024, 3, 27, 8, 15)},
		{"08:15 27-03", day(2024, 3, 27, 8, 15)},
		{"06:05", day(2024, 3, 25, 6, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDate(tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 25, 14, 37, 0, 0, time.UTC)
	for _, in := range []string{"", "tomorrow", "+", "32-13", "25:99"} {
		_, err := ParseDate(in, now)
		require.ErrorIs(t, err, ErrInvalidDate, in)
	}
}

func TestPlatform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"I", "1", true},
		{"IV", "4", true},
		{"XII", "12", true},
		{"IIa", "2a", true},
		{"BUS", "BUS", true},
		{"", "", false},
		{"3", "", false},
		{"XIV", "", false},
		{"Zb", "", false},
	}
	for _, tt := range tests {
		got, ok := Platform(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestPosition(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7/4", PositionFormat{}.Position("IV", "7"))
	assert.Equal(t, "4/7", PositionFormat{PlatformFirst: true}.Position("IV", "7"))
	assert.Equal(t, "7/IV", PositionFormat{Roman: true}.Position("IV", "7"))
	assert.Equal(t, "4", PositionFormat{}.Position("IV", ""))
	assert.Equal(t, "3", PositionFormat{}.Position("3", ""))
	assert.Equal(t, "", PositionFormat{}.Position("", ""))
}

func TestParseTrainName(t *testing.T) {
	t.Parallel()

	got, err := ParseTrainName("1106 Esperanto")
	require.NoError(t, err)
	assert.Equal(t, TrainName{Number: 1106, Name: "Esperanto"}, got)
	assert.Equal(t, "1106 Esperanto", got.String())
	assert.Equal(t, "1106-Esperanto", got.URLPath())

	got, err = ParseTrainName(" 5311 ")
	require.NoError(t, err)
	assert.Equal(t, TrainName{Number: 5311}, got)
	assert.Equal(t, "5311", got.URLPath())

	got, err = ParseTrainName("38170 Gwarek Bis")
	require.NoError(t, err)
	assert.Equal(t, "38170-Gwarek%20Bis", got.URLPath())

	for _, bad := range []string{"", "Esperanto", "-1"} {
		_, err = ParseTrainName(bad)
		require.ErrorIs(t, err, ErrInvalidTrainName, bad)
	}
}

func TestResolveSeatTypes(t *testing.T) {
	t.Parallel()

	all, err := ResolveSeatTypes(28, "")
	require.NoError(t, err)
	assert.Equal(t, []SeatType{{4, "Klasa 1"}, {5, "Klasa 2"}}, all)

	byID, err := ResolveSeatTypes(47, "19")
	require.NoError(t, err)
	assert.Equal(t, []SeatType{{19, "Premium"}}, byID)

	byName, err := ResolveSeatTypes(45, "Z rowerem")
	require.NoError(t, err)
	assert.Equal(t, []SeatType{{31, "Z rowerem"}}, byName)

	_, err = ResolveSeatTypes(28, "Klasa 3")
	require.ErrorIs(t, err, ErrInvalidSeatType)

	_, err = ResolveSeatTypes(999, "")
	require.ErrorIs(t, err, ErrUnsupportedBrand)
	assert.False(t, SupportsSeats(999))
	assert.True(t, SupportsSeats(43))
}

func TestCountSeats(t *testing.T) {
	t.Parallel()

	avail := koleo.SeatsAvailability{
		SpecialCompartmentTypes: []koleo.SpecialCompartmentType{
			{ID: 1, Icon: "family"},
			{ID: 2, Icon: "quiet"},
		},
		Seats: []koleo.Seat{
			{State: koleo.SeatFree},
			{State: koleo.SeatFree, SpecialCompartmentTypeID: 1},
			{State: koleo.SeatReserved, SpecialCompartmentTypeID: 2},
			{State: koleo.SeatReserved},
			{State: koleo.SeatBlocked},
		},
	}

	special := SpecialCompartments(avail)
	assert.Len(t, special, 1)

	c := CountSeats(avail, special)
	assert.Equal(t, SeatCounts{Free: 2, Reserved: 2, Blocked: 1, Special: 1}, c)
	assert.Equal(t, 5, c.Total())
	assert.Equal(t, 3, c.Taken())
	assert.InDelta(t, 40.0, c.Percent(c.Free), 0.001)
	assert.InDelta(t, 0.0, SeatCounts{}.Percent(0), 0.001)
}

func TestCountry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CountryInfo{"pl", "🇵🇱"}, Country(""))
	assert.Equal(t, "de", Country("Niemcy").Code)
	assert.Equal(t, CountryInfo{Code: "Narnia"}, Country("Narnia"))
}

func TestKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BUS", Kind("Quay").Label)
	assert.Equal(t, "GROUP", Kind("TopographicalPlace").Label)
	assert.Equal(t, "RAIL", Kind("railStopPlace").Label)
}

func TestFormatTravelTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2h5m", FormatTravelTime(125*time.Minute))
	assert.Equal(t, "0h45m", FormatTravelTime(45*time.Minute))
	assert.Equal(t, "0h0m", FormatTravelTime(-time.Minute))
}

func TestSpeedAndRouteEnd(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 120.0, Speed(240000, 2*time.Hour), 0.001)
	assert.InDelta(t, 0.0, Speed(1000, 0), 0.001)

	start := time.Date(2024, 3, 25, 23, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 25, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 26, 1, 30, 0, 0, time.UTC), RouteEnd(start, end))
}
