package cli

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koleo-cli/koleo/internal/cache"
)

func TestDepartures(t *testing.T) {
	env := newTestEnv(t, "")
	env.withDepartures()

	out, err := env.run(t, "departures", "Kraków Główny")
	require.NoError(t, err)

	assert.Contains(t, out, "Kraków Główny at 25-03 12:00 ID: 1")
	assert.Contains(t, out, "13:05 IC IC 5300 KRAKUS Warszawa Centralna 5/3")
	assert.NotContains(t, out, "EARLIER", "trains before the requested time are dropped")

	store, err := cache.Load(env.cacheFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"brands", "dep-1-2024-03-25", "st-krakow-glowny"}, store.Keys())

	// A second run is served from the cache file.
	_, err = env.run(t, "d", "krakow glowny")
	require.NoError(t, err)
	assert.Equal(t, 1, env.svc.hitCount("/v2/main/timetables/1/2024-03-25/departures"))
	assert.Equal(t, 1, env.svc.hitCount("/v2/main/stations/by_slug/krakow-glowny"))
}

func TestDepartures_IgnoreCache(t *testing.T) {
	env := newTestEnv(t, "")
	env.withDepartures()

	_, err := env.run(t, "--ignore-cache", "departures", "krakow glowny")
	require.NoError(t, err)
	_, err = env.run(t, "--ignore-cache", "departures", "krakow glowny")
	require.NoError(t, err)

	assert.Equal(t, 2, env.svc.hitCount("/v2/main/timetables/1/2024-03-25/departures"))
	_, statErr := os.Stat(env.cacheFile)
	assert.True(t, os.IsNotExist(statErr), "a bypassed cache is never written")
}

func TestDepartures_SaveFavourite(t *testing.T) {
	env := newTestEnv(t, "")
	env.withDepartures()

	_, err := env.run(t, "departures", "--save", "krakow glowny")
	require.NoError(t, err)
	assert.Contains(t, env.readConfig(t), "favourite_station: krakow glowny")

	out, err := env.run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "IC 5300 KRAKUS")
}

func TestArrivalsAndAll(t *testing.T) {
	env := newTestEnv(t, "")
	env.withDepartures()
	env.svc.handle("/v2/main/timetables/1/2024-03-25/arrivals", []map[string]any{{
		"arrival":         clock(13, 5),
		"stations":        []map[string]any{{"id": 3, "name": "Zakopane", "train_id": 900}},
		"train_full_name": "IC 3500 TATRY",
		"brand_id":        28,
		"platform":        "2",
		"track":           "1",
	}})

	out, err := env.run(t, "arrivals", "krakow glowny")
	require.NoError(t, err)
	assert.Contains(t, out, "IC 3500 TATRY")
	assert.NotContains(t, out, "IC 5300 KRAKUS")

	out, err = env.run(t, "all", "krakow glowny")
	require.NoError(t, err)
	arrival := strings.Index(out, "IC 3500 TATRY")
	departure := strings.Index(out, "IC 5300 KRAKUS")
	require.GreaterOrEqual(t, arrival, 0)
	require.GreaterOrEqual(t, departure, 0)
	assert.Less(t, arrival, departure, "arrival sorts before a departure at the same minute")
}

func TestBoardErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "unknown station",
			args:     []string{"departures", "nowhere"},
			wantCode: ExitUsage,
			wantMsg:  "station not found: nowhere",
		},
		{
			name:     "no station and no favourite",
			args:     []string{"departures"},
			wantCode: ExitUsage,
			wantMsg:  "favourite_station is not set",
		},
		{
			name:     "bad date",
			args:     []string{"departures", "-d", "yesterday", "krakow glowny"},
			wantCode: ExitUsage,
			wantMsg:  "invalid date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			env.withDepartures()

			_, err := env.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, ExitCode(err))
			assert.Contains(t, FormatError(err), tt.wantMsg)
		})
	}
}

func TestCorruptCache(t *testing.T) {
	env := newTestEnv(t, "")
	env.withDepartures()
	require.NoError(t, os.WriteFile(env.cacheFile, []byte("{not json"), 0o600))

	_, err := env.run(t, "departures", "krakow glowny")
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrCacheCorrupted)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, FormatError(err), "koleo clear-cache")
	assert.Zero(t, env.svc.hitCount("/v2/main/stations/by_slug/krakow-glowny"))

	out, err := env.run(t, "clear-cache")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")

	data, err := os.ReadFile(env.cacheFile)
	require.NoError(t, err)
	var parsed struct {
		Cache map[string]json.RawMessage `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Empty(t, parsed.Cache)

	_, err = env.run(t, "departures", "krakow glowny")
	require.NoError(t, err)
}

func TestCacheInfoAndClearKeys(t *testing.T) {
	env := newTestEnv(t, "")
	env.withDepartures()

	out, err := env.run(t, "cache-info")
	require.NoError(t, err)
	assert.Contains(t, out, "path:    "+env.cacheFile)
	assert.Contains(t, out, "enabled: true")
	assert.Contains(t, out, "entries: 0")

	_, err = env.run(t, "departures", "krakow glowny")
	require.NoError(t, err)

	out, err = env.run(t, "cache-info")
	require.NoError(t, err)
	assert.Contains(t, out, "st-krakow-glowny  expires in ")
	assert.Contains(t, out, "dep-1-2024-03-25  expires in ")

	out, err = env.run(t, "clear-cache", "dep-1-2024-03-25", "missing-key")
	require.NoError(t, err)
	assert.Contains(t, out, `No cache entry "missing-key"`)
	assert.Contains(t, out, "Removed 1 of 2 entries")

	out, err = env.run(t, "cache-info")
	require.NoError(t, err)
	assert.Contains(t, out, "st-krakow-glowny")
	assert.NotContains(t, out, "dep-1-2024-03-25")

	out, err = env.run(t, "--ignore-cache", "cache_info")
	require.NoError(t, err)
	assert.Contains(t, out, "enabled: false")
}

func TestAliases(t *testing.T) {
	env := newTestEnv(t, "")
	env.withDepartures()

	out, err := env.run(t, "aliases")
	require.NoError(t, err)
	assert.Contains(t, out, "No aliases")

	out, err = env.run(t, "aliases", "add", "home", "Kraków", "Główny")
	require.NoError(t, err)
	assert.Contains(t, out, "Alias home saved for Kraków Główny")
	assert.Contains(t, env.readConfig(t), "home: krakow-glowny")

	out, err = env.run(t, "departures", "home")
	require.NoError(t, err)
	assert.Contains(t, out, "IC 5300 KRAKUS")

	out, err = env.run(t, "aliases")
	require.NoError(t, err)
	assert.Contains(t, out, "home -> krakow-glowny")

	_, err = env.run(t, "aliases", "rm", "home")
	require.NoError(t, err)
	assert.NotContains(t, env.readConfig(t), "home:")

	_, err = env.run(t, "aliases", "remove", "home")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestTrainCalendarAndRoute(t *testing.T) {
	env := newTestEnv(t, "use_roman_numerals: true\n")
	env.withTrain()

	out, err := env.run(t, "traincalendar", "ic", "5300")
	require.NoError(t, err)
	assert.Contains(t, out, "5300:")
	assert.Contains(t, out, "2024-03-25: 777")
	assert.Contains(t, out, "2024-03-27: 778")

	out, err = env.run(t, "trainroute", "IC", "5300", "-d", "2024-03-25")
	require.NoError(t, err)
	assert.Contains(t, out, "IC 5300 KRAKUS")
	assert.Contains(t, out, "2h25m")
	assert.Contains(t, out, "Kraków Główny - Warszawa Centralna: ED250")
	assert.Contains(t, out, "290.0km")

	_, err = env.run(t, "trainroute", "IC", "5300", "-d", "2024-03-26")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Contains(t, FormatError(err), "doesn't run on the selected date")

	_, err = env.run(t, "trainroute", "XX", "5300")
	require.Error(t, err)
	assert.Contains(t, FormatError(err), "invalid brand name")

	store, err := cache.Load(env.cacheFile)
	require.NoError(t, err)
	assert.Contains(t, store.Keys(), "tc-IC-5300-5300")
	assert.Contains(t, store.Keys(), "train-777")
}

func TestTrainDetail(t *testing.T) {
	env := newTestEnv(t, "")
	env.withTrain()

	out, err := env.run(t, "traindetail", "777")
	require.NoError(t, err)
	assert.Contains(t, out, "IC 5300 KRAKUS")
	assert.Contains(t, out, "daily")

	_, err = env.run(t, "traindetail", "778")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Contains(t, FormatError(err), "train not found: 778")
}

func TestConnections(t *testing.T) {
	env := newTestEnv(t, "")
	env.withStations()
	env.svc.handle("/v2/main/connections", map[string]any{
		"connections": []map[string]any{connectionFixture()},
	})
	env.svc.handle("/pl/prices/9001", map[string]any{
		"price": map[string]any{"id": 1, "connection_id": 9001, "value": "89.00"},
	})

	out, err := env.run(t, "connections", "krakow glowny", "warszawa centralna", "-p", "-b", "ic")
	require.NoError(t, err)
	assert.Contains(t, out, "Kraków Główny → Warszawa Centralna")
	assert.Contains(t, out, "13:05 - 15:30")
	assert.Contains(t, out, "290km")
	assert.Contains(t, out, "zł")
	assert.Contains(t, out, "IC 5300 KRAKUS Kraków Główny 5/3 - Warszawa Centralna 4/2")
	assert.Equal(t, 1, env.svc.hitCount("/pl/prices/9001"))

	_, err = env.run(t, "connections", "krakow glowny", "warszawa centralna", "-b", "nope")
	require.Error(t, err)
	assert.Contains(t, FormatError(err), "no brands match")
}

func TestTrainStats(t *testing.T) {
	env := newTestEnv(t, "")
	env.withTrain()
	env.svc.handle("/v2/main/connections", map[string]any{
		"connections": []map[string]any{connectionFixture()},
	})
	env.svc.handle("/v2/main/seats_availability/9001/5300/4", map[string]any{
		"special_compartment_types": []map[string]any{},
		"seats": []map[string]any{
			{"carriage_nr": "1", "seat_nr": "11", "state": "FREE"},
			{"carriage_nr": "1", "seat_nr": "12", "state": "RESERVED"},
		},
	})
	env.svc.handle("/v2/main/seats_availability/9001/5300/5", map[string]any{
		"special_compartment_types": []map[string]any{{"id": 7, "icon": "family", "name": "Family"}},
		"seats": []map[string]any{
			{"carriage_nr": "5", "seat_nr": "51", "state": "FREE", "special_compartment_type_id": 7},
			{"carriage_nr": "5", "seat_nr": "52", "state": "FREE"},
			{"carriage_nr": "5", "seat_nr": "53", "state": "BLOCKED"},
			{"carriage_nr": "5", "seat_nr": "54", "state": "RESERVED"},
		},
	})

	out, err := env.run(t, "trainstats", "IC", "5300", "-d", "2024-03-25")
	require.NoError(t, err)
	assert.Contains(t, out, "Klasa 1:")
	assert.Contains(t, out, "Free: 1/2")
	assert.Contains(t, out, "Klasa 2:")
	assert.Contains(t, out, "Free: 2/4")
	assert.Contains(t, out, "Total: 2/4")

	out, err = env.run(t, "trainstats", "IC", "5300", "-d", "2024-03-25", "-t", "Klasa 2", "--detailed")
	require.NoError(t, err)
	assert.NotContains(t, out, "Klasa 1:")
	assert.Contains(t, out, "5 51: FREE, FAMILY")

	_, err = env.run(t, "trainstats", "IC", "5300", "-d", "2024-03-25", "-t", "Klasa 9")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))

	env.svc.handle("/v2/main/connections/9001", connectionFixture())
	out, err = env.run(t, "trainconnectionstats", "9001", "-t", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "IC 5300 KRAKUS")
	assert.Contains(t, out, "Free: 1/2")
}

func TestTrainStats_ConnectionNotFound(t *testing.T) {
	env := newTestEnv(t, "")
	env.withTrain()
	env.svc.handle("/v2/main/connections", map[string]any{"connections": []map[string]any{}})

	_, err := env.run(t, "trainstats", "IC", "5300", "-d", "2024-03-25")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.Contains(t, FormatError(err), "clear-cache")
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t, "auth:\n  _koleo_token: secret\n")

	_, err := env.run(t, "config", "set", "favourite_station", "krakow")
	require.NoError(t, err)
	assert.Contains(t, env.readConfig(t), "favourite_station: krakow")

	out, err := env.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "favourite_station: krakow")
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "secret")

	_, err = env.run(t, "config", "set", "bogus", "1")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))

	_, err = env.run(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, FormatError(err), "already exists")

	out, err = env.run(t, "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration initialized")
	assert.FileExists(t, env.dir+"/.gitignore")
	assert.NotContains(t, env.readConfig(t), "favourite_station")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, "")
	out, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "koleo ")
}

func TestStations(t *testing.T) {
	env := newTestEnv(t, "")
	env.svc.handle("/v2/main/stations", []map[string]any{
		{"id": 3, "name": "Berlin Hbf", "country": "Niemcy", "type": "Station"},
		{"id": 1, "name": "Kraków Główny", "country": "Polska", "type": "Station"},
		{"id": 2, "name": "Kraków MDA", "country": "Polska", "type": "Quay"},
	})
	env.svc.handle("/ls", map[string]any{
		"stations": []map[string]any{{"id": 1, "name": "Kraków Główny", "type": "Station"}},
	})

	out, err := env.run(t, "stations")
	require.NoError(t, err)
	assert.Equal(t,
		"pl RAIL Kraków Główny ID: 1\npl BUS Kraków MDA ID: 2\nde RAIL Berlin Hbf ID: 3\n", out)

	out, err = env.run(t, "stations", "--country", "de")
	require.NoError(t, err)
	assert.Equal(t, "RAIL Berlin Hbf ID: 3\n", out)

	out, err = env.run(t, "stations", "-t", "bus")
	require.NoError(t, err)
	assert.Equal(t, "pl Kraków MDA ID: 2\n", out)

	out, err = env.run(t, "stations", "krakow")
	require.NoError(t, err)
	assert.Equal(t, "RAIL Kraków Główny ID: 1\n", out)
}

func TestConnectionsV3(t *testing.T) {
	const id = "0b5e4c4a-8f3c-4c1e-9b0a-3b1f5d2e7a10"

	env := newTestEnv(t, "")
	env.withStations()
	env.svc.handle("/v2/main/train_attributes", []map[string]any{{"id": 5, "name": "Replacement bus"}})
	env.svc.handle("/v2/main/stations", []map[string]any{krakow, warszawa})
	env.svc.handle("/v2/main/eol_connections/search", []map[string]any{{
		"uuid":      id,
		"departure": "2024-03-25T13:05:00",
		"arrival":   "2024-03-25T15:30:00",
		"legs": []map[string]any{{
			"leg_type":            "train_leg",
			"train_full_name":     "IC 5300 KRAKUS",
			"commercial_brand_id": 28,
			"stops_in_leg": []map[string]any{
				{"station_id": 1, "departure": "2024-03-25T13:05:00", "platform": "3", "track": "5"},
				{"station_id": 2, "arrival": "2024-03-25T15:30:00", "platform": "2", "track": "4"},
			},
		}},
	}})
	env.svc.handle("/v2/main/eol_connections/"+id+"/price", map[string]any{"price": "120.50"})

	out, err := env.run(t, "connections-v3", "krakow glowny", "warszawa centralna", "--only-purchasable")
	require.NoError(t, err)
	assert.Contains(t, out, "13:05 - 15:30 2h25m")
	assert.Contains(t, out, "zł")
	assert.Contains(t, out, "IC IC 5300 KRAKUS 13:05 Kraków Główny 5/3 - 15:30 Warszawa Centralna 4/2")
}
