package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeService serves canned JSON per request path and counts hits.
type fakeService struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]any
	hits   map[string]int
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{t: t, routes: map[string]any{}, hits: map[string]int{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		body, ok := f.routes[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) handle(path string, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = body
}

func (f *fakeService) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// testEnv is an isolated config directory pointed at a fake service.
type testEnv struct {
	dir       string
	config    string
	cacheFile string
	svc       *fakeService
}

// fixedNow is 2024-03-25 12:00 local time.
var fixedNow = time.Date(2024, 3, 25, 12, 0, 0, 0, time.Local)

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("KOLEO_HOME", dir)
	t.Setenv("KOLEO_CACHE_PATH", "")
	t.Setenv("KOLEO_CACHE_ENABLED", "")
	t.Setenv("NO_COLOR", "1")

	origNow := defaultNow
	defaultNow = func() time.Time { return fixedNow }
	t.Cleanup(func() { defaultNow = origNow })

	svc := newFakeService(t)
	env := &testEnv{
		dir:       dir,
		config:    filepath.Join(dir, "config.yaml"),
		cacheFile: filepath.Join(dir, "cache.json"),
		svc:       svc,
	}

	cfg := "api:\n" +
		"  base_url: " + svc.srv.URL + "\n" +
		"  web_url: " + svc.srv.URL + "\n" +
		"  retries: 0\n" +
		"  backoff: 1ms\n" +
		"  timeout: 5s\n" +
		extraConfig
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))
	return env
}

// run executes the root command with the env's config and cache files.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.config, "--cache-file", e.cacheFile, "--nocolor"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) readConfig(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(e.config)
	require.NoError(t, err)
	return string(data)
}

// Service fixtures.

var (
	krakow    = map[string]any{"id": 1, "name": "Kraków Główny", "name_slug": "krakow-glowny", "country": "Polska", "type": "Station"}
	warszawa  = map[string]any{"id": 2, "name": "Warszawa Centralna", "name_slug": "warszawa-centralna", "country": "Polska", "type": "Station"}
	brandList = []map[string]any{
		{"id": 28, "name": "IC", "logo_text": "IC", "display_name": "PKP Intercity"},
		{"id": 29, "name": "EIP", "logo_text": "EIP", "display_name": "Express InterCity Premium"},
	}
)

func clock(hour, minute int) map[string]int {
	return map[string]int{"hour": hour, "minute": minute, "second": 0}
}

func (e *testEnv) withStations() {
	e.svc.handle("/v2/main/stations/by_slug/krakow-glowny", krakow)
	e.svc.handle("/v2/main/stations/by_slug/warszawa-centralna", warszawa)
	e.svc.handle("/v2/main/brands", brandList)
}

func (e *testEnv) withDepartures() {
	e.withStations()
	e.svc.handle("/v2/main/timetables/1/2024-03-25/departures", []map[string]any{
		{
			"departure":       clock(13, 5),
			"stations":        []map[string]any{{"id": 2, "name": "Warszawa Centralna", "train_id": 777}},
			"train_full_name": "IC 5300 KRAKUS",
			"brand_id":        28,
			"platform":        "3",
			"track":           "5",
		},
		{
			"departure":       clock(11, 0),
			"stations":        []map[string]any{{"id": 2, "name": "Warszawa Centralna", "train_id": 776}},
			"train_full_name": "IC 5100 EARLIER",
			"brand_id":        28,
			"platform":        "1",
			"track":           "2",
		},
	})
}

func (e *testEnv) withTrain() {
	e.withStations()
	e.svc.handle("/pl/train_calendars", map[string]any{
		"train_calendars": []map[string]any{{
			"id":             10,
			"train_nr":       5300,
			"trainBrand":     28,
			"dates":          []string{"2024-03-25", "2024-03-27"},
			"train_ids":      []int{777, 778},
			"date_train_map": map[string]int{"2024-03-25": 777, "2024-03-27": 778},
		}},
	})
	e.svc.handle("/pl/trains/777", map[string]any{
		"train": map[string]any{
			"id": 777, "train_nr": 5300, "train_full_name": "IC 5300 KRAKUS", "brand_id": 28, "run_desc": "daily",
		},
		"stops": []map[string]any{
			{
				"station_id": 1, "station_slug": "krakow-glowny", "station_display_name": "Kraków Główny",
				"arrival": clock(13, 5), "departure": clock(13, 5), "distance": 0, "platform": "III",
				"vehicle_type": "ED250",
			},
			{
				"station_id": 2, "station_slug": "warszawa-centralna", "station_display_name": "Warszawa Centralna",
				"arrival": clock(15, 30), "departure": clock(15, 35), "distance": 290000, "platform": "II",
				"vehicle_type": "ED250",
			},
		},
	})
}

func connectionFixture() map[string]any {
	return map[string]any{
		"id":               9001,
		"distance":         290,
		"start_station_id": 1,
		"end_station_id":   2,
		"departure":        "2024-03-25T13:05:00",
		"arrival":          "2024-03-25T15:30:00",
		"trains": []map[string]any{{
			"train_id":         777,
			"train_nr":         5300,
			"train_full_name":  "IC 5300 KRAKUS",
			"brand_id":         28,
			"start_station_id": 1,
			"end_station_id":   2,
			"departure":        "2024-03-25T13:05:00",
			"arrival":          "2024-03-25T15:30:00",
			"stops": []map[string]any{
				{"station_id": 1, "departure": "2024-03-25T13:05:00", "platform": "3", "track": "5"},
				{"station_id": 2, "arrival": "2024-03-25T15:30:00", "platform": "2", "track": "4"},
			},
		}},
	}
}
