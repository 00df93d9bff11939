package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/awcal/internal/config"
	"github.com/runnerr0/awcal/internal/logging"
	"github.com/runnerr0/awcal/internal/storage"
	"github.com/runnerr0/awcal/internal/tracker"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// testNow is the fixed clock used by command tests.
var testNow = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

// newTestEnv returns an env backed by a migrated in-memory cache, a UTC
// processing zone and a fixed clock.
func newTestEnv(t *testing.T) *env {
	t.Helper()

	db, err := storage.OpenDB(":memory:")
	require.NoError(t, err)
	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		db.Close()
	})

	cfg := config.DefaultConfig()
	cfg.Processing.Timezone = "UTC"
	store.SetTitleRules(cfg.TitleRules())

	return &env{
		cfg:      cfg,
		logger:   logging.Discard(),
		store:    store,
		hostname: "testhost",
		now:      func() time.Time { return testNow },
		dbPath:   ":memory:",
	}
}

// Tracker fixtures for 2024-05-06 10:00 UTC: a half hour of activity, a 50s
// window event and a ten minute "focus" task.
const (
	fixtureAFK       = `[{"id":1,"timestamp":"2024-05-06T10:00:00Z","duration":1800,"data":{"status":"not-afk"}}]`
	fixtureWindow    = `[{"id":2,"timestamp":"2024-05-06T10:00:10Z","duration":50,"data":{"app":"X","title":"Y"}}]`
	fixtureStopwatch = `[{"id":3,"timestamp":"2024-05-06T10:00:00Z","duration":600,"data":{"label":"focus","running":false}}]`
)

// fakeTracker serves the fixtures for the testhost buckets and records the
// requested paths.
type fakeTracker struct {
	srv     *httptest.Server
	failing map[string]bool

	mu       sync.Mutex
	requests []string
}

func newFakeTracker(t *testing.T) *fakeTracker {
	t.Helper()
	ft := &fakeTracker{failing: map[string]bool{}}
	bodies := map[string]string{
		"aw-watcher-afk_testhost":    fixtureAFK,
		"aw-watcher-window_testhost": fixtureWindow,
		"aw-stopwatch":               fixtureStopwatch,
	}
	ft.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ft.mu.Lock()
		ft.requests = append(ft.requests, r.URL.Path)
		ft.mu.Unlock()
		if r.URL.Path == "/api/0/info" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"hostname":"testhost","version":"v0.13.2","testing":true}`))
			return
		}
		bucket := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/0/buckets/"), "/events")
		body, ok := bodies[bucket]
		if !ok || ft.failing[bucket] {
			http.Error(w, "no such bucket", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ft.srv.Close)
	return ft
}

func (ft *fakeTracker) requested() []string {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]string(nil), ft.requests...)
}

// attach points e at the fake tracker.
func (ft *fakeTracker) attach(e *env) {
	e.tracker = tracker.NewClient(ft.srv.URL, 2*time.Second, e.logger)
}

// writeInputFile writes a processing input file built from the fixtures.
func writeInputFile(t *testing.T) string {
	t.Helper()
	path := t.TempDir() + "/input.json"
	body := `{"afkEvents":` + fixtureAFK + `,"windowEvents":` + fixtureWindow + `,"stopwatchEvents":` + fixtureStopwatch + `}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0644)
}
