package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailbonds/internal/config"
	apierrors "retailbonds/internal/errors"
	"retailbonds/internal/shared/testutil"
)

func testConfig(t *testing.T, records map[string]string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Source.Path = testutil.WriteRecordDir(t, records)
	cfg.Source.Kind = "directory"
	cfg.Source.WatchDebounce = 20 * time.Millisecond
	cfg.Server.ShutdownTimeout = 2 * time.Second
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	return a
}

func serve(t *testing.T, a *Application, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewBuildsCatalogAndRoutes(t *testing.T) {
	a := newTestApp(t, testConfig(t, testutil.ContinuousEDO(2)))

	rec := serve(t, a, "/bonds")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["EDO0134","EDO1233"]`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = serve(t, a, "/bonds/by-date/2024-01-15")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"EDO0134"`)

	rec = serve(t, a, "/catalog")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.EqualValues(t, 2, summary["instruments"])

	rec = serve(t, a, "/api/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteIsProblem(t *testing.T) {
	a := newTestApp(t, testConfig(t, testutil.ContinuousEDO(1)))

	rec := serve(t, a, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":404`)

	rec = serve(t, a, "/bonds/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bond with ID NOPE not found")
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t, testConfig(t, testutil.ContinuousEDO(1)))

	serve(t, a, "/bonds/EDO1233")
	rec := serve(t, a, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "bond_lookups")
	assert.Contains(t, body, "catalog_builds")
	assert.Contains(t, body, "http_requests")
}

func TestBuildFailureAbortsStartup(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"EDO1233.json": testutil.RecordJSON("2023-12-01", "2023-12-31", 0.068),
		"EDO0234.json": testutil.RecordJSON("2024-02-01", "2024-02-29", 0.068),
	})
	logger, logs := testutil.NewTestLogger(t)

	a, err := New(context.Background(), cfg, logger)
	require.Error(t, err)
	assert.Nil(t, a)

	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeContinuity, appErr.Type)
	assert.Equal(t, 4, appErr.ExitCode())
	testutil.AssertLogContains(t, logs, slog.LevelError, "initial catalog build failed")
}

func TestMalformedSourceIsExtractionError(t *testing.T) {
	cfg := testConfig(t, map[string]string{"EDO1233.json": "{"})
	logger, _ := testutil.NewTestLogger(t)

	_, err := New(context.Background(), cfg, logger)

	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeExtraction, appErr.Type)
	assert.Equal(t, 3, appErr.ExitCode())
}

func TestSourceFromConfig(t *testing.T) {
	src, specs := SourceFromConfig(config.SourceConfig{Path: "bonds.xlsx", Kind: "workbook"})
	assert.Equal(t, "workbook:bonds.xlsx", src.String())
	assert.Len(t, specs, 2)

	_, specs = SourceFromConfig(config.SourceConfig{Series: map[string]int{"COI": 4}})
	require.Len(t, specs, 1)
	assert.Equal(t, "COI", specs[0].Label)
}

func TestServeReloadsAndShutsDown(t *testing.T) {
	cfg := testConfig(t, testutil.ContinuousEDO(1))
	cfg.Source.Watch = true
	a := newTestApp(t, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	ids := func() string {
		resp, err := http.Get(base + "/bonds")
		if err != nil {
			return ""
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}
	require.Eventually(t, func() bool { return ids() == `["EDO1233"]` }, 2*time.Second, 20*time.Millisecond)

	// Give the watcher time to register before the source changes.
	time.Sleep(100 * time.Millisecond)
	testutil.WriteRecord(t, cfg.Source.Path, "EDO0134.json",
		testutil.RecordJSON("2024-01-01", "2024-01-31", 0.068, 0.06))

	assert.Eventually(t, func() bool { return ids() == `["EDO0134","EDO1233"]` }, 3*time.Second, 25*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
