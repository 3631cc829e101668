package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailbonds/internal/catalog"
	"retailbonds/internal/services"
	"retailbonds/internal/shared/testutil"
	"retailbonds/pkg/contracts/domain"
)

func healthRouter(t *testing.T, holder *catalog.Holder, sourcePath string) http.Handler {
	t.Helper()
	svc := services.NewHealthService(services.BuildInfo{Version: "1.0.0", BuildID: "abc"}, sourcePath, holder, nil)
	r := chi.NewRouter()
	r.Route("/api", NewHealthHandler(svc, nil).Routes)
	return r
}

func TestHealthEndpoints(t *testing.T) {
	c, err := catalog.New([]domain.Instrument{
		catalog.Assemble(testutil.Definition("EDO1233", "2023-12-01", "2023-12-31")),
	}, "memory")
	require.NoError(t, err)
	router := healthRouter(t, catalog.NewHolder(c), t.TempDir())

	for _, path := range []string{"/api/health", "/api/health/ready", "/api/health/live", "/api/version"} {
		rec := get(t, router, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	var version map[string]any
	require.NoError(t, json.Unmarshal(get(t, router, "/api/version").Body.Bytes(), &version))
	assert.Equal(t, "1.0.0", version["version"])
	assert.Equal(t, "abc", version["build_id"])
}

func TestReadinessWithoutCatalog(t *testing.T) {
	router := healthRouter(t, catalog.NewHolder(nil), "")

	rec := get(t, router, "/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, services.StatusNotReady, status.Status)

	assert.Equal(t, http.StatusOK, get(t, router, "/api/health/live").Code)
}

func TestReadinessWithMissingSourceIsDegradedButReady(t *testing.T) {
	c, err := catalog.New(nil, "memory")
	require.NoError(t, err)
	router := healthRouter(t, catalog.NewHolder(c), "/does/not/exist.xlsx")

	rec := get(t, router, "/api/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), services.StatusDegraded)
}
