package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"retailbonds/internal/infrastructure"
)

func TestOTelMiddlewareNamesSpanByRoute(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	metrics, err := infrastructure.CreateBusinessMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	m := NewOTelMiddleware(&infrastructure.OTelProviders{Tracer: tp.Tracer("test")}, metrics)

	var traceID string
	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/bonds/{id}", func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bonds/EDO1233", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /bonds/{id}", spans[0].Name())
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), traceID)
	// 4xx is a client problem and leaves the server span unset
	assert.Equal(t, "Unset", spans[0].Status().Code.String())
}

func TestOTelMiddlewareWithoutMetrics(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	m := NewOTelMiddleware(&infrastructure.OTelProviders{Tracer: tp.Tracer("test")}, nil)

	rec := httptest.NewRecorder()
	m.Handler(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", GetRealIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7", GetRealIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", GetRealIP(req))
}
