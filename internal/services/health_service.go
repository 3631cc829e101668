package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"retailbonds/internal/catalog"
)

// Readiness states reported per dependency and overall.
const (
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusDegraded = "degraded"
)

// HealthService provides health check functionality
type HealthService struct {
	version    string
	repoURL    string
	buildTime  string
	buildID    string
	sourcePath string
	holder     *catalog.Holder
	startTime  time.Time
	logger     *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version   string
	RepoURL   string
	BuildTime string
	BuildID   string
}

// NewHealthService creates a health service reporting on the catalog in holder
// and the source it was read from.
func NewHealthService(build BuildInfo, sourcePath string, holder *catalog.Holder, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("HealthService initialized",
		slog.String("version", build.Version),
		slog.String("build_time", build.BuildTime),
		slog.String("build_id", build.BuildID))

	return &HealthService{
		version:    build.Version,
		repoURL:    build.RepoURL,
		buildTime:  build.BuildTime,
		buildID:    build.BuildID,
		sourcePath: sourcePath,
		holder:     holder,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"catalog": hs.checkCatalogHealth(),
			"source":  hs.checkSourceHealth(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status == StatusNotReady {
			status.Status = StatusNotReady
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"repo_url":     hs.repoURL,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	return result
}

func (hs *HealthService) checkCatalogHealth() ServiceHealth {
	if hs.holder == nil || hs.holder.Current() == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "catalog not loaded"}
	}
	c := hs.holder.Current()
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d instruments", c.Len()),
		Uptime:  time.Since(c.BuiltAt()).Round(time.Second).String(),
	}
}

// checkSourceHealth reports whether the source can still be read. The catalog
// keeps serving when it cannot, but a reload would fail.
func (hs *HealthService) checkSourceHealth() ServiceHealth {
	if hs.sourcePath == "" {
		return ServiceHealth{Status: StatusReady, Message: "no source configured"}
	}
	if _, err := os.Stat(hs.sourcePath); err != nil {
		return ServiceHealth{Status: StatusDegraded, Message: fmt.Sprintf("source unavailable: %v", err)}
	}
	return ServiceHealth{Status: StatusReady, Message: hs.sourcePath}
}
