package catalog

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"retailbonds/internal/dataprocessing"
	"retailbonds/internal/infrastructure"
	"retailbonds/pkg/contracts/domain"
)

const tracerName = "retailbonds/catalog"

// Builder runs extraction, assembly and continuity validation.
type Builder struct {
	extractor *dataprocessing.Extractor
	metrics   *infrastructure.BusinessMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewBuilder creates a builder. metrics may be nil.
func NewBuilder(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		extractor: dataprocessing.NewExtractor(logger),
		metrics:   metrics,
		tracer:    otel.Tracer(tracerName),
		logger:    logger.With(slog.String("component", "catalog_builder")),
	}
}

// Build reads src and returns a validated catalog. Any extraction or
// continuity error aborts the build.
func (b *Builder) Build(ctx context.Context, src dataprocessing.Source, specs []dataprocessing.SeriesSpec) (*Catalog, error) {
	ctx, span := b.tracer.Start(ctx, "catalog.build",
		trace.WithAttributes(
			attribute.String("source.kind", string(src.Kind)),
			attribute.String("source.path", src.Path),
		))
	defer span.End()

	start := time.Now()
	c, err := b.build(ctx, src, specs)
	duration := time.Since(start)

	instruments := 0
	if c != nil {
		instruments = c.Len()
	}
	infrastructure.RecordCatalogBuild(ctx, b.metrics, duration, instruments, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.ErrorContext(ctx, "catalog build failed",
			slog.String("source", src.String()),
			slog.String("error", err.Error()),
			slog.Duration("duration", duration))
		return nil, err
	}

	span.SetAttributes(attribute.Int("catalog.instruments", instruments))
	b.logger.InfoContext(ctx, "catalog built",
		slog.String("source", src.String()),
		slog.Int("instruments", instruments),
		slog.Any("series", c.Series()),
		slog.Duration("duration", duration))
	return c, nil
}

func (b *Builder) build(ctx context.Context, src dataprocessing.Source, specs []dataprocessing.SeriesSpec) (*Catalog, error) {
	defs, err := b.extractor.Extract(ctx, src, specs)
	if err != nil {
		return nil, err
	}

	instruments := make([]domain.Instrument, 0, len(defs))
	for _, def := range defs {
		instruments = append(instruments, Assemble(def))
	}
	return New(instruments, src.String())
}

// Build is a convenience wrapper around a default Builder.
func Build(ctx context.Context, src dataprocessing.Source, specs []dataprocessing.SeriesSpec) (*Catalog, error) {
	return NewBuilder(nil, nil).Build(ctx, src, specs)
}
