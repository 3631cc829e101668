package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"retailbonds/pkg/contracts/domain"
)

// Column layout of a series worksheet.
const (
	colID        = 0
	colSaleStart = 3
	colSaleEnd   = 4
	colFirstRate = 9
)

// Definitions maps instrument ids to their definitions.
type Definitions map[domain.InstrumentID]domain.InstrumentDefinition

var definitionValidator = validator.New(validator.WithRequiredStructEnabled())

// Extractor turns a Source into instrument definitions.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an extractor logging through logger.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With(slog.String("component", "extractor"))}
}

// Extract reads every series in specs from src. The first error aborts the
// extraction and no definitions are returned.
func (e *Extractor) Extract(ctx context.Context, src Source, specs []SeriesSpec) (Definitions, error) {
	if len(specs) == 0 {
		return nil, &ExtractionError{Source: src.Path, Row: -1, Column: -1, Reason: "no series configured"}
	}
	src, err := src.Resolve()
	if err != nil {
		return nil, err
	}

	var defs Definitions
	switch src.Kind {
	case SourceWorkbook:
		defs, err = e.extractWorkbook(ctx, src.Path, specs)
	case SourceDirectory:
		defs, err = e.extractDirectory(ctx, src.Path, specs)
	}
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "extraction complete",
		slog.String("source", src.String()),
		slog.Int("instruments", len(defs)))
	return defs, nil
}

// Extract reads src with a default-logging Extractor.
func Extract(ctx context.Context, src Source, specs []SeriesSpec) (Definitions, error) {
	return NewExtractor(nil).Extract(ctx, src, specs)
}

// ExtractRows scans rows of one series worksheet. A row belongs to the series
// when its first cell is a string starting with label; every other row is
// ignored.
func ExtractRows(label string, tenor int, rows [][]Cell) (Definitions, error) {
	defs := make(Definitions)
	for r, row := range rows {
		first := cellAt(row, colID)
		if first.Kind != CellString || !strings.HasPrefix(first.Str, label) {
			continue
		}

		saleStart, ok := cellAt(row, colSaleStart).Date()
		if !ok {
			return nil, cellError(label, r, colSaleStart, "sale start is not a date")
		}
		saleEnd, ok := cellAt(row, colSaleEnd).Date()
		if !ok {
			return nil, cellError(label, r, colSaleEnd, "sale end is not a date")
		}

		rates := make([]decimal.Decimal, 0, tenor)
		for c := colFirstRate; c < colFirstRate+tenor; c++ {
			if rate, ok := cellAt(row, c).Rate(); ok {
				rates = append(rates, rate)
			}
		}

		def := domain.InstrumentDefinition{
			ID:          domain.InstrumentID(strings.TrimSpace(first.Str)),
			Series:      label,
			SaleStart:   saleStart,
			SaleEnd:     saleEnd,
			BuyoutDate:  saleStart.AddYears(tenor),
			AnnualRates: rates,
		}
		if err := checkDefinition(def); err != nil {
			return nil, &ExtractionError{Sheet: label, Row: r, Column: colID, Reason: err.Error()}
		}
		if _, dup := defs[def.ID]; dup {
			return nil, cellError(label, r, colID, fmt.Sprintf("duplicate instrument id %s", def.ID))
		}
		defs[def.ID] = def
	}
	return defs, nil
}

func checkDefinition(def domain.InstrumentDefinition) error {
	if err := definitionValidator.Struct(def); err != nil {
		return fmt.Errorf("invalid instrument %q: %w", def.ID, err)
	}
	return def.CheckDates()
}

// merge adds src into dst, failing on an id already present.
func merge(dst, src Definitions, where string) error {
	for id, def := range src {
		if _, dup := dst[id]; dup {
			return &ExtractionError{Source: where, Row: -1, Column: -1, Reason: fmt.Sprintf("duplicate instrument id %s", id)}
		}
		dst[id] = def
	}
	return nil
}

func cellAt(row []Cell, i int) Cell {
	if i < len(row) {
		return row[i]
	}
	return Cell{}
}
