package dataprocessing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"retailbonds/pkg/contracts/domain"
)

// record is one instrument file of a directory source. Fields outside this
// set are rejected.
type record struct {
	ID        string      `json:"id" yaml:"id"`
	Series    string      `json:"series" yaml:"series"`
	SaleStart domain.Date `json:"sale_start" yaml:"sale_start"`
	SaleEnd   domain.Date `json:"sale_end" yaml:"sale_end"`
	Rates     []float64   `json:"rates" yaml:"rates"`
}

// IsRecordFile reports whether name is read by a directory source.
func IsRecordFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// extractDirectory reads every record file in dir. Files are visited in name
// order so errors are reported deterministically.
func (e *Extractor) extractDirectory(ctx context.Context, dir string, specs []SeriesSpec) (Definitions, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ExtractionError{Source: dir, Row: -1, Column: -1, Reason: "failed to read directory", Err: err}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	defs := make(Definitions)
	perSeries := make(map[string]int)
	for _, entry := range entries {
		if entry.IsDir() || !IsRecordFile(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, entry.Name())
		def, err := readRecord(path, specs)
		if err != nil {
			return nil, err
		}
		if err := merge(defs, Definitions{def.ID: def}, path); err != nil {
			return nil, err
		}
		perSeries[def.Series]++
	}

	for _, spec := range specs {
		e.logger.InfoContext(ctx, "series extracted",
			slog.String("series", spec.Label),
			slog.Int("tenor_years", spec.TenorYears),
			slog.Int("instruments", perSeries[spec.Label]))
	}
	return defs, nil
}

// ReadRecordFile decodes a single record file into a definition.
func ReadRecordFile(path string, specs []SeriesSpec) (domain.InstrumentDefinition, error) {
	return readRecord(path, specs)
}

func readRecord(path string, specs []SeriesSpec) (domain.InstrumentDefinition, error) {
	fail := func(reason string, err error) (domain.InstrumentDefinition, error) {
		return domain.InstrumentDefinition{}, &ExtractionError{Source: path, Row: -1, Column: -1, Reason: reason, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail("failed to read record", err)
	}
	var rec record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&rec)
	default:
		err = yaml.UnmarshalStrict(data, &rec)
	}
	if err != nil {
		return fail("failed to decode record", err)
	}

	if rec.ID == "" {
		rec.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	var spec SeriesSpec
	var ok bool
	if rec.Series != "" {
		spec, ok = seriesByLabel(rec.Series, specs)
	} else {
		spec, ok = seriesFor(rec.ID, specs)
	}
	if !ok {
		return fail(fmt.Sprintf("no configured series for instrument %s", rec.ID), nil)
	}
	if rec.SaleStart.IsZero() {
		return fail("sale_start is required", nil)
	}
	if rec.SaleEnd.IsZero() {
		return fail("sale_end is required", nil)
	}

	n := min(len(rec.Rates), spec.TenorYears)
	rates := make([]decimal.Decimal, n)
	for i := range rates {
		rates[i] = decimal.NewFromFloat(rec.Rates[i]).Round(domain.RatePrecision)
	}

	def := domain.InstrumentDefinition{
		ID:          domain.InstrumentID(rec.ID),
		Series:      spec.Label,
		SaleStart:   rec.SaleStart,
		SaleEnd:     rec.SaleEnd,
		BuyoutDate:  rec.SaleStart.AddYears(spec.TenorYears),
		AnnualRates: rates,
	}
	if err := checkDefinition(def); err != nil {
		return fail(err.Error(), nil)
	}
	return def, nil
}
