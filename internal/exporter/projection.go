package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"retailbonds/pkg/contracts/domain"
)

// ContentType is the media type of a series projection.
const ContentType = "text/csv; charset=utf-8"

// WriteSeries streams the date,value projection of inst to w.
func WriteSeries(w io.Writer, inst domain.Instrument) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, 2)
	for day, v := range inst.Points() {
		row[0], row[1] = formatDate(day), formatValue(v)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", row[0], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToCSV returns the projection of inst as text.
func ToCSV(inst domain.Instrument) string {
	var b strings.Builder
	b.Grow(len(Header[0]) + 20*(len(inst.Values)+1))
	// writes to a strings.Builder cannot fail
	_ = WriteSeries(&b, inst)
	return b.String()
}

// SeriesPoint is one parsed projection row.
type SeriesPoint struct {
	Date  domain.Date
	Value decimal.Decimal
}

// ParseSeriesCSV reads a projection written by WriteSeries.
func ParseSeriesCSV(r io.Reader) ([]SeriesPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if head[0] != Header[0] || head[1] != Header[1] {
		return nil, fmt.Errorf("unexpected header %q", strings.Join(head, ","))
	}

	var points []SeriesPoint
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, err
		}
		day, err := domain.ParseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(points)+1, err)
		}
		v, err := decimal.NewFromString(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid value %q: %w", len(points)+1, rec[1], err)
		}
		points = append(points, SeriesPoint{Date: day, Value: v})
	}
}
