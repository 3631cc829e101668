package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"retailbonds/pkg/contracts/domain"
)

// Tenors used by fixtures, mirroring the default series table.
var Tenors = map[string]int{"EDO": 10, "ROD": 12}

// Definition builds an instrument definition whose series is the first
// three characters of id. The buyout date follows the series tenor.
func Definition(id, saleStart, saleEnd string, rates ...string) domain.InstrumentDefinition {
	series := id
	if len(series) > 3 {
		series = series[:3]
	}
	tenor, ok := Tenors[series]
	if !ok {
		tenor = 10
	}
	start := domain.MustParseDate(saleStart)
	def := domain.InstrumentDefinition{
		ID:         domain.InstrumentID(id),
		Series:     series,
		SaleStart:  start,
		SaleEnd:    domain.MustParseDate(saleEnd),
		BuyoutDate: start.AddYears(tenor),
	}
	for _, r := range rates {
		def.AnnualRates = append(def.AnnualRates, decimal.RequireFromString(r))
	}
	return def
}

// RecordJSON renders a directory source record. The id is taken from the
// file name the record is written under.
func RecordJSON(saleStart, saleEnd string, rates ...float64) string {
	if rates == nil {
		rates = []float64{}
	}
	data, err := json.Marshal(map[string]any{
		"sale_start": saleStart,
		"sale_end":   saleEnd,
		"rates":      rates,
	})
	if err != nil {
		panic(err)
	}
	return string(data)
}

// WriteRecord writes a single source record file into dir.
func WriteRecord(t testing.TB, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// WriteRecordDir creates a temporary directory source holding records,
// keyed by file name.
func WriteRecordDir(t testing.TB, records map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range records {
		WriteRecord(t, dir, name, content)
	}
	return dir
}

// ContinuousEDO returns n monthly EDO records starting December 2023,
// keyed by file name, forming a gap-free sale sequence.
func ContinuousEDO(n int) map[string]string {
	records := make(map[string]string, n)
	month := domain.MustParseDate("2023-12-01")
	for range n {
		next := domain.NewDate(month.Year(), month.Month()+1, 1)
		id := "EDO" + month.Time().Format("01") + month.AddYears(10).Time().Format("06")
		records[id+".json"] = RecordJSON(month.String(), next.AddDays(-1).String(), 0.068, 0.06)
		month = next
	}
	return records
}
