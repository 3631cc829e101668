package dataprocessing

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook saves a workbook whose sheets hold the given rows starting at A1.
func writeWorkbook(t *testing.T, sheets map[string][][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for r, row := range rows {
			axis, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, axis, &row))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	path := filepath.Join(t.TempDir(), "bonds.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sheetRow(id string, start, end interface{}, rates ...interface{}) []interface{} {
	row := []interface{}{id, "description", "", start, end, "", "", "", ""}
	return append(row, rates...)
}

func TestExtractWorkbook(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"EDO": {
			{"Seria", "Opis", "", "Od", "Do"},
			sheetRow("EDO1233", day("2023-12-01"), day("2023-12-31"), 0.0725, 0.07),
			sheetRow("EDO0134", day("2024-01-01"), day("2024-01-31"), 0.068),
		},
		"ROD": {
			sheetRow("ROD0136", day("2024-02-01"), day("2024-02-29"), 0.07, "brak"),
		},
	})

	defs, err := NewExtractor(nil).Extract(context.Background(),
		Source{Kind: SourceWorkbook, Path: path}, DefaultSeries())
	require.NoError(t, err)
	require.Len(t, defs, 3)

	edo := defs["EDO1233"]
	assert.Equal(t, "EDO", edo.Series)
	assert.Equal(t, "2023-12-01", edo.SaleStart.String())
	assert.Equal(t, "2023-12-31", edo.SaleEnd.String())
	assert.Equal(t, "2033-12-01", edo.BuyoutDate.String())
	require.Len(t, edo.AnnualRates, 2)
	assert.Equal(t, "0.0725", edo.AnnualRates[0].String())

	rod := defs["ROD0136"]
	assert.Equal(t, "2036-02-01", rod.BuyoutDate.String())
	assert.Len(t, rod.AnnualRates, 1)
}

func TestExtractWorkbookAutoKind(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"EDO": {sheetRow("EDO0134", day("2024-01-01"), day("2024-01-31"), 0.068)},
	})
	defs, err := Extract(context.Background(), Source{Kind: SourceAuto, Path: path},
		[]SeriesSpec{{Label: "EDO", TenorYears: 10}})
	require.NoError(t, err)
	assert.Contains(t, defs, "EDO0134")
}

func TestExtractWorkbookErrors(t *testing.T) {
	t.Run("missing worksheet", func(t *testing.T) {
		path := writeWorkbook(t, map[string][][]interface{}{
			"EDO": {sheetRow("EDO0134", day("2024-01-01"), day("2024-01-31"))},
		})
		_, err := Extract(context.Background(), Source{Kind: SourceWorkbook, Path: path}, DefaultSeries())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrExtraction))
		assert.Contains(t, err.Error(), "[ROD]")
		assert.Contains(t, err.Error(), "worksheet not found")
	})

	t.Run("bad date names row and column", func(t *testing.T) {
		path := writeWorkbook(t, map[string][][]interface{}{
			"EDO": {
				{"Seria"},
				sheetRow("EDO0134", day("2024-01-01"), "end of month"),
			},
		})
		_, err := Extract(context.Background(), Source{Kind: SourceWorkbook, Path: path},
			[]SeriesSpec{{Label: "EDO", TenorYears: 10}})

		var xe *ExtractionError
		require.ErrorAs(t, err, &xe)
		assert.Equal(t, path, xe.Source)
		assert.Equal(t, 1, xe.Row)
		assert.Equal(t, colSaleEnd, xe.Column)
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := Extract(context.Background(),
			Source{Kind: SourceWorkbook, Path: filepath.Join(t.TempDir(), "missing.xlsx")}, DefaultSeries())
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("no series", func(t *testing.T) {
		_, err := Extract(context.Background(), Source{Kind: SourceWorkbook, Path: "x.xlsx"}, nil)
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("cancelled context", func(t *testing.T) {
		path := writeWorkbook(t, map[string][][]interface{}{"EDO": {}})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Extract(ctx, Source{Kind: SourceWorkbook, Path: path}, DefaultSeries())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
