package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailbonds/pkg/contracts/domain"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]domain.Instrument{
		inst("ROD0133", "2023-01-01", "2023-01-31"),
		inst("EDO1232", "2022-12-01", "2022-12-31"),
		inst("EDO0233", "2023-02-01", "2023-02-28"),
		inst("ROD1232", "2022-12-01", "2022-12-31"),
		inst("EDO0133", "2023-01-01", "2023-01-31"),
	}, "test")
	require.NoError(t, err)
	return c
}

func TestCatalogListIDs(t *testing.T) {
	c := testCatalog(t)
	want := []domain.InstrumentID{"EDO0133", "EDO0233", "EDO1232", "ROD0133", "ROD1232"}
	assert.Equal(t, want, c.ListIDs())
	assert.Equal(t, want, c.ListIDs())

	ids := c.ListIDs()
	ids[0] = "mutated"
	assert.Equal(t, want, c.ListIDs())
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{"EDO", "ROD"}, c.Series())
}

func TestCatalogGet(t *testing.T) {
	c := testCatalog(t)

	got, ok := c.Get("EDO1232")
	require.True(t, ok)
	assert.Equal(t, "2022-12-01", got.SaleStart.String())

	missing, ok := c.Get("UNKNOWN")
	assert.False(t, ok)
	assert.Empty(t, missing.ID)
	assert.Equal(t, 5, c.Len())
}

func TestCatalogFindBySaleDate(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		series string
		day    string
		want   domain.InstrumentID
	}{
		{"EDO", "2022-12-01", "EDO1232"},
		{"EDO", "2022-12-31", "EDO1232"},
		{"EDO", "2023-01-01", "EDO0133"},
		{"EDO", "2023-02-28", "EDO0233"},
		{"ROD", "2022-12-15", "ROD1232"},
		{"ROD", "2023-01-31", "ROD0133"},
	}
	for _, tt := range tests {
		got, ok := c.FindBySaleDate(tt.series, domain.MustParseDate(tt.day))
		require.True(t, ok, tt.series+" "+tt.day)
		assert.Equal(t, tt.want, got.ID, tt.series+" "+tt.day)
	}

	_, ok := c.FindBySaleDate("EDO", domain.MustParseDate("2022-11-30"))
	assert.False(t, ok)
	_, ok = c.FindBySaleDate("EDO", domain.MustParseDate("2023-03-01"))
	assert.False(t, ok)
	_, ok = c.FindBySaleDate("ROD", domain.MustParseDate("2023-02-01"))
	assert.False(t, ok)
	_, ok = c.FindBySaleDate("COI", domain.MustParseDate("2023-01-01"))
	assert.False(t, ok)
}

func TestCatalogOnSaleOn(t *testing.T) {
	c := testCatalog(t)

	ids := func(insts []domain.Instrument) []domain.InstrumentID {
		var out []domain.InstrumentID
		for _, i := range insts {
			out = append(out, i.ID)
		}
		return out
	}
	assert.Equal(t, []domain.InstrumentID{"EDO0133", "ROD0133"}, ids(c.OnSaleOn(domain.MustParseDate("2023-01-20"))))
	assert.Equal(t, []domain.InstrumentID{"EDO0233"}, ids(c.OnSaleOn(domain.MustParseDate("2023-02-20"))))
	assert.Empty(t, c.OnSaleOn(domain.MustParseDate("2023-03-01")))
}

func TestCatalogSaleRangeSpansSeries(t *testing.T) {
	c := testCatalog(t)

	from, to, ok := c.SaleRange()
	require.True(t, ok)
	assert.Equal(t, "2022-12-01", from.String())
	assert.Equal(t, "2023-02-28", to.String())

	// a series that starts later but also ends later still widens the range
	c, err := New([]domain.Instrument{
		inst("EDO1232", "2022-12-01", "2022-12-31"),
		inst("ROD0133", "2023-01-01", "2023-03-31"),
	}, "test")
	require.NoError(t, err)
	from, to, ok = c.SaleRange()
	require.True(t, ok)
	assert.Equal(t, "2022-12-01", from.String())
	assert.Equal(t, "2023-03-31", to.String())
}

func TestCatalogBuyouts(t *testing.T) {
	c := testCatalog(t)

	// inst places every buyout ten years after sale start
	from, to, ok := c.BuyoutRange()
	require.True(t, ok)
	assert.Equal(t, "2032-12-01", from.String())
	assert.Equal(t, "2033-02-28", to.String())

	got, ok := c.FindByBuyoutDate("EDO", domain.MustParseDate("2033-01-31"))
	require.True(t, ok)
	assert.Equal(t, domain.InstrumentID("EDO0133"), got.ID)
	got, ok = c.FindByBuyoutDate("ROD", domain.MustParseDate("2032-12-01"))
	require.True(t, ok)
	assert.Equal(t, domain.InstrumentID("ROD1232"), got.ID)

	_, ok = c.FindByBuyoutDate("EDO", domain.MustParseDate("2032-11-30"))
	assert.False(t, ok)
	_, ok = c.FindByBuyoutDate("ROD", domain.MustParseDate("2033-02-01"))
	assert.False(t, ok)

	var ids []domain.InstrumentID
	for _, i := range c.BuyoutsOn(domain.MustParseDate("2033-01-05")) {
		ids = append(ids, i.ID)
	}
	assert.Equal(t, []domain.InstrumentID{"EDO0133", "ROD0133"}, ids)
}

func TestNewRejectsGap(t *testing.T) {
	c, err := New([]domain.Instrument{
		inst("EDO1232", "2022-12-01", "2022-12-31"),
		inst("EDO0233", "2023-02-01", "2023-02-28"),
	}, "test")
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrContinuity)
}

func TestNewAcceptsSeriesSoldSideBySide(t *testing.T) {
	c, err := New([]domain.Instrument{
		inst("EDO1232", "2022-12-01", "2022-12-31"),
		inst("ROD1232", "2022-12-01", "2022-12-31"),
		inst("EDO0133", "2023-01-01", "2023-01-31"),
		inst("ROD0133", "2023-01-01", "2023-01-31"),
	}, "test")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())
}

func TestNewRejectsGapInsideOneSeries(t *testing.T) {
	c, err := New([]domain.Instrument{
		inst("EDO1232", "2022-12-01", "2022-12-31"),
		inst("EDO0133", "2023-01-01", "2023-01-31"),
		inst("ROD1232", "2022-12-01", "2022-12-31"),
		inst("ROD0233", "2023-02-01", "2023-02-28"),
	}, "test")
	assert.Nil(t, c)

	var ce *ContinuityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.InstrumentID("ROD1232"), ce.Previous)
	assert.Equal(t, domain.InstrumentID("ROD0233"), ce.Next)
	assert.Contains(t, err.Error(), "ROD1232")
	assert.Contains(t, err.Error(), "ROD0233")
}

func TestNewRejectsDuplicateID(t *testing.T) {
	_, err := New([]domain.Instrument{
		inst("EDO1232", "2022-12-01", "2022-12-31"),
		inst("EDO1232", "2023-01-01", "2023-01-31"),
	}, "test")
	assert.ErrorContains(t, err, "duplicate instrument id EDO1232")
}

func TestNewEmpty(t *testing.T) {
	c, err := New(nil, "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.ListIDs())
	_, _, ok := c.SaleRange()
	assert.False(t, ok)
	_, _, ok = c.BuyoutRange()
	assert.False(t, ok)
	_, ok = c.FindBySaleDate("EDO", domain.MustParseDate("2023-01-01"))
	assert.False(t, ok)
	assert.Empty(t, c.OnSaleOn(domain.MustParseDate("2023-01-01")))
}

func TestAssemble(t *testing.T) {
	def := inst("EDO1233", "2023-12-01", "2023-12-31").InstrumentDefinition
	def.AnnualRates = []decimal.Decimal{decimal.RequireFromString("0.0725"), decimal.RequireFromString("0.07")}

	got := Assemble(def)
	assert.Equal(t, def, got.InstrumentDefinition)
	require.Len(t, got.Values, 732)
	assert.True(t, got.Values[0].Equal(domain.BaseValue))
	assert.Equal(t, "114.76", got.Values[731].String())
}

func TestHolderSwap(t *testing.T) {
	first := testCatalog(t)
	h := NewHolder(first)
	assert.Same(t, first, h.Current())

	second, err := New(nil, "empty")
	require.NoError(t, err)
	assert.Same(t, first, h.Swap(second))
	assert.Same(t, second, h.Current())
}
