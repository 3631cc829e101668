package catalog

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"retailbonds/pkg/contracts/domain"
)

func inst(id, start, end string) domain.Instrument {
	s := domain.MustParseDate(start)
	return domain.Instrument{InstrumentDefinition: domain.InstrumentDefinition{
		ID:         domain.InstrumentID(id),
		Series:     id[:3],
		SaleStart:  s,
		SaleEnd:    domain.MustParseDate(end),
		BuyoutDate: s.AddYears(10),
	}}
}

func TestValidateContinuityAdjacent(t *testing.T) {
	a := inst("EDO1232", "2022-12-01", "2022-12-31")
	b := inst("EDO0133", "2023-01-01", "2023-01-31")
	assert.NoError(t, ValidateContinuity([]domain.Instrument{b, a}))
}

func TestValidateContinuityGap(t *testing.T) {
	a := inst("EDO1232", "2022-12-01", "2022-12-31")
	b := inst("EDO0133", "2023-01-02", "2023-01-31")

	err := ValidateContinuity([]domain.Instrument{a, b})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContinuity))

	var ce *ContinuityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.InstrumentID("EDO1232"), ce.Previous)
	assert.Equal(t, domain.InstrumentID("EDO0133"), ce.Next)
	assert.Equal(t, "2022-12-31", ce.PreviousSaleEnd.String())
	assert.Equal(t, "2023-01-02", ce.NextSaleStart.String())
	assert.Contains(t, err.Error(), "gap")
	assert.Contains(t, err.Error(), "EDO1232")
	assert.Contains(t, err.Error(), "EDO0133")
}

func TestValidateContinuityOverlap(t *testing.T) {
	err := ValidateContinuity([]domain.Instrument{
		inst("EDO1232", "2022-12-01", "2023-01-05"),
		inst("EDO0133", "2023-01-01", "2023-01-31"),
	})
	assert.ErrorIs(t, err, ErrContinuity)
	assert.Contains(t, err.Error(), "overlap")
}

func TestValidateContinuityReportsFirstViolation(t *testing.T) {
	err := ValidateContinuity([]domain.Instrument{
		inst("EDO0333", "2023-03-05", "2023-03-31"),
		inst("EDO0133", "2023-01-01", "2023-01-31"),
		inst("EDO0233", "2023-02-02", "2023-02-28"),
	})
	var ce *ContinuityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.InstrumentID("EDO0133"), ce.Previous)
	assert.Equal(t, domain.InstrumentID("EDO0233"), ce.Next)
}

func TestValidateContinuityTrivial(t *testing.T) {
	assert.NoError(t, ValidateContinuity(nil))
	assert.NoError(t, ValidateContinuity([]domain.Instrument{inst("EDO0133", "2023-01-01", "2023-01-31")}))
}

func TestValidateSeriesContinuity(t *testing.T) {
	shared := []domain.Instrument{
		inst("EDO1232", "2022-12-01", "2022-12-31"),
		inst("ROD1232", "2022-12-01", "2022-12-31"),
		inst("ROD0133", "2023-01-01", "2023-01-31"),
		inst("EDO0133", "2023-01-01", "2023-01-31"),
	}
	before := slices.Clone(shared)
	require.NoError(t, ValidateSeriesContinuity(shared))
	assert.Equal(t, before, shared)

	// the same windows fail once the two series are checked as one timeline
	assert.ErrorIs(t, ValidateContinuity(slices.Clone(shared)), ErrContinuity)

	err := ValidateSeriesContinuity(append(shared, inst("EDO0333", "2023-03-01", "2023-03-31")))
	var ce *ContinuityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.InstrumentID("EDO0133"), ce.Previous)
	assert.Equal(t, domain.InstrumentID("EDO0333"), ce.Next)
}

// monthly builds n back to back monthly instruments starting at first.
func monthly(first domain.Date, n int) []domain.Instrument {
	out := make([]domain.Instrument, n)
	start := first
	for i := range out {
		end := domain.NewDate(start.Year(), start.Month()+1, 1).AddDays(-1)
		out[i] = inst(fmt.Sprintf("EDO%04d", i), start.String(), end.String())
		start = end.AddDays(1)
	}
	return out
}

func TestValidateContinuityProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 40).Draw(t, "n")
		series := monthly(domain.MustParseDate("2015-01-01"), n)

		shuffled := make([]domain.Instrument, n)
		for i, j := range rapid.Permutation(makeRange(n)).Draw(t, "order") {
			shuffled[i] = series[j]
		}
		if err := ValidateContinuity(shuffled); err != nil {
			t.Fatalf("tiling rejected: %v", err)
		}
		for i := 1; i < n; i++ {
			if !shuffled[i-1].SaleEnd.AddDays(1).Equal(shuffled[i].SaleStart) {
				t.Fatalf("not sorted at %d", i)
			}
		}

		// shifting any later instrument breaks the tiling
		k := rapid.IntRange(1, n-1).Draw(t, "broken")
		shift := rapid.SampledFrom([]int{-1, 1}).Draw(t, "shift")
		broken := monthly(domain.MustParseDate("2015-01-01"), n)
		broken[k].SaleStart = broken[k].SaleStart.AddDays(shift)
		if err := ValidateContinuity(broken); !errors.Is(err, ErrContinuity) {
			t.Fatalf("broken tiling accepted: %v", err)
		}
	})
}

func makeRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
