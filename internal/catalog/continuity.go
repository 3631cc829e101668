package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"retailbonds/pkg/contracts/domain"
)

// ErrContinuity matches every *ContinuityError with errors.Is.
var ErrContinuity = errors.New("sale windows are not continuous")

// ContinuityError names the first adjacent pair whose sale windows do not
// meet: Previous ends on PreviousSaleEnd but Next starts on NextSaleStart.
type ContinuityError struct {
	Previous        domain.InstrumentID
	Next            domain.InstrumentID
	PreviousSaleEnd domain.Date
	NextSaleStart   domain.Date
}

func (e *ContinuityError) Error() string {
	kind := "gap"
	if !e.NextSaleStart.After(e.PreviousSaleEnd) {
		kind = "overlap"
	}
	return fmt.Sprintf("sale %s: %s ends %s + 1 day != %s starts %s",
		kind, e.Previous, e.PreviousSaleEnd, e.Next, e.NextSaleStart)
}

func (e *ContinuityError) Is(target error) bool { return target == ErrContinuity }

// sortBySaleStart orders instruments by sale start, then id.
func sortBySaleStart(instruments []domain.Instrument) {
	slices.SortStableFunc(instruments, func(a, b domain.Instrument) int {
		if c := a.SaleStart.Compare(b.SaleStart); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
}

// ValidateContinuity checks that the sale windows tile the calendar: sorted by
// sale start, every instrument's sale end is the day before the next one's
// sale start. instruments is sorted in place.
func ValidateContinuity(instruments []domain.Instrument) error {
	sortBySaleStart(instruments)
	for i := 1; i < len(instruments); i++ {
		prev, next := instruments[i-1], instruments[i]
		if !prev.SaleEnd.AddDays(1).Equal(next.SaleStart) {
			return &ContinuityError{
				Previous:        prev.ID,
				Next:            next.ID,
				PreviousSaleEnd: prev.SaleEnd,
				NextSaleStart:   next.SaleStart,
			}
		}
	}
	return nil
}

// ValidateSeriesContinuity applies ValidateContinuity to every series on its
// own, in label order. Series are sold side by side, so only instruments of
// the same series have to tile the calendar. instruments is not modified.
func ValidateSeriesContinuity(instruments []domain.Instrument) error {
	for _, group := range groupBySeries(instruments) {
		if err := ValidateContinuity(group.instruments); err != nil {
			return err
		}
	}
	return nil
}

type seriesGroup struct {
	label       string
	instruments []domain.Instrument
}

// groupBySeries splits instruments by series. Groups are ordered by label and
// each group is sorted by sale start.
func groupBySeries(instruments []domain.Instrument) []seriesGroup {
	index := make(map[string]int)
	var groups []seriesGroup
	for _, inst := range instruments {
		i, ok := index[inst.Series]
		if !ok {
			i = len(groups)
			index[inst.Series] = i
			groups = append(groups, seriesGroup{label: inst.Series})
		}
		groups[i].instruments = append(groups[i].instruments, inst)
	}
	slices.SortFunc(groups, func(a, b seriesGroup) int { return strings.Compare(a.label, b.label) })
	for _, g := range groups {
		sortBySaleStart(g.instruments)
	}
	return groups
}
