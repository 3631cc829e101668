package domain

import (
	"fmt"
	"iter"

	"github.com/shopspring/decimal"
)

// RatePrecision is the number of fractional digits annual rates are stored with.
const RatePrecision = 5

// ValuePrecision is the number of fractional digits daily values are rounded to.
const ValuePrecision = 2

// BaseValue is the nominal value of every instrument on its first sale day.
var BaseValue = decimal.NewFromInt(100)

// InstrumentID identifies an instrument. IDs are case sensitive and ordered
// lexicographically. They name export files, so they never contain a path
// separator.
type InstrumentID string

func (id InstrumentID) String() string { return string(id) }

// InstrumentDefinition is an instrument as read from a source record, before
// any value has been derived.
type InstrumentDefinition struct {
	ID         InstrumentID `json:"id" validate:"required,printascii,max=32,excludesall=/\\"`
	Series     string       `json:"series" validate:"required"`
	SaleStart  Date         `json:"sale_start"`
	SaleEnd    Date         `json:"sale_end"`
	BuyoutDate Date         `json:"buyout_date"`
	// AnnualRates[i] applies during year i after SaleStart.
	AnnualRates []decimal.Decimal `json:"annual_rates"`
}

// CheckDates reports whether SaleStart < SaleEnd < BuyoutDate holds.
func (d InstrumentDefinition) CheckDates() error {
	if d.SaleStart.IsZero() || d.SaleEnd.IsZero() || d.BuyoutDate.IsZero() {
		return fmt.Errorf("instrument %s: sale start, sale end and buyout date are required", d.ID)
	}
	if !d.SaleStart.Before(d.SaleEnd) {
		return fmt.Errorf("instrument %s: sale start %s is not before sale end %s", d.ID, d.SaleStart, d.SaleEnd)
	}
	if !d.SaleEnd.Before(d.BuyoutDate) {
		return fmt.Errorf("instrument %s: sale end %s is not before buyout date %s", d.ID, d.SaleEnd, d.BuyoutDate)
	}
	return nil
}

// Instrument is a definition together with its daily value history.
// Values[k] is the value on SaleStart + k days; Values[0] is BaseValue.
type Instrument struct {
	InstrumentDefinition
	Values []decimal.Decimal `json:"values"`
}

// DateAt returns the calendar day of Values[index].
func (i Instrument) DateAt(index int) Date { return i.SaleStart.AddDays(index) }

// LastDate returns the day of the last known value.
func (i Instrument) LastDate() Date {
	if len(i.Values) == 0 {
		return i.SaleStart
	}
	return i.DateAt(len(i.Values) - 1)
}

// ValueOn returns the value on a given day, or false outside the history.
func (i Instrument) ValueOn(day Date) (decimal.Decimal, bool) {
	k := i.SaleStart.DaysUntil(day)
	if k < 0 || k >= len(i.Values) {
		return decimal.Decimal{}, false
	}
	return i.Values[k], true
}

// Points iterates over the history in chronological order.
func (i Instrument) Points() iter.Seq2[Date, decimal.Decimal] {
	return func(yield func(Date, decimal.Decimal) bool) {
		for k, v := range i.Values {
			if !yield(i.DateAt(k), v) {
				return
			}
		}
	}
}

// OnSale reports whether day falls inside [SaleStart, SaleEnd].
func (d InstrumentDefinition) OnSale(day Date) bool {
	return !day.Before(d.SaleStart) && !day.After(d.SaleEnd)
}

// TenorYears is the number of whole years between sale start and buyout.
func (d InstrumentDefinition) TenorYears() int {
	return d.BuyoutDate.Year() - d.SaleStart.Year()
}

// BuyoutEnd is the last day of the buyout window: the sale window moved
// forward by the tenor.
func (d InstrumentDefinition) BuyoutEnd() Date {
	return d.SaleEnd.AddYears(d.TenorYears())
}

// InBuyout reports whether day falls inside [BuyoutDate, BuyoutEnd].
func (d InstrumentDefinition) InBuyout(day Date) bool {
	return !day.Before(d.BuyoutDate) && !day.After(d.BuyoutEnd())
}
