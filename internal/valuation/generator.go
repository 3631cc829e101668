package valuation

import (
	"github.com/shopspring/decimal"

	"retailbonds/pkg/contracts/domain"
)

// Round2 rounds v to two fractional digits, half away from zero.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(domain.ValuePrecision)
}

// RoundRate rounds an annual rate to the stored precision.
func RoundRate(r decimal.Decimal) decimal.Decimal {
	return r.Round(domain.RatePrecision)
}

// DaysInYear returns the length in days of interest year i counted from start.
func DaysInYear(start domain.Date, i int) int {
	from := start.AddYears(i)
	return from.DaysUntil(from.AddYears(1))
}

// ExpectedLength is the length of the history Generate returns for the given
// number of rate years.
func ExpectedLength(start domain.Date, years int) int {
	n := 1
	for i := 0; i < years; i++ {
		n += DaysInYear(start, i)
	}
	return n
}

// Generate returns the daily value history. The first element is base, the
// k-th element is the value on start.AddDays(k). One rate covers one year; an
// empty rate list yields just [base].
func Generate(base decimal.Decimal, rates []decimal.Decimal, start domain.Date) []decimal.Decimal {
	values := make([]decimal.Decimal, 1, ExpectedLength(start, len(rates)))
	values[0] = base

	anchor := base
	for i, rate := range rates {
		days := DaysInYear(start, i)
		perDay := anchor.Mul(rate)
		length := decimal.NewFromInt(int64(days))
		for day := 1; day <= days; day++ {
			accrued := perDay.Mul(decimal.NewFromInt(int64(day))).Div(length)
			values = append(values, Round2(anchor.Add(accrued)))
		}
		anchor = values[len(values)-1]
	}
	return values
}
