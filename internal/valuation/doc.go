// Package valuation derives the daily value history of a bond from its base
// value, its per-year interest rates and its first sale day.
//
// Within one interest year the value accrues linearly off that year's anchor:
//
//	value(day) = round2(anchor + anchor*rate*day/daysInYear)
//
// where day runs from 1 to daysInYear. The last value of a year becomes the
// anchor of the next one, so interest compounds once per year. A year window
// runs from start.AddYears(i) to start.AddYears(i+1), so its length is 365 or
// 366 days depending on the calendar.
//
// Example:
//
//	values := valuation.Generate(domain.BaseValue, def.AnnualRates, def.SaleStart)
//	// values[0] == 100, values[k] is the value on def.SaleStart.AddDays(k)
package valuation
