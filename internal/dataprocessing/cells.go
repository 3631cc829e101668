package dataprocessing

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"retailbonds/pkg/contracts/domain"
)

// CellKind is the type of a spreadsheet cell after reading.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
	CellBool
)

// Cell is one typed spreadsheet value.
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
	Bool bool
}

func StringCell(s string) Cell  { return Cell{Kind: CellString, Str: s} }
func NumberCell(n float64) Cell { return Cell{Kind: CellNumber, Num: n} }
func BoolCell(b bool) Cell      { return Cell{Kind: CellBool, Bool: b} }

// excelEpoch is day zero of the 1900 date system for days after 1900-03-01.
var excelEpoch = domain.NewDate(1899, time.December, 30)

// DateCell stores d the way a spreadsheet does, as a serial day number.
func DateCell(d domain.Date) Cell {
	return NumberCell(float64(excelEpoch.DaysUntil(d)))
}

var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Date interprets the cell as a date/time value. Numbers are spreadsheet
// serial dates; strings must be ISO formatted.
func (c Cell) Date() (domain.Date, bool) {
	switch c.Kind {
	case CellNumber:
		if c.Num <= 0 {
			return domain.Date{}, false
		}
		t, err := excelize.ExcelDateToTime(c.Num, false)
		if err != nil {
			return domain.Date{}, false
		}
		return domain.DateOf(t), true
	case CellString:
		s := strings.TrimSpace(c.Str)
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return domain.DateOf(t), true
			}
		}
	}
	return domain.Date{}, false
}

// Rate interprets the cell as an annual rate rounded to the stored precision.
func (c Cell) Rate() (decimal.Decimal, bool) {
	if c.Kind != CellNumber {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(c.Num).Round(domain.RatePrecision), true
}

// cellFromRaw classifies a raw excelize value using its cell type.
func cellFromRaw(raw string, typ excelize.CellType) Cell {
	if raw == "" {
		return Cell{}
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return StringCell(raw)
	case excelize.CellTypeBool:
		return BoolCell(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeDate:
		return StringCell(raw)
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return NumberCell(n)
		}
		return StringCell(raw)
	}
	return Cell{}
}
