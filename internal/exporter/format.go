package exporter

import (
	"github.com/shopspring/decimal"

	"retailbonds/pkg/contracts/domain"
)

// Header is the first row of every series projection.
var Header = []string{"date", "value"}

// formatValue renders v in its shortest exact form: 100, 100.5, 100.25.
func formatValue(v decimal.Decimal) string { return v.String() }

func formatDate(d domain.Date) string { return d.String() }
