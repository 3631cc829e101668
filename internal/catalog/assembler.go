package catalog

import (
	"retailbonds/internal/valuation"
	"retailbonds/pkg/contracts/domain"
)

// Assemble derives the value history of def.
func Assemble(def domain.InstrumentDefinition) domain.Instrument {
	return domain.Instrument{
		InstrumentDefinition: def,
		Values:               valuation.Generate(domain.BaseValue, def.AnnualRates, def.SaleStart),
	}
}
