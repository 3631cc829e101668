package http

import (
	"context"

	"retailbonds/internal/services"
	"retailbonds/pkg/contracts/domain"
)

// BondServiceInterface is the catalog view the bond handler depends on.
type BondServiceInterface interface {
	ListInstrumentIDs(ctx context.Context) []string
	GetInstrument(ctx context.Context, id string) (domain.Instrument, bool)
	InstrumentCSV(ctx context.Context, id string) (string, bool)
	InstrumentsOnSale(ctx context.Context, day, series string) ([]domain.Instrument, error)
	InstrumentsForBuyout(ctx context.Context, day, series string) ([]domain.Instrument, error)
	CatalogSummary(ctx context.Context) services.Summary
}
