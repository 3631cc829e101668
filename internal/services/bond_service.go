package services

import (
	"context"
	"fmt"
	"log/slog"

	"retailbonds/internal/catalog"
	"retailbonds/internal/exporter"
	"retailbonds/internal/infrastructure"
	"retailbonds/pkg/contracts/domain"
)

// BondService answers instrument queries from the published catalog.
type BondService struct {
	holder  *catalog.Holder
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewBondService creates a service reading from holder, which must already
// hold a catalog. metrics may be nil.
func NewBondService(holder *catalog.Holder, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *BondService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BondService{
		holder:  holder,
		metrics: metrics,
		logger:  logger.With(slog.String("service", "bond")),
	}
}

// ListInstrumentIDs returns every instrument id in ascending order.
func (s *BondService) ListInstrumentIDs(ctx context.Context) []string {
	ids := s.holder.Current().ListIDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// GetInstrument returns one instrument with its value history. An unknown id
// yields ok == false.
func (s *BondService) GetInstrument(ctx context.Context, id string) (domain.Instrument, bool) {
	inst, ok := s.holder.Current().Get(domain.InstrumentID(id))
	infrastructure.RecordBondLookup(ctx, s.metrics, ok)
	if !ok {
		s.logger.DebugContext(ctx, "instrument not found", slog.String("id", id))
	}
	return inst, ok
}

// InstrumentCSV returns the date,value projection of one instrument.
func (s *BondService) InstrumentCSV(ctx context.Context, id string) (string, bool) {
	inst, ok := s.GetInstrument(ctx, id)
	if !ok {
		return "", false
	}
	infrastructure.RecordCSVExport(ctx, s.metrics)
	return exporter.ToCSV(inst), true
}

// InstrumentsOnSale returns the instruments on sale on the given YYYY-MM-DD
// day, one per series in series order. A non-empty series narrows the
// answer to that series.
func (s *BondService) InstrumentsOnSale(ctx context.Context, day, series string) ([]domain.Instrument, error) {
	return s.lookupByDate(ctx, day, series, (*catalog.Catalog).OnSaleOn, (*catalog.Catalog).FindBySaleDate)
}

// InstrumentsForBuyout returns the instruments whose buyout window holds the
// given YYYY-MM-DD day, one per series in series order.
func (s *BondService) InstrumentsForBuyout(ctx context.Context, day, series string) ([]domain.Instrument, error) {
	return s.lookupByDate(ctx, day, series, (*catalog.Catalog).BuyoutsOn, (*catalog.Catalog).FindByBuyoutDate)
}

func (s *BondService) lookupByDate(
	ctx context.Context,
	day, series string,
	all func(*catalog.Catalog, domain.Date) []domain.Instrument,
	one func(*catalog.Catalog, string, domain.Date) (domain.Instrument, bool),
) ([]domain.Instrument, error) {
	d, err := domain.ParseDate(day)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	c := s.holder.Current()

	var found []domain.Instrument
	if series == "" {
		found = all(c, d)
	} else if inst, ok := one(c, series, d); ok {
		found = []domain.Instrument{inst}
	}
	infrastructure.RecordBondLookup(ctx, s.metrics, len(found) > 0)
	return found, nil
}

// Summary describes the published catalog.
type Summary struct {
	Instruments int         `json:"instruments"`
	Series      []string    `json:"series"`
	SaleFrom    domain.Date `json:"sale_from,omitzero"`
	SaleTo      domain.Date `json:"sale_to,omitzero"`
	BuyoutFrom  domain.Date `json:"buyout_from,omitzero"`
	BuyoutTo    domain.Date `json:"buyout_to,omitzero"`
	Source      string      `json:"source"`
	BuiltAt     string      `json:"built_at"`
}

// CatalogSummary reports size, series and date ranges of the catalog.
func (s *BondService) CatalogSummary(ctx context.Context) Summary {
	c := s.holder.Current()
	sum := Summary{
		Instruments: c.Len(),
		Series:      c.Series(),
		Source:      c.Source(),
		BuiltAt:     c.BuiltAt().UTC().Format("2006-01-02T15:04:05Z"),
	}
	if from, to, ok := c.SaleRange(); ok {
		sum.SaleFrom, sum.SaleTo = from, to
	}
	if from, to, ok := c.BuyoutRange(); ok {
		sum.BuyoutFrom, sum.BuyoutTo = from, to
	}
	return sum
}
