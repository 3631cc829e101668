package catalog

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"retailbonds/pkg/contracts/domain"
)

// Catalog is an immutable set of instruments keyed by id. A Catalog is never
// modified after New returns, so it may be read from any number of
// goroutines without locking.
type Catalog struct {
	byID     map[domain.InstrumentID]domain.Instrument
	ids      []domain.InstrumentID
	bySale   []domain.Instrument
	bySeries map[string][]domain.Instrument
	series   []string
	source   string
	builtAt  time.Time
}

// New validates instruments and freezes them into a Catalog. It fails on a
// duplicate id or on a continuity violation inside a series; no partial
// catalog is returned.
func New(instruments []domain.Instrument, source string) (*Catalog, error) {
	if err := ValidateSeriesContinuity(instruments); err != nil {
		return nil, err
	}

	sorted := slices.Clone(instruments)
	sortBySaleStart(sorted)

	c := &Catalog{
		byID:     make(map[domain.InstrumentID]domain.Instrument, len(sorted)),
		ids:      make([]domain.InstrumentID, 0, len(sorted)),
		bySale:   sorted,
		bySeries: make(map[string][]domain.Instrument),
		source:   source,
		builtAt:  time.Now(),
	}
	for _, inst := range sorted {
		if _, dup := c.byID[inst.ID]; dup {
			return nil, fmt.Errorf("duplicate instrument id %s", inst.ID)
		}
		c.byID[inst.ID] = inst
		c.ids = append(c.ids, inst.ID)
	}
	for _, g := range groupBySeries(sorted) {
		c.bySeries[g.label] = g.instruments
		c.series = append(c.series, g.label)
	}
	slices.Sort(c.ids)
	return c, nil
}

// ListIDs returns every id in ascending order. The slice is a copy.
func (c *Catalog) ListIDs() []domain.InstrumentID { return slices.Clone(c.ids) }

// Get returns the instrument with the given id. A missing id is reported
// with ok == false and is not an error.
func (c *Catalog) Get(id domain.InstrumentID) (domain.Instrument, bool) {
	inst, ok := c.byID[id]
	return inst, ok
}

func (c *Catalog) Len() int { return len(c.ids) }

// Series lists the series labels present, sorted.
func (c *Catalog) Series() []string { return slices.Clone(c.series) }

func (c *Catalog) Source() string     { return c.source }
func (c *Catalog) BuiltAt() time.Time { return c.builtAt }

// SaleRange returns the first sale start and the last sale end over all
// series.
func (c *Catalog) SaleRange() (from, to domain.Date, ok bool) {
	return c.dateRange(
		func(d domain.InstrumentDefinition) domain.Date { return d.SaleStart },
		func(d domain.InstrumentDefinition) domain.Date { return d.SaleEnd })
}

// BuyoutRange returns the first buyout date and the last day of any buyout
// window over all series.
func (c *Catalog) BuyoutRange() (from, to domain.Date, ok bool) {
	return c.dateRange(
		func(d domain.InstrumentDefinition) domain.Date { return d.BuyoutDate },
		domain.InstrumentDefinition.BuyoutEnd)
}

func (c *Catalog) dateRange(start, end func(domain.InstrumentDefinition) domain.Date) (from, to domain.Date, ok bool) {
	if len(c.bySale) == 0 {
		return domain.Date{}, domain.Date{}, false
	}
	from, to = start(c.bySale[0].InstrumentDefinition), end(c.bySale[0].InstrumentDefinition)
	for _, inst := range c.bySale[1:] {
		if s := start(inst.InstrumentDefinition); s.Before(from) {
			from = s
		}
		if e := end(inst.InstrumentDefinition); e.After(to) {
			to = e
		}
	}
	return from, to, true
}

// FindBySaleDate returns the instrument of series that was on sale on day.
func (c *Catalog) FindBySaleDate(series string, day domain.Date) (domain.Instrument, bool) {
	return find(c.bySeries[series], day,
		func(d domain.InstrumentDefinition) domain.Date { return d.SaleStart },
		domain.InstrumentDefinition.OnSale)
}

// FindByBuyoutDate returns the instrument of series whose buyout window
// holds day. Where a leap day makes two windows touch, the later instrument
// wins.
func (c *Catalog) FindByBuyoutDate(series string, day domain.Date) (domain.Instrument, bool) {
	return find(c.bySeries[series], day,
		func(d domain.InstrumentDefinition) domain.Date { return d.BuyoutDate },
		domain.InstrumentDefinition.InBuyout)
}

// OnSaleOn returns, in series order, every instrument on sale on day.
func (c *Catalog) OnSaleOn(day domain.Date) []domain.Instrument {
	return c.collect(day, c.FindBySaleDate)
}

// BuyoutsOn returns, in series order, every instrument whose buyout window
// holds day.
func (c *Catalog) BuyoutsOn(day domain.Date) []domain.Instrument {
	return c.collect(day, c.FindByBuyoutDate)
}

func (c *Catalog) collect(day domain.Date, lookup func(string, domain.Date) (domain.Instrument, bool)) []domain.Instrument {
	var out []domain.Instrument
	for _, label := range c.series {
		if inst, ok := lookup(label, day); ok {
			out = append(out, inst)
		}
	}
	return out
}

// find searches a series timeline, sorted by start, for the window holding day.
func find(timeline []domain.Instrument, day domain.Date, start func(domain.InstrumentDefinition) domain.Date, holds func(domain.InstrumentDefinition, domain.Date) bool) (domain.Instrument, bool) {
	// first instrument starting after day; the candidate is the one before it
	i := sort.Search(len(timeline), func(i int) bool { return start(timeline[i].InstrumentDefinition).After(day) })
	if i == 0 {
		return domain.Instrument{}, false
	}
	inst := timeline[i-1]
	if !holds(inst.InstrumentDefinition, day) {
		return domain.Instrument{}, false
	}
	return inst, true
}

// InSaleOrder returns the instruments sorted by sale start, then id.
func (c *Catalog) InSaleOrder() []domain.Instrument { return slices.Clone(c.bySale) }
