package catalog

import "sync/atomic"

// Holder publishes the current catalog. Readers never see a partially built
// catalog: a rebuild produces a new *Catalog which is swapped in whole.
type Holder struct {
	current atomic.Pointer[Catalog]
}

func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.current.Store(c)
	return h
}

// Current returns the published catalog.
func (h *Holder) Current() *Catalog { return h.current.Load() }

// Swap publishes c and returns the catalog it replaced.
func (h *Holder) Swap(c *Catalog) *Catalog { return h.current.Swap(c) }
