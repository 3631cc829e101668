package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	apierrors "retailbonds/internal/errors"
	"retailbonds/internal/exporter"
	"retailbonds/internal/middleware"
	"retailbonds/internal/services"
	"retailbonds/pkg/contracts/domain"
)

// InstrumentResponse is the JSON shape of an instrument.
type InstrumentResponse struct {
	ID          string        `json:"id"`
	Series      string        `json:"series"`
	SaleStart   domain.Date   `json:"sale_start"`
	SaleEnd     domain.Date   `json:"sale_end"`
	BuyoutDate  domain.Date   `json:"buyout_date"`
	AnnualRates []json.Number `json:"annual_rates"`
	Values      []json.Number `json:"values"`
}

// NewInstrumentResponse converts an instrument for rendering.
func NewInstrumentResponse(inst domain.Instrument) *InstrumentResponse {
	return &InstrumentResponse{
		ID:          string(inst.ID),
		Series:      inst.Series,
		SaleStart:   inst.SaleStart,
		SaleEnd:     inst.SaleEnd,
		BuyoutDate:  inst.BuyoutDate,
		AnnualRates: numbers(inst.AnnualRates),
		Values:      numbers(inst.Values),
	}
}

// Render implements render.Renderer
func (ir *InstrumentResponse) Render(http.ResponseWriter, *http.Request) error { return nil }

func numbers(ds []decimal.Decimal) []json.Number {
	out := make([]json.Number, len(ds))
	for i, d := range ds {
		out[i] = json.Number(d.String())
	}
	return out
}

// BondHandler serves instrument lookups and projections.
type BondHandler struct {
	service      BondServiceInterface
	validator    *middleware.ParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewBondHandler creates a bond handler
func NewBondHandler(service BondServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *BondHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BondHandler{
		service:      service,
		validator:    middleware.NewParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "bond_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the bond routes, to be mounted under /bonds.
func (h *BondHandler) Routes() chi.Router {
	r := chi.NewRouter()

	byID := h.validator.URLParams(map[string]string{"id": middleware.InstrumentIDRule})
	byDate := h.validator.URLParams(map[string]string{"date": middleware.SaleDateRule})

	r.Get("/", h.ListBonds)
	r.With(byDate).Get("/by-date/{date}", h.GetBondsOnSale)
	r.With(byDate).Get("/by-buyout-date/{date}", h.GetBondsForBuyout)
	r.With(byID).Get("/{id}", h.GetBond)
	r.With(byID).Get("/{id}/csv", h.GetBondCSV)
	return r
}

// ListBonds handles GET /bonds
func (h *BondHandler) ListBonds(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.ListInstrumentIDs(r.Context()))
}

// GetBond handles GET /bonds/{id}
func (h *BondHandler) GetBond(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inst, ok := h.service.GetInstrument(r.Context(), id)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.BondNotFound(id))
		return
	}
	render.Render(w, r, NewInstrumentResponse(inst))
}

// GetBondCSV handles GET /bonds/{id}/csv
func (h *BondHandler) GetBondCSV(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	text, ok := h.service.InstrumentCSV(r.Context(), id)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.BondNotFound(id))
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".csv"))
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, text); err != nil {
		h.logger.WarnContext(r.Context(), "csv write aborted",
			slog.String("id", id),
			slog.String("error", err.Error()))
	}
}

// GetBondsOnSale handles GET /bonds/by-date/{date}
func (h *BondHandler) GetBondsOnSale(w http.ResponseWriter, r *http.Request) {
	h.renderByDate(w, r, h.service.InstrumentsOnSale, apierrors.NotOnSale)
}

// GetBondsForBuyout handles GET /bonds/by-buyout-date/{date}
func (h *BondHandler) GetBondsForBuyout(w http.ResponseWriter, r *http.Request) {
	h.renderByDate(w, r, h.service.InstrumentsForBuyout, apierrors.NoBuyout)
}

// renderByDate answers a date lookup, optionally narrowed by ?series=, with
// one instrument per matching series.
func (h *BondHandler) renderByDate(
	w http.ResponseWriter,
	r *http.Request,
	lookup func(ctx context.Context, day, series string) ([]domain.Instrument, error),
	notFound func(day string) *apierrors.APIError,
) {
	day := chi.URLParam(r, "date")
	found, err := lookup(r.Context(), day, r.URL.Query().Get("series"))
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("date", err))
		return
	case err != nil:
		h.errorHandler.HandleError(w, r, err)
		return
	case len(found) == 0:
		h.errorHandler.HandleError(w, r, notFound(day))
		return
	}

	list := make([]render.Renderer, len(found))
	for i, inst := range found {
		list[i] = NewInstrumentResponse(inst)
	}
	render.RenderList(w, r, list)
}

// GetCatalog handles GET /catalog
func (h *BondHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.CatalogSummary(r.Context()))
}
