package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	logisticsModels "aurum/internal/logistics/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/httputil"
)

type LogisticsService interface {
	Dispatch(ctx context.Context, billID domain.BillID, productIDs []domain.ProductID) (*logisticsModels.Package, error)
	VerifyAndDeliver(ctx context.Context, trackingID string, verified []domain.ProductID) (*logisticsModels.Package, error)
	GetByTracking(ctx context.Context, trackingID string) (*logisticsModels.Package, error)
	ListByBill(ctx context.Context, billID domain.BillID) ([]*logisticsModels.Package, error)
}

type LogisticsHandler struct {
	logistics LogisticsService
	logger    *slog.Logger
}

func NewLogisticsHandler(logistics LogisticsService, logger *slog.Logger) *LogisticsHandler {
	return &LogisticsHandler{logistics: logistics, logger: logger}
}

func (h *LogisticsHandler) Register(r chi.Router) {
	r.Post("/packages", h.handleDispatch)
	r.Get("/packages/{tracking}", h.handleGet)
	r.Post("/packages/{tracking}/deliver", h.handleDeliver)
	r.Get("/bills/{id}/packages", h.handleListByBill)
}

func (h *LogisticsHandler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[DispatchRequest](w, r, h.logger)
	if !ok {
		return
	}
	pkg, err := h.logistics.Dispatch(r.Context(), req.billID, req.productIDs)
	if err != nil {
		writeServiceError(w, r, h.logger, "dispatch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, pkg)
}

func (h *LogisticsHandler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[DeliverRequest](w, r, h.logger)
	if !ok {
		return
	}
	pkg, err := h.logistics.VerifyAndDeliver(r.Context(), chi.URLParam(r, "tracking"), req.verified)
	if err != nil {
		writeServiceError(w, r, h.logger, "delivery failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pkg)
}

func (h *LogisticsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.logistics.GetByTracking(r.Context(), chi.URLParam(r, "tracking"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get package failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pkg)
}

func (h *LogisticsHandler) handleListByBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseBillID)
	if !ok {
		return
	}
	pkgs, err := h.logistics.ListByBill(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "list packages failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"packages": pkgs})
}
