package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	inventoryModels "aurum/internal/inventory/models"
	inventoryService "aurum/internal/inventory/service"
	"aurum/pkg/domain"
	"aurum/pkg/platform/httputil"
)

type InventoryService interface {
	Intake(ctx context.Context, in inventoryService.IntakeInput) (*inventoryModels.Product, error)
	Allot(ctx context.Context, productID domain.ProductID, customerID domain.CustomerID) (*inventoryModels.Product, error)
	BulkAllot(ctx context.Context, productIDs []domain.ProductID, customerID domain.CustomerID) ([]*inventoryModels.Product, error)
	VerifyAllotment(ctx context.Context, productID domain.ProductID) (*inventoryModels.Product, error)
	CustomerConfirm(ctx context.Context, productID domain.ProductID, match bool, note string) (*inventoryModels.Product, error)
	Suspend(ctx context.Context, productIDs []domain.ProductID, reason string) ([]*inventoryModels.Product, error)
	Scan(ctx context.Context, in inventoryService.ScanInput) (*inventoryModels.Product, error)
	Get(ctx context.Context, productID domain.ProductID) (*inventoryModels.Product, error)
	List(ctx context.Context, filter inventoryService.ListFilter) ([]*inventoryModels.Product, error)
}

// InventoryHandler serves the product custody chain up to billing.
type InventoryHandler struct {
	inventory InventoryService
	logger    *slog.Logger
}

func NewInventoryHandler(inventory InventoryService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, logger: logger}
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Get("/products", h.handleList)
	r.Post("/products", h.handleIntake)
	r.Post("/products/allot", h.handleBulkAllot)
	r.Post("/products/suspend", h.handleSuspend)
	r.Post("/products/scan", h.handleScan)
	r.Get("/products/{id}", h.handleGet)
	r.Post("/products/{id}/allot", h.handleAllot)
	r.Post("/products/{id}/verify-allotment", h.handleVerifyAllotment)
	r.Post("/products/{id}/confirm", h.handleConfirm)
}

func (h *InventoryHandler) handleIntake(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[IntakeRequest](w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.inventory.Intake(r.Context(), inventoryService.IntakeInput{
		Barcode:     req.Barcode,
		BatchID:     req.BatchID,
		Type:        req.Type,
		Purity:      req.Purity,
		TotalWeight: req.TotalWeight,
		StoneWeight: req.StoneWeight,
		GoldWeight:  req.GoldWeight,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "product intake failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *InventoryHandler) handleAllot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseProductID)
	if !ok {
		return
	}
	req, ok := decode[AllotRequest](w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.inventory.Allot(r.Context(), id, req.customerID)
	if err != nil {
		writeServiceError(w, r, h.logger, "allotment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *InventoryHandler) handleBulkAllot(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[BulkAllotRequest](w, r, h.logger)
	if !ok {
		return
	}
	products, err := h.inventory.BulkAllot(r.Context(), req.productIDs, req.customerID)
	if err != nil {
		writeServiceError(w, r, h.logger, "bulk allotment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *InventoryHandler) handleVerifyAllotment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseProductID)
	if !ok {
		return
	}
	p, err := h.inventory.VerifyAllotment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "allotment verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *InventoryHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseProductID)
	if !ok {
		return
	}
	req, ok := decode[ConfirmRequest](w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.inventory.CustomerConfirm(r.Context(), id, *req.Match, req.Note)
	if err != nil {
		writeServiceError(w, r, h.logger, "customer confirmation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *InventoryHandler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[SuspendRequest](w, r, h.logger)
	if !ok {
		return
	}
	products, err := h.inventory.Suspend(r.Context(), req.productIDs, req.Reason)
	if err != nil {
		writeServiceError(w, r, h.logger, "suspend failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *InventoryHandler) handleScan(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[ScanRequest](w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.inventory.Scan(r.Context(), inventoryService.ScanInput{
		Barcode:   req.Barcode,
		ProductID: req.productID,
		Location:  req.Location,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "scan failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *InventoryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseProductID)
	if !ok {
		return
	}
	p, err := h.inventory.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get product failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// handleList accepts ?status= and ?customer_id= filters.
func (h *InventoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	var filter inventoryService.ListFilter
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status, err := inventoryModels.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}
	if raw := q.Get("customer_id"); raw != "" {
		id, err := domain.ParseCustomerID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.CustomerID = id
	}
	products, err := h.inventory.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, "list products failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}
