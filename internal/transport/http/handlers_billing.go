package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	billingModels "aurum/internal/billing/models"
	billingService "aurum/internal/billing/service"
	inventoryModels "aurum/internal/inventory/models"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
)

type BillingService interface {
	CreateBill(ctx context.Context, in billingService.CreateBillInput) (*billingModels.Bill, error)
	CreateSplitBills(ctx context.Context, in billingService.SplitInput) ([]*billingModels.Bill, error)
	SettlePayment(ctx context.Context, billID domain.BillID, mode billingModels.PaymentMode) (*billingModels.Bill, error)
	ToggleGoldReceived(ctx context.Context, billID domain.BillID) (*billingModels.Bill, error)
	Get(ctx context.Context, billID domain.BillID) (*billingModels.Bill, error)
	List(ctx context.Context, filter billingService.ListFilter) ([]*billingModels.Bill, error)
	Queue(ctx context.Context, customerID domain.CustomerID) ([]*inventoryModels.Product, error)
}

type BillingHandler struct {
	billing BillingService
	logger  *slog.Logger
}

func NewBillingHandler(billing BillingService, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, logger: logger}
}

func (h *BillingHandler) Register(r chi.Router) {
	r.Get("/bills", h.handleList)
	r.Post("/bills", h.handleCreate)
	r.Post("/bills/split", h.handleSplit)
	r.Get("/bills/queue/{customerID}", h.handleQueue)
	r.Get("/bills/{id}", h.handleGet)
	r.Post("/bills/{id}/payment", h.handleSettlePayment)
	r.Post("/bills/{id}/gold-received", h.handleToggleGold)
}

func (h *BillingHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[CreateBillRequest](w, r, h.logger)
	if !ok {
		return
	}
	bill, err := h.billing.CreateBill(r.Context(), billingService.CreateBillInput{
		CustomerID:    req.customerID,
		Mode:          req.mode,
		InvoiceNumber: req.InvoiceNumber,
		Items:         itemInputs(req.Items),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "create bill failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, bill)
}

func (h *BillingHandler) handleSplit(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[SplitBillsRequest](w, r, h.logger)
	if !ok {
		return
	}
	bills, err := h.billing.CreateSplitBills(r.Context(), billingService.SplitInput{
		CustomerID: req.customerID,
		Mode:       req.mode,
		Parts:      req.Parts,
		Items:      itemInputs(req.Items),
		Defaults:   terms(req.Defaults),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "create split bills failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"bills": bills})
}

func (h *BillingHandler) handleSettlePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseBillID)
	if !ok {
		return
	}
	req, ok := decode[PaymentRequest](w, r, h.logger)
	if !ok {
		return
	}
	bill, err := h.billing.SettlePayment(r.Context(), id, req.mode)
	if err != nil {
		writeServiceError(w, r, h.logger, "settle payment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bill)
}

func (h *BillingHandler) handleToggleGold(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseBillID)
	if !ok {
		return
	}
	bill, err := h.billing.ToggleGoldReceived(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "toggle gold received failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bill)
}

func (h *BillingHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseBillID)
	if !ok {
		return
	}
	bill, err := h.billing.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get bill failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bill)
}

func (h *BillingHandler) handleList(w http.ResponseWriter, r *http.Request) {
	var filter billingService.ListFilter
	q := r.URL.Query()
	switch status := billingModels.Status(q.Get("status")); status {
	case "", billingModels.StatusPending, billingModels.StatusCompleted:
		filter.Status = status
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "status must be PENDING or COMPLETED"))
		return
	}
	if raw := q.Get("customer_id"); raw != "" {
		id, err := domain.ParseCustomerID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.CustomerID = id
	}
	bills, err := h.billing.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, "list bills failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (h *BillingHandler) handleQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "customerID", domain.ParseCustomerID)
	if !ok {
		return
	}
	products, err := h.billing.Queue(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "billing queue failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

func itemInputs(items []BillItemRequest) []billingService.ItemInput {
	out := make([]billingService.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, billingService.ItemInput{ProductID: it.productID, Terms: terms(it.TermsRequest)})
	}
	return out
}

func terms(t TermsRequest) billingService.Terms {
	return billingService.Terms{
		Rate:             t.Rate,
		MakingPercent:    t.MakingPercent,
		FixedMakingRate:  t.FixedMakingRate,
		MakingTaxPercent: t.MakingTaxPercent,
	}
}
