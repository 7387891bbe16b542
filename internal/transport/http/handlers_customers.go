package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	customerModels "aurum/internal/customer/models"
	customerService "aurum/internal/customer/service"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
)

type CustomerService interface {
	Register(ctx context.Context, in customerService.Input) (*customerModels.Customer, error)
	Create(ctx context.Context, in customerService.Input) (*customerModels.Customer, error)
	Activate(ctx context.Context, id domain.CustomerID) (*customerModels.Customer, error)
	Ban(ctx context.Context, id domain.CustomerID) (*customerModels.Customer, error)
	Get(ctx context.Context, id domain.CustomerID) (*customerModels.Customer, error)
	List(ctx context.Context, status customerModels.Status) ([]*customerModels.Customer, error)
}

type CustomerHandler struct {
	customers CustomerService
	logger    *slog.Logger
}

func NewCustomerHandler(customers CustomerService, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{customers: customers, logger: logger}
}

// RegisterPublic mounts self-registration, which needs no session.
func (h *CustomerHandler) RegisterPublic(r chi.Router) {
	r.Post("/customers/register", h.handleRegister)
}

func (h *CustomerHandler) Register(r chi.Router) {
	r.Get("/customers", h.handleList)
	r.Post("/customers", h.handleCreate)
	r.Get("/customers/{id}", h.handleGet)
	r.Post("/customers/{id}/activate", h.handleActivate)
	r.Post("/customers/{id}/ban", h.handleBan)
}

func (h *CustomerHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.customers.Register, "customer registration failed")
}

func (h *CustomerHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.customers.Create, "create customer failed")
}

func (h *CustomerHandler) create(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, customerService.Input) (*customerModels.Customer, error), msg string,
) {
	req, ok := decode[CustomerRequest](w, r, h.logger)
	if !ok {
		return
	}
	c, err := fn(r.Context(), customerService.Input{Name: req.Name, Phone: req.Phone, City: req.City})
	if err != nil {
		writeServiceError(w, r, h.logger, msg, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *CustomerHandler) handleList(w http.ResponseWriter, r *http.Request) {
	status := customerModels.Status(strings.ToUpper(r.URL.Query().Get("status")))
	switch status {
	case "", customerModels.StatusPending, customerModels.StatusActive, customerModels.StatusBanned:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "status must be PENDING, ACTIVE or BANNED"))
		return
	}
	customers, err := h.customers.List(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, h.logger, "list customers failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (h *CustomerHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.customers.Get, "get customer failed")
}

func (h *CustomerHandler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.customers.Activate, "activate customer failed")
}

func (h *CustomerHandler) handleBan(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.customers.Ban, "ban customer failed")
}

func (h *CustomerHandler) byID(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, domain.CustomerID) (*customerModels.Customer, error), msg string,
) {
	id, ok := pathID(w, r, "id", domain.ParseCustomerID)
	if !ok {
		return
	}
	c, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, msg, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}
