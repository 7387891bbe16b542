package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/httputil"
)

type AuditService interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Entry, error)
	ListIncidents(ctx context.Context, status audit.Status) ([]audit.Entry, error)
	Resolve(ctx context.Context, id domain.AuditID, note string) (audit.Entry, error)
}

type AuditHandler struct {
	audit  AuditService
	logger *slog.Logger
}

func NewAuditHandler(audit AuditService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

func (h *AuditHandler) Register(r chi.Router) {
	r.Get("/audit", h.handleRecent)
	r.Get("/audit/incidents", h.handleIncidents)
	r.Post("/audit/incidents/{id}/resolve", h.handleResolve)
}

func (h *AuditHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	entries, err := h.audit.ListRecent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, "list audit entries failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *AuditHandler) handleIncidents(w http.ResponseWriter, r *http.Request) {
	status := audit.Status(strings.ToUpper(r.URL.Query().Get("status")))
	entries, err := h.audit.ListIncidents(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, h.logger, "list incidents failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"incidents": entries})
}

func (h *AuditHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseAuditID)
	if !ok {
		return
	}
	req, ok := decode[ResolveRequest](w, r, h.logger)
	if !ok {
		return
	}
	entry, err := h.audit.Resolve(r.Context(), id, strings.TrimSpace(req.Note))
	if err != nil {
		writeServiceError(w, r, h.logger, "resolve incident failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}
