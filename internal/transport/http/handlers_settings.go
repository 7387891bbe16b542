package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"aurum/internal/catalog"
	"aurum/pkg/platform/httputil"
)

type SettingsService interface {
	Get(ctx context.Context) (catalog.Settings, error)
	SetGoldRate(ctx context.Context, rate decimal.Decimal) (catalog.Settings, error)
}

// SettingsHandler serves the gold rate. The operations toggle lives on
// AuthHandler since closing revokes sessions.
type SettingsHandler struct {
	settings SettingsService
	logger   *slog.Logger
}

func NewSettingsHandler(settings SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

func (h *SettingsHandler) Register(r chi.Router) {
	r.Get("/settings", h.handleGet)
	r.Put("/settings/gold-rate", h.handleSetGoldRate)
}

func (h *SettingsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "get settings failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) handleSetGoldRate(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[GoldRateRequest](w, r, h.logger)
	if !ok {
		return
	}
	s, err := h.settings.SetGoldRate(r.Context(), req.Rate)
	if err != nil {
		writeServiceError(w, r, h.logger, "set gold rate failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}
