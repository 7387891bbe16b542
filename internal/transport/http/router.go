// Package httptransport exposes the command façade over JSON/HTTP.
package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	authmw "aurum/pkg/platform/middleware/auth"
	devicemw "aurum/pkg/platform/middleware/device"
	"aurum/pkg/platform/middleware/metadata"
	"aurum/pkg/platform/middleware/request"
	"aurum/pkg/platform/middleware/requesttime"
	"aurum/pkg/requestcontext"
)

// Services bundles the handlers mounted by NewRouter.
type Services struct {
	Auth      *AuthHandler
	Customers *CustomerHandler
	Inventory *InventoryHandler
	Billing   *BillingHandler
	Logistics *LogisticsHandler
	Tagging   *TaggingHandler
	Settings  *SettingsHandler
	Audit     *AuditHandler
}

type routerConfig struct {
	metrics http.Handler
	devices devicemw.Parser
	clock   func() time.Time
}

type RouterOption func(*routerConfig)

// WithMetricsHandler serves h on GET /metrics, outside authentication.
func WithMetricsHandler(h http.Handler) RouterOption {
	return func(c *routerConfig) { c.metrics = h }
}

func WithDeviceParser(p devicemw.Parser) RouterOption {
	return func(c *routerConfig) { c.devices = p }
}

// WithClock sets the clock that stamps each request. Defaults to time.Now.
func WithClock(clock func() time.Time) RouterOption {
	return func(c *routerConfig) { c.clock = clock }
}

// NewRouter mounts the public routes (health, metrics, login, customer
// self-registration) and every other route behind bearer authentication.
func NewRouter(svcs Services, authenticator authmw.Authenticator, logger *slog.Logger, opts ...RouterOption) http.Handler {
	cfg := routerConfig{clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requesttime.WithClock(cfg.clock))
	r.Use(metadata.ClientMetadata)
	r.Use(devicemw.Middleware(cfg.devices))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}

	if svcs.Auth != nil {
		svcs.Auth.RegisterPublic(r)
	}
	if svcs.Customers != nil {
		svcs.Customers.RegisterPublic(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(authenticator, logger))
		for _, h := range svcs.mounted() {
			h.Register(r)
		}
	})
	return r
}

type registrar interface {
	Register(r chi.Router)
}

func (s Services) mounted() []registrar {
	var hs []registrar
	if s.Auth != nil {
		hs = append(hs, s.Auth)
	}
	if s.Customers != nil {
		hs = append(hs, s.Customers)
	}
	if s.Inventory != nil {
		hs = append(hs, s.Inventory)
	}
	if s.Billing != nil {
		hs = append(hs, s.Billing)
	}
	if s.Logistics != nil {
		hs = append(hs, s.Logistics)
	}
	if s.Tagging != nil {
		hs = append(hs, s.Tagging)
	}
	if s.Settings != nil {
		hs = append(hs, s.Settings)
	}
	if s.Audit != nil {
		hs = append(hs, s.Audit)
	}
	return hs
}

// writeServiceError logs a failed command and writes its error response.
// Client errors log at warn, everything else at error.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	ctx := r.Context()
	attrs := []any{
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
		"actor", requestcontext.ActorName(ctx),
	}
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, msg, attrs...)
	} else {
		logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	ctx := r.Context()
	return httputil.DecodeAndPrepare[T](w, r, logger, ctx, requestcontext.RequestID(ctx))
}

// pathID parses a chi URL parameter with parse, writing a 400 on failure.
func pathID[T any](w http.ResponseWriter, r *http.Request, name string, parse func(string) (T, error)) (T, bool) {
	id, err := parse(chi.URLParam(r, name))
	if err != nil {
		httputil.WriteError(w, err)
		return id, false
	}
	return id, true
}

// queryLimit reads ?limit=, returning 0 when absent.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
		return 0, false
	}
	return n, true
}
