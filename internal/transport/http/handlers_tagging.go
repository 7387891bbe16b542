package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	inventoryModels "aurum/internal/inventory/models"
	taggingModels "aurum/internal/tagging/models"
	taggingService "aurum/internal/tagging/service"
	"aurum/pkg/domain"
	"aurum/pkg/platform/httputil"
)

type TaggingService interface {
	CreateDraft(ctx context.Context, in taggingService.DraftInput) (*taggingModels.Tag, error)
	Finalize(ctx context.Context, tagID domain.TagID, in taggingService.FinalizeInput) (*taggingModels.Tag, *inventoryModels.Product, error)
	ListDrafts(ctx context.Context) ([]*taggingModels.Tag, error)
	ListBatch(ctx context.Context, batchID string) ([]*taggingModels.Tag, error)
}

type TaggingHandler struct {
	tagging TaggingService
	logger  *slog.Logger
}

func NewTaggingHandler(tagging TaggingService, logger *slog.Logger) *TaggingHandler {
	return &TaggingHandler{tagging: tagging, logger: logger}
}

func (h *TaggingHandler) Register(r chi.Router) {
	r.Post("/tags", h.handleDraft)
	r.Get("/tags/drafts", h.handleListDrafts)
	r.Get("/tags/batches/{batchID}", h.handleListBatch)
	r.Post("/tags/{id}/finalize", h.handleFinalize)
}

func (h *TaggingHandler) handleDraft(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[DraftTagRequest](w, r, h.logger)
	if !ok {
		return
	}
	tag, err := h.tagging.CreateDraft(r.Context(), taggingService.DraftInput{
		Type:      req.Type,
		Purity:    req.Purity,
		NetWeight: req.NetWeight,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "create draft tag failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tag)
}

func (h *TaggingHandler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseTagID)
	if !ok {
		return
	}
	req, ok := decode[FinalizeTagRequest](w, r, h.logger)
	if !ok {
		return
	}
	tag, product, err := h.tagging.Finalize(r.Context(), id, taggingService.FinalizeInput{
		GrossWeight: req.GrossWeight,
		Barcode:     req.Barcode,
		BatchID:     req.BatchID,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "finalize tag failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tag": tag, "product": product})
}

func (h *TaggingHandler) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tagging.ListDrafts(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list draft tags failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (h *TaggingHandler) handleListBatch(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tagging.ListBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		writeServiceError(w, r, h.logger, "list tag batch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tags": tags})
}
