// Package service implements the two-phase tag handoff. Tag entry drafts a
// tag; finalization supplies the gross weight, creates the product and moves
// the tag into the finalizer's batch.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"aurum/internal/catalog"
	inventoryModels "aurum/internal/inventory/models"
	inventory "aurum/internal/inventory/service"
	"aurum/internal/platform/command"
	"aurum/internal/policy"
	"aurum/internal/tagging/models"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	platformstrings "aurum/pkg/platform/strings"
	"aurum/pkg/requestcontext"
)

type Service struct {
	runner *command.Runner
}

func New(runner *command.Runner) *Service {
	return &Service{runner: runner}
}

type DraftInput struct {
	Type      string
	Purity    string
	NetWeight decimal.Decimal
}

type FinalizeInput struct {
	GrossWeight decimal.Decimal
	Barcode     string
	// BatchID defaults to the finalizer's batch for the day.
	BatchID string
}

func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (*models.Tag, error) {
	tag, err := models.NewDraft(domain.NewTagID(), in.Type, in.Purity, in.NetWeight,
		requestcontext.ActorName(ctx), requestcontext.Now(ctx))
	if err != nil {
		return nil, command.Translate(err)
	}
	err = s.runner.Update(ctx, "tagging.create_draft", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionDraftTag); err != nil {
			return err
		}
		tx.PutTag(tag)
		tx.Append(audit.NewEntry(ctx, audit.ActionTagDrafted,
			fmt.Sprintf("tag drafted: %s %s, net %s g", tag.Purity, tag.Type, tag.NetWeight)).
			With("tag_id", tag.ID.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// Finalize completes a draft and creates its IN_STOCK product. A barcode
// already in the catalog raises a SECURITY_ALERT and the tag stays DRAFT.
func (s *Service) Finalize(ctx context.Context, tagID domain.TagID, in FinalizeInput) (*models.Tag, *inventoryModels.Product, error) {
	barcode := platformstrings.NormalizeCode(in.Barcode)
	if barcode == "" {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "barcode is required")
	}
	now := requestcontext.Now(ctx)
	by := inventory.ActorOf(ctx)
	batchID := strings.TrimSpace(in.BatchID)
	if batchID == "" {
		batchID = DefaultBatchID(ctx, by.Name)
	}

	var (
		finalized *models.Tag
		product   *inventoryModels.Product
	)
	err := s.runner.Update(ctx, "tagging.finalize", func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionFinalizeTag); err != nil {
			return err
		}
		tag, err := tx.Tag(tagID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "tag not found")
			}
			return err
		}
		if err := tag.CanFinalize(in.GrossWeight); err != nil {
			return err
		}
		stone := in.GrossWeight.Sub(tag.NetWeight)
		p, err := inventoryModels.NewProduct(domain.NewProductID(), barcode, batchID, tag.Type, tag.Purity,
			in.GrossWeight, stone, tag.NetWeight, by, now)
		if err != nil {
			return err
		}
		// Insert first; on a refused barcode only the alert may be staged.
		if err := inventory.InsertProduct(ctx, tx, p, "tag finalization"); err != nil {
			return err
		}
		tag.ApplyFinalize(in.GrossWeight, barcode, batchID, p.ID, by.Name, now)
		tx.PutTag(tag)
		tx.Append(audit.NewEntry(ctx, audit.ActionTagFinalized,
			fmt.Sprintf("tag finalized as %s in batch %s: gross %s g, stone %s g", barcode, batchID, tag.GrossWeight, tag.StoneWeight)).
			With("tag_id", tag.ID.String()).
			With("product_id", p.ID.String()).
			With("barcode", barcode))
		finalized, product = tag, p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return finalized, product, nil
}

// DefaultBatchID names the finalizer's batch for the request day.
func DefaultBatchID(ctx context.Context, finalizer string) string {
	return fmt.Sprintf("BATCH-%s-%s", platformstrings.NormalizeCode(finalizer), requestcontext.Now(ctx).Format("20060102"))
}

// ListDrafts returns the tags awaiting finalization, oldest first.
func (s *Service) ListDrafts(ctx context.Context) ([]*models.Tag, error) {
	return s.list(ctx, "tagging.list_drafts", func(t *models.Tag) bool { return t.Status == models.StatusDraft })
}

// ListBatch returns the finalized tags of one batch.
func (s *Service) ListBatch(ctx context.Context, batchID string) ([]*models.Tag, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "batch id is required")
	}
	return s.list(ctx, "tagging.list_batch", func(t *models.Tag) bool {
		return t.Status == models.StatusFinalized && t.BatchID == batchID
	})
}

func (s *Service) list(ctx context.Context, name string, keep func(*models.Tag) bool) ([]*models.Tag, error) {
	var tags []*models.Tag
	err := s.runner.View(ctx, name, func(tx *catalog.Tx) error {
		if err := policy.Authorize(ctx, tx, policy.ActionViewTags); err != nil {
			return err
		}
		tags = tx.Tags(keep)
		return nil
	})
	return tags, err
}
