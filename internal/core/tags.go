package core

import (
	"context"
	"strings"

	"labstock/pkg/domain"
)

// TagAction reports what a tag write did.
type TagAction string

const (
	TagCreated TagAction = "created"
	TagUpdated TagAction = "updated"
	TagDeleted TagAction = "deleted"
)

// AssetTagRequest binds, rebinds, or clears the asset tag of one stock unit.
// An empty TagID clears the binding.
type AssetTagRequest struct {
	StockID string `json:"stock_id"`
	TagID   string `json:"tag_id"`
}

// PutAssetTag writes a unit's asset tag. Only property-managed units carry
// tags, since pooled units are interchangeable.
func (s *Service) PutAssetTag(ctx context.Context, req AssetTagRequest) (TagAction, error) {
	var action TagAction
	_, err := s.run(ctx, "put_asset_tag", func(tx Transaction) error {
		snap := tx.Snapshot()
		unit, ok := snap.FindStockUnit(req.StockID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityStockUnit, ID: req.StockID}
		}
		if unit.Discarded {
			return domain.InvalidStateError{
				Code:    domain.CodeStockDiscarded,
				Entity:  domain.EntityStockUnit,
				ID:      unit.ID,
				Message: "stock unit is discarded",
			}
		}
		product, ok := snap.FindProduct(unit.ProductID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProduct, ID: unit.ProductID}
		}
		if product.Mode != domain.ModePropertyManaged {
			return domain.ModeMismatchError{Code: domain.CodeNotPropertyManaged, ProductID: product.ID}
		}

		tagID := strings.TrimSpace(req.TagID)
		if tagID == "" {
			if _, ok := snap.FindAssetTag(unit.ID); !ok {
				return domain.NotFoundError{Entity: domain.EntityAssetTag, ID: unit.ID}
			}
			if err := tx.DeleteAssetTag(unit.ID); err != nil {
				return err
			}
			action = TagDeleted
			return nil
		}

		for _, tag := range snap.ListAssetTags() {
			if tag.TagID == tagID && tag.StockID != unit.ID {
				return domain.ValidationError{Code: domain.CodeInvalidTag, Message: "tag is bound to another stock unit"}
			}
		}
		created, err := tx.PutAssetTag(AssetTag{StockID: unit.ID, TagID: tagID})
		if err != nil {
			return err
		}
		if created {
			action = TagCreated
		} else {
			action = TagUpdated
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return action, nil
}

// FindStockByTag resolves a physical tag back to its stock unit.
func (s *Service) FindStockByTag(ctx context.Context, tagID string) (StockUnit, error) {
	var unit StockUnit
	err := s.view(ctx, "find_stock_by_tag", func(v TransactionView) error {
		for _, tag := range v.ListAssetTags() {
			if tag.TagID != tagID {
				continue
			}
			u, ok := v.FindStockUnit(tag.StockID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityStockUnit, ID: tag.StockID}
			}
			unit = u
			return nil
		}
		return domain.NotFoundError{Entity: domain.EntityAssetTag, ID: tagID}
	})
	return unit, err
}

// ListAssetTags returns every tag binding in insertion order.
func (s *Service) ListAssetTags(ctx context.Context) ([]AssetTag, error) {
	var tags []AssetTag
	err := s.view(ctx, "list_asset_tags", func(v TransactionView) error {
		tags = v.ListAssetTags()
		return nil
	})
	return tags, err
}
