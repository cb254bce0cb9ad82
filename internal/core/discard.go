package core

import (
	"context"
	"strings"

	"labstock/pkg/domain"
)

// DiscardRequest retires quantity units of a product at a location, or one
// named unit for property-managed stock. Pooled requests select units by
// Status, any non-discarded status; the default is in_stock.
type DiscardRequest struct {
	StockID    string        `json:"stock_id"`
	ProductID  string        `json:"product_id"`
	LocationID string        `json:"location_id"`
	Status     domain.Status `json:"current_status"`
	Quantity   int           `json:"quantity"`
	Reason     string        `json:"reason"`
	Operator   string        `json:"operator"`
}

// Discard retires stock units. Discard is terminal: the unit keeps its
// identity and history but leaves every workflow. A unit discarded while on
// loan keeps its rental record untouched; outstanding views and bulk return
// matching drop units once they are discarded.
func (s *Service) Discard(ctx context.Context, requests []DiscardRequest) ([]StockUnit, error) {
	var discarded []StockUnit
	_, err := s.run(ctx, "discard", func(tx Transaction) error {
		if len(requests) == 0 {
			return domain.ValidationError{Code: domain.CodeMissingFields, Message: "at least one discard request required"}
		}
		snap := tx.Snapshot()

		type job struct {
			unitID   string
			reason   string
			operator string
		}
		var jobs []job
		claimed := map[string]bool{}

		for _, req := range requests {
			if strings.TrimSpace(req.Operator) == "" {
				return domain.ValidationError{Code: domain.CodeMissingFields, Message: "operator is required"}
			}
			if req.StockID != "" {
				unit, ok := snap.FindStockUnit(req.StockID)
				if !ok {
					return domain.NotFoundError{Entity: domain.EntityStockUnit, ID: req.StockID}
				}
				if unit.Discarded {
					return domain.InvalidStateError{
						Code:    domain.CodeAlreadyDiscarded,
						Entity:  domain.EntityStockUnit,
						ID:      unit.ID,
						Message: "stock unit is already discarded",
					}
				}
				if claimed[unit.ID] {
					return domain.InvalidStateError{
						Code:    domain.CodeAlreadyDiscarded,
						Entity:  domain.EntityStockUnit,
						ID:      unit.ID,
						Message: "stock unit is already discarded by this batch",
					}
				}
				claimed[unit.ID] = true
				jobs = append(jobs, job{unitID: unit.ID, reason: req.Reason, operator: req.Operator})
				continue
			}

			if req.ProductID == "" || req.LocationID == "" {
				return domain.ValidationError{Code: domain.CodeMissingFields, Message: "stock_id or product and location are required"}
			}
			product, ok := snap.FindProduct(req.ProductID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityProduct, ID: req.ProductID}
			}
			if product.Mode != domain.ModePooled {
				return domain.ModeMismatchError{Code: domain.CodeIsPropertyManaged, ProductID: product.ID}
			}
			quantity := req.Quantity
			if quantity < 1 {
				return domain.ValidationError{Code: domain.CodeMissingFields, Message: "quantity must be at least 1"}
			}
			status := req.Status
			if status == "" {
				status = domain.StatusInStock
			}
			if !status.Valid() || status == domain.StatusDiscarded {
				return domain.ValidationError{Code: domain.CodeMissingFields, Message: "current_status must be a non-discarded status"}
			}
			var picked []string
			available := 0
			for _, unit := range snap.ListStockUnits() {
				if claimed[unit.ID] || unit.Discarded {
					continue
				}
				if unit.ProductID != req.ProductID || unit.LocationID != req.LocationID || unit.CurrentStatus != status {
					continue
				}
				available++
				if len(picked) < quantity {
					picked = append(picked, unit.ID)
				}
			}
			if len(picked) < quantity {
				return domain.InsufficientStockError{
					ProductID:  req.ProductID,
					LocationID: req.LocationID,
					Status:     status,
					Requested:  quantity,
					Available:  available,
				}
			}
			for _, id := range picked {
				claimed[id] = true
				jobs = append(jobs, job{unitID: id, reason: req.Reason, operator: req.Operator})
			}
		}

		now := s.now()
		for _, j := range jobs {
			unit, err := tx.UpdateStockUnit(j.unitID, func(u *StockUnit) error {
				u.CurrentStatus = domain.StatusDiscarded
				u.Discarded = true
				u.DiscardInfo = &DiscardInfo{Date: now, Reason: j.reason, Operator: j.operator}
				return nil
			})
			if err != nil {
				return err
			}
			if _, ok := snap.FindAssetTag(j.unitID); ok {
				if err := tx.DeleteAssetTag(j.unitID); err != nil {
					return err
				}
			}
			discarded = append(discarded, unit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return discarded, nil
}

// ListDiscarded returns every discarded unit in insertion order.
func (s *Service) ListDiscarded(ctx context.Context) ([]StockUnit, error) {
	var units []StockUnit
	err := s.view(ctx, "list_discarded", func(v TransactionView) error {
		for _, unit := range v.ListStockUnits() {
			if unit.Discarded {
				units = append(units, unit)
			}
		}
		return nil
	})
	return units, err
}
