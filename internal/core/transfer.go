package core

import (
	"context"

	"labstock/pkg/domain"
)

// TransferRequest moves quantity units of a product between two locations.
// Property-managed moves may instead name the unit directly via StockID.
type TransferRequest struct {
	StockID      string `json:"stock_id"`
	ProductID    string `json:"product_id"`
	FromLocation string `json:"from_location"`
	ToLocation   string `json:"to_location"`
	Quantity     int    `json:"quantity"`
}

// Transfer relocates in-stock units. The batch is all-or-nothing: every
// request is validated against the pre-transaction snapshot before any unit
// moves, and a single failure aborts the whole batch.
func (s *Service) Transfer(ctx context.Context, requests []TransferRequest) ([]TransferRecord, error) {
	var records []TransferRecord
	_, err := s.run(ctx, "transfer", func(tx Transaction) error {
		if len(requests) == 0 {
			return domain.ValidationError{Code: domain.CodeMissingFields, Message: "at least one transfer request required"}
		}
		snap := tx.Snapshot()
		counts := domain.LocationChildCounts(snap.LocationTree())

		type move struct {
			unitID string
			from   string
			to     string
		}
		var moves []move
		// units already claimed by an earlier request in the same batch
		claimed := map[string]bool{}

		for _, req := range requests {
			children, present := counts[req.ToLocation]
			if !present {
				return domain.NotFoundError{Entity: domain.EntityLocationTree, ID: req.ToLocation}
			}
			if children > 0 {
				return domain.InvalidStateError{
					Code:    domain.CodeLeafRuleViolation,
					Entity:  domain.EntityLocationTree,
					ID:      req.ToLocation,
					Message: "stock can only be placed at leaf locations",
				}
			}

			if req.StockID != "" {
				unit, ok := snap.FindStockUnit(req.StockID)
				if !ok {
					return domain.NotFoundError{Entity: domain.EntityStockUnit, ID: req.StockID}
				}
				product, ok := snap.FindProduct(unit.ProductID)
				if !ok {
					return domain.NotFoundError{Entity: domain.EntityProduct, ID: unit.ProductID}
				}
				if product.Mode != domain.ModePropertyManaged {
					return domain.ModeMismatchError{Code: domain.CodeNotPropertyManaged, ProductID: product.ID}
				}
				if req.FromLocation != "" && req.FromLocation != unit.LocationID {
					return domain.InvalidStateError{
						Code:    domain.CodeLocationMismatch,
						Entity:  domain.EntityStockUnit,
						ID:      unit.ID,
						Message: "stock unit is at a different location",
					}
				}
				if err := transferable(unit, claimed); err != nil {
					return err
				}
				claimed[unit.ID] = true
				moves = append(moves, move{unitID: unit.ID, from: unit.LocationID, to: req.ToLocation})
				continue
			}

			if req.ProductID == "" || req.FromLocation == "" {
				return domain.ValidationError{Code: domain.CodeMissingFields, Message: "stock_id or product and source location are required"}
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
			var picked []string
			available := 0
			for _, unit := range snap.ListStockUnits() {
				if claimed[unit.ID] || unit.Discarded {
					continue
				}
				if unit.ProductID != req.ProductID || unit.LocationID != req.FromLocation || unit.CurrentStatus != domain.StatusInStock {
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
					LocationID: req.FromLocation,
					Status:     domain.StatusInStock,
					Requested:  quantity,
					Available:  available,
				}
			}
			for _, id := range picked {
				claimed[id] = true
				moves = append(moves, move{unitID: id, from: req.FromLocation, to: req.ToLocation})
			}
		}

		now := s.now()
		for _, m := range moves {
			if _, err := tx.UpdateStockUnit(m.unitID, func(u *StockUnit) error {
				u.LocationID = m.to
				return nil
			}); err != nil {
				return err
			}
			record, err := tx.CreateTransfer(TransferRecord{
				StockID:      m.unitID,
				FromLocation: m.from,
				ToLocation:   m.to,
				Date:         now,
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func transferable(unit StockUnit, claimed map[string]bool) error {
	if claimed[unit.ID] {
		return domain.InvalidStateError{
			Code:    domain.CodeNotInStock,
			Entity:  domain.EntityStockUnit,
			ID:      unit.ID,
			Message: "stock unit already claimed by this batch",
		}
	}
	if unit.Discarded {
		return domain.InvalidStateError{
			Code:    domain.CodeStockDiscarded,
			Entity:  domain.EntityStockUnit,
			ID:      unit.ID,
			Message: "stock unit is discarded",
		}
	}
	if unit.CurrentStatus != domain.StatusInStock {
		return domain.InvalidStateError{
			Code:    domain.CodeNotInStock,
			Entity:  domain.EntityStockUnit,
			ID:      unit.ID,
			Message: "only in-stock units can be transferred",
		}
	}
	return nil
}

// ListTransfers returns the transfer history in insertion order.
func (s *Service) ListTransfers(ctx context.Context) ([]TransferRecord, error) {
	var records []TransferRecord
	err := s.view(ctx, "list_transfers", func(v TransactionView) error {
		records = v.ListTransfers()
		return nil
	})
	return records, err
}
