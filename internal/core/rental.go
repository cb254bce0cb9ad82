package core

import (
	"context"
	"strings"
	"time"

	"labstock/pkg/domain"
)

// RentRequest covers both accounting modes: property-managed loans name the
// unit via StockID, pooled loans name product, location, and quantity.
type RentRequest struct {
	StockID    string          `json:"stock_id"`
	ProductID  string          `json:"product_id"`
	LocationID string          `json:"location_id"`
	Quantity   int             `json:"quantity"`
	Renter     string          `json:"renter"`
	Borrower   string          `json:"borrower"`
	LoanType   domain.LoanType `json:"loan_type"`
	DueDate    time.Time       `json:"due_date"`
}

// Rent opens loans. The product's accounting mode selects the flow: one named
// unit for property-managed products, the first matching units in storage
// order for pooled products.
func (s *Service) Rent(ctx context.Context, req RentRequest) ([]RentalRecord, error) {
	var records []RentalRecord
	_, err := s.run(ctx, "rent", func(tx Transaction) error {
		if strings.TrimSpace(req.Renter) == "" || strings.TrimSpace(req.Borrower) == "" {
			return domain.ValidationError{Code: domain.CodeMissingFields, Message: "renter and borrower are required"}
		}
		if !req.LoanType.Valid() {
			return domain.ValidationError{Code: domain.CodeMissingFields, Message: "loan type must be short_term or long_term"}
		}
		if req.DueDate.IsZero() {
			return domain.ValidationError{Code: domain.CodeMissingFields, Message: "due date is required"}
		}

		snap := tx.Snapshot()
		product, err := resolveRentProduct(snap, req)
		if err != nil {
			return err
		}

		switch product.Mode {
		case domain.ModePropertyManaged:
			if req.StockID == "" {
				return domain.ModeMismatchError{Code: domain.CodeIsPropertyManaged, ProductID: product.ID}
			}
			record, err := s.rentUnit(tx, snap, product, req.StockID, req)
			if err != nil {
				return err
			}
			records = append(records, record)
			return nil
		case domain.ModePooled:
			if req.StockID != "" {
				return domain.ModeMismatchError{Code: domain.CodeNotPropertyManaged, ProductID: product.ID}
			}
			if req.LocationID == "" {
				return domain.ValidationError{Code: domain.CodeMissingFields, Message: "location is required for pooled loans"}
			}
			quantity := req.Quantity
			if quantity < 1 {
				return domain.ValidationError{Code: domain.CodeMissingFields, Message: "quantity must be at least 1"}
			}
			unitIDs, available := selectUnits(snap, product.ID, req.LocationID, domain.StatusInStock, quantity)
			if len(unitIDs) < quantity {
				return domain.InsufficientStockError{
					ProductID:  product.ID,
					LocationID: req.LocationID,
					Status:     domain.StatusInStock,
					Requested:  quantity,
					Available:  available,
				}
			}
			for _, id := range unitIDs {
				record, err := s.rentUnit(tx, snap, product, id, req)
				if err != nil {
					return err
				}
				records = append(records, record)
			}
			return nil
		default:
			return domain.ValidationError{Code: domain.CodeInvalidMode, Message: "product has unknown accounting mode"}
		}
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func resolveRentProduct(snap TransactionView, req RentRequest) (Product, error) {
	if req.StockID != "" {
		unit, ok := snap.FindStockUnit(req.StockID)
		if !ok {
			return Product{}, domain.NotFoundError{Entity: domain.EntityStockUnit, ID: req.StockID}
		}
		product, ok := snap.FindProduct(unit.ProductID)
		if !ok {
			return Product{}, domain.NotFoundError{Entity: domain.EntityProduct, ID: unit.ProductID}
		}
		return product, nil
	}
	if req.ProductID == "" {
		return Product{}, domain.ValidationError{Code: domain.CodeMissingFields, Message: "stock_id or product_id is required"}
	}
	product, ok := snap.FindProduct(req.ProductID)
	if !ok {
		return Product{}, domain.NotFoundError{Entity: domain.EntityProduct, ID: req.ProductID}
	}
	return product, nil
}

func (s *Service) rentUnit(tx Transaction, snap TransactionView, product Product, stockID string, req RentRequest) (RentalRecord, error) {
	unit, ok := snap.FindStockUnit(stockID)
	if !ok {
		return RentalRecord{}, domain.NotFoundError{Entity: domain.EntityStockUnit, ID: stockID}
	}
	if unit.Discarded {
		return RentalRecord{}, domain.InvalidStateError{
			Code:    domain.CodeStockDiscarded,
			Entity:  domain.EntityStockUnit,
			ID:      unit.ID,
			Message: "stock unit is discarded",
		}
	}
	if unit.CurrentStatus != domain.StatusInStock {
		return RentalRecord{}, domain.InvalidStateError{
			Code:    domain.CodeNotInStock,
			Entity:  domain.EntityStockUnit,
			ID:      unit.ID,
			Message: "stock unit is not in stock",
		}
	}
	if req.LocationID != "" && req.LocationID != unit.LocationID {
		return RentalRecord{}, domain.InvalidStateError{
			Code:    domain.CodeLocationMismatch,
			Entity:  domain.EntityStockUnit,
			ID:      unit.ID,
			Message: "stock unit is at a different location",
		}
	}
	if _, err := tx.UpdateStockUnit(unit.ID, func(u *StockUnit) error {
		u.CurrentStatus = req.LoanType.Status()
		return nil
	}); err != nil {
		return RentalRecord{}, err
	}
	return tx.CreateRental(RentalRecord{
		StockID:    unit.ID,
		ProductID:  product.ID,
		LocationID: unit.LocationID,
		Renter:     strings.TrimSpace(req.Renter),
		Borrower:   strings.TrimSpace(req.Borrower),
		LoanType:   req.LoanType,
		LoanDate:   s.now(),
		DueDate:    req.DueDate.UTC(),
	})
}

// selectUnits walks stock in storage order collecting up to quantity unit ids
// matching product, location, and status. Returns the ids plus the total
// matching count so callers can report availability on shortfall.
func selectUnits(snap TransactionView, productID, locationID string, status domain.Status, quantity int) ([]string, int) {
	var ids []string
	available := 0
	for _, unit := range snap.ListStockUnits() {
		if unit.Discarded || unit.ProductID != productID || unit.LocationID != locationID || unit.CurrentStatus != status {
			continue
		}
		available++
		if len(ids) < quantity {
			ids = append(ids, unit.ID)
		}
	}
	return ids, available
}

// ReturnRequest closes loans. Property-managed returns name the rental record
// via RentalID; pooled returns name the exact loan tuple plus quantity. An
// explicit ReturnDate is stamped verbatim; otherwise the clock's now is used.
type ReturnRequest struct {
	RentalID   string          `json:"rental_id"`
	ProductID  string          `json:"product_id"`
	LocationID string          `json:"location_id"`
	Renter     string          `json:"renter"`
	Borrower   string          `json:"borrower"`
	LoanType   domain.LoanType `json:"loan_type"`
	Quantity   int             `json:"quantity"`
	ReturnDate *time.Time      `json:"return_date"`
}

// Return closes loans and moves the units back in stock.
func (s *Service) Return(ctx context.Context, req ReturnRequest) ([]RentalRecord, error) {
	var records []RentalRecord
	_, err := s.run(ctx, "return", func(tx Transaction) error {
		if req.RentalID != "" {
			snap := tx.Snapshot()
			rental, ok := snap.FindRental(req.RentalID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityRental, ID: req.RentalID}
			}
			if product, ok := snap.FindProduct(rental.ProductID); ok && product.Mode != domain.ModePropertyManaged {
				return domain.ModeMismatchError{Code: domain.CodeNotPropertyManaged, ProductID: product.ID}
			}
			record, err := s.returnRental(tx, req.RentalID, req.ReturnDate)
			if err != nil {
				return err
			}
			records = append(records, record)
			return nil
		}

		if req.ProductID == "" || req.LocationID == "" {
			return domain.ValidationError{Code: domain.CodeMissingFields, Message: "rental_id or product and location are required"}
		}
		snap := tx.Snapshot()
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

		// exact tuple match in storage order
		var matched []string
		for _, rental := range snap.ListRentals() {
			if !rental.Outstanding() {
				continue
			}
			if rental.ProductID != req.ProductID || rental.LocationID != req.LocationID {
				continue
			}
			if rental.Renter != req.Renter || rental.Borrower != req.Borrower || rental.LoanType != req.LoanType {
				continue
			}
			if unit, ok := snap.FindStockUnit(rental.StockID); ok && unit.Discarded {
				continue
			}
			matched = append(matched, rental.ID)
		}
		if len(matched) < quantity {
			return domain.InsufficientStockError{
				ProductID:  req.ProductID,
				LocationID: req.LocationID,
				Status:     req.LoanType.Status(),
				Requested:  quantity,
				Available:  len(matched),
			}
		}
		for _, id := range matched[:quantity] {
			record, err := s.returnRental(tx, id, req.ReturnDate)
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

func (s *Service) returnRental(tx Transaction, rentalID string, returnDate *time.Time) (RentalRecord, error) {
	snap := tx.Snapshot()
	rental, ok := snap.FindRental(rentalID)
	if !ok {
		return RentalRecord{}, domain.NotFoundError{Entity: domain.EntityRental, ID: rentalID}
	}
	if !rental.Outstanding() {
		return RentalRecord{}, domain.InvalidStateError{
			Code:    domain.CodeAlreadyReturned,
			Entity:  domain.EntityRental,
			ID:      rentalID,
			Message: "rental is already returned",
		}
	}
	unit, ok := snap.FindStockUnit(rental.StockID)
	if !ok {
		return RentalRecord{}, domain.NotFoundError{Entity: domain.EntityStockUnit, ID: rental.StockID}
	}
	if unit.Discarded {
		return RentalRecord{}, domain.InvalidStateError{
			Code:    domain.CodeStockDiscarded,
			Entity:  domain.EntityStockUnit,
			ID:      unit.ID,
			Message: "stock unit is discarded",
		}
	}
	if _, err := tx.UpdateStockUnit(unit.ID, func(u *StockUnit) error {
		u.CurrentStatus = domain.StatusInStock
		return nil
	}); err != nil {
		return RentalRecord{}, err
	}
	at := s.now()
	if returnDate != nil {
		at = returnDate.UTC()
	}
	return tx.UpdateRental(rentalID, func(r *RentalRecord) error {
		r.ReturnDate = &at
		return nil
	})
}

// ExtendRequest pushes out a loan's due date. An explicit due date wins;
// otherwise AddHours (default 3) is added on top of the later of the current
// due date and now, so an overdue loan is always extended into the future.
type ExtendRequest struct {
	RentalID string     `json:"rental_id"`
	DueDate  *time.Time `json:"due_date"`
	AddHours int        `json:"add_hours"`
}

// ExtendRental moves a loan's due date.
func (s *Service) ExtendRental(ctx context.Context, req ExtendRequest) (RentalRecord, error) {
	var updated RentalRecord
	_, err := s.run(ctx, "extend_rental", func(tx Transaction) error {
		snap := tx.Snapshot()
		rental, ok := snap.FindRental(req.RentalID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityRental, ID: req.RentalID}
		}
		if !rental.Outstanding() {
			return domain.InvalidStateError{
				Code:    domain.CodeAlreadyReturned,
				Entity:  domain.EntityRental,
				ID:      req.RentalID,
				Message: "rental is already returned",
			}
		}
		var due time.Time
		if req.DueDate != nil {
			due = req.DueDate.UTC()
		} else {
			addHours := req.AddHours
			if addHours <= 0 {
				addHours = 3
			}
			base := rental.DueDate
			if now := s.now(); now.After(base) {
				base = now
			}
			due = base.Add(time.Duration(addHours) * time.Hour)
		}
		var err error
		updated, err = tx.UpdateRental(req.RentalID, func(r *RentalRecord) error {
			r.DueDate = due
			return nil
		})
		return err
	})
	return updated, err
}
