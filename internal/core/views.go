package core

import (
	"context"

	"labstock/pkg/domain"
)

// StockEntry is one ledger row joined with its product and location context.
type StockEntry struct {
	Unit     StockUnit `json:"unit"`
	Product  Product   `json:"product"`
	Path     []string  `json:"path,omitempty"`
	TagID    string    `json:"tag_id,omitempty"`
	Rental   *RentalRecord `json:"rental,omitempty"`
	Discards *DiscardInfo  `json:"discard_info,omitempty"`
}

// StockList returns the full ledger, one entry per unit in insertion order,
// each joined with its product, location path, tag, and open rental.
func (s *Service) StockList(ctx context.Context) ([]StockEntry, error) {
	var entries []StockEntry
	err := s.view(ctx, "stock_list", func(v TransactionView) error {
		paths := domain.LocationPaths(v.LocationTree())
		open := openRentalsByUnit(v)
		for _, unit := range v.ListStockUnits() {
			product, ok := v.FindProduct(unit.ProductID)
			if !ok {
				continue
			}
			entry := StockEntry{Unit: unit, Product: product, Path: paths[unit.LocationID], Discards: unit.DiscardInfo}
			if tag, ok := v.FindAssetTag(unit.ID); ok {
				entry.TagID = tag.TagID
			}
			if rental, ok := open[unit.ID]; ok && !unit.Discarded {
				r := rental
				entry.Rental = &r
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

func openRentalsByUnit(v TransactionView) map[string]RentalRecord {
	open := map[string]RentalRecord{}
	for _, rental := range v.ListRentals() {
		if rental.Outstanding() {
			open[rental.StockID] = rental
		}
	}
	return open
}

// RentableUnit is one property-managed unit currently available for loan.
type RentableUnit struct {
	Unit    StockUnit `json:"unit"`
	Product Product   `json:"product"`
	Path    []string  `json:"path"`
	TagID   string    `json:"tag_id,omitempty"`
}

// RentableGroup is the availability of one pooled product at one location.
type RentableGroup struct {
	Product    Product  `json:"product"`
	LocationID string   `json:"location_id"`
	Path       []string `json:"path"`
	Available  int      `json:"available"`
}

// RentableInventory lists what can be rented right now: individually
// addressable units for property-managed products and per-location quantity
// groups for pooled products.
type RentableInventory struct {
	Units  []RentableUnit  `json:"units"`
	Groups []RentableGroup `json:"groups"`
}

// RentableInventoryView builds the availability report from in-stock,
// non-discarded units.
func (s *Service) RentableInventoryView(ctx context.Context) (RentableInventory, error) {
	var inv RentableInventory
	err := s.view(ctx, "rentable_inventory", func(v TransactionView) error {
		paths := domain.LocationPaths(v.LocationTree())
		type groupKey struct {
			productID  string
			locationID string
		}
		groupIdx := map[groupKey]int{}
		for _, unit := range v.ListStockUnits() {
			if unit.Discarded || unit.CurrentStatus != domain.StatusInStock {
				continue
			}
			product, ok := v.FindProduct(unit.ProductID)
			if !ok {
				continue
			}
			switch product.Mode {
			case domain.ModePropertyManaged:
				ru := RentableUnit{Unit: unit, Product: product, Path: paths[unit.LocationID]}
				if tag, ok := v.FindAssetTag(unit.ID); ok {
					ru.TagID = tag.TagID
				}
				inv.Units = append(inv.Units, ru)
			case domain.ModePooled:
				key := groupKey{productID: product.ID, locationID: unit.LocationID}
				if i, ok := groupIdx[key]; ok {
					inv.Groups[i].Available++
					continue
				}
				groupIdx[key] = len(inv.Groups)
				inv.Groups = append(inv.Groups, RentableGroup{
					Product:    product,
					LocationID: unit.LocationID,
					Path:       paths[unit.LocationID],
					Available:  1,
				})
			}
		}
		return nil
	})
	return inv, err
}

// OutstandingLoan is one open property-managed rental with its unit context.
type OutstandingLoan struct {
	Rental  RentalRecord `json:"rental"`
	Unit    StockUnit    `json:"unit"`
	Product Product      `json:"product"`
	Path    []string     `json:"path"`
	TagID   string       `json:"tag_id,omitempty"`
}

// OutstandingGroup aggregates open pooled rentals sharing the same loan
// tuple. EarliestDue is the soonest due date inside the group.
type OutstandingGroup struct {
	Product     Product         `json:"product"`
	LocationID  string          `json:"location_id"`
	Path        []string        `json:"path"`
	Renter      string          `json:"renter"`
	Borrower    string          `json:"borrower"`
	LoanType    domain.LoanType `json:"loan_type"`
	Quantity    int             `json:"quantity"`
	EarliestDue RentalRecord    `json:"earliest_due"`
}

// OutstandingRentals reports every open loan: individual records for
// property-managed products, tuple-grouped quantities for pooled products.
type OutstandingRentals struct {
	Loans  []OutstandingLoan  `json:"loans"`
	Groups []OutstandingGroup `json:"groups"`
}

// OutstandingRentalsView walks open rentals in insertion order.
func (s *Service) OutstandingRentalsView(ctx context.Context) (OutstandingRentals, error) {
	var out OutstandingRentals
	err := s.view(ctx, "outstanding_rentals", func(v TransactionView) error {
		paths := domain.LocationPaths(v.LocationTree())
		type groupKey struct {
			productID  string
			locationID string
			renter     string
			borrower   string
			loanType   domain.LoanType
		}
		groupIdx := map[groupKey]int{}
		for _, rental := range v.ListRentals() {
			if !rental.Outstanding() {
				continue
			}
			// a discarded unit has left the rental workflow for good
			if unit, ok := v.FindStockUnit(rental.StockID); ok && unit.Discarded {
				continue
			}
			product, ok := v.FindProduct(rental.ProductID)
			if !ok {
				continue
			}
			switch product.Mode {
			case domain.ModePooled:
				key := groupKey{
					productID:  rental.ProductID,
					locationID: rental.LocationID,
					renter:     rental.Renter,
					borrower:   rental.Borrower,
					loanType:   rental.LoanType,
				}
				if i, ok := groupIdx[key]; ok {
					out.Groups[i].Quantity++
					if rental.DueDate.Before(out.Groups[i].EarliestDue.DueDate) {
						out.Groups[i].EarliestDue = rental
					}
					continue
				}
				groupIdx[key] = len(out.Groups)
				out.Groups = append(out.Groups, OutstandingGroup{
					Product:     product,
					LocationID:  rental.LocationID,
					Path:        paths[rental.LocationID],
					Renter:      rental.Renter,
					Borrower:    rental.Borrower,
					LoanType:    rental.LoanType,
					Quantity:    1,
					EarliestDue: rental,
				})
			default:
				loan := OutstandingLoan{Rental: rental, Product: product, Path: paths[rental.LocationID]}
				if unit, ok := v.FindStockUnit(rental.StockID); ok {
					loan.Unit = unit
				}
				if tag, ok := v.FindAssetTag(rental.StockID); ok {
					loan.TagID = tag.TagID
				}
				out.Loans = append(out.Loans, loan)
			}
		}
		return nil
	})
	return out, err
}

// DiscardCandidates lists units eligible for discard: not yet discarded and
// either in stock or on a long-term loan. Short-term loans return through the
// desk before the unit can be retired.
func (s *Service) DiscardCandidates(ctx context.Context) ([]StockEntry, error) {
	var entries []StockEntry
	err := s.view(ctx, "discard_candidates", func(v TransactionView) error {
		paths := domain.LocationPaths(v.LocationTree())
		open := openRentalsByUnit(v)
		for _, unit := range v.ListStockUnits() {
			if unit.Discarded {
				continue
			}
			if unit.CurrentStatus != domain.StatusInStock && unit.CurrentStatus != domain.StatusLongTerm {
				continue
			}
			product, ok := v.FindProduct(unit.ProductID)
			if !ok {
				continue
			}
			entry := StockEntry{Unit: unit, Product: product, Path: paths[unit.LocationID]}
			if tag, ok := v.FindAssetTag(unit.ID); ok {
				entry.TagID = tag.TagID
			}
			if rental, ok := open[unit.ID]; ok {
				r := rental
				entry.Rental = &r
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// ShortTermActive lists open short-term loans only, the set a walk-up desk
// works from.
func (s *Service) ShortTermActive(ctx context.Context) ([]OutstandingLoan, error) {
	var loans []OutstandingLoan
	err := s.view(ctx, "short_term_active", func(v TransactionView) error {
		paths := domain.LocationPaths(v.LocationTree())
		for _, rental := range v.ListRentals() {
			if !rental.Outstanding() || rental.LoanType != domain.LoanShortTerm {
				continue
			}
			if unit, ok := v.FindStockUnit(rental.StockID); ok && unit.Discarded {
				continue
			}
			product, ok := v.FindProduct(rental.ProductID)
			if !ok {
				continue
			}
			loan := OutstandingLoan{Rental: rental, Product: product, Path: paths[rental.LocationID]}
			if unit, ok := v.FindStockUnit(rental.StockID); ok {
				loan.Unit = unit
			}
			if tag, ok := v.FindAssetTag(rental.StockID); ok {
				loan.TagID = tag.TagID
			}
			loans = append(loans, loan)
		}
		return nil
	})
	return loans, err
}

// ShortTermAvailable reports what the walk-up desk can hand out right now.
// Availability does not depend on loan type, so this is the rentable
// inventory unfiltered.
func (s *Service) ShortTermAvailable(ctx context.Context) (RentableInventory, error) {
	return s.RentableInventoryView(ctx)
}
