package memory

import (
	"fmt"
	"time"

	"labstock/pkg/domain"
)

// transaction is a mutation set applied to a cloned ledger state.
type transaction struct {
	store   *Store
	state   ledgerState
	changes []domain.Change
	now     time.Time
}

var _ domain.Transaction = (*transaction)(nil)

func (tx *transaction) record(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state read-only, so workflows can
// validate against their own uncommitted mutations.
func (tx *transaction) Snapshot() domain.TransactionView {
	return view{state: &tx.state}
}

// CreateProduct stores a new catalog product.
func (tx *transaction) CreateProduct(p domain.Product) (domain.Product, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.productIdx[p.ID]; exists {
		return domain.Product{}, fmt.Errorf("product %q already exists", p.ID)
	}
	tx.state.productIdx[p.ID] = len(tx.state.products)
	tx.state.products = append(tx.state.products, cloneProduct(p))
	tx.record(domain.Change{Entity: domain.EntityProduct, Action: domain.ActionCreate, After: cloneProduct(p)})
	return cloneProduct(p), nil
}

// UpdateProduct mutates an existing product via the mutator function.
func (tx *transaction) UpdateProduct(id string, mutator func(*domain.Product) error) (domain.Product, error) {
	i, ok := tx.state.productIdx[id]
	if !ok {
		return domain.Product{}, domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
	}
	current := cloneProduct(tx.state.products[i])
	before := cloneProduct(current)
	if err := mutator(&current); err != nil {
		return domain.Product{}, err
	}
	current.ID = id
	tx.state.products[i] = cloneProduct(current)
	tx.record(domain.Change{Entity: domain.EntityProduct, Action: domain.ActionUpdate, Before: before, After: cloneProduct(current)})
	return current, nil
}

// DeleteProduct removes a product from the catalog.
func (tx *transaction) DeleteProduct(id string) error {
	i, ok := tx.state.productIdx[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
	}
	before := cloneProduct(tx.state.products[i])
	tx.state.products = append(tx.state.products[:i], tx.state.products[i+1:]...)
	delete(tx.state.productIdx, id)
	for j := i; j < len(tx.state.products); j++ {
		tx.state.productIdx[tx.state.products[j].ID] = j
	}
	tx.record(domain.Change{Entity: domain.EntityProduct, Action: domain.ActionDelete, Before: before})
	return nil
}

// CreateStockUnit appends one unit to the ledger.
func (tx *transaction) CreateStockUnit(u domain.StockUnit) (domain.StockUnit, error) {
	if u.ID == "" {
		u.ID = tx.store.newID()
	}
	if _, exists := tx.state.stockIdx[u.ID]; exists {
		return domain.StockUnit{}, fmt.Errorf("stock unit %q already exists", u.ID)
	}
	if u.CurrentStatus == "" {
		u.CurrentStatus = domain.StatusInStock
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = tx.now
	}
	tx.state.stockIdx[u.ID] = len(tx.state.stock)
	tx.state.stock = append(tx.state.stock, cloneStockUnit(u))
	tx.record(domain.Change{Entity: domain.EntityStockUnit, Action: domain.ActionCreate, After: cloneStockUnit(u)})
	return cloneStockUnit(u), nil
}

// UpdateStockUnit mutates a unit via the mutator function.
func (tx *transaction) UpdateStockUnit(id string, mutator func(*domain.StockUnit) error) (domain.StockUnit, error) {
	i, ok := tx.state.stockIdx[id]
	if !ok {
		return domain.StockUnit{}, domain.NotFoundError{Entity: domain.EntityStockUnit, ID: id}
	}
	current := cloneStockUnit(tx.state.stock[i])
	before := cloneStockUnit(current)
	if err := mutator(&current); err != nil {
		return domain.StockUnit{}, err
	}
	current.ID = id
	tx.state.stock[i] = cloneStockUnit(current)
	tx.record(domain.Change{Entity: domain.EntityStockUnit, Action: domain.ActionUpdate, Before: before, After: cloneStockUnit(current)})
	return current, nil
}

// CreateRental appends a rental log record.
func (tx *transaction) CreateRental(r domain.RentalRecord) (domain.RentalRecord, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.rentalIdx[r.ID]; exists {
		return domain.RentalRecord{}, fmt.Errorf("rental %q already exists", r.ID)
	}
	if r.LoanDate.IsZero() {
		r.LoanDate = tx.now
	}
	tx.state.rentalIdx[r.ID] = len(tx.state.rentals)
	tx.state.rentals = append(tx.state.rentals, cloneRental(r))
	tx.record(domain.Change{Entity: domain.EntityRental, Action: domain.ActionCreate, After: cloneRental(r)})
	return cloneRental(r), nil
}

// UpdateRental mutates a rental record via the mutator function.
func (tx *transaction) UpdateRental(id string, mutator func(*domain.RentalRecord) error) (domain.RentalRecord, error) {
	i, ok := tx.state.rentalIdx[id]
	if !ok {
		return domain.RentalRecord{}, domain.NotFoundError{Entity: domain.EntityRental, ID: id}
	}
	current := cloneRental(tx.state.rentals[i])
	before := cloneRental(current)
	if err := mutator(&current); err != nil {
		return domain.RentalRecord{}, err
	}
	current.ID = id
	tx.state.rentals[i] = cloneRental(current)
	tx.record(domain.Change{Entity: domain.EntityRental, Action: domain.ActionUpdate, Before: before, After: cloneRental(current)})
	return current, nil
}

// CreateTransfer appends a transfer audit record.
func (tx *transaction) CreateTransfer(t domain.TransferRecord) (domain.TransferRecord, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	if t.Date.IsZero() {
		t.Date = tx.now
	}
	tx.state.transfers = append(tx.state.transfers, cloneTransfer(t))
	tx.record(domain.Change{Entity: domain.EntityTransfer, Action: domain.ActionCreate, After: cloneTransfer(t)})
	return cloneTransfer(t), nil
}

// ReplaceLocationTree swaps the whole hierarchy.
func (tx *transaction) ReplaceLocationTree(tree []domain.LocationNode) error {
	before := domain.CloneLocationTree(tx.state.locations)
	tx.state.locations = domain.CloneLocationTree(tree)
	tx.record(domain.Change{Entity: domain.EntityLocationTree, Action: domain.ActionReplace, Before: before, After: domain.CloneLocationTree(tree)})
	return nil
}

// PutAssetTag creates or updates the tag mapping for a stock unit and reports
// whether a new mapping was created.
func (tx *transaction) PutAssetTag(tag domain.AssetTag) (bool, error) {
	if i, ok := tx.state.tagIdx[tag.StockID]; ok {
		before := cloneTag(tx.state.tags[i])
		tx.state.tags[i] = cloneTag(tag)
		tx.record(domain.Change{Entity: domain.EntityAssetTag, Action: domain.ActionUpdate, Before: before, After: cloneTag(tag)})
		return false, nil
	}
	tx.state.tagIdx[tag.StockID] = len(tx.state.tags)
	tx.state.tags = append(tx.state.tags, cloneTag(tag))
	tx.record(domain.Change{Entity: domain.EntityAssetTag, Action: domain.ActionCreate, After: cloneTag(tag)})
	return true, nil
}

// DeleteAssetTag removes the tag mapping for a stock unit.
func (tx *transaction) DeleteAssetTag(stockID string) error {
	i, ok := tx.state.tagIdx[stockID]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityAssetTag, ID: stockID}
	}
	before := cloneTag(tx.state.tags[i])
	tx.state.tags = append(tx.state.tags[:i], tx.state.tags[i+1:]...)
	delete(tx.state.tagIdx, stockID)
	for j := i; j < len(tx.state.tags); j++ {
		tx.state.tagIdx[tx.state.tags[j].StockID] = j
	}
	tx.record(domain.Change{Entity: domain.EntityAssetTag, Action: domain.ActionDelete, Before: before})
	return nil
}
