package memory

import "labstock/pkg/domain"

// view exposes a read-only snapshot of a ledger state. Listing methods return
// records in insertion order, which is also the order bulk selection consumes.
type view struct {
	state *ledgerState
}

var _ domain.TransactionView = view{}

func (v view) ListProducts() []domain.Product {
	out := make([]domain.Product, 0, len(v.state.products))
	for _, p := range v.state.products {
		out = append(out, cloneProduct(p))
	}
	return out
}

func (v view) ListStockUnits() []domain.StockUnit {
	out := make([]domain.StockUnit, 0, len(v.state.stock))
	for _, u := range v.state.stock {
		out = append(out, cloneStockUnit(u))
	}
	return out
}

func (v view) ListRentals() []domain.RentalRecord {
	out := make([]domain.RentalRecord, 0, len(v.state.rentals))
	for _, r := range v.state.rentals {
		out = append(out, cloneRental(r))
	}
	return out
}

func (v view) ListTransfers() []domain.TransferRecord {
	return append([]domain.TransferRecord(nil), v.state.transfers...)
}

func (v view) ListAssetTags() []domain.AssetTag {
	out := make([]domain.AssetTag, 0, len(v.state.tags))
	for _, t := range v.state.tags {
		out = append(out, cloneTag(t))
	}
	return out
}

func (v view) LocationTree() []domain.LocationNode {
	return domain.CloneLocationTree(v.state.locations)
}

func (v view) FindProduct(id string) (domain.Product, bool) {
	i, ok := v.state.productIdx[id]
	if !ok {
		return domain.Product{}, false
	}
	return cloneProduct(v.state.products[i]), true
}

func (v view) FindStockUnit(id string) (domain.StockUnit, bool) {
	i, ok := v.state.stockIdx[id]
	if !ok {
		return domain.StockUnit{}, false
	}
	return cloneStockUnit(v.state.stock[i]), true
}

func (v view) FindRental(id string) (domain.RentalRecord, bool) {
	i, ok := v.state.rentalIdx[id]
	if !ok {
		return domain.RentalRecord{}, false
	}
	return cloneRental(v.state.rentals[i]), true
}

func (v view) FindAssetTag(stockID string) (domain.AssetTag, bool) {
	i, ok := v.state.tagIdx[stockID]
	if !ok {
		return domain.AssetTag{}, false
	}
	return cloneTag(v.state.tags[i]), true
}
