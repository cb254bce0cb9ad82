package domain

import "context"

// Transaction exposes the ledger mutations a persistence implementation must
// support within an atomic scope. All mutations are recorded as Changes for
// rule evaluation at commit time.
type Transaction interface {
	Snapshot() TransactionView
	CreateProduct(Product) (Product, error)
	UpdateProduct(id string, mutator func(*Product) error) (Product, error)
	DeleteProduct(id string) error
	CreateStockUnit(StockUnit) (StockUnit, error)
	UpdateStockUnit(id string, mutator func(*StockUnit) error) (StockUnit, error)
	CreateRental(RentalRecord) (RentalRecord, error)
	UpdateRental(id string, mutator func(*RentalRecord) error) (RentalRecord, error)
	CreateTransfer(TransferRecord) (TransferRecord, error)
	ReplaceLocationTree([]LocationNode) error
	PutAssetTag(AssetTag) (created bool, err error)
	DeleteAssetTag(stockID string) error
}

// TransactionView provides read-only access to snapshot data. Listing methods
// return records in insertion order.
type TransactionView interface {
	RuleView
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Close() error
}
