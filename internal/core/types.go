// Package core implements the ledger workflows: catalog and stock intake,
// rentals, transfers, discards, the location hierarchy, and asset tags. All
// state passes through the transactional persistence contract.
package core

import "labstock/pkg/domain"

type (
	// Product aliases domain.Product.
	Product = domain.Product
	// StockUnit aliases domain.StockUnit.
	StockUnit = domain.StockUnit
	// RentalRecord aliases domain.RentalRecord.
	RentalRecord = domain.RentalRecord
	// TransferRecord aliases domain.TransferRecord.
	TransferRecord = domain.TransferRecord
	// AssetTag aliases domain.AssetTag.
	AssetTag = domain.AssetTag
	// LocationNode aliases domain.LocationNode.
	LocationNode = domain.LocationNode
	// DiscardInfo aliases domain.DiscardInfo.
	DiscardInfo = domain.DiscardInfo
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
