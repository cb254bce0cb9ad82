// Package domain defines the persistent entities, error taxonomy, and rule
// evaluation primitives used by labstock.
package domain

import "time"

// EntityType identifies the type of record stored in the ledger.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityProduct identifies a catalog product definition.
	EntityProduct EntityType = "product"
	// EntityStockUnit identifies one physical unit of inventory.
	EntityStockUnit EntityType = "stock_unit"
	// EntityRental identifies a rental log record.
	EntityRental EntityType = "rental"
	// EntityTransfer identifies a transfer log record.
	EntityTransfer EntityType = "transfer"
	// EntityLocationTree identifies the location hierarchy as a whole.
	EntityLocationTree EntityType = "location_tree"
	// EntityAssetTag identifies a property tag mapping.
	EntityAssetTag EntityType = "asset_tag"
)

// Status represents the lifecycle state of a stock unit.
type Status string

// Canonical stock unit statuses. Discarded is terminal.
const (
	StatusInStock   Status = "in_stock"
	StatusShortTerm Status = "short_term"
	StatusLongTerm  Status = "long_term"
	StatusDiscarded Status = "discarded"
)

// Valid reports whether s is a member of the canonical status set.
func (s Status) Valid() bool {
	switch s {
	case StatusInStock, StatusShortTerm, StatusLongTerm, StatusDiscarded:
		return true
	}
	return false
}

// LoanType distinguishes short and long term loans.
type LoanType string

// Loan types accepted by the rental workflow.
const (
	LoanShortTerm LoanType = "short_term"
	LoanLongTerm  LoanType = "long_term"
)

// Valid reports whether t is a recognised loan type.
func (t LoanType) Valid() bool {
	return t == LoanShortTerm || t == LoanLongTerm
}

// Status returns the stock status a unit enters while on this kind of loan.
func (t LoanType) Status() Status {
	if t == LoanLongTerm {
		return StatusLongTerm
	}
	return StatusShortTerm
}

// AccountingMode selects how units of a product are tracked. Property-managed
// products are operated on one unit at a time; pooled products are
// interchangeable counted quantities per location.
type AccountingMode string

// Accounting modes. Workflows switch on this value and treat any other value
// as an error, so a third mode cannot slip through a forgotten branch.
const (
	ModePropertyManaged AccountingMode = "property_managed"
	ModePooled          AccountingMode = "pooled"
)

// Valid reports whether m is a recognised accounting mode.
func (m AccountingMode) Valid() bool {
	return m == ModePropertyManaged || m == ModePooled
}

// Product is a catalog definition. Identity fields are immutable once stock
// references the product.
type Product struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Brand          string         `json:"brand"`
	Model          string         `json:"model"`
	Specifications string         `json:"specifications"`
	Price          float64        `json:"price"`
	Mode           AccountingMode `json:"accounting_mode"`
	ImageLink      string         `json:"image_link,omitempty"`
	ImageKey       string         `json:"image_key,omitempty"`
}

// DiscardInfo records why and by whom a unit was retired.
type DiscardInfo struct {
	Date     time.Time `json:"date"`
	Reason   string    `json:"reason"`
	Operator string    `json:"operator"`
}

// StockUnit is one physical, individually identified item of inventory.
// Invariant: Discarded == true exactly when CurrentStatus == StatusDiscarded.
type StockUnit struct {
	ID            string       `json:"id"`
	ProductID     string       `json:"product_id"`
	LocationID    string       `json:"location_id"`
	CurrentStatus Status       `json:"current_status"`
	CreatedAt     time.Time    `json:"created_at"`
	Discarded     bool         `json:"discarded"`
	DiscardInfo   *DiscardInfo `json:"discard_info,omitempty"`
}

// RentalRecord is one loan episode for one unit. ReturnDate nil marks the
// loan outstanding; it is the only field ever mutated after creation besides
// DueDate extension.
type RentalRecord struct {
	ID         string     `json:"id"`
	StockID    string     `json:"stock_id"`
	ProductID  string     `json:"product_id"`
	LocationID string     `json:"location_id"`
	Renter     string     `json:"renter"`
	Borrower   string     `json:"borrower"`
	LoanType   LoanType   `json:"loan_type"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
}

// Outstanding reports whether the loan has not been returned yet.
func (r RentalRecord) Outstanding() bool {
	return r.ReturnDate == nil
}

// TransferRecord is an append-only audit entry for one moved unit.
type TransferRecord struct {
	ID           string    `json:"id"`
	StockID      string    `json:"stock_id"`
	FromLocation string    `json:"from_location"`
	ToLocation   string    `json:"to_location"`
	Date         time.Time `json:"date"`
}

// AssetTag maps a property-managed stock unit to an external asset tag.
type AssetTag struct {
	StockID string `json:"stock_id"`
	TagID   string `json:"tag_id"`
}

// LocationNode is one node of the ordered location hierarchy. Labels are
// unique across the whole tree, and any node holding stock must be a leaf.
type LocationNode struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Children []LocationNode `json:"children,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions captured for rule evaluation.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	// ActionDelete indicates an entity was deleted.
	ActionDelete Action = "delete"
	// ActionReplace indicates a whole collection was swapped (location tree).
	ActionReplace Action = "replace"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed rule evaluation. EntityID names the offending
// record so callers can surface exactly what blocked the operation.
type Violation struct {
	Rule     string     `json:"rule"`
	Code     Code       `json:"code"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// EntityIDs collects the distinct offending entity ids recorded under code.
func (r Result) EntityIDs(code Code) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, v := range r.Violations {
		if v.Code != code || v.EntityID == "" {
			continue
		}
		if _, ok := seen[v.EntityID]; ok {
			continue
		}
		seen[v.EntityID] = struct{}{}
		ids = append(ids, v.EntityID)
	}
	return ids
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
