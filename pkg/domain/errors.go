package domain

import "fmt"

// Code is a stable machine-readable error identifier carried on wire responses.
type Code string

// Error codes surfaced by ledger operations.
const (
	CodeStockNotFound      Code = "STOCK_NOT_FOUND"
	CodeProductNotFound    Code = "PRODUCT_NOT_FOUND"
	CodeRentalNotFound     Code = "RENTAL_NOT_FOUND"
	CodeLocationNotFound   Code = "LOCATION_NOT_FOUND"
	CodeTagNotFound        Code = "TAG_NOT_FOUND"
	CodeAlreadyDiscarded   Code = "ALREADY_DISCARDED"
	CodeNotInStock         Code = "NOT_IN_STOCK"
	CodeAlreadyReturned    Code = "ALREADY_RETURNED"
	CodeStockDiscarded     Code = "STOCK_DISCARDED"
	CodeLocationMismatch   Code = "LOCATION_MISMATCH"
	CodeNotPropertyManaged Code = "NOT_PROPERTY_MANAGED"
	CodeIsPropertyManaged  Code = "IS_PROPERTY_MANAGED"
	CodeInvalidMode        Code = "INVALID_ACCOUNTING_MODE"
	CodeInsufficientStock  Code = "INSUFFICIENT_STOCK"
	CodeMissingFields      Code = "MISSING_FIELDS"
	CodeInvalidTag         Code = "INVALID_TAG"
	CodeDuplicateProduct   Code = "DUPLICATE_PRODUCT"
	CodeProductInUse       Code = "PRODUCT_IN_USE"
	CodeDeleteBlockedStock Code = "DELETE_BLOCKED_STOCK"
	CodeLeafRuleViolation  Code = "LEAF_RULE_VIOLATION"
	CodeDuplicateLabel     Code = "DUPLICATE_LABEL"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeStoreUnavailable   Code = "STORE_UNAVAILABLE"
)

// Coder is implemented by errors that carry a stable wire code.
type Coder interface {
	ErrorCode() Code
}

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// ErrorCode implements Coder.
func (e NotFoundError) ErrorCode() Code {
	switch e.Entity {
	case EntityProduct:
		return CodeProductNotFound
	case EntityRental:
		return CodeRentalNotFound
	case EntityLocationTree:
		return CodeLocationNotFound
	case EntityAssetTag:
		return CodeTagNotFound
	default:
		return CodeStockNotFound
	}
}

// InvalidStateError reports an operation applied to a record whose current
// state forbids it, e.g. discarding an already discarded unit.
type InvalidStateError struct {
	Code    Code
	Entity  EntityType
	ID      string
	Message string
}

func (e InvalidStateError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q: %s", e.Entity, e.ID, e.Message)
	}
	return e.Message
}

// ErrorCode implements Coder.
func (e InvalidStateError) ErrorCode() Code { return e.Code }

// ModeMismatchError reports an operation applied to a product under the wrong
// accounting mode.
type ModeMismatchError struct {
	Code      Code
	ProductID string
}

func (e ModeMismatchError) Error() string {
	if e.Code == CodeIsPropertyManaged {
		return fmt.Sprintf("product %q is property managed", e.ProductID)
	}
	return fmt.Sprintf("product %q is not property managed", e.ProductID)
}

// ErrorCode implements Coder.
func (e ModeMismatchError) ErrorCode() Code { return e.Code }

// InsufficientStockError reports a pooled request exceeding the matching units
// available at the requested location and status.
type InsufficientStockError struct {
	ProductID  string
	LocationID string
	Status     Status
	Requested  int
	Available  int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("product %q at %q: requested %d, %d available",
		e.ProductID, e.LocationID, e.Requested, e.Available)
}

// ErrorCode implements Coder.
func (e InsufficientStockError) ErrorCode() Code { return CodeInsufficientStock }

// ValidationError reports malformed or incomplete request input.
type ValidationError struct {
	Code    Code
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// ErrorCode implements Coder.
func (e ValidationError) ErrorCode() Code {
	if e.Code == "" {
		return CodeMissingFields
	}
	return e.Code
}

// StoreUnavailableError wraps a persistence failure. The enclosing operation
// is considered not to have occurred.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying driver error.
func (e StoreUnavailableError) Unwrap() error { return e.Err }

// ErrorCode implements Coder.
func (e StoreUnavailableError) ErrorCode() Code { return CodeStoreUnavailable }
