// Package memory provides the in-memory transactional ledger store. It is the
// reference implementation of the persistence contract and the state engine
// the durable stores snapshot from.
package memory

import (
	"context"
	"sync"
	"time"

	"labstock/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

// ledgerState holds every collection in insertion order. Index maps are
// rebuilt on delete so lookups stay O(1) while iteration order stays stable.
type ledgerState struct {
	products   []domain.Product
	productIdx map[string]int
	stock      []domain.StockUnit
	stockIdx   map[string]int
	rentals    []domain.RentalRecord
	rentalIdx  map[string]int
	transfers  []domain.TransferRecord
	tags       []domain.AssetTag
	tagIdx     map[string]int
	locations  []domain.LocationNode
}

// Snapshot captures a point-in-time clone of the store state as ordered
// arrays, the shape the durable stores persist.
type Snapshot struct {
	Products   []domain.Product        `json:"products"`
	StockUnits []domain.StockUnit      `json:"stock_units"`
	Rentals    []domain.RentalRecord   `json:"rentals"`
	Transfers  []domain.TransferRecord `json:"transfers"`
	AssetTags  []domain.AssetTag       `json:"asset_tags"`
	Locations  []domain.LocationNode   `json:"locations"`
}

func newLedgerState() ledgerState {
	return ledgerState{
		productIdx: make(map[string]int),
		stockIdx:   make(map[string]int),
		rentalIdx:  make(map[string]int),
		tagIdx:     make(map[string]int),
	}
}

func cloneProduct(p domain.Product) domain.Product { return p }

func cloneStockUnit(u domain.StockUnit) domain.StockUnit {
	cp := u
	if u.DiscardInfo != nil {
		info := *u.DiscardInfo
		cp.DiscardInfo = &info
	}
	return cp
}

func cloneRental(r domain.RentalRecord) domain.RentalRecord {
	cp := r
	if r.ReturnDate != nil {
		t := *r.ReturnDate
		cp.ReturnDate = &t
	}
	return cp
}

func cloneTransfer(t domain.TransferRecord) domain.TransferRecord { return t }

func cloneTag(t domain.AssetTag) domain.AssetTag { return t }

func (s ledgerState) clone() ledgerState {
	cloned := newLedgerState()
	cloned.products = make([]domain.Product, 0, len(s.products))
	for i, p := range s.products {
		cloned.products = append(cloned.products, cloneProduct(p))
		cloned.productIdx[p.ID] = i
	}
	cloned.stock = make([]domain.StockUnit, 0, len(s.stock))
	for i, u := range s.stock {
		cloned.stock = append(cloned.stock, cloneStockUnit(u))
		cloned.stockIdx[u.ID] = i
	}
	cloned.rentals = make([]domain.RentalRecord, 0, len(s.rentals))
	for i, r := range s.rentals {
		cloned.rentals = append(cloned.rentals, cloneRental(r))
		cloned.rentalIdx[r.ID] = i
	}
	cloned.transfers = append([]domain.TransferRecord(nil), s.transfers...)
	cloned.tags = make([]domain.AssetTag, 0, len(s.tags))
	for i, t := range s.tags {
		cloned.tags = append(cloned.tags, cloneTag(t))
		cloned.tagIdx[t.StockID] = i
	}
	cloned.locations = domain.CloneLocationTree(s.locations)
	return cloned
}

func (s ledgerState) snapshot() Snapshot {
	snap := Snapshot{
		Products:   make([]domain.Product, 0, len(s.products)),
		StockUnits: make([]domain.StockUnit, 0, len(s.stock)),
		Rentals:    make([]domain.RentalRecord, 0, len(s.rentals)),
		Transfers:  append([]domain.TransferRecord(nil), s.transfers...),
		AssetTags:  make([]domain.AssetTag, 0, len(s.tags)),
		Locations:  domain.CloneLocationTree(s.locations),
	}
	for _, p := range s.products {
		snap.Products = append(snap.Products, cloneProduct(p))
	}
	for _, u := range s.stock {
		snap.StockUnits = append(snap.StockUnits, cloneStockUnit(u))
	}
	for _, r := range s.rentals {
		snap.Rentals = append(snap.Rentals, cloneRental(r))
	}
	for _, t := range s.tags {
		snap.AssetTags = append(snap.AssetTags, cloneTag(t))
	}
	return snap
}

func stateFromSnapshot(snap Snapshot) ledgerState {
	state := newLedgerState()
	for _, p := range snap.Products {
		state.productIdx[p.ID] = len(state.products)
		state.products = append(state.products, cloneProduct(p))
	}
	for _, u := range snap.StockUnits {
		state.stockIdx[u.ID] = len(state.stock)
		state.stock = append(state.stock, cloneStockUnit(u))
	}
	for _, r := range snap.Rentals {
		state.rentalIdx[r.ID] = len(state.rentals)
		state.rentals = append(state.rentals, cloneRental(r))
	}
	state.transfers = append([]domain.TransferRecord(nil), snap.Transfers...)
	for _, t := range snap.AssetTags {
		state.tagIdx[t.StockID] = len(state.tags)
		state.tags = append(state.tags, cloneTag(t))
	}
	state.locations = domain.CloneLocationTree(snap.Locations)
	return state
}

// Store is the in-memory transactional ledger store. Every mutation runs in a
// critical section over a cloned state; the clone replaces the committed state
// only when the workflow closure and the rules engine both pass.
type Store struct {
	mu     sync.RWMutex
	state  ledgerState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an empty in-memory store backed by the provided rules
// engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newLedgerState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the transaction clock. Intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// RunInTransaction executes fn within a transactional copy of the store
// state, evaluates the rules engine against the mutated copy, and commits
// only when nothing blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of committed state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(view{state: &snapshot})
}

// Close releases nothing for the in-memory store.
func (s *Store) Close() error { return nil }

// ExportState returns a deep snapshot of committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot()
}

// ImportState replaces committed state wholesale, bypassing rules. Used when
// loading a persisted snapshot at startup and when rolling back after a
// failed durable write.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(snap)
}
