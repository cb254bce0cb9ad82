// Package sqlite persists the ledger to a single SQLite table as JSON
// snapshots, one bucket row per collection.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"labstock/internal/infra/persistence/memory"
	"labstock/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

// Store snapshots the full in-memory state after every successful
// transaction. If the durable write fails the in-memory commit is rolled
// back, so the operation is observed as never having happened.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens or creates the database at path and loads the persisted
// snapshot into a fresh in-memory store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "labstock.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

const (
	bucketProducts  = "products"
	bucketStock     = "stock_units"
	bucketRentals   = "rentals"
	bucketTransfers = "transfers"
	bucketTags      = "asset_tags"
	bucketLocations = "locations"
)

var buckets = []string{bucketProducts, bucketStock, bucketRentals, bucketTransfers, bucketTags, bucketLocations}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snap := memory.Snapshot{}
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		found = true
		var dst any
		switch bucket {
		case bucketProducts:
			dst = &snap.Products
		case bucketStock:
			dst = &snap.StockUnits
		case bucketRentals:
			dst = &snap.Rentals
		case bucketTransfers:
			dst = &snap.Transfers
		case bucketTags:
			dst = &snap.AssetTags
		case bucketLocations:
			dst = &snap.Locations
		default:
			continue
		}
		if err := json.Unmarshal(payload, dst); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if found {
		s.ImportState(snap)
	}
	return nil
}

func (s *Store) persist() (retErr error) {
	snap := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		var data []byte
		switch bucket {
		case bucketProducts:
			data, err = json.Marshal(snap.Products)
		case bucketStock:
			data, err = json.Marshal(snap.StockUnits)
		case bucketRentals:
			data, err = json.Marshal(snap.Rentals)
		case bucketTransfers:
			data, err = json.Marshal(snap.Transfers)
		case bucketTags:
			data, err = json.Marshal(snap.AssetTags)
		case bucketLocations:
			data, err = json.Marshal(snap.Locations)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn in memory, then snapshots state to SQLite.
// A failed snapshot restores the prior in-memory state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.ExportState()
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		s.ImportState(prev)
		return domain.Result{}, domain.StoreUnavailableError{Op: "sqlite snapshot", Err: pErr}
	}
	return res, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
