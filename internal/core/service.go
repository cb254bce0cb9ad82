package core

import (
	"context"
	"time"

	"labstock/internal/blob"
	"labstock/pkg/domain"
)

// Service exposes the transactional ledger operations. Every mutation runs as
// a single store transaction, so concurrent callers serialize on the store's
// critical section and either observe a committed operation or none of it.
type Service struct {
	store PersistentStore
	blobs blob.Store
	opts  serviceOptions
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, options ...Option) *Service {
	opts := defaultServiceOptions()
	for _, apply := range options {
		apply(&opts)
	}
	return &Service{store: store, opts: opts}
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// default invariant rules installed. Intended for tests and ephemeral runs.
func NewInMemoryService(options ...Option) *Service {
	store, err := OpenPersistentStore(StorageConfig{Driver: StorageMemory}, DefaultRulesEngine())
	if err != nil {
		panic(err)
	}
	return NewService(store, options...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// SetBlobStore installs the object store used for catalog images.
func (s *Service) SetBlobStore(store blob.Store) {
	s.blobs = store
}

func (s *Service) now() time.Time {
	return s.opts.clock.Now().UTC()
}

// observe wraps one service operation with tracing, metrics, and error
// logging.
func (s *Service) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := s.opts.tracer.Start(ctx, operation)
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.opts.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.opts.logger.Error("operation failed", "operation", operation, "error", err)
	} else {
		s.opts.logger.Debug("operation completed", "operation", operation, "duration_ms", float64(duration)/float64(time.Millisecond))
	}
	return err
}

func (s *Service) run(ctx context.Context, operation string, fn func(Transaction) error) (Result, error) {
	var res Result
	err := s.observe(ctx, operation, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, fn)
		return err
	})
	return res, err
}

func (s *Service) view(ctx context.Context, operation string, fn func(TransactionView) error) error {
	return s.observe(ctx, operation, func(ctx context.Context) error {
		return s.store.View(ctx, fn)
	})
}

// DefaultRulesEngine returns an engine with the ledger invariant rules
// registered.
func DefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(StockDiscardStateRule())
	engine.Register(LocationLeafRule())
	engine.Register(LocationLabelUniqueRule())
	return engine
}
