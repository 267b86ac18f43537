package core

import (
	"context"
	"time"
)

// Options configures pipeline behaviour. Zero values fall back to the
// listed defaults so tests can construct a Service with Options{}.
type Options struct {
	// MaxFileSize caps the input size of one import in bytes (default 50MB).
	MaxFileSize int64
	// MaxConcurrentImports bounds parallel import requests (default 4).
	MaxConcurrentImports int
	// MaxWaitTime is how long an import waits for a slot (default 30s).
	MaxWaitTime time.Duration
	// ValidationWorkers bounds the per-import validation pool (default 4).
	ValidationWorkers int
	// BatchSize is the number of rows read ahead for concurrent
	// validation; it also bounds the memory held per import (default 256).
	BatchSize int
}

const (
	defaultMaxFileSize       = 50 * 1024 * 1024
	defaultValidationWorkers = 4
	defaultBatchSize         = 256
)

// Service drives the exchange pipeline against a persistence
// collaborator. The store is an explicit dependency, never ambient
// state, so tests can run the whole pipeline in memory.
type Service struct {
	store     CustomerStore
	validator *Validator
	limiter   *importLimiter

	maxFileSize int64
	workers     int
	batchSize   int
}

// NewService creates a Service over the given store.
func NewService(store CustomerStore, opts Options) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}
	if opts.ValidationWorkers <= 0 {
		opts.ValidationWorkers = defaultValidationWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	return &Service{
		store:       store,
		validator:   NewValidator(),
		limiter:     newImportLimiter(opts.MaxConcurrentImports, opts.MaxWaitTime),
		maxFileSize: opts.MaxFileSize,
		workers:     opts.ValidationWorkers,
		batchSize:   opts.BatchSize,
	}
}

// ActiveImports returns the number of imports currently running.
func (s *Service) ActiveImports() int {
	return s.limiter.activeCount()
}

// WaitForImports blocks until in-flight imports finish or ctx ends.
// Used during graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.waitForDrain(ctx)
}

// CustomerCount returns the number of customers in the store.
func (s *Service) CustomerCount(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// ListCustomers returns one page of customers in identity-key order.
// Page numbers are 1-based.
func (s *Service) ListCustomers(ctx context.Context, page, pageSize int) ([]*Customer, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	skip := (page - 1) * pageSize
	out := make([]*Customer, 0, pageSize)
	seen := 0
	err = s.store.Each(ctx, func(c *Customer) error {
		if seen >= skip && len(out) < pageSize {
			out = append(out, c)
		}
		seen++
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
