package core

// import.go drives the import pipeline: parse, validate, deduplicate,
// persist. The state machine is Pending -> Parsing -> Validating ->
// Persisting -> Completed; Failed is reachable only from Parsing (format
// failure) or on store unavailability. Everything else is a per-record
// outcome: a bad row never ruins the rest of the file.
//
// Rows are read ahead in bounded batches and validated on a worker pool;
// deduplication and persistence then run sequentially in row order, which
// serializes writes per identity key within one import. Across imports
// and processes, the store's unique constraint closes the remaining
// check-then-act window.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// importJob carries one parsed row through validation to persistence.
type importJob struct {
	row      parsedRow
	customer *Customer
	fieldErr FieldErrors
}

// Import runs the whole pipeline over one input stream. It returns a
// *FormatError when the stream cannot be decoded as the declared format,
// ErrStoreUnavailable when the store goes away mid-batch, and
// ErrTooManyImports when no import slot frees up in time. Every other
// failure is recorded as a skipped RowOutcome inside the result.
//
// Cancelling ctx stops the import early: records persisted so far stay
// persisted and the returned result covers only the processed rows, with
// Cancelled set.
func (s *Service) Import(ctx context.Context, r io.Reader, format Format) (*ImportResult, error) {
	if err := s.limiter.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.release()

	start := time.Now()
	phase := PhaseParsing

	it, err := newRowIterator(wrapForImport(r, s.maxFileSize), format)
	if err != nil {
		slog.Warn("import rejected", "format", format, "error", err)
		return nil, err
	}

	result := &ImportResult{Errors: []RowOutcome{}}
	dedup := newDeduplicator(s.store)
	batch := make([]importJob, 0, s.batchSize)

	for {
		if ctx.Err() != nil {
			phase = PhaseCancelled
			break
		}

		batch = batch[:0]
		var iterErr error
		for len(batch) < s.batchSize {
			row, err := it.Next()
			if err == io.EOF {
				iterErr = io.EOF
				break
			}
			if err != nil {
				// Undecodable mid-stream: the whole import fails.
				phase = PhaseFailed
				slog.Warn("import failed", "format", format, "error", err)
				return nil, err
			}
			batch = append(batch, importJob{row: row})
		}

		if len(batch) > 0 {
			phase = PhaseValidating
			s.validateBatch(ctx, batch)

			phase = PhasePersisting
			done, err := s.persistBatch(ctx, batch, dedup, result)
			if err != nil {
				phase = PhaseFailed
				slog.Error("import aborted", "format", format,
					"imported", result.Imported, "skipped", result.Skipped, "error", err)
				return nil, err
			}
			if !done {
				phase = PhaseCancelled
				break
			}
		}

		if iterErr == io.EOF {
			phase = PhaseCompleted
			break
		}
	}

	result.Cancelled = phase == PhaseCancelled
	result.Duration = time.Since(start)

	slog.Info("import finished",
		"format", format,
		"phase", phase,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// validateBatch validates every parseable row of the batch on a bounded
// worker pool. Each worker writes only its own slice element, so no
// locking is needed; outcomes keep their input order.
func (s *Service) validateBatch(ctx context.Context, batch []importJob) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range batch {
		if batch[i].row.parseErr != "" {
			continue
		}
		i := i
		g.Go(func() error {
			batch[i].customer, batch[i].fieldErr = s.validator.Validate(batch[i].row.record)
			return nil
		})
	}
	// Workers never return errors; Wait is only a join point.
	_ = g.Wait()
}

// persistBatch runs dedup and persistence for a validated batch in row
// order. It returns done=false when ctx was cancelled mid-batch, and a
// non-nil error only when the store becomes unavailable.
func (s *Service) persistBatch(ctx context.Context, batch []importJob, dedup *deduplicator, result *ImportResult) (bool, error) {
	for i := range batch {
		if ctx.Err() != nil {
			return false, nil
		}
		job := &batch[i]

		if job.row.parseErr != "" {
			s.skip(result, job.row.index, job.row.parseErr)
			continue
		}
		if job.fieldErr != nil {
			s.skip(result, job.row.index, job.fieldErr.Error())
			continue
		}

		key := job.customer.IdentityKey()
		if err := dedup.check(ctx, key); err != nil {
			var dup *DuplicateError
			switch {
			case errors.As(err, &dup):
				s.skip(result, job.row.index, dup.Reason)
			case errors.Is(err, ErrStoreUnavailable):
				return false, err
			default:
				s.skip(result, job.row.index, fmt.Sprintf("duplicate check: %v", err))
			}
			continue
		}

		if err := s.store.Insert(ctx, job.customer); err != nil {
			switch {
			case errors.Is(err, ErrDuplicateEmail):
				// Lost the check-then-act race against a concurrent
				// writer; same outcome as a store duplicate.
				s.skip(result, job.row.index, ReasonAlreadyExists)
			case errors.Is(err, ErrStoreUnavailable):
				return false, err
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return false, nil
			default:
				s.skip(result, job.row.index, fmt.Sprintf("persist: %v", err))
			}
			continue
		}

		dedup.register(key)
		result.Imported++
	}
	return true, nil
}

func (s *Service) skip(result *ImportResult, row int, reason string) {
	result.Skipped++
	result.Errors = append(result.Errors, RowOutcome{Row: row, Reason: reason})
}
