package core

// dedup.go decides whether a normalized record's identity key conflicts
// with one already seen in this batch or one already present in the
// store. The in-memory seen-set is an early exit only; the store's unique
// constraint remains the source of truth, and insert-time violations are
// translated to the same duplicate outcome (see import.go).

import "context"

// DuplicateError reports an identity-key conflict. Reason is one of
// ReasonDuplicateInFile or ReasonAlreadyExists.
type DuplicateError struct {
	Key    string
	Reason string
}

func (e *DuplicateError) Error() string {
	return e.Reason + ": " + e.Key
}

// deduplicator tracks identity keys accepted during one import batch.
// It is owned by a single import and not safe for concurrent use.
type deduplicator struct {
	seen  map[string]struct{}
	store CustomerStore
}

func newDeduplicator(store CustomerStore) *deduplicator {
	return &deduplicator{
		seen:  make(map[string]struct{}),
		store: store,
	}
}

// check returns a *DuplicateError when key was already accepted in this
// batch or already exists in the store. Within a batch, the first
// occurrence of a key wins; later occurrences are rejected.
func (d *deduplicator) check(ctx context.Context, key string) error {
	if _, ok := d.seen[key]; ok {
		return &DuplicateError{Key: key, Reason: ReasonDuplicateInFile}
	}

	exists, err := d.store.EmailExists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return &DuplicateError{Key: key, Reason: ReasonAlreadyExists}
	}
	return nil
}

// register records an accepted key so later occurrences in the same batch
// are rejected as in-file duplicates.
func (d *deduplicator) register(key string) {
	d.seen[key] = struct{}{}
}
