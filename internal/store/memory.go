// Package store provides the persistence backends for the exchange
// pipeline: a Postgres store for production and an in-memory store for
// tests and for running without a database.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/aurumcrm/exchange/internal/core"
)

// Memory is an in-memory CustomerStore keyed by identity key. It enforces
// the same uniqueness guarantee as the Postgres store and is safe for
// concurrent use.
type Memory struct {
	mu        sync.RWMutex
	customers map[string]*core.Customer
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{customers: make(map[string]*core.Customer)}
}

// Insert stores a copy of c under its identity key, assigning an ID when
// the customer has none. It returns core.ErrDuplicateEmail when the key
// is already present.
func (m *Memory) Insert(_ context.Context, c *core.Customer) error {
	key := c.IdentityKey()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[key]; ok {
		return core.ErrDuplicateEmail
	}

	cp := *c
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.Tags = append([]string(nil), c.Tags...)
	m.customers[key] = &cp
	return nil
}

// EmailExists reports whether a customer with the given email is stored.
func (m *Memory) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.customers[core.IdentityKey(email)]
	return ok, nil
}

// Each visits every customer in ascending identity-key order.
func (m *Memory) Each(ctx context.Context, fn func(*core.Customer) error) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.customers))
	for k := range m.customers {
		keys = append(keys, k)
	}
	snapshot := make([]*core.Customer, 0, len(keys))
	sort.Strings(keys)
	for _, k := range keys {
		snapshot = append(snapshot, m.customers[k])
	}
	m.mu.RUnlock()

	for _, c := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored customers.
func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.customers)), nil
}
