package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/aurumcrm/exchange/internal/core"
)

func customer(email string) *core.Customer {
	return &core.Customer{Email: email, FirstName: "Test"}
}

func TestMemoryInsert(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	c := customer("jane@example.com")
	if err := m.Insert(ctx, c); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	count, _ := m.Count(ctx)
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestMemoryInsertAssignsID(t *testing.T) {
	m := NewMemory()

	if err := m.Insert(context.Background(), customer("jane@example.com")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	m.Each(context.Background(), func(c *core.Customer) error {
		if c.ID == uuid.Nil {
			t.Error("stored customer has nil ID")
		}
		return nil
	})
}

func TestMemoryDuplicateInsert(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Insert(ctx, customer("jane@example.com")); err != nil {
		t.Fatalf("first Insert: %v", err)
	}

	// Identity key is case-insensitive.
	err := m.Insert(ctx, customer("JANE@EXAMPLE.COM"))
	if !errors.Is(err, core.ErrDuplicateEmail) {
		t.Fatalf("error = %v, want ErrDuplicateEmail", err)
	}

	count, _ := m.Count(ctx)
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestMemoryEmailExists(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Insert(ctx, customer("jane@example.com"))

	exists, err := m.EmailExists(ctx, " Jane@Example.COM ")
	if err != nil || !exists {
		t.Errorf("EmailExists = %v, %v; want true, nil", exists, err)
	}

	exists, _ = m.EmailExists(ctx, "other@example.com")
	if exists {
		t.Error("EmailExists reported a missing customer")
	}
}

func TestMemoryEachOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, email := range []string{"zoe@example.com", "amir@example.com", "mia@example.com"} {
		if err := m.Insert(ctx, customer(email)); err != nil {
			t.Fatalf("Insert %s: %v", email, err)
		}
	}

	var got []string
	m.Each(ctx, func(c *core.Customer) error {
		got = append(got, c.Email)
		return nil
	})

	want := []string{"amir@example.com", "mia@example.com", "zoe@example.com"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Each order = %v, want %v", got, want)
		}
	}
}

func TestMemoryEachStopsOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Insert(ctx, customer("a@example.com"))
	m.Insert(ctx, customer("b@example.com"))

	stop := errors.New("stop")
	visits := 0
	err := m.Each(ctx, func(c *core.Customer) error {
		visits++
		return stop
	})
	if !errors.Is(err, stop) || visits != 1 {
		t.Errorf("err = %v, visits = %d", err, visits)
	}
}

func TestMemoryInsertCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	c := customer("jane@example.com")
	c.Tags = []string{"vip"}
	m.Insert(ctx, c)

	// Mutating the caller's value must not affect the stored copy.
	c.FirstName = "Changed"
	c.Tags[0] = "changed"

	m.Each(ctx, func(stored *core.Customer) error {
		if stored.FirstName != "Test" {
			t.Errorf("stored FirstName = %q", stored.FirstName)
		}
		if stored.Tags[0] != "vip" {
			t.Errorf("stored Tags = %v", stored.Tags)
		}
		return nil
	})
}
