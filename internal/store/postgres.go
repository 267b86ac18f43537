package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/puddle/v2"

	"github.com/aurumcrm/exchange/internal/core"
)

// Postgres is the production CustomerStore. Uniqueness of the identity key
// is enforced by a unique index on lower(email), which makes the database
// the final arbiter of duplicates regardless of concurrent writers.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a store over an existing connection pool. The caller
// owns the pool and is responsible for closing it.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the customers table and its identity-key index if they
// do not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS customers (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	customer_type TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT '',
	date_of_birth DATE,
	anniversary_date DATE,
	preferred_metal TEXT NOT NULL DEFAULT '',
	preferred_stone TEXT NOT NULL DEFAULT '',
	ring_size TEXT NOT NULL DEFAULT '',
	budget_range TEXT NOT NULL DEFAULT '',
	lead_source TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	community TEXT NOT NULL DEFAULT '',
	mother_tongue TEXT NOT NULL DEFAULT '',
	reason_for_visit TEXT NOT NULL DEFAULT '',
	age_of_end_user TEXT NOT NULL DEFAULT '',
	saving_scheme TEXT NOT NULL DEFAULT '',
	catchment_area TEXT NOT NULL DEFAULT '',
	next_follow_up DATE,
	summary_notes TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	tags TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS customers_email_key ON customers (lower(email));`

	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate customers: %w", translateErr(err))
	}
	return nil
}

const customerColumns = `email, first_name, last_name, phone, customer_type,
	address, city, state, country, postal_code, date_of_birth,
	anniversary_date, preferred_metal, preferred_stone, ring_size,
	budget_range, lead_source, notes, community, mother_tongue,
	reason_for_visit, age_of_end_user, saving_scheme, catchment_area,
	next_follow_up, summary_notes, status, tags`

// Insert persists one customer. A unique-index violation is reported as
// core.ErrDuplicateEmail; connectivity failures as core.ErrStoreUnavailable.
func (p *Postgres) Insert(ctx context.Context, c *core.Customer) error {
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	const q = `INSERT INTO customers (id, ` + customerColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27,
		$28, $29)`

	_, err := p.pool.Exec(ctx, q,
		id, c.Email, c.FirstName, c.LastName, c.Phone, c.CustomerType,
		c.Address, c.City, c.State, c.Country, c.PostalCode,
		c.DateOfBirth, c.Anniversary, c.PreferredMetal, c.PreferredStone,
		c.RingSize, c.BudgetRange, c.LeadSource, c.Notes, c.Community,
		c.MotherTongue, c.ReasonForVisit, c.AgeOfEndUser, c.SavingScheme,
		c.CatchmentArea, c.NextFollowUp, c.SummaryNotes, c.Status,
		c.Tags,
	)
	if err != nil {
		return translateErr(err)
	}
	c.ID = id
	return nil
}

// EmailExists reports whether a customer with the given email exists.
func (p *Postgres) EmailExists(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM customers WHERE lower(email) = $1)`

	var exists bool
	if err := p.pool.QueryRow(ctx, q, core.IdentityKey(email)).Scan(&exists); err != nil {
		return false, translateErr(err)
	}
	return exists, nil
}

// Each streams every customer in ascending identity-key order.
func (p *Postgres) Each(ctx context.Context, fn func(*core.Customer) error) error {
	const q = `SELECT id, ` + customerColumns + `
	FROM customers ORDER BY lower(email)`

	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return translateErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var c core.Customer
		err := rows.Scan(
			&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Phone,
			&c.CustomerType, &c.Address, &c.City, &c.State, &c.Country,
			&c.PostalCode, &c.DateOfBirth, &c.Anniversary,
			&c.PreferredMetal, &c.PreferredStone, &c.RingSize,
			&c.BudgetRange, &c.LeadSource, &c.Notes, &c.Community,
			&c.MotherTongue, &c.ReasonForVisit, &c.AgeOfEndUser,
			&c.SavingScheme, &c.CatchmentArea, &c.NextFollowUp,
			&c.SummaryNotes, &c.Status, &c.Tags,
		)
		if err != nil {
			return translateErr(err)
		}
		if err := fn(&c); err != nil {
			return err
		}
	}
	return translateErr(rows.Err())
}

// Count returns the number of stored customers.
func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM customers`).Scan(&n); err != nil {
		return 0, translateErr(err)
	}
	return n, nil
}

// translateErr maps driver errors to the pipeline's sentinel errors.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return fmt.Errorf("%w: %s", core.ErrDuplicateEmail, pgErr.ConstraintName)
		case strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01":
			return fmt.Errorf("%w: %s", core.ErrStoreUnavailable, pgErr.Message)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, puddle.ErrClosedPool) {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return err
}
