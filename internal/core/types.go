// Package core implements the customer data exchange pipeline: importing
// CSV/JSON files into the store, exporting the record set, and generating
// the import template. It has no HTTP dependencies and can be driven by
// any frontend.
package core

import (
	"context"
	"strings"
	"time"

	"github.com/aurumcrm/exchange/internal/schema"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Format identifies a supported exchange file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat converts a user-supplied format string to a Format.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, true
	case "json":
		return FormatJSON, true
	}
	return "", false
}

// RawRecord maps canonical field names to the untyped string values found
// in the source file. Only keys matching the schema survive parsing;
// unknown columns are dropped. JSON string arrays are joined with ", " so
// the validator's list handling treats both input shapes the same way.
type RawRecord map[string]string

// Customer is a fully typed, normalized customer record. It is built once
// by the validator and treated as immutable afterwards.
type Customer struct {
	ID             uuid.UUID
	Email          string
	FirstName      string
	LastName       string
	Phone          string
	CustomerType   string
	Address        string
	City           string
	State          string
	Country        string
	PostalCode     string
	DateOfBirth    pgtype.Date
	Anniversary    pgtype.Date
	PreferredMetal string
	PreferredStone string
	RingSize       string
	BudgetRange    string
	LeadSource     string
	Notes          string
	Community      string
	MotherTongue   string
	ReasonForVisit string
	AgeOfEndUser   string
	SavingScheme   string
	CatchmentArea  string
	NextFollowUp   pgtype.Date
	SummaryNotes   string
	Status         string
	Tags           []string
}

// IdentityKey returns the case-folded, trimmed email used for duplicate
// detection. Two records with the same identity key refer to the same
// customer.
func (c *Customer) IdentityKey() string {
	return IdentityKey(c.Email)
}

// IdentityKey case-folds and trims an email address.
func IdentityKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FieldValue renders the named field as its canonical string form: dates
// as YYYY-MM-DD, tags joined with ", ", everything else verbatim. The
// exporter relies on this being the exact inverse of what the validator
// accepts, so that export-then-import round-trips losslessly.
func (c *Customer) FieldValue(name string) string {
	switch name {
	case "email":
		return c.Email
	case "first_name":
		return c.FirstName
	case "last_name":
		return c.LastName
	case "phone":
		return c.Phone
	case "customer_type":
		return c.CustomerType
	case "address":
		return c.Address
	case "city":
		return c.City
	case "state":
		return c.State
	case "country":
		return c.Country
	case "postal_code":
		return c.PostalCode
	case "date_of_birth":
		return formatDate(c.DateOfBirth)
	case "anniversary_date":
		return formatDate(c.Anniversary)
	case "preferred_metal":
		return c.PreferredMetal
	case "preferred_stone":
		return c.PreferredStone
	case "ring_size":
		return c.RingSize
	case "budget_range":
		return c.BudgetRange
	case "lead_source":
		return c.LeadSource
	case "notes":
		return c.Notes
	case "community":
		return c.Community
	case "mother_tongue":
		return c.MotherTongue
	case "reason_for_visit":
		return c.ReasonForVisit
	case "age_of_end_user":
		return c.AgeOfEndUser
	case "saving_scheme":
		return c.SavingScheme
	case "catchment_area":
		return c.CatchmentArea
	case "next_follow_up":
		return formatDate(c.NextFollowUp)
	case "summary_notes":
		return c.SummaryNotes
	case "status":
		return c.Status
	case "tags":
		return strings.Join(c.Tags, ", ")
	}
	return ""
}

func formatDate(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(time.DateOnly)
}

// ImportPhase indicates the current stage of an import operation.
type ImportPhase string

const (
	PhasePending    ImportPhase = "pending"
	PhaseParsing    ImportPhase = "parsing"
	PhaseValidating ImportPhase = "validating"
	PhasePersisting ImportPhase = "persisting"
	PhaseCompleted  ImportPhase = "completed"
	PhaseFailed     ImportPhase = "failed"
	PhaseCancelled  ImportPhase = "cancelled"
)

// RowOutcome records the fate of a single input record. Row indices are
// 1-based for CSV data rows and 0-based for JSON array elements, matching
// how users count rows in each format.
type RowOutcome struct {
	Row      int    `json:"row"`
	Imported bool   `json:"imported"`
	Reason   string `json:"reason,omitempty"`
}

// ImportResult is the final summary of an import. Every input record has
// exactly one outcome: it is counted in Imported, or it appears in Errors
// and is counted in Skipped.
type ImportResult struct {
	Imported  int           `json:"imported_count"`
	Skipped   int           `json:"skipped_count"`
	Errors    []RowOutcome  `json:"errors"`
	Cancelled bool          `json:"cancelled,omitempty"`
	Duration  time.Duration `json:"-"`
}

// Total returns the number of input records accounted for.
func (r *ImportResult) Total() int {
	return r.Imported + r.Skipped
}

// CustomerStore is the persistence collaborator for the pipeline. The
// store's uniqueness guarantee on the identity key is the source of
// truth for duplicate detection; Insert must return ErrDuplicateEmail
// (possibly wrapped) when the key already exists, and ErrStoreUnavailable
// when the backend itself is unreachable.
type CustomerStore interface {
	Insert(ctx context.Context, c *Customer) error
	EmailExists(ctx context.Context, email string) (bool, error)
	// Each visits every customer in ascending identity-key order, so
	// successive exports of unchanged data are byte-identical.
	Each(ctx context.Context, fn func(*Customer) error) error
	Count(ctx context.Context) (int64, error)
}

// canonicalFieldNames is used by the parser for header matching.
var canonicalFieldNames = func() map[string]bool {
	m := make(map[string]bool, schema.FieldCount())
	for _, name := range schema.Names() {
		m[name] = true
	}
	return m
}()
