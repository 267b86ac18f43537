// Package schema defines the canonical customer field set shared by the
// import parser, validator, exporter, and template generator. Keeping the
// field list in one place prevents drift between the components that
// consume it.
package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// FieldType represents the expected data type for a customer field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldEnum
	FieldList
)

// Field defines one column of the customer record set.
type Field struct {
	Name        string    // Canonical lowercase name, used for header matching
	Type        FieldType // Expected data type
	Required    bool      // Record is rejected when missing or blank
	EnumValues  []string  // Valid values for FieldEnum
	Placeholder string    // Example value for the import template row
}

// StatusValues are the accepted values for the status field.
var StatusValues = []string{"active", "inactive", "lead", "prospect", "customer"}

// emailRegex accepts the common mailbox@domain.tld shape. It is deliberately
// loose about the local part; the goal is catching obviously broken input,
// not RFC 5322 conformance.
var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// fields is the canonical, ordered field list. Order matters: exports and
// templates emit columns in exactly this order.
var fields = []Field{
	{Name: "email", Type: FieldText, Required: true, Placeholder: "jane.doe@example.com"},
	{Name: "first_name", Type: FieldText, Placeholder: "Jane"},
	{Name: "last_name", Type: FieldText, Placeholder: "Doe"},
	{Name: "phone", Type: FieldText, Placeholder: "+91 98765 43210"},
	{Name: "customer_type", Type: FieldText, Placeholder: "retail"},
	{Name: "address", Type: FieldText, Placeholder: "12 MG Road"},
	{Name: "city", Type: FieldText, Placeholder: "Bengaluru"},
	{Name: "state", Type: FieldText, Placeholder: "Karnataka"},
	{Name: "country", Type: FieldText, Placeholder: "India"},
	{Name: "postal_code", Type: FieldText, Placeholder: "560001"},
	{Name: "date_of_birth", Type: FieldDate, Placeholder: "1990-04-15"},
	{Name: "anniversary_date", Type: FieldDate, Placeholder: "2015-11-20"},
	{Name: "preferred_metal", Type: FieldText, Placeholder: "gold"},
	{Name: "preferred_stone", Type: FieldText, Placeholder: "diamond"},
	{Name: "ring_size", Type: FieldText, Placeholder: "12"},
	{Name: "budget_range", Type: FieldText, Placeholder: "50000-100000"},
	{Name: "lead_source", Type: FieldText, Placeholder: "walk-in"},
	{Name: "notes", Type: FieldText, Placeholder: "Prefers evening appointments"},
	{Name: "community", Type: FieldText, Placeholder: "Marwari"},
	{Name: "mother_tongue", Type: FieldText, Placeholder: "Hindi"},
	{Name: "reason_for_visit", Type: FieldText, Placeholder: "wedding purchase"},
	{Name: "age_of_end_user", Type: FieldText, Placeholder: "28"},
	{Name: "saving_scheme", Type: FieldText, Placeholder: "gold plan"},
	{Name: "catchment_area", Type: FieldText, Placeholder: "Indiranagar"},
	{Name: "next_follow_up", Type: FieldDate, Placeholder: "2026-01-15"},
	{Name: "summary_notes", Type: FieldText, Placeholder: "Repeat customer"},
	{Name: "status", Type: FieldEnum, EnumValues: StatusValues, Placeholder: "lead"},
	{Name: "tags", Type: FieldList, Placeholder: "vip, festive"},
}

// Fields returns the canonical ordered field definitions.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Names returns the canonical field names in order.
func Names() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the field definition for a canonical name.
func Lookup(name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldCount returns the number of canonical fields.
func FieldCount() int {
	return len(fields)
}

// ValidateEmail reports whether the value looks like an email address.
func ValidateEmail(value string) error {
	if !emailRegex.MatchString(value) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ParseDate parses a strict ISO-8601 calendar date (YYYY-MM-DD).
// Every other format is rejected.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format (use YYYY-MM-DD)")
	}
	return t, nil
}

// NormalizeEnum matches value against the field's enum values
// case-insensitively and returns the canonical spelling.
func NormalizeEnum(f Field, value string) (string, error) {
	for _, ev := range f.EnumValues {
		if strings.EqualFold(ev, value) {
			return ev, nil
		}
	}
	return "", fmt.Errorf("value must be one of: %s", strings.Join(f.EnumValues, ", "))
}

// SplitList splits a comma-separated list value, trims each entry, and
// drops empties.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
