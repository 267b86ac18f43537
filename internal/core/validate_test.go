package core

import (
	"strings"
	"testing"
)

func validRecord() RawRecord {
	return RawRecord{
		"email":      "jane@example.com",
		"first_name": "Jane",
	}
}

func TestValidateMinimalRecord(t *testing.T) {
	v := NewValidator()

	c, errs := v.Validate(validRecord())
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if c.Email != "jane@example.com" || c.FirstName != "Jane" {
		t.Errorf("customer = %+v", c)
	}
}

func TestValidateFullRecord(t *testing.T) {
	v := NewValidator()

	rec := RawRecord{
		"email":            "  raj@example.com ",
		"first_name":       "Raj",
		"date_of_birth":    "1988-12-01",
		"anniversary_date": "2012-02-14",
		"next_follow_up":   "2026-10-01",
		"status":           "PROSPECT",
		"tags":             "vip, festive , bridal",
		"ring_size":        "14",
	}

	c, errs := v.Validate(rec)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if c.Email != "raj@example.com" {
		t.Errorf("email not trimmed: %q", c.Email)
	}
	if !c.DateOfBirth.Valid || c.DateOfBirth.Time.Format("2006-01-02") != "1988-12-01" {
		t.Errorf("date_of_birth = %+v", c.DateOfBirth)
	}
	if c.Status != "prospect" {
		t.Errorf("status = %q, want canonical prospect", c.Status)
	}
	if len(c.Tags) != 3 || c.Tags[2] != "bridal" {
		t.Errorf("tags = %v", c.Tags)
	}
}

func TestValidateRejectsWholeRecord(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		mutate    func(RawRecord)
		wantField string
		wantMsg   string
	}{
		{
			"missing email",
			func(r RawRecord) { delete(r, "email") },
			"email", "required field is missing or blank",
		},
		{
			"blank email",
			func(r RawRecord) { r["email"] = "   " },
			"email", "required field is missing or blank",
		},
		{
			"malformed email",
			func(r RawRecord) { r["email"] = "not-an-email" },
			"email", "invalid email format",
		},
		{
			"bad date",
			func(r RawRecord) { r["date_of_birth"] = "15/04/1990" },
			"date_of_birth", "invalid date format",
		},
		{
			"bad status",
			func(r RawRecord) { r["status"] = "dormant" },
			"status", "must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)

			c, errs := v.Validate(rec)
			if c != nil {
				t.Fatal("invalid record produced a customer")
			}
			if len(errs) == 0 {
				t.Fatal("no field errors")
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", errs[0].Field, tt.wantField)
			}
			if !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want contains %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateCollectsAllFieldErrors(t *testing.T) {
	v := NewValidator()

	rec := RawRecord{
		"email":         "broken",
		"date_of_birth": "soon",
		"status":        "dormant",
	}

	_, errs := v.Validate(rec)
	if len(errs) != 3 {
		t.Fatalf("got %d errors (%v), want 3", len(errs), errs)
	}
}

func TestValidateOptionalFieldsStayEmpty(t *testing.T) {
	v := NewValidator()

	c, errs := v.Validate(validRecord())
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if c.DateOfBirth.Valid || c.NextFollowUp.Valid {
		t.Error("absent dates marked valid")
	}
	if len(c.Tags) != 0 {
		t.Errorf("tags = %v, want empty", c.Tags)
	}
}
