package core

// validate.go converts raw records into normalized, typed customers.
// Conversion happens once, at the boundary: everything past the validator
// works with Customer values, never with untyped strings.

import (
	"strings"

	"github.com/aurumcrm/exchange/internal/schema"
	"github.com/jackc/pgx/v5/pgtype"
)

// Validator checks raw records against the schema and produces normalized
// customers. It is stateless and safe for concurrent use.
type Validator struct {
	fields []schema.Field
}

// NewValidator creates a validator over the canonical field set.
func NewValidator() *Validator {
	return &Validator{fields: schema.Fields()}
}

// Validate converts one raw record. It returns either a fully typed
// customer or a non-empty list of field errors; a record with any invalid
// field is rejected whole, never partially imported.
func (v *Validator) Validate(rec RawRecord) (*Customer, FieldErrors) {
	var errs FieldErrors
	c := &Customer{}

	for _, f := range v.fields {
		raw := strings.TrimSpace(rec[f.Name])

		if raw == "" {
			if f.Required {
				errs = append(errs, FieldError{Field: f.Name, Message: "required field is missing or blank"})
			}
			continue
		}

		switch f.Type {
		case schema.FieldDate:
			t, err := schema.ParseDate(raw)
			if err != nil {
				errs = append(errs, FieldError{Field: f.Name, Message: err.Error()})
				continue
			}
			c.setDate(f.Name, pgtype.Date{Time: t, Valid: true})

		case schema.FieldEnum:
			val, err := schema.NormalizeEnum(f, raw)
			if err != nil {
				errs = append(errs, FieldError{Field: f.Name, Message: err.Error()})
				continue
			}
			c.setText(f.Name, val)

		case schema.FieldList:
			c.Tags = schema.SplitList(raw)

		default:
			if f.Name == "email" {
				if err := schema.ValidateEmail(raw); err != nil {
					errs = append(errs, FieldError{Field: f.Name, Message: err.Error()})
					continue
				}
			}
			c.setText(f.Name, raw)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return c, nil
}

func (c *Customer) setDate(name string, d pgtype.Date) {
	switch name {
	case "date_of_birth":
		c.DateOfBirth = d
	case "anniversary_date":
		c.Anniversary = d
	case "next_follow_up":
		c.NextFollowUp = d
	}
}

func (c *Customer) setText(name, value string) {
	switch name {
	case "email":
		c.Email = value
	case "first_name":
		c.FirstName = value
	case "last_name":
		c.LastName = value
	case "phone":
		c.Phone = value
	case "customer_type":
		c.CustomerType = value
	case "address":
		c.Address = value
	case "city":
		c.City = value
	case "state":
		c.State = value
	case "country":
		c.Country = value
	case "postal_code":
		c.PostalCode = value
	case "preferred_metal":
		c.PreferredMetal = value
	case "preferred_stone":
		c.PreferredStone = value
	case "ring_size":
		c.RingSize = value
	case "budget_range":
		c.BudgetRange = value
	case "lead_source":
		c.LeadSource = value
	case "notes":
		c.Notes = value
	case "community":
		c.Community = value
	case "mother_tongue":
		c.MotherTongue = value
	case "reason_for_visit":
		c.ReasonForVisit = value
	case "age_of_end_user":
		c.AgeOfEndUser = value
	case "saving_scheme":
		c.SavingScheme = value
	case "catchment_area":
		c.CatchmentArea = value
	case "summary_notes":
		c.SummaryNotes = value
	case "status":
		c.Status = value
	}
}
