// Package diff computes the minimal patch between a stored record and an
// edited copy of it, so an update only sends what the officer changed.
package diff

import (
	"fmt"
	"strings"
	"time"

	"cis-portal/internal/domain"
)

// Record is a flat field -> value view of a resource.
type Record map[string]any

// Rule compares one field. It returns the value to send and whether the
// field belongs in the patch.
type Rule func(original, edited any) (any, bool)

// Rules maps field names to their comparison. Fields without a rule use Scalar.
type Rules map[string]Rule

// ISODateLayout is the form dates are normalised to before comparing and sending.
const ISODateLayout = "2006-01-02T15:04:05.000Z"

// Customer field names with special handling.
const (
	FieldDateOfBirth  = "DateOfBirth"
	FieldProfileImage = "profile_image"
)

// CustomerRules is the rule set of the customer edit form.
var CustomerRules = Rules{
	FieldDateOfBirth:  ISODate,
	FieldProfileImage: FileOrPath,
}

// ComputeChanges diffs a customer record with CustomerRules.
func ComputeChanges(original, edited Record) Record {
	return CustomerRules.Compute(original, edited)
}

// Compute returns the fields of edited that differ from original. Keys only
// present in original are never included. The result is empty, not nil,
// when nothing changed.
func (r Rules) Compute(original, edited Record) Record {
	out := Record{}
	for field, value := range edited {
		rule, ok := r[field]
		if !ok {
			rule = Scalar
		}
		if v, changed := rule(original[field], value); changed {
			out[field] = v
		}
	}
	return out
}

// Scalar compares string forms, treating nil as "".
func Scalar(original, edited any) (any, bool) {
	if normalize(original) == normalize(edited) {
		return nil, false
	}
	return edited, true
}

// ISODate compares dates as ISO-8601 UTC strings. An edited value that does
// not parse is left out of the patch.
func ISODate(original, edited any) (any, bool) {
	next, ok := parseDate(edited)
	if !ok {
		return nil, false
	}
	iso := next.UTC().Format(ISODateLayout)

	prev := normalize(original)
	if t, ok := parseDate(original); ok {
		prev = t.UTC().Format(ISODateLayout)
	}
	if iso == prev {
		return nil, false
	}
	return iso, true
}

// FileOrPath always includes a newly attached file. A string value is an
// existing stored path and is compared ignoring leading slashes.
func FileOrPath(original, edited any) (any, bool) {
	switch v := edited.(type) {
	case *domain.File:
		if v == nil {
			return nil, false
		}
		return v, true
	case domain.File:
		return &v, true
	case string:
		if strings.TrimLeft(v, "/") == strings.TrimLeft(normalize(original), "/") {
			return nil, false
		}
		return v, true
	default:
		return nil, false
	}
}

// Empty reports whether a computed patch carries no changes.
func (r Record) Empty() bool { return len(r) == 0 }

// Fields lists the keys of r.
func (r Record) Fields() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}

func normalize(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case domain.Timestamp:
		return t.Time, !t.IsZero()
	}
	s := strings.TrimSpace(normalize(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
