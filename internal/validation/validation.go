// Package validation checks form input before it reaches the backend.
// Failures are reported as *domain.ValidationError keyed by JSON field name.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"cis-portal/internal/domain"
	"github.com/go-playground/validator/v10"
)

// MaxPhotoBytes is the largest accepted profile photo.
const MaxPhotoBytes = 2 << 20

var photoTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

var phonePattern = regexp.MustCompile(`^[\d\s\-+()]+$`)

// Validator wraps a configured validator.Validate. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New registers the portal's custom tags.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates s against its validate tags.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &domain.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		if _, seen := out.Fields[fe.Field()]; !seen {
			out.Fields[fe.Field()] = message(fe)
		}
	}
	return out
}

// Photo checks an uploaded profile image. A nil photo is valid when not required.
func Photo(f *domain.File, required bool) error {
	if f == nil {
		if required {
			return fieldError("profile_image", "Profile image is required")
		}
		return nil
	}
	if !photoTypes[strings.ToLower(f.ContentType)] {
		return fieldError("profile_image", "Only JPG or PNG images are allowed")
	}
	if len(f.Data) > MaxPhotoBytes {
		return fieldError("profile_image", "Image size must be less than 2MB")
	}
	return nil
}

// Merge combines validation errors; nil inputs are skipped. Non-validation
// errors are returned as is.
func Merge(errs ...error) error {
	var merged *domain.ValidationError
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		if merged == nil {
			merged = &domain.ValidationError{Fields: map[string]string{}}
		}
		for k, msg := range ve.Fields {
			merged.Fields[k] = msg
		}
	}
	if merged == nil {
		return nil
	}
	return merged
}

func fieldError(field, msg string) error {
	return &domain.ValidationError{Fields: map[string]string{field: msg}}
}

func message(fe validator.FieldError) string {
	label := Label(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number format"
	case "numeric":
		return label + " must be a number"
	case "eqfield":
		return "Passwords must match"
	case "oneof":
		return label + " must be one of: " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return label + " must be at least " + fe.Param() + " characters"
		}
		return label + " must be at least " + fe.Param()
	default:
		return label + " is invalid"
	}
}

// Label turns a field name such as first_name or DateOfBirth into
// "First name" or "Date of birth".
func Label(field string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for i, r := range field {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r) && i > 0:
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	if len(words) == 0 {
		return field
	}
	s := strings.Join(words, " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
