package validation

import (
	"errors"
	"testing"

	"cis-portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCustomer() domain.CreateCustomerInput {
	return domain.CreateCustomerInput{
		FirstName:   "Ada",
		LastName:    "Obi",
		Email:       "ada@example.com",
		Phone:       "+234 (0) 800-000",
		Gender:      "female",
		DateOfBirth: "1990-05-04",
		ProductID:   "P1",
		Address:     "12 Marina, Lagos",
	}
}

func TestStruct_Customer(t *testing.T) {
	v := New()
	require.NoError(t, v.Struct(validCustomer()))

	in := validCustomer()
	in.FirstName = ""
	in.Email = "not-an-email"
	in.Phone = "call me"
	err := v.Struct(in)

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{
		"first_name": "First name is required",
		"email":      "Invalid email format",
		"phone":      "Invalid phone number format",
	}, ve.Fields)
}

func TestStruct_Officer(t *testing.T) {
	v := New()
	in := domain.RegisterOfficerInput{
		FirstName:       "Tunde",
		LastName:        "Bello",
		Username:        "tbello",
		Email:           "t@example.com",
		Phone:           "0800",
		Role:            "manager",
		Password:        "abc",
		ConfirmPassword: "abd",
	}
	err := v.Struct(in)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Role must be one of: staff admin", ve.Fields["role"])
	assert.Equal(t, "Password must be at least 6 characters", ve.Fields["password"])
	assert.Equal(t, "Passwords must match", ve.Fields["confirm_password"])
}

func TestStruct_Product(t *testing.T) {
	v := New()
	err := v.Struct(domain.CreateProductInput{Name: "Gold", Description: "Annual", Price: "12a"})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{"price": "Price must be a number"}, ve.Fields)

	require.NoError(t, v.Struct(domain.CreateProductInput{Name: "Gold", Description: "Annual", Price: "1500.50", ValidPeriod: 2}))
}

func TestPhoto(t *testing.T) {
	assert.NoError(t, Photo(nil, false))
	assert.Error(t, Photo(nil, true))
	assert.NoError(t, Photo(&domain.File{ContentType: "image/png", Data: []byte{1}}, true))

	err := Photo(&domain.File{ContentType: "image/gif"}, false)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Only JPG or PNG images are allowed", ve.Fields["profile_image"])

	big := &domain.File{ContentType: "image/jpeg", Data: make([]byte, MaxPhotoBytes+1)}
	require.True(t, errors.As(Photo(big, false), &ve))
	assert.Equal(t, "Image size must be less than 2MB", ve.Fields["profile_image"])
}

func TestMerge(t *testing.T) {
	assert.NoError(t, Merge(nil, nil))

	a := &domain.ValidationError{Fields: map[string]string{"email": "Invalid email format"}}
	b := &domain.ValidationError{Fields: map[string]string{"profile_image": "Profile image is required"}}
	var ve *domain.ValidationError
	require.True(t, errors.As(Merge(a, nil, b), &ve))
	assert.Len(t, ve.Fields, 2)

	other := errors.New("boom")
	assert.Same(t, other, Merge(a, other))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "First name", Label("first_name"))
	assert.Equal(t, "Date of birth", Label("DateOfBirth"))
	assert.Equal(t, "Price", Label("price"))
}
