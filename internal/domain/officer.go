package domain

import (
	"strings"
	"time"
)

// Officer roles.
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Status values shared by officers and products. Records without a status
// are treated as active.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Officer is a portal user.
type Officer struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// FullName joins first and last name.
func (o Officer) FullName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

// Active reports whether the officer can sign in.
func (o Officer) Active() bool {
	return o.Status == "" || strings.EqualFold(o.Status, StatusActive)
}

// RegisterOfficerInput is the payload for POST /auth/register.
type RegisterOfficerInput struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,phone"`
	Role            string `json:"role" validate:"required,oneof=staff admin"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" form:"confirm_password" validate:"required,eqfield=Password"`
}

// UpdateOfficerInput is a partial officer update.
type UpdateOfficerInput struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Role      *string `json:"role,omitempty"`
}

// Credentials are the login form values.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ActivityLogEntry is an immutable audit record.
type ActivityLogEntry struct {
	ID          string    `json:"id"`
	OfficerID   string    `json:"officer_id"`
	OfficerName string    `json:"fullname"`
	Action      string    `json:"action"`
	Timestamp   Timestamp `json:"timestamp"`
}

// At returns the entry time.
func (e ActivityLogEntry) At() time.Time { return e.Timestamp.Time }
