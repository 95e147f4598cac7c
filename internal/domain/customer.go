package domain

import (
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Customer status labels used by listings and verification.
const (
	CustomerActive  = "active"
	CustomerExpired = "expired"
)

// ProductSummary is the product embedded in a customer record.
type ProductSummary struct {
	Name  string          `json:"product_name"`
	Price decimal.Decimal `json:"price"`
}

// OfficerSummary is the registering officer embedded in a customer record.
type OfficerSummary struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Customer is an identity record registered by an officer.
type Customer struct {
	ID           string         `json:"id"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Address      string         `json:"address"`
	Occupation   string         `json:"occupation,omitempty"`
	Gender       string         `json:"gender"`
	DateOfBirth  string         `json:"DateOfBirth,omitempty"`
	CustomerCode string         `json:"customer_code"`
	CreatedAt    Timestamp      `json:"created_at"`
	UpdatedAt    Timestamp      `json:"updated_at"`
	ExpiryDate   Timestamp      `json:"expiry_date"`
	LastVisit    Timestamp      `json:"last_visit"`
	IsActive     bool           `json:"is_active"`
	ProfileImage string         `json:"profile_image"`
	IDCard       string         `json:"id_card,omitempty"`
	IDCardPath   string         `json:"idCardPath,omitempty"`
	ProductID    string         `json:"product_id"`
	OfficerID    string         `json:"officer_id"`
	Product      ProductSummary `json:"product"`
	Officer      OfficerSummary `json:"officer"`
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CardFile returns the file name of the generated ID card, if any.
func (c Customer) CardFile() string {
	ref := c.IDCardPath
	if ref == "" {
		ref = c.IDCard
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// Status reports active or expired at the given instant.
func (c Customer) Status(now time.Time) string {
	if !c.IsActive {
		return CustomerExpired
	}
	if !c.ExpiryDate.IsZero() && !now.Before(c.ExpiryDate.Time) {
		return CustomerExpired
	}
	return CustomerActive
}

// ExpiryFrom derives an expiry instant from registration time and a product's validity in years.
func ExpiryFrom(created time.Time, validYears int) time.Time {
	return created.AddDate(validYears, 0, 0)
}

// CreateCustomerInput is the registration payload. Photo is optional; when set
// the request is sent as multipart form data.
type CreateCustomerInput struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,phone"`
	Gender      string `json:"gender" validate:"required"`
	DateOfBirth string `json:"DateOfBirth" validate:"required"`
	ProductID   string `json:"product_id" validate:"required"`
	Address     string `json:"address" validate:"required"`
	Photo       *File  `json:"-"`
}

// CustomerStatistics are the aggregate counts shown on the dashboard.
type CustomerStatistics struct {
	TotalCustomers      int `json:"total_customers"`
	ActiveCustomers     int `json:"active_customers"`
	ExpiredCustomers    int `json:"expired_customers"`
	RegisteredThisMonth int `json:"registered_this_month"`
	ExpiringThisWeek    int `json:"expiring_this_week"`
	ExpiringThisMonth   int `json:"expiring_this_month"`
}

// MonthlyRegistration is one point of the registrations chart.
type MonthlyRegistration struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// RenewInput moves a customer onto a (possibly new) product.
type RenewInput struct {
	CustomerID string `json:"customer_id"`
	ProductID  string `json:"product_id"`
}
