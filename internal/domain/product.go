package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a subscription tier a customer's ID card is issued against.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"product_name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ValidPeriod int             `json:"valid_period"`
	Status      string          `json:"status"`
	CreatedAt   Timestamp       `json:"created_at"`
	UpdatedAt   Timestamp       `json:"updated_at"`
}

// Active reports whether the product can be assigned.
func (p Product) Active() bool {
	return p.Status == "" || strings.EqualFold(p.Status, StatusActive)
}

// FormatPrice renders the price with a currency prefix and two decimals.
func (p Product) FormatPrice(currency string) string {
	return strings.TrimSpace(currency + " " + p.Price.StringFixed(2))
}

// CreateProductInput is the payload for POST /product.
type CreateProductInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Price       string `json:"price" validate:"required,numeric"`
	ValidPeriod int    `json:"valid_period,omitempty" validate:"omitempty,min=1"`
}
