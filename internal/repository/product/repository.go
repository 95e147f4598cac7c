package product

import (
	"context"

	"cis-portal/internal/domain"
)

// Repository is the product catalogue side of the backend API.
type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in domain.CreateProductInput) (*domain.Product, error)
	// ToggleStatus flips a product between active and inactive.
	ToggleStatus(ctx context.Context, id string) error
}
