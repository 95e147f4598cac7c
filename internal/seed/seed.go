package seed

import (
	"context"
	"fmt"
	"strings"

	"cis-portal/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductStore is the part of the product repository seeding needs.
type ProductStore interface {
	List(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, in domain.CreateProductInput) (*domain.Product, error)
}

type productSeed struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ValidYears  int
}

// DefaultCatalogue is the product set a fresh backend is seeded with.
var DefaultCatalogue = []productSeed{
	{
		Name:        "Basic ID Card",
		Description: "Standard customer identity card valid for one year",
		Price:       decimal.RequireFromString("5000"),
		ValidYears:  1,
	},
	{
		Name:        "Premium ID Card",
		Description: "Laminated identity card valid for three years",
		Price:       decimal.RequireFromString("12500"),
		ValidYears:  3,
	},
	{
		Name:        "Student ID Card",
		Description: "Discounted identity card for students, valid for one year",
		Price:       decimal.RequireFromString("2500.50"),
		ValidYears:  1,
	},
}

// Apply creates every catalogue product the backend does not list yet,
// matching by name. It returns how many products were created.
func Apply(ctx context.Context, store ProductStore, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	existing, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[strings.ToLower(strings.TrimSpace(p.Name))] = true
	}

	created := 0
	for _, p := range DefaultCatalogue {
		if have[strings.ToLower(p.Name)] {
			logger.Debug("product already present", zap.String("name", p.Name))
			continue
		}
		in := domain.CreateProductInput{
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price.String(),
			ValidPeriod: p.ValidYears,
		}
		if _, err := store.Create(ctx, in); err != nil {
			return created, fmt.Errorf("create product %s: %w", p.Name, err)
		}
		logger.Info("product seeded", zap.String("name", p.Name), zap.String("price", p.Price.StringFixed(2)))
		created++
	}
	return created, nil
}
