package customer

import (
	"context"

	"cis-portal/internal/domain"
)

// Repository is the customer side of the backend API.
type Repository interface {
	List(ctx context.Context) ([]domain.Customer, error)
	Get(ctx context.Context, id string) (*domain.Customer, error)
	Create(ctx context.Context, in domain.CreateCustomerInput) (*domain.Customer, error)
	// Update sends only the fields in patch. A *domain.File value switches the
	// request to multipart.
	Update(ctx context.Context, id string, patch map[string]any) (*domain.Customer, error)
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) (domain.CustomerStatistics, error)
	MonthlyRegistrations(ctx context.Context) ([]domain.MonthlyRegistration, error)
	Renew(ctx context.Context, in domain.RenewInput) (*domain.Customer, error)
	DownloadIDCard(ctx context.Context, filename string) (*domain.File, error)
	ExportCSV(ctx context.Context) (*domain.File, error)
}
