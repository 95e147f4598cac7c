package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"cis-portal/internal/domain"
	"cis-portal/internal/listing"
	"cis-portal/internal/notify"
	"cis-portal/internal/querycache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	products  []domain.Product
	created   []domain.CreateProductInput
	createErr error
	toggled   []string
	listCalls int
}

func (r *memoryRepo) List(context.Context) ([]domain.Product, error) {
	r.listCalls++
	return append([]domain.Product(nil), r.products...), nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range r.products {
		if p.ID == id {
			clone := p
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) Create(_ context.Context, in domain.CreateProductInput) (*domain.Product, error) {
	r.created = append(r.created, in)
	if r.createErr != nil {
		return nil, r.createErr
	}
	return &domain.Product{ID: "p-new", Name: in.Name, Price: decimal.RequireFromString(in.Price)}, nil
}

func (r *memoryRepo) ToggleStatus(_ context.Context, id string) error {
	r.toggled = append(r.toggled, id)
	return nil
}

func newService(t *testing.T, repo *memoryRepo) (*Service, *notify.Center) {
	t.Helper()
	cache := querycache.New(querycache.WithStaleTime(time.Minute))
	t.Cleanup(cache.Wait)
	center := notify.NewCenter(10, nil)
	return New(repo, cache, center, nil), center
}

func catalogue() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "Basic", Description: "One year card", Status: "active"},
		{ID: "2", Name: "Premium", Description: "Three year card with photo", Status: "inactive"},
		{ID: "3", Name: "Student", Description: "Discounted basic"},
	}
}

func TestCreate(t *testing.T) {
	repo := &memoryRepo{products: catalogue()}
	svc, center := newService(t, repo)
	ctx := context.Background()
	svc.List(ctx)

	p, err := svc.Create(ctx, domain.CreateProductInput{Name: " Gold ", Description: "Five years", Price: "2500.50", ValidPeriod: 5})
	require.NoError(t, err)
	assert.Equal(t, "Gold", p.Name)
	assert.Equal(t, "2500.50", p.Price.StringFixed(2))
	assert.Equal(t, "product created successfully!", center.Drain()[0].Message)

	svc.List(ctx)
	assert.Equal(t, 2, repo.listCalls, "create invalidates the product list")
}

func TestCreate_Validation(t *testing.T) {
	repo := &memoryRepo{}
	svc, _ := newService(t, repo)

	_, err := svc.Create(context.Background(), domain.CreateProductInput{Name: "Gold", Description: "x", Price: "cheap"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Price must be a number", verr.Fields["price"])
	assert.Empty(t, repo.created)
}

func TestCreate_Failure(t *testing.T) {
	repo := &memoryRepo{createErr: errors.New("connection reset")}
	svc, center := newService(t, repo)

	_, err := svc.Create(context.Background(), domain.CreateProductInput{Name: "Gold", Description: "x", Price: "10"})
	require.Error(t, err)
	got := center.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "Failed to create product", got[0].Message)
}

func TestSearchAndActive(t *testing.T) {
	svc, _ := newService(t, &memoryRepo{products: catalogue()})
	ctx := context.Background()

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	page, err := svc.Search(ctx, listing.Params{Query: "basic"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, _ = svc.Search(ctx, listing.Params{Status: "inactive"})
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Premium", page.Items[0].Name)
}

func TestToggleStatus(t *testing.T) {
	repo := &memoryRepo{products: catalogue()}
	svc, center := newService(t, repo)

	require.NoError(t, svc.ToggleStatus(context.Background(), "2"))
	assert.Equal(t, []string{"2"}, repo.toggled)
	assert.Equal(t, "Product deleted successfully!", center.Drain()[0].Message)
}
