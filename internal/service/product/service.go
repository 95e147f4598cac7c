package product

import (
	"context"
	"strings"

	"cis-portal/internal/domain"
	"cis-portal/internal/listing"
	"cis-portal/internal/notify"
	"cis-portal/internal/querycache"
	productrepo "cis-portal/internal/repository/product"
	"cis-portal/internal/validation"
	"go.uber.org/zap"
)

// Cache keys.
var (
	KeyAll     = querycache.NewKey("products")
	KeyLists   = KeyAll.With("list")
	KeyDetails = KeyAll.With("detail")
)

// DetailKey addresses one product.
func DetailKey(id string) querycache.Key { return KeyDetails.With(id) }

const (
	msgCreated      = "product created successfully!"
	msgCreateFailed = "Failed to create product"
	msgToggled      = "Product deleted successfully!"
	msgToggleFailed = "Failed to delete Product"
)

// Service manages the subscription catalogue.
type Service struct {
	repo     productrepo.Repository
	cache    *querycache.Cache
	notifier notify.Notifier
	validate *validation.Validator
	logger   *zap.Logger

	create *querycache.Mutation[domain.CreateProductInput, *domain.Product]
	toggle *querycache.Mutation[string, struct{}]
}

func New(repo productrepo.Repository, cache *querycache.Cache, notifier notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{repo: repo, cache: cache, notifier: notifier, validate: validation.New(), logger: logger}
	s.create = querycache.NewMutation(cache, repo.Create,
		querycache.Invalidating[domain.CreateProductInput, *domain.Product](KeyLists))
	s.toggle = querycache.NewMutation(cache,
		func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, repo.ToggleStatus(ctx, id)
		},
		func(id string, _ struct{}) []querycache.Key {
			return []querycache.Key{KeyLists, DetailKey(id)}
		})
	return s
}

func (s *Service) List(ctx context.Context) querycache.Result[[]domain.Product] {
	return querycache.Query(ctx, s.cache, KeyLists, s.repo.List)
}

func (s *Service) Get(ctx context.Context, id string) querycache.Result[*domain.Product] {
	return querycache.Query(ctx, s.cache, DetailKey(id), func(ctx context.Context) (*domain.Product, error) {
		return s.repo.Get(ctx, id)
	})
}

// Active lists the products a customer can be registered or renewed on.
func (s *Service) Active(ctx context.Context) ([]domain.Product, error) {
	res := s.List(ctx)
	if res.IsError() {
		return nil, res.Err
	}
	return listing.Filter(res.Data, domain.Product.Active), nil
}

// Search filters by name and description; status is all, active or inactive.
func (s *Service) Search(ctx context.Context, p listing.Params) (listing.Page[domain.Product], error) {
	res := s.List(ctx)
	if res.IsError() {
		return listing.Page[domain.Product]{}, res.Err
	}
	items := res.Data
	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case domain.StatusActive:
		items = listing.Filter(items, domain.Product.Active)
	case domain.StatusInactive:
		items = listing.Filter(items, func(pr domain.Product) bool { return !pr.Active() })
	}
	items = listing.Search(items, p.Query, func(pr domain.Product) []string {
		return []string{pr.Name, pr.Description}
	})
	return listing.Paginate(items, p.Page, p.PageSize), nil
}

// Create adds a product to the catalogue.
func (s *Service) Create(ctx context.Context, in domain.CreateProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Price = strings.TrimSpace(in.Price)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	p, err := s.create.Run(ctx, in)
	if err != nil {
		s.notifier.Error(notify.ErrorText(err, msgCreateFailed))
		return nil, err
	}
	s.notifier.Success(msgCreated)
	s.logger.Info("product created", zap.String("name", in.Name))
	return p, nil
}

// ToggleStatus retires or reinstates a product. The backend exposes this as
// DELETE, so the notification reads as a deletion.
func (s *Service) ToggleStatus(ctx context.Context, id string) error {
	if _, err := s.toggle.Run(ctx, id); err != nil {
		s.notifier.Error(notify.ErrorText(err, msgToggleFailed))
		return err
	}
	s.notifier.Success(msgToggled)
	return nil
}
