package product

import (
	"context"
	"net/http"
	"net/url"

	"cis-portal/internal/domain"
	"cis-portal/internal/httpclient"
)

const resource = "product"

type httpRepo struct {
	client httpclient.Doer
}

// NewHTTP returns a Repository backed by the REST API. Product responses carry
// their payload under "product" rather than "data".
func NewHTTP(client httpclient.Doer) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) List(ctx context.Context) ([]domain.Product, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/product"})
	if err != nil {
		return nil, err
	}
	out, _, err := domain.DecodeEnvelope[[]domain.Product](resource, resp.Body, false)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Product{}
	}
	return out, nil
}

func (r *httpRepo) Get(ctx context.Context, id string) (*domain.Product, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/product/" + url.PathEscape(id)})
	if err != nil {
		return nil, err
	}
	p, _, err := domain.DecodeEnvelope[domain.Product](resource, resp.Body, true)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *httpRepo) Create(ctx context.Context, in domain.CreateProductInput) (*domain.Product, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/product", Body: in})
	if err != nil {
		return nil, err
	}
	p, _, err := domain.DecodeEnvelope[domain.Product](resource, resp.Body, true)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *httpRepo) ToggleStatus(ctx context.Context, id string) error {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: "/product/" + url.PathEscape(id)})
	if err != nil {
		return err
	}
	_, _, err = domain.DecodeEnvelope[any](resource, resp.Body, false)
	return err
}
