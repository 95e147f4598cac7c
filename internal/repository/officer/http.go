package officer

import (
	"context"
	"net/http"
	"net/url"

	"cis-portal/internal/domain"
	"cis-portal/internal/httpclient"
)

const resource = "officer"

type httpRepo struct {
	client httpclient.Doer
}

// NewHTTP returns a Repository backed by the REST API.
func NewHTTP(client httpclient.Doer) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) Login(ctx context.Context, creds domain.Credentials) (LoginResult, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/auth/login", Body: creds})
	if err != nil {
		return LoginResult{}, err
	}
	payload, msg, err := domain.DecodeEnvelope[struct {
		Token string `json:"token"`
	}]("auth", resp.Body, true)
	if err != nil {
		return LoginResult{}, err
	}
	if payload.Token == "" {
		return LoginResult{}, &domain.DecodeError{Resource: "auth", Reason: "missing token"}
	}
	return LoginResult{Token: payload.Token, Message: msg}, nil
}

func (r *httpRepo) Register(ctx context.Context, in domain.RegisterOfficerInput) (*domain.Officer, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/auth/register", Body: in})
	if err != nil {
		return nil, err
	}
	return decodeOne(resp)
}

func (r *httpRepo) List(ctx context.Context) ([]domain.Officer, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/officer"})
	if err != nil {
		return nil, err
	}
	out, _, err := domain.DecodeEnvelope[[]domain.Officer](resource, resp.Body, false)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Officer{}
	}
	return out, nil
}

func (r *httpRepo) Me(ctx context.Context) (*domain.Officer, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/officer/me"})
	if err != nil {
		return nil, err
	}
	return decodeOne(resp)
}

func (r *httpRepo) Get(ctx context.Context, id string) (*domain.Officer, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/officer/" + url.PathEscape(id)})
	if err != nil {
		return nil, err
	}
	return decodeOne(resp)
}

func (r *httpRepo) Update(ctx context.Context, id string, in domain.UpdateOfficerInput) (*domain.Officer, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodPut, Path: "/officer/" + url.PathEscape(id), Body: in})
	if err != nil {
		return nil, err
	}
	return decodeOne(resp)
}

func (r *httpRepo) ToggleStatus(ctx context.Context, id string) error {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: "/officer/" + url.PathEscape(id)})
	if err != nil {
		return err
	}
	_, _, err = domain.DecodeEnvelope[any](resource, resp.Body, false)
	return err
}

func (r *httpRepo) ActivityLogs(ctx context.Context) ([]domain.ActivityLogEntry, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/officer/activity"})
	if err != nil {
		return nil, err
	}
	out, _, err := domain.DecodeEnvelope[[]domain.ActivityLogEntry](resource, resp.Body, false)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.ActivityLogEntry{}
	}
	return out, nil
}

func decodeOne(resp *httpclient.Response) (*domain.Officer, error) {
	o, _, err := domain.DecodeEnvelope[domain.Officer](resource, resp.Body, true)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
