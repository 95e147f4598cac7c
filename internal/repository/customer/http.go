package customer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"time"

	"cis-portal/internal/domain"
	"cis-portal/internal/httpclient"
)

const resource = "customer"

// photoField is the multipart field the backend reads the profile image from.
const photoField = "profile_image"

type httpRepo struct {
	client httpclient.Doer
}

// NewHTTP returns a Repository backed by the REST API.
func NewHTTP(client httpclient.Doer) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) List(ctx context.Context) ([]domain.Customer, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/customer"})
	if err != nil {
		return nil, err
	}
	out, _, err := domain.DecodeEnvelope[[]domain.Customer](resource, resp.Body, false)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Customer{}
	}
	return out, nil
}

func (r *httpRepo) Get(ctx context.Context, id string) (*domain.Customer, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/customer/" + url.PathEscape(id)})
	if err != nil {
		return nil, err
	}
	return decodeOne(resp)
}

func (r *httpRepo) Create(ctx context.Context, in domain.CreateCustomerInput) (*domain.Customer, error) {
	req := httpclient.Request{Method: http.MethodPost, Path: "/customer"}
	if in.Photo != nil {
		req.Form = httpclient.NewForm().
			Set("first_name", in.FirstName).
			Set("last_name", in.LastName).
			Set("email", in.Email).
			Set("phone", in.Phone).
			Set("gender", in.Gender).
			Set("DateOfBirth", in.DateOfBirth).
			Set("product_id", in.ProductID).
			Set("address", in.Address).
			Attach(photoField, *in.Photo)
	} else {
		req.Body = in
	}
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeOne(resp)
}

func (r *httpRepo) Update(ctx context.Context, id string, patch map[string]any) (*domain.Customer, error) {
	req := httpclient.Request{Method: http.MethodPut, Path: "/customer/" + url.PathEscape(id)}
	if form, ok := patchForm(patch); ok {
		req.Form = form
	} else {
		req.Body = patch
	}
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeOne(resp)
}

func (r *httpRepo) Delete(ctx context.Context, id string) error {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: "/customer/" + url.PathEscape(id)})
	if err != nil {
		return err
	}
	_, _, err = domain.DecodeEnvelope[any](resource, resp.Body, false)
	return err
}

func (r *httpRepo) Statistics(ctx context.Context) (domain.CustomerStatistics, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/customer/statistics"})
	if err != nil {
		return domain.CustomerStatistics{}, err
	}
	stats, _, err := domain.DecodeEnvelope[domain.CustomerStatistics](resource, resp.Body, true)
	return stats, err
}

func (r *httpRepo) MonthlyRegistrations(ctx context.Context) ([]domain.MonthlyRegistration, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/customer/statistics/monthly"})
	if err != nil {
		return nil, err
	}
	out, _, err := domain.DecodeEnvelope[[]domain.MonthlyRegistration](resource, resp.Body, false)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.MonthlyRegistration{}
	}
	return out, nil
}

func (r *httpRepo) Renew(ctx context.Context, in domain.RenewInput) (*domain.Customer, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/customer/renew", Body: in})
	if err != nil {
		return nil, err
	}
	return decodeOne(resp)
}

func (r *httpRepo) DownloadIDCard(ctx context.Context, filename string) (*domain.File, error) {
	name := path.Base(filename)
	resp, err := r.client.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "/customer/id-card/" + url.PathEscape(name),
		Binary: true,
	})
	if err != nil {
		return nil, err
	}
	return binaryFile(resp, name, "application/pdf"), nil
}

func (r *httpRepo) ExportCSV(ctx context.Context) (*domain.File, error) {
	resp, err := r.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/customer/export/csv", Binary: true})
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("customers-%s.csv", time.Now().Format("2006-01-02"))
	return binaryFile(resp, name, "text/csv"), nil
}

func decodeOne(resp *httpclient.Response) (*domain.Customer, error) {
	c, _, err := domain.DecodeEnvelope[domain.Customer](resource, resp.Body, true)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func binaryFile(resp *httpclient.Response, fallbackName, fallbackType string) *domain.File {
	f := &domain.File{Name: fallbackName, ContentType: resp.ContentType(), Data: resp.Body}
	if n := resp.Filename(); n != "" {
		f.Name = path.Base(n)
	}
	if f.ContentType == "" {
		f.ContentType = fallbackType
	}
	return f
}

// patchForm builds a multipart body when patch carries a file.
func patchForm(patch map[string]any) (*httpclient.Form, bool) {
	var files []string
	for k, v := range patch {
		switch v.(type) {
		case *domain.File, domain.File:
			files = append(files, k)
		}
	}
	if len(files) == 0 {
		return nil, false
	}
	sort.Strings(files)

	form := httpclient.NewForm()
	for k, v := range patch {
		switch f := v.(type) {
		case *domain.File, domain.File:
		case nil:
			form.Set(k, "")
		default:
			form.Set(k, fmt.Sprint(f))
		}
	}
	for _, k := range files {
		switch f := patch[k].(type) {
		case *domain.File:
			if f != nil {
				form.Attach(k, *f)
			}
		case domain.File:
			form.Attach(k, f)
		}
	}
	return form, true
}
