package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"cis-portal/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type recorded struct {
	method  string
	path    string
	rawPath string
	query   url.Values
	auth    string
	ctype   string
	body    []byte
}

func newBackend(t *testing.T, status int, reply string) (*httptest.Server, chan recorded) {
	t.Helper()
	seen := make(chan recorded, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen <- recorded{
			method:  r.Method,
			path:    r.URL.Path,
			rawPath: r.URL.EscapedPath(),
			query:   r.URL.Query(),
			auth:    r.Header.Get("Authorization"),
			ctype:   r.Header.Get("Content-Type"),
			body:    body,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestDoAttachesTokenAndJSON(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{"status":"success","data":[]}`)
	c, err := New(srv.URL+"/api/v1", WithTokenSource(staticToken("T1")))
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/customer",
		Query:  url.Values{"page": {"2"}},
		Body:   map[string]string{"first_name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "application/json", resp.ContentType())

	got := <-seen
	assert.Equal(t, "/api/v1/customer", got.path)
	assert.Equal(t, "2", got.query.Get("page"))
	assert.Equal(t, "Bearer T1", got.auth)
	assert.Equal(t, "application/json", got.ctype)
	assert.JSONEq(t, `{"first_name":"Ada"}`, string(got.body))
}

func TestDoSkipsTokenOnLogin(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{}`)
	c, err := New(srv.URL, WithTokenSource(staticToken("T1")))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/auth/login", Body: map[string]string{}})
	require.NoError(t, err)
	assert.Empty(t, (<-seen).auth)

	_, err = c.Do(context.Background(), Request{Path: "/customer", Anonymous: true})
	require.NoError(t, err)
	assert.Empty(t, (<-seen).auth)

	_, err = c.Do(context.Background(), Request{Path: "/officer/me"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer T1", (<-seen).auth)
}

func TestDoEmptyTokenSendsNoHeader(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{}`)
	c, err := New(srv.URL, WithTokenSource(staticToken("")))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Path: "/customer"})
	require.NoError(t, err)
	assert.Empty(t, (<-seen).auth)
}

func TestDoMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Ada", r.FormValue("first_name"))
		f, hdr, err := r.FormFile("profile_image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "photo.jpg", hdr.Filename)
		assert.Equal(t, "image/jpeg", hdr.Header.Get("Content-Type"))
		assert.Equal(t, []byte{0xff, 0xd8}, data)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	form := NewForm().Set("first_name", "Ada").
		Attach("profile_image", domain.File{Name: "photo.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "customer", Form: form})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
}

func TestDoHTTPError(t *testing.T) {
	t.Run("message from envelope", func(t *testing.T) {
		srv, _ := newBackend(t, http.StatusConflict, `{"status":"error","message":"Email already in use"}`)
		c, _ := New(srv.URL)

		_, err := c.Do(context.Background(), Request{Path: "/customer"})
		var herr *HTTPError
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, http.StatusConflict, herr.Status)
		assert.Equal(t, "Email already in use", herr.Message)
		assert.JSONEq(t, `{"status":"error","message":"Email already in use"}`, string(herr.RawBody))
		assert.False(t, IsNotFound(err))
	})

	t.Run("fallback to status text", func(t *testing.T) {
		srv, _ := newBackend(t, http.StatusNotFound, `not json`)
		c, _ := New(srv.URL)

		_, err := c.Do(context.Background(), Request{Path: "/customer/id-card/x.pdf", Binary: true})
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Equal(t, "Not Found", err.(*HTTPError).Message)
	})

	t.Run("no response", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		c, _ := New(base)
		_, err := c.Do(context.Background(), Request{Path: "/customer"})
		var herr *HTTPError
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, 0, herr.Status)
		assert.Equal(t, MessageNetwork, herr.Message)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer srv.Close()
		defer close(release)

		c, _ := New(srv.URL)
		_, err := c.Do(context.Background(), Request{Path: "/customer", Timeout: 20 * time.Millisecond})
		require.Error(t, err)
		assert.True(t, IsTimeout(err))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestDoBinary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "*/*", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="card.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	resp, err := c.Do(context.Background(), Request{Path: "/customer/id-card/card.pdf", Binary: true})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), resp.Body)
	assert.Equal(t, "application/pdf", resp.ContentType())
	assert.Equal(t, "card.pdf", resp.Filename())
}

func TestMetrics(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{}`)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c, _ := New(srv.URL, WithMetrics(m), WithRateLimit(1000, 5))

	for i := 0; i < 3; i++ {
		_, err := c.Do(context.Background(), Request{Path: "/customer/statistics"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "customer", "200")))
}

func TestDoKeepsEscapedPath(t *testing.T) {
	srv, got := newBackend(t, http.StatusOK, `{}`)
	c, err := New(srv.URL + "/api/")
	require.NoError(t, err)

	_, err = c.Do(context.Background(), Request{Path: "/customer/id-card/" + url.PathEscape("John Doe.pdf")})
	require.NoError(t, err)
	rec := <-got
	assert.Equal(t, "/api/customer/id-card/John%20Doe.pdf", rec.rawPath)

	_, err = c.Do(context.Background(), Request{Path: "/customer/%zz"})
	require.Error(t, err)
}

func TestWithTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c, err := New("http://api.local", WithHTTPClient(shared), WithTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, 5*time.Second, c.http.Timeout)

	c, err = New("http://api.local", WithTimeout(5*time.Second), WithHTTPClient(shared))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, 5*time.Second, c.http.Timeout)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	require.Error(t, err)
}

func TestHTTPErrorMessage(t *testing.T) {
	assert.Equal(t, "backend returned 422: bad", (&HTTPError{Status: 422, Message: "bad"}).Error())
	assert.Equal(t, "network error", (&HTTPError{Message: MessageNetwork}).Error())
	assert.Equal(t, 422, StatusOf(fmt.Errorf("create customer: %w", &HTTPError{Status: 422})))
}
