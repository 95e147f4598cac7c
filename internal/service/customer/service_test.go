package customer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"cis-portal/internal/diff"
	"cis-portal/internal/domain"
	"cis-portal/internal/download"
	"cis-portal/internal/httpclient"
	"cis-portal/internal/listing"
	"cis-portal/internal/notify"
	"cis-portal/internal/querycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepo is an in-memory customer backend for tests.
type memoryRepo struct {
	mu        sync.Mutex
	customers []domain.Customer
	stats     domain.CustomerStatistics
	monthly   []domain.MonthlyRegistration

	listCalls    int
	created      []domain.CreateCustomerInput
	createResult *domain.Customer
	createErr    error
	patches      []map[string]any
	deleted      []string
	renewed      []domain.RenewInput
	cards        map[string][]byte
	cardErr      error
	cardCalls    int
	statsErr     error
	monthlyErr   error
}

func (r *memoryRepo) List(context.Context) ([]domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	return append([]domain.Customer(nil), r.customers...), nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.ID == id {
			clone := c
			return &clone, nil
		}
	}
	return nil, &httpclient.HTTPError{Status: http.StatusNotFound, Message: "Customer not found"}
}

func (r *memoryRepo) Create(_ context.Context, in domain.CreateCustomerInput) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, in)
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.createResult, nil
}

func (r *memoryRepo) Update(_ context.Context, id string, patch map[string]any) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches = append(r.patches, patch)
	return &domain.Customer{ID: id}, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *memoryRepo) Statistics(context.Context) (domain.CustomerStatistics, error) {
	return r.stats, r.statsErr
}

func (r *memoryRepo) MonthlyRegistrations(context.Context) ([]domain.MonthlyRegistration, error) {
	return r.monthly, r.monthlyErr
}

func (r *memoryRepo) Renew(_ context.Context, in domain.RenewInput) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renewed = append(r.renewed, in)
	return &domain.Customer{ID: in.CustomerID, ProductID: in.ProductID}, nil
}

func (r *memoryRepo) DownloadIDCard(_ context.Context, filename string) (*domain.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cardCalls++
	if r.cardErr != nil {
		return nil, r.cardErr
	}
	data, ok := r.cards[filename]
	if !ok {
		return nil, &httpclient.HTTPError{Status: http.StatusNotFound}
	}
	return &domain.File{Name: filename, ContentType: "application/pdf", Data: data}, nil
}

func (r *memoryRepo) ExportCSV(context.Context) (*domain.File, error) {
	return &domain.File{Name: "customers.csv", ContentType: "text/csv", Data: []byte("customer_code\nCIS-001\n")}, nil
}

type memorySaver struct {
	saved []download.Artifact
	err   error
}

func (s *memorySaver) Save(_ context.Context, a download.Artifact) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, a)
	return "mem://" + a.Filename, nil
}

type fixture struct {
	svc    *Service
	repo   *memoryRepo
	saver  *memorySaver
	center *notify.Center
	cache  *querycache.Cache
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, repo *memoryRepo) *fixture {
	t.Helper()
	cache := querycache.New(querycache.WithStaleTime(time.Minute))
	t.Cleanup(cache.Wait)
	f := &fixture{repo: repo, saver: &memorySaver{}, center: notify.NewCenter(10, nil), cache: cache}
	f.svc = New(repo, cache, f.saver, f.center, nil)
	f.svc.now = func() time.Time { return now }
	return f
}

func validInput() domain.CreateCustomerInput {
	return domain.CreateCustomerInput{
		FirstName:   "Ada",
		LastName:    "Obi",
		Email:       "ada@example.com",
		Phone:       "+234 (801) 234-5678",
		Gender:      "female",
		DateOfBirth: "1990-05-01",
		ProductID:   "prod-1",
		Address:     "12 Marina Road",
	}
}

func messages(ns []notify.Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, string(n.Level)+": "+n.Message)
	}
	return out
}

func TestCreate_SavesCard(t *testing.T) {
	repo := &memoryRepo{
		createResult: &domain.Customer{ID: "c1", CustomerCode: "ABC123", IDCardPath: "uploads/idcards/ABC123.pdf"},
		cards:        map[string][]byte{"ABC123.pdf": []byte("%PDF-1.4")},
	}
	f := newFixture(t, repo)

	require.True(t, f.svc.List(context.Background()).IsSuccess())
	require.Equal(t, 1, repo.listCalls)

	out, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, CardSaved, out.State)
	assert.Equal(t, "ABC123.pdf", out.CardFile)
	assert.Equal(t, "mem://ABC123.pdf", out.SavedTo)
	require.Len(t, f.saver.saved, 1)
	assert.Equal(t, []byte("%PDF-1.4"), f.saver.saved[0].Data)
	assert.Equal(t, "application/pdf", f.saver.saved[0].MimeType)
	assert.Equal(t, []string{"success: Customer created successfully!"}, messages(f.center.Drain()))

	snap, ok := f.cache.Peek(KeyLists)
	require.True(t, ok)
	assert.True(t, snap.Stale, "create invalidates the customer list")
	f.svc.List(context.Background())
	assert.Equal(t, 2, repo.listCalls)
}

// warm populates every customer query so invalidation can be observed.
func warm(t *testing.T, f *fixture, id string) {
	t.Helper()
	ctx := context.Background()
	require.True(t, f.svc.List(ctx).IsSuccess())
	require.True(t, f.svc.Statistics(ctx).IsSuccess())
	require.True(t, f.svc.MonthlyRegistrations(ctx).IsSuccess())
	require.True(t, f.svc.Get(ctx, id).IsSuccess())
}

// staleKeys reports which of the warmed keys are stale.
func staleKeys(t *testing.T, f *fixture, id string) map[string]bool {
	t.Helper()
	out := map[string]bool{}
	for _, k := range []querycache.Key{KeyLists, KeyStatistics, KeyMonthly, DetailKey(id)} {
		snap, ok := f.cache.Peek(k)
		require.True(t, ok, "entry %s missing", k)
		out[k.String()] = snap.Stale
	}
	return out
}

func TestMutationsInvalidateTheirKeys(t *testing.T) {
	other := "c9"
	tests := []struct {
		name   string
		run    func(f *fixture) error
		detail string
		want   map[string]bool
	}{
		{
			name: "create",
			run: func(f *fixture) error {
				_, err := f.svc.Create(context.Background(), validInput())
				return err
			},
			detail: other,
			want: map[string]bool{
				KeyLists.String():         true,
				KeyStatistics.String():    true,
				KeyMonthly.String():       true,
				DetailKey(other).String(): false,
			},
		},
		{
			name:   "delete",
			run:    func(f *fixture) error { return f.svc.Delete(context.Background(), "c1") },
			detail: other,
			want: map[string]bool{
				KeyLists.String():         true,
				KeyStatistics.String():    true,
				KeyMonthly.String():       true,
				DetailKey(other).String(): false,
			},
		},
		{
			name: "renew",
			run: func(f *fixture) error {
				_, err := f.svc.Renew(context.Background(), domain.RenewInput{CustomerID: other, ProductID: "prod-2"})
				return err
			},
			detail: other,
			want: map[string]bool{
				KeyLists.String():         true,
				KeyStatistics.String():    true,
				KeyMonthly.String():       true,
				DetailKey(other).String(): true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memoryRepo{
				customers:    []domain.Customer{{ID: other, CustomerCode: "XYZ999"}},
				createResult: &domain.Customer{ID: "c1", CustomerCode: "ABC123"},
			}
			f := newFixture(t, repo)
			warm(t, f, tt.detail)
			for k, stale := range staleKeys(t, f, tt.detail) {
				require.False(t, stale, "%s stale before the mutation", k)
			}

			require.NoError(t, tt.run(f))
			assert.Equal(t, tt.want, staleKeys(t, f, tt.detail))
		})
	}
}

func TestCreate_CardMissingWarnsAfterSuccess(t *testing.T) {
	repo := &memoryRepo{
		createResult: &domain.Customer{ID: "c1", IDCard: "XYZ.pdf"},
		cards:        map[string][]byte{},
	}
	f := newFixture(t, repo)

	out, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err, "a missing card does not fail the registration")
	assert.Equal(t, CardWarned, out.State)
	require.NotNil(t, out.Warning)
	assert.Equal(t, domain.DownloadNotFound, out.Warning.Kind)
	assert.Equal(t, []string{
		"success: Customer created successfully!",
		"warning: ID card file not found",
	}, messages(f.center.Drain()))
	assert.Empty(t, f.saver.saved)
}

func TestCreate_SaveFailureWarns(t *testing.T) {
	repo := &memoryRepo{
		createResult: &domain.Customer{ID: "c1", IDCard: "XYZ.pdf"},
		cards:        map[string][]byte{"XYZ.pdf": []byte("pdf")},
	}
	f := newFixture(t, repo)
	f.saver.err = errors.New("disk full")

	out, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, CardWarned, out.State)
	assert.Equal(t, domain.DownloadSave, out.Warning.Kind)
}

func TestCreate_NoCardReference(t *testing.T) {
	repo := &memoryRepo{createResult: &domain.Customer{ID: "c1"}}
	f := newFixture(t, repo)

	out, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, Created, out.State)
	assert.Zero(t, repo.cardCalls)
}

func TestCreate_BackendFailure(t *testing.T) {
	repo := &memoryRepo{createErr: &httpclient.HTTPError{Status: http.StatusConflict, Message: "Email already exists"}}
	f := newFixture(t, repo)

	out, err := f.svc.Create(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, httpclient.IsStatus(err, http.StatusConflict))
	assert.Equal(t, CreateFailed, out.State)
	assert.Zero(t, repo.cardCalls)
	assert.Equal(t, []string{"error: Email already exists"}, messages(f.center.Drain()))
}

func TestCreate_ValidationNeverCallsBackend(t *testing.T) {
	repo := &memoryRepo{}
	f := newFixture(t, repo)

	in := validInput()
	in.Email = "not-an-email"
	in.Phone = "abc"
	_, err := f.svc.Create(context.Background(), in)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "phone")
	assert.Empty(t, repo.created)
	assert.Empty(t, f.center.Drain())
}

func storedCustomer() domain.Customer {
	return domain.Customer{
		ID:           "c1",
		FirstName:    "Ada",
		LastName:     "Obi",
		Email:        "ada@example.com",
		Phone:        "08012345678",
		Gender:       "female",
		Address:      "12 Marina Road",
		DateOfBirth:  "1990-05-01T00:00:00.000Z",
		ProductID:    "prod-1",
		ProfileImage: "/uploads/ada.png",
	}
}

func TestUpdate_NoChanges(t *testing.T) {
	repo := &memoryRepo{customers: []domain.Customer{storedCustomer()}}
	f := newFixture(t, repo)

	_, err := f.svc.Update(context.Background(), "c1", diff.Record{
		"first_name":    "Ada",
		"DateOfBirth":   "1990-05-01",
		"profile_image": "uploads/ada.png",
	})
	assert.ErrorIs(t, err, domain.ErrNoChanges)
	assert.True(t, IsNoChanges(err))
	assert.Empty(t, repo.patches)
	assert.Equal(t, []string{"info: No changes to update"}, messages(f.center.Drain()))
}

func TestUpdate_SendsOnlyChangedFields(t *testing.T) {
	repo := &memoryRepo{customers: []domain.Customer{storedCustomer()}}
	f := newFixture(t, repo)
	f.svc.Get(context.Background(), "c1")

	_, err := f.svc.Update(context.Background(), "c1", diff.Record{
		"first_name":  "Adaeze",
		"email":       "ada@example.com",
		"DateOfBirth": "1991-02-03",
		"expiry_date": "2030-01-01",
	})
	require.NoError(t, err)
	require.Len(t, repo.patches, 1)
	assert.Equal(t, map[string]any{
		"first_name":  "Adaeze",
		"DateOfBirth": "1991-02-03T00:00:00.000Z",
	}, repo.patches[0])
	assert.Equal(t, []string{"success: Customer updated successfully!"}, messages(f.center.Drain()))

	snap, _ := f.cache.Peek(DetailKey("c1"))
	assert.True(t, snap.Stale, "update invalidates the detail entry")
}

func TestUpdate_InvalidEmail(t *testing.T) {
	repo := &memoryRepo{customers: []domain.Customer{storedCustomer()}}
	f := newFixture(t, repo)

	_, err := f.svc.Update(context.Background(), "c1", diff.Record{"email": "nope"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, repo.patches)
}

func TestUpdate_UnknownCustomer(t *testing.T) {
	f := newFixture(t, &memoryRepo{})
	_, err := f.svc.Update(context.Background(), "missing", diff.Record{"first_name": "x"})
	assert.True(t, httpclient.IsNotFound(err))
}

func TestDeleteAndRenew(t *testing.T) {
	repo := &memoryRepo{}
	f := newFixture(t, repo)

	require.NoError(t, f.svc.Delete(context.Background(), "c1"))
	assert.Equal(t, []string{"c1"}, repo.deleted)

	_, err := f.svc.Renew(context.Background(), domain.RenewInput{CustomerID: "c1"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "product_id")

	c, err := f.svc.Renew(context.Background(), domain.RenewInput{CustomerID: "c1", ProductID: "prod-2"})
	require.NoError(t, err)
	assert.Equal(t, "prod-2", c.ProductID)
	assert.Equal(t, []string{
		"success: Customer deleted successfully!",
		"success: Subscription renewed successfully!",
	}, messages(f.center.Drain()))
}

func TestSearch(t *testing.T) {
	active := domain.Customer{ID: "1", FirstName: "Ada", LastName: "Obi", CustomerCode: "CIS-001", IsActive: true,
		ExpiryDate: domain.Timestamp{Time: now.AddDate(1, 0, 0)}}
	lapsed := domain.Customer{ID: "2", FirstName: "John", LastName: "Doe", CustomerCode: "CIS-002", Email: "john@doe.io", IsActive: true,
		ExpiryDate: domain.Timestamp{Time: now.AddDate(0, 0, -1)}}
	off := domain.Customer{ID: "3", FirstName: "Jane", LastName: "Roe", CustomerCode: "XYZ-003"}
	f := newFixture(t, &memoryRepo{customers: []domain.Customer{active, lapsed, off}})
	ctx := context.Background()

	page, err := f.svc.Search(ctx, listing.Params{Status: "All"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	page, _ = f.svc.Search(ctx, listing.Params{Status: "Expired"})
	assert.Equal(t, 2, page.Total)

	page, _ = f.svc.Search(ctx, listing.Params{Status: "Active"})
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "1", page.Items[0].ID)

	page, _ = f.svc.Search(ctx, listing.Params{Query: "doe.io"})
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "2", page.Items[0].ID)

	page, _ = f.svc.Search(ctx, listing.Params{Query: "xyz"})
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, f.repo.listCalls, "searches reuse the cached list")
}

func TestDashboard(t *testing.T) {
	repo := &memoryRepo{
		stats:   domain.CustomerStatistics{TotalCustomers: 10, ActiveCustomers: 8, ExpiredCustomers: 2, RegisteredThisMonth: 1},
		monthly: []domain.MonthlyRegistration{{Month: "Jan", Count: 4}},
	}
	f := newFixture(t, repo)

	d := f.svc.Dashboard(context.Background())
	assert.Equal(t, []StatCard{
		{Label: "Total Registered Customers", Value: 10},
		{Label: "Active ID Cards", Value: 8},
		{Label: "Expired ID Cards", Value: 2},
		{Label: "New This Month", Value: 1},
	}, d.Cards)
	assert.Equal(t, 0, d.Alerts[0].Value)
	assert.Equal(t, []Slice{{Name: "Active", Value: 8}, {Name: "Expired", Value: 2}}, d.Breakdown)
	assert.Len(t, d.Monthly, 1)
	assert.Nil(t, d.Errors)
	assert.Zero(t, repo.listCalls, "the dashboard does not load the customer list")
}

func TestDashboard_SectionFailure(t *testing.T) {
	repo := &memoryRepo{monthlyErr: errors.New("boom"), stats: domain.CustomerStatistics{TotalCustomers: 3}}
	f := newFixture(t, repo)

	d := f.svc.Dashboard(context.Background())
	assert.Equal(t, 3, d.Cards[0].Value)
	assert.NotNil(t, d.Monthly)
	assert.Empty(t, d.Monthly)
	assert.Contains(t, d.Errors, "monthly")
	assert.NotContains(t, d.Errors, "statistics")
}

func TestVerify(t *testing.T) {
	repo := &memoryRepo{customers: []domain.Customer{
		{ID: "1", CustomerCode: "CIS-001", IsActive: true, ExpiryDate: domain.Timestamp{Time: now.Add(time.Hour)}},
		{ID: "2", CustomerCode: "CIS-002", IsActive: true, ExpiryDate: domain.Timestamp{Time: now.Add(-time.Hour)}},
	}}
	f := newFixture(t, repo)
	ctx := context.Background()

	v, err := f.svc.Verify(ctx, " cis-001 ")
	require.NoError(t, err)
	assert.Equal(t, VerifyActive, v.Status)
	require.NotNil(t, v.Customer)
	assert.Equal(t, "1", v.Customer.ID)

	v, _ = f.svc.Verify(ctx, "CIS-002")
	assert.Equal(t, VerifyExpired, v.Status)

	v, _ = f.svc.Verify(ctx, "CIS-999")
	assert.Equal(t, VerifyInvalid, v.Status)
	assert.Nil(t, v.Customer)

	v, _ = f.svc.Verify(ctx, "")
	assert.Equal(t, VerifyInvalid, v.Status)
}

func TestDownloadIDCard(t *testing.T) {
	c := storedCustomer()
	c.IDCardPath = "cards/CIS-001.pdf"
	repo := &memoryRepo{customers: []domain.Customer{c, {ID: "c2"}}, cards: map[string][]byte{"CIS-001.pdf": []byte("pdf")}}
	f := newFixture(t, repo)

	loc, err := f.svc.DownloadIDCard(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "mem://CIS-001.pdf", loc)

	_, err = f.svc.DownloadIDCard(context.Background(), "c2")
	var derr *domain.DownloadError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.DownloadNotFound, derr.Kind)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t, &memoryRepo{})
	loc, err := f.svc.ExportCSV(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mem://customers.csv", loc)
	assert.Equal(t, "text/csv", f.saver.saved[0].MimeType)
}
