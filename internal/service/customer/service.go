package customer

import (
	"context"
	"errors"
	"strings"
	"time"

	"cis-portal/internal/diff"
	"cis-portal/internal/domain"
	"cis-portal/internal/download"
	"cis-portal/internal/listing"
	"cis-portal/internal/notify"
	"cis-portal/internal/querycache"
	custrepo "cis-portal/internal/repository/customer"
	"cis-portal/internal/validation"
	"go.uber.org/zap"
)

// Notification texts.
const (
	msgCreated      = "Customer created successfully!"
	msgCreateFailed = "Failed to create customer"
	msgUpdated      = "Customer updated successfully!"
	msgUpdateFailed = "Failed to update customer"
	msgDeleted      = "Customer deleted successfully!"
	msgDeleteFailed = "Failed to delete customer"
	msgRenewed      = "Subscription renewed successfully!"
	msgRenewFailed  = "Failed to renew subscription"
	msgNoChanges    = "No changes to update"
	msgCardSaved    = "ID card downloaded"
	msgExported     = "Customer export downloaded"
	msgExportFailed = "Failed to export customers"
)

// editableFields are the fields the edit form may patch. Server derived
// fields such as expiry_date are never sent.
var editableFields = map[string]bool{
	"first_name":           true,
	"last_name":            true,
	"email":                true,
	"phone":                true,
	"address":              true,
	"occupation":           true,
	"gender":               true,
	"product_id":           true,
	diff.FieldDateOfBirth:  true,
	diff.FieldProfileImage: true,
}

type updateArgs struct {
	ID    string
	Patch diff.Record
}

// Service backs the customer pages: tables, dashboard, registration,
// editing, renewal, verification and downloads.
type Service struct {
	repo     custrepo.Repository
	cache    *querycache.Cache
	saver    download.Saver
	notifier notify.Notifier
	validate *validation.Validator
	logger   *zap.Logger
	now      func() time.Time

	create *querycache.Mutation[domain.CreateCustomerInput, *domain.Customer]
	update *querycache.Mutation[updateArgs, *domain.Customer]
	remove *querycache.Mutation[string, struct{}]
	renew  *querycache.Mutation[domain.RenewInput, *domain.Customer]
}

// New wires a Service. saver receives ID cards and exports.
func New(repo custrepo.Repository, cache *querycache.Cache, saver download.Saver, notifier notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:     repo,
		cache:    cache,
		saver:    saver,
		notifier: notifier,
		validate: validation.New(),
		logger:   logger,
		now:      time.Now,
	}

	s.create = querycache.NewMutation(cache, repo.Create,
		querycache.Invalidating[domain.CreateCustomerInput, *domain.Customer](KeyLists, KeyStatistics))
	s.update = querycache.NewMutation(cache,
		func(ctx context.Context, a updateArgs) (*domain.Customer, error) {
			return repo.Update(ctx, a.ID, a.Patch)
		},
		func(a updateArgs, _ *domain.Customer) []querycache.Key {
			return []querycache.Key{KeyLists, DetailKey(a.ID), KeyStatistics}
		})
	s.remove = querycache.NewMutation(cache,
		func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, repo.Delete(ctx, id)
		},
		querycache.Invalidating[string, struct{}](KeyLists, KeyStatistics))
	s.renew = querycache.NewMutation(cache, repo.Renew,
		func(in domain.RenewInput, _ *domain.Customer) []querycache.Key {
			return []querycache.Key{KeyLists, DetailKey(in.CustomerID), KeyStatistics}
		})
	return s
}

// List returns every customer.
func (s *Service) List(ctx context.Context) querycache.Result[[]domain.Customer] {
	return querycache.Query(ctx, s.cache, KeyLists, s.repo.List)
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id string) querycache.Result[*domain.Customer] {
	return querycache.Query(ctx, s.cache, DetailKey(id), func(ctx context.Context) (*domain.Customer, error) {
		return s.repo.Get(ctx, id)
	})
}

// Statistics returns the dashboard counters.
func (s *Service) Statistics(ctx context.Context) querycache.Result[domain.CustomerStatistics] {
	return querycache.Query(ctx, s.cache, KeyStatistics, s.repo.Statistics)
}

// MonthlyRegistrations returns the registrations chart series.
func (s *Service) MonthlyRegistrations(ctx context.Context) querycache.Result[[]domain.MonthlyRegistration] {
	return querycache.Query(ctx, s.cache, KeyMonthly, s.repo.MonthlyRegistrations)
}

// Search filters the cached customer list by status (All, Active, Expired)
// and a query over name, customer code and email, then paginates.
func (s *Service) Search(ctx context.Context, p listing.Params) (listing.Page[domain.Customer], error) {
	res := s.List(ctx)
	if res.IsError() {
		return listing.Page[domain.Customer]{}, res.Err
	}
	now := s.now()
	items := res.Data
	if status := strings.ToLower(strings.TrimSpace(p.Status)); status != "" && status != "all" {
		items = listing.Filter(items, func(c domain.Customer) bool { return c.Status(now) == status })
	}
	items = listing.Search(items, p.Query, func(c domain.Customer) []string {
		return []string{c.FullName(), c.CustomerCode, c.Email}
	})
	return listing.Paginate(items, p.Page, p.PageSize), nil
}

// CreateState is where the registration flow ended.
type CreateState string

const (
	CreateFailed CreateState = "create_failed"
	// Created means the record exists and the backend referenced no ID card.
	Created CreateState = "created"
	// CardSaved means the generated ID card was fetched and saved.
	CardSaved CreateState = "saved"
	// CardWarned means the record exists but the card could not be delivered.
	CardWarned CreateState = "warned"
)

// CreateOutcome reports a registration. Warning is set only in CardWarned.
type CreateOutcome struct {
	State    CreateState           `json:"state"`
	Customer *domain.Customer      `json:"customer,omitempty"`
	CardFile string                `json:"card_file,omitempty"`
	SavedTo  string                `json:"saved_to,omitempty"`
	Warning  *domain.DownloadError `json:"-"`
}

// Create registers a customer and then fetches and saves the generated ID
// card. A failed card step degrades to a warning after the success
// notification; the registration still counts as successful.
func (s *Service) Create(ctx context.Context, in domain.CreateCustomerInput) (*CreateOutcome, error) {
	if err := validation.Merge(s.validate.Struct(in), validation.Photo(in.Photo, false)); err != nil {
		return &CreateOutcome{State: CreateFailed}, err
	}

	created, err := s.create.Run(ctx, in)
	if err != nil {
		s.notifier.Error(notify.ErrorText(err, msgCreateFailed))
		return &CreateOutcome{State: CreateFailed}, err
	}
	s.notifier.Success(msgCreated)
	s.logger.Info("customer created", zap.String("id", created.ID), zap.String("code", created.CustomerCode))

	out := &CreateOutcome{State: Created, Customer: created, CardFile: created.CardFile()}
	if out.CardFile == "" {
		return out, nil
	}

	loc, derr := s.fetchCard(ctx, out.CardFile)
	if derr != nil {
		out.State = CardWarned
		out.Warning = derr
		s.notifier.Warning(derr.Warning())
		s.logger.Warn("id card not delivered", zap.String("file", out.CardFile), zap.Error(derr))
		return out, nil
	}
	out.State = CardSaved
	out.SavedTo = loc
	return out, nil
}

func (s *Service) fetchCard(ctx context.Context, filename string) (string, *domain.DownloadError) {
	file, err := s.repo.DownloadIDCard(ctx, filename)
	if err != nil {
		return "", download.FetchFailure(filename, err)
	}
	loc, err := s.saver.Save(ctx, download.Artifact{Data: file.Data, Filename: filename, MimeType: file.ContentType})
	if err != nil {
		return "", download.SaveFailure(filename, err)
	}
	return loc, nil
}

// Update diffs edited against the stored customer and sends only the
// changed fields. It returns domain.ErrNoChanges, without calling the
// backend, when nothing differs.
func (s *Service) Update(ctx context.Context, id string, edited diff.Record) (*domain.Customer, error) {
	res := s.Get(ctx, id)
	if res.IsError() {
		return nil, res.Err
	}
	original := res.Data
	if original == nil {
		return nil, domain.ErrNotFound
	}

	fields := diff.Record{}
	for k, v := range edited {
		if editableFields[k] {
			fields[k] = v
		}
	}
	if err := s.validateEdit(original, fields); err != nil {
		return nil, err
	}

	patch := diff.ComputeChanges(Record(original), fields)
	if patch.Empty() {
		s.notifier.Info(msgNoChanges)
		return original, domain.ErrNoChanges
	}

	updated, err := s.update.Run(ctx, updateArgs{ID: id, Patch: patch})
	if err != nil {
		s.notifier.Error(notify.ErrorText(err, msgUpdateFailed))
		return nil, err
	}
	s.notifier.Success(msgUpdated)
	s.logger.Info("customer updated", zap.String("id", id), zap.Strings("fields", patch.Fields()))
	return updated, nil
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.remove.Run(ctx, id); err != nil {
		s.notifier.Error(notify.ErrorText(err, msgDeleteFailed))
		return err
	}
	s.notifier.Success(msgDeleted)
	return nil
}

// Renew moves a customer onto a product; the backend extends the expiry.
func (s *Service) Renew(ctx context.Context, in domain.RenewInput) (*domain.Customer, error) {
	if strings.TrimSpace(in.CustomerID) == "" || strings.TrimSpace(in.ProductID) == "" {
		fields := map[string]string{}
		if strings.TrimSpace(in.CustomerID) == "" {
			fields["customer_id"] = "Customer is required"
		}
		if strings.TrimSpace(in.ProductID) == "" {
			fields["product_id"] = "A Product must be selected"
		}
		return nil, &domain.ValidationError{Fields: fields}
	}
	c, err := s.renew.Run(ctx, in)
	if err != nil {
		s.notifier.Error(notify.ErrorText(err, msgRenewFailed))
		return nil, err
	}
	s.notifier.Success(msgRenewed)
	return c, nil
}

// DownloadIDCard fetches the card of customer id and saves it locally.
func (s *Service) DownloadIDCard(ctx context.Context, id string) (string, error) {
	res := s.Get(ctx, id)
	if res.IsError() {
		return "", res.Err
	}
	name := ""
	if res.Data != nil {
		name = res.Data.CardFile()
	}
	if name == "" {
		derr := &domain.DownloadError{Kind: domain.DownloadNotFound}
		s.notifier.Warning(derr.Warning())
		return "", derr
	}
	loc, derr := s.fetchCard(ctx, name)
	if derr != nil {
		s.notifier.Warning(derr.Warning())
		return "", derr
	}
	s.notifier.Success(msgCardSaved)
	return loc, nil
}

// ExportCSV downloads the customer export and saves it locally.
func (s *Service) ExportCSV(ctx context.Context) (string, error) {
	file, err := s.repo.ExportCSV(ctx)
	if err != nil {
		s.notifier.Error(notify.ErrorText(err, msgExportFailed))
		return "", err
	}
	loc, err := s.saver.Save(ctx, download.Artifact{Data: file.Data, Filename: file.Name, MimeType: file.ContentType})
	if err != nil {
		s.notifier.Error(msgExportFailed)
		return "", err
	}
	s.notifier.Success(msgExported)
	return loc, nil
}

// Record is the editable view of c that edits are diffed against.
func Record(c *domain.Customer) diff.Record {
	return diff.Record{
		"first_name":           c.FirstName,
		"last_name":            c.LastName,
		"email":                c.Email,
		"phone":                c.Phone,
		"address":              c.Address,
		"occupation":           c.Occupation,
		"gender":               c.Gender,
		"product_id":           c.ProductID,
		diff.FieldDateOfBirth:  c.DateOfBirth,
		diff.FieldProfileImage: c.ProfileImage,
	}
}

// validateEdit checks the stored record overlaid with the edited values, so
// fields the officer did not touch still satisfy the form schema.
func (s *Service) validateEdit(original *domain.Customer, edited diff.Record) error {
	in := domain.CreateCustomerInput{
		FirstName:   original.FirstName,
		LastName:    original.LastName,
		Email:       original.Email,
		Phone:       original.Phone,
		Gender:      original.Gender,
		DateOfBirth: original.DateOfBirth,
		ProductID:   original.ProductID,
		Address:     original.Address,
	}
	overlay := func(field string, dst *string) {
		if v, ok := edited[field].(string); ok {
			*dst = v
		}
	}
	overlay("first_name", &in.FirstName)
	overlay("last_name", &in.LastName)
	overlay("email", &in.Email)
	overlay("phone", &in.Phone)
	overlay("gender", &in.Gender)
	overlay(diff.FieldDateOfBirth, &in.DateOfBirth)
	overlay("product_id", &in.ProductID)
	overlay("address", &in.Address)

	var photo *domain.File
	switch f := edited[diff.FieldProfileImage].(type) {
	case *domain.File:
		photo = f
	case domain.File:
		photo = &f
	}
	return validation.Merge(s.validate.Struct(in), validation.Photo(photo, false))
}

// IsNoChanges reports whether err is the empty-patch short circuit.
func IsNoChanges(err error) bool {
	return errors.Is(err, domain.ErrNoChanges)
}
