package officer

import (
	"context"
	"sort"
	"strings"
	"time"

	"cis-portal/internal/auth"
	"cis-portal/internal/domain"
	"cis-portal/internal/listing"
	"cis-portal/internal/notify"
	"cis-portal/internal/querycache"
	officerrepo "cis-portal/internal/repository/officer"
	"cis-portal/internal/validation"
	"go.uber.org/zap"
)

// Cache keys.
var (
	KeyAll     = querycache.NewKey("officers")
	KeyLists   = KeyAll.With("list")
	KeyMe      = KeyAll.With("me")
	KeyDetails = KeyAll.With("detail")
	KeyLogs    = KeyAll.With("logs")
)

// DetailKey addresses one officer.
func DetailKey(id string) querycache.Key { return KeyDetails.With(id) }

const (
	msgLoginOK      = "Login successful!"
	msgLoginFailed  = "Login failed"
	msgLoggingOut   = "Logging out"
	msgCreated      = "Officer created successfully!"
	msgCreateFailed = "Failed to create officer"
	msgUpdated      = "Officer updated successfully!"
	msgUpdateFailed = "Failed to update officer"
	msgToggled      = "Officer status changed successfully!"
	msgToggleFailed = "Failed to change officer status"
)

type updateArgs struct {
	ID    string
	Input domain.UpdateOfficerInput
}

// Service backs login, the officer directory and the activity log.
type Service struct {
	repo     officerrepo.Repository
	store    auth.Store
	cache    *querycache.Cache
	notifier notify.Notifier
	validate *validation.Validator
	logger   *zap.Logger
	now      func() time.Time

	login    *querycache.Mutation[domain.Credentials, officerrepo.LoginResult]
	register *querycache.Mutation[domain.RegisterOfficerInput, *domain.Officer]
	update   *querycache.Mutation[updateArgs, *domain.Officer]
	toggle   *querycache.Mutation[string, struct{}]
}

func New(repo officerrepo.Repository, store auth.Store, cache *querycache.Cache, notifier notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:     repo,
		store:    store,
		cache:    cache,
		notifier: notifier,
		validate: validation.New(),
		logger:   logger,
		now:      time.Now,
	}

	// The token is stored inside the mutation so refetches triggered by the
	// invalidation already carry it.
	s.login = querycache.NewMutation(cache,
		func(ctx context.Context, creds domain.Credentials) (officerrepo.LoginResult, error) {
			res, err := repo.Login(ctx, creds)
			if err != nil {
				return res, err
			}
			if err := store.SetToken(ctx, res.Token); err != nil {
				return res, err
			}
			return res, nil
		},
		querycache.Invalidating[domain.Credentials, officerrepo.LoginResult](KeyMe, KeyLogs))
	s.register = querycache.NewMutation(cache, repo.Register,
		querycache.Invalidating[domain.RegisterOfficerInput, *domain.Officer](KeyLists))
	s.update = querycache.NewMutation(cache,
		func(ctx context.Context, a updateArgs) (*domain.Officer, error) {
			return repo.Update(ctx, a.ID, a.Input)
		},
		func(a updateArgs, _ *domain.Officer) []querycache.Key {
			return []querycache.Key{KeyLists, DetailKey(a.ID), KeyMe}
		})
	s.toggle = querycache.NewMutation(cache,
		func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, repo.ToggleStatus(ctx, id)
		},
		querycache.Invalidating[string, struct{}](KeyLists))
	return s
}

// Login exchanges credentials for a token and stores it.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (officerrepo.LoginResult, error) {
	if err := s.validate.Struct(creds); err != nil {
		return officerrepo.LoginResult{}, err
	}
	res, err := s.login.Run(ctx, creds)
	if err != nil {
		s.notifier.Error(notify.ErrorText(err, msgLoginFailed))
		return officerrepo.LoginResult{}, err
	}
	msg := res.Message
	if msg == "" {
		msg = msgLoginOK
	}
	s.notifier.Success(msg)
	s.logger.Info("officer logged in", zap.String("username", creds.Username))
	return res, nil
}

// Logout forgets the token and every cached query of the session.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.cache.Reset()
	s.notifier.Success(msgLoggingOut)
	return nil
}

// Authenticated reports whether a usable token is held. An expired token is
// cleared.
func (s *Service) Authenticated(ctx context.Context) (bool, error) {
	token, err := s.store.Token(ctx)
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}
	if auth.Expired(token, s.now()) {
		s.logger.Info("stored token expired")
		return false, s.store.Clear(ctx)
	}
	return true, nil
}

func (s *Service) List(ctx context.Context) querycache.Result[[]domain.Officer] {
	return querycache.Query(ctx, s.cache, KeyLists, s.repo.List)
}

// Me returns the signed-in officer.
func (s *Service) Me(ctx context.Context) querycache.Result[*domain.Officer] {
	return querycache.Query(ctx, s.cache, KeyMe, s.repo.Me)
}

func (s *Service) Get(ctx context.Context, id string) querycache.Result[*domain.Officer] {
	return querycache.Query(ctx, s.cache, DetailKey(id), func(ctx context.Context) (*domain.Officer, error) {
		return s.repo.Get(ctx, id)
	})
}

// Register creates an officer account.
func (s *Service) Register(ctx context.Context, in domain.RegisterOfficerInput) (*domain.Officer, error) {
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	o, err := s.register.Run(ctx, in)
	if err != nil {
		s.notifier.Error(notify.ErrorText(err, msgCreateFailed))
		return nil, err
	}
	s.notifier.Success(msgCreated)
	return o, nil
}

// Update applies a partial officer update.
func (s *Service) Update(ctx context.Context, id string, in domain.UpdateOfficerInput) (*domain.Officer, error) {
	if in == (domain.UpdateOfficerInput{}) {
		s.notifier.Info("No changes to update")
		return nil, domain.ErrNoChanges
	}
	o, err := s.update.Run(ctx, updateArgs{ID: id, Input: in})
	if err != nil {
		s.notifier.Error(notify.ErrorText(err, msgUpdateFailed))
		return nil, err
	}
	s.notifier.Success(msgUpdated)
	return o, nil
}

// ToggleStatus activates or deactivates an officer.
func (s *Service) ToggleStatus(ctx context.Context, id string) error {
	if _, err := s.toggle.Run(ctx, id); err != nil {
		s.notifier.Error(notify.ErrorText(err, msgToggleFailed))
		return err
	}
	s.notifier.Success(msgToggled)
	return nil
}

// Search filters the officer directory by name, username and email. Status
// is all, active or inactive.
func (s *Service) Search(ctx context.Context, p listing.Params) (listing.Page[domain.Officer], error) {
	res := s.List(ctx)
	if res.IsError() {
		return listing.Page[domain.Officer]{}, res.Err
	}
	items := res.Data
	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case domain.StatusActive:
		items = listing.Filter(items, domain.Officer.Active)
	case domain.StatusInactive:
		items = listing.Filter(items, func(o domain.Officer) bool { return !o.Active() })
	}
	items = listing.Search(items, p.Query, func(o domain.Officer) []string {
		return []string{o.FullName(), o.Username, o.Email}
	})
	return listing.Paginate(items, p.Page, p.PageSize), nil
}

// RoleCounts summarises the directory header.
type RoleCounts struct {
	Total    int `json:"total"`
	Admins   int `json:"admins"`
	Staff    int `json:"staff"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

func (s *Service) RoleCounts(ctx context.Context) (RoleCounts, error) {
	res := s.List(ctx)
	if res.IsError() {
		return RoleCounts{}, res.Err
	}
	roles := listing.CountBy(res.Data, func(o domain.Officer) string { return strings.ToLower(o.Role) })
	out := RoleCounts{Total: len(res.Data), Admins: roles[domain.RoleAdmin], Staff: roles[domain.RoleStaff]}
	for _, o := range res.Data {
		if o.Active() {
			out.Active++
		} else {
			out.Inactive++
		}
	}
	return out, nil
}

// ActivityLogs returns one page of the audit log, newest first, searched by
// officer name and action.
func (s *Service) ActivityLogs(ctx context.Context, p listing.Params) (listing.Page[domain.ActivityLogEntry], error) {
	res := querycache.Query(ctx, s.cache, KeyLogs, s.repo.ActivityLogs)
	if res.IsError() {
		return listing.Page[domain.ActivityLogEntry]{}, res.Err
	}
	items := listing.Search(res.Data, p.Query, func(e domain.ActivityLogEntry) []string {
		return []string{e.OfficerName, e.Action}
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].At().After(items[j].At()) })
	if p.PageSize <= 0 {
		p.PageSize = listing.DefaultPageSize
	}
	return listing.Paginate(items, p.Page, p.PageSize), nil
}
