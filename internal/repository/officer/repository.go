package officer

import (
	"context"

	"cis-portal/internal/domain"
)

// LoginResult is the token issued by POST /auth/login.
type LoginResult struct {
	Token   string
	Message string
}

// Repository is the officer side of the backend API.
type Repository interface {
	Login(ctx context.Context, creds domain.Credentials) (LoginResult, error)
	Register(ctx context.Context, in domain.RegisterOfficerInput) (*domain.Officer, error)
	List(ctx context.Context) ([]domain.Officer, error)
	Me(ctx context.Context) (*domain.Officer, error)
	Get(ctx context.Context, id string) (*domain.Officer, error)
	Update(ctx context.Context, id string, in domain.UpdateOfficerInput) (*domain.Officer, error)
	// ToggleStatus flips an officer between active and inactive.
	ToggleStatus(ctx context.Context, id string) error
	ActivityLogs(ctx context.Context) ([]domain.ActivityLogEntry, error)
}
