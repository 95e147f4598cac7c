package session

import (
	"context"
	"time"
)

// Session is a persisted bearer token for one gateway instance.
type Session struct {
	Key       string
	Token     string
	Username  string
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, key string) (*Session, error)
	Delete(ctx context.Context, key string) error
}
