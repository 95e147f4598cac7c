package auth

import (
	"context"
	"errors"
	"time"

	"cis-portal/internal/domain"
	"cis-portal/internal/repository/session"
)

type repositoryStore struct {
	repo session.Repository
	key  string
	now  func() time.Time
}

// NewRepositoryStore keeps the token in a session repository row named key,
// letting several gateway instances share one login.
func NewRepositoryStore(repo session.Repository, key string) Store {
	return &repositoryStore{repo: repo, key: key, now: time.Now}
}

func (s *repositoryStore) Token(ctx context.Context) (string, error) {
	sess, err := s.repo.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if sess.ExpiresAt != nil && !s.now().Before(*sess.ExpiresAt) {
		return "", nil
	}
	return sess.Token, nil
}

func (s *repositoryStore) SetToken(ctx context.Context, token string) error {
	sess := session.Session{Key: s.key, Token: token}
	if exp, ok := ExpiresAt(token); ok {
		sess.ExpiresAt = &exp
	}
	return s.repo.Save(ctx, sess)
}

func (s *repositoryStore) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, s.key); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
