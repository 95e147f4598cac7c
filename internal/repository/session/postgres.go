package session

import (
	"context"
	"errors"

	"cis-portal/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Save(ctx context.Context, s Session) error {
	const q = `
INSERT INTO portal_sessions (key, token, username, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE
SET token = EXCLUDED.token,
    username = EXCLUDED.username,
    expires_at = EXCLUDED.expires_at,
    updated_at = now()
`
	if _, err := r.pool.Exec(ctx, q, s.Key, s.Token, s.Username, s.ExpiresAt); err != nil {
		r.logger.Error("save session", zap.String("key", s.Key), zap.Error(err))
		return err
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, key string) (*Session, error) {
	const q = `
SELECT key, token, username, expires_at, created_at, updated_at
FROM portal_sessions
WHERE key = $1
`
	var out Session
	if err := r.pool.QueryRow(ctx, q, key).Scan(
		&out.Key,
		&out.Token,
		&out.Username,
		&out.ExpiresAt,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, key string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
