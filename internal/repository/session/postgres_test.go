package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cis-portal/internal/domain"
	"cis-portal/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE portal_sessions`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	repo := NewPostgres(pool, nil)

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := repo.Save(ctx, Session{Key: "default", Token: "T1", Username: "jdoe", ExpiresAt: &exp}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, Session{Key: "default", Token: "T2", Username: "jdoe"}); err != nil {
		t.Fatalf("Save (upsert): %v", err)
	}

	got, err := repo.Get(ctx, "default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Token != "T2" || got.ExpiresAt != nil {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := repo.Delete(ctx, "default"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "default"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "default"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}
