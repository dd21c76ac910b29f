package users_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advocrmhq/advocrm/internal/apperr"
	"github.com/advocrmhq/advocrm/internal/users"
)

func setupIntegrationTest(t *testing.T) (*users.Service, func()) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return users.NewService(logger, pool), func() { pool.Close() }
}

func createTestUser(t *testing.T, svc *users.Service, password string) users.User {
	t.Helper()
	created, err := svc.Create(context.Background(), users.CreateRequest{
		Name:     "Dra. Ana",
		Email:    fmt.Sprintf("ana_%d@example.com", time.Now().UnixNano()),
		Password: password,
		Role:     users.RoleLawyer,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { _ = svc.Delete(context.Background(), created.ID) })
	return created
}

func TestIntegrationLogin(t *testing.T) {
	svc, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, svc, "s3nh4-forte")

	got, err := svc.Login(ctx, user.Email, "s3nh4-forte")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("id = %d, want %d", got.ID, user.ID)
	}

	if _, err := svc.Login(ctx, user.Email, "errada"); !errors.Is(err, users.ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, err := svc.Login(ctx, "ninguem@example.com", "x"); !errors.Is(err, users.ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v", err)
	}
}

func TestIntegrationLoginInactive(t *testing.T) {
	svc, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, svc, "s3nh4-forte")

	inactive := false
	if _, err := svc.Update(ctx, user.ID, users.UpdateRequest{Active: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Login(ctx, user.Email, "s3nh4-forte"); !errors.Is(err, users.ErrInactiveUser) {
		t.Errorf("err = %v, want inactive", err)
	}
}

func TestIntegrationDuplicateEmailRejected(t *testing.T) {
	svc, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, svc, "s3nh4-forte")

	_, err := svc.Create(ctx, users.CreateRequest{
		Name:     "Outro",
		Email:    user.Email,
		Password: "outra",
	})
	if !apperr.IsInvalid(err) {
		t.Fatalf("err = %v, want invalid", err)
	}
}

func TestIntegrationUnknownUserNotFound(t *testing.T) {
	svc, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	name := "Ninguém"
	if _, err := svc.Update(ctx, 999999999, users.UpdateRequest{Name: &name}); !apperr.IsNotFound(err) {
		t.Errorf("update: err = %v, want not found", err)
	}
	if err := svc.Delete(ctx, 999999999); !apperr.IsNotFound(err) {
		t.Errorf("delete: err = %v, want not found", err)
	}
}

func TestIntegrationPasswordChange(t *testing.T) {
	svc, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, svc, "antiga")

	nova := "nova-senha"
	if _, err := svc.Update(ctx, user.ID, users.UpdateRequest{Password: &nova}); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if _, err := svc.Login(ctx, user.Email, "antiga"); !errors.Is(err, users.ErrInvalidCredentials) {
		t.Errorf("old password still accepted: err = %v", err)
	}
	if _, err := svc.Login(ctx, user.Email, nova); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}
