// Package users manages staff accounts and credentials.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/advocrmhq/advocrm/internal/apperr"
	"github.com/advocrmhq/advocrm/internal/db"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
)

type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "users")),
	}
}

const userColumns = `id, name, email, role, phone, active, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Phone, &u.Active, &u.CreatedAt)
	return u, err
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("users pool not configured")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		return User{}, apperr.Invalid("name and email are required")
	}
	if strings.TrimSpace(req.Password) == "" {
		return User{}, apperr.Invalid("password is required")
	}
	role := req.Role
	if role == "" {
		role = RoleAttendant
	}
	if !ValidRole(role) {
		return User{}, apperr.Invalid("unknown role %q", role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns+`
	`, req.Name, req.Email, string(hashed), role, strings.TrimSpace(req.Phone))
	user, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, apperr.Invalid("email already registered")
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("users pool not configured")
	}
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user")
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("users pool not configured")
	}
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, user)
	}
	return items, rows.Err()
}

// Login validates credentials against an active account.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("users pool not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return User{}, ErrInvalidCredentials
	}
	var (
		user User
		hash string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, role, phone, active, created_at, password_hash
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.Phone,
		&user.Active, &user.CreatedAt, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.Active {
		return User{}, ErrInactiveUser
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Update applies a partial merge: name, role, phone, active flag, password.
// Deactivation is the soft-delete path.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (User, error) {
	if s.pool == nil {
		return User{}, fmt.Errorf("users pool not configured")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return User{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanUser(tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user")
		}
		return User{}, fmt.Errorf("lock user: %w", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return User{}, apperr.Invalid("name cannot be empty")
		}
		current.Name = name
	}
	if req.Role != nil {
		if !ValidRole(*req.Role) {
			return User{}, apperr.Invalid("unknown role %q", *req.Role)
		}
		current.Role = *req.Role
	}
	if req.Phone != nil {
		current.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Active != nil {
		current.Active = *req.Active
	}

	passwordHash := ""
	if req.Password != nil {
		if strings.TrimSpace(*req.Password) == "" {
			return User{}, apperr.Invalid("password cannot be empty")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = string(hashed)
	}

	if passwordHash != "" {
		_, err = tx.Exec(ctx, `
			UPDATE users SET name = $2, role = $3, phone = $4, active = $5, password_hash = $6
			WHERE id = $1
		`, id, current.Name, current.Role, current.Phone, current.Active, passwordHash)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE users SET name = $2, role = $3, phone = $4, active = $5
			WHERE id = $1
		`, id, current.Name, current.Role, current.Phone, current.Active)
	}
	if err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("commit update: %w", err)
	}
	return current, nil
}

// Delete hard-deletes a user account. Deactivation via Update is the normal
// path; this mirrors the admin surface.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s.pool == nil {
		return fmt.Errorf("users pool not configured")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

// Count returns the number of user accounts; used for first-start admin seeding.
func (s *Service) Count(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, fmt.Errorf("users pool not configured")
	}
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
