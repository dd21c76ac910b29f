// Package contacts manages the firm's client records.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advocrmhq/advocrm/internal/apperr"
	"github.com/advocrmhq/advocrm/internal/db"
	"github.com/advocrmhq/advocrm/internal/storage"
)

type Service struct {
	pool     *pgxpool.Pool
	provider storage.Provider
	logger   *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool, provider storage.Provider) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:     pool,
		provider: provider,
		logger:   log.With(slog.String("service", "contacts")),
	}
}

const contactColumns = `id, name, phone, cpf, email, notes, created_at`

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.CPF, &c.Email, &c.Notes, &c.CreatedAt)
	return c, err
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Contact, error) {
	if s.pool == nil {
		return Contact{}, fmt.Errorf("contacts pool not configured")
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" {
		return Contact{}, apperr.Invalid("phone is required")
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (name, phone, cpf, email, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+contactColumns+`
	`, strings.TrimSpace(req.Name), req.Phone, strings.TrimSpace(req.CPF),
		strings.TrimSpace(req.Email), req.Notes)
	contact, err := scanContact(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Contact{}, apperr.Invalid("cpf already registered")
		}
		return Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return contact, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Contact, error) {
	if s.pool == nil {
		return Contact{}, fmt.Errorf("contacts pool not configured")
	}
	row := s.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact")
		}
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	return contact, nil
}

// List returns contacts ordered by name. A non-empty query filters by
// case-insensitive substring match on name, phone, or cpf.
func (s *Service) List(ctx context.Context, query string) ([]Contact, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("contacts pool not configured")
	}
	var (
		rows pgx.Rows
		err  error
	)
	query = strings.TrimSpace(query)
	if query == "" {
		rows, err = s.pool.Query(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY name, id`)
	} else {
		pattern := "%" + query + "%"
		rows, err = s.pool.Query(ctx, `
			SELECT `+contactColumns+` FROM contacts
			WHERE name ILIKE $1 OR phone ILIKE $1 OR cpf ILIKE $1
			ORDER BY name, id
		`, pattern)
	}
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	items := make([]Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		items = append(items, contact)
	}
	return items, rows.Err()
}

// Update applies a partial field merge. Unknown identities fail with
// NotFound and leave the store untouched.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (Contact, error) {
	if s.pool == nil {
		return Contact{}, fmt.Errorf("contacts pool not configured")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Contact{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanContact(tx.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact")
		}
		return Contact{}, fmt.Errorf("lock contact: %w", err)
	}

	if req.Name != nil {
		current.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone == "" {
			return Contact{}, apperr.Invalid("phone cannot be empty")
		}
		current.Phone = phone
	}
	if req.CPF != nil {
		current.CPF = strings.TrimSpace(*req.CPF)
	}
	if req.Email != nil {
		current.Email = strings.TrimSpace(*req.Email)
	}
	if req.Notes != nil {
		current.Notes = *req.Notes
	}

	_, err = tx.Exec(ctx, `
		UPDATE contacts SET name = $2, phone = $3, cpf = $4, email = $5, notes = $6
		WHERE id = $1
	`, id, current.Name, current.Phone, current.CPF, current.Email, current.Notes)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Contact{}, apperr.Invalid("cpf already registered")
		}
		return Contact{}, fmt.Errorf("update contact: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Contact{}, fmt.Errorf("commit update: %w", err)
	}
	return current, nil
}

// Delete removes a contact and cascades to its appointments and documents,
// including the stored files. File removal failures do not roll back the
// row deletes; they are logged and reported as warnings.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	if s.pool == nil {
		return DeleteResult{}, fmt.Errorf("contacts pool not configured")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM contacts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return DeleteResult{}, fmt.Errorf("check contact: %w", err)
	}
	if !exists {
		return DeleteResult{}, apperr.NotFound("contact")
	}

	keys, err := collectStorageKeys(ctx, tx, id)
	if err != nil {
		return DeleteResult{}, err
	}

	var result DeleteResult
	if err := tx.QueryRow(ctx, `
		WITH removed AS (DELETE FROM appointments WHERE contact_id = $1 RETURNING 1)
		SELECT count(*) FROM removed
	`, id).Scan(&result.Appointments); err != nil {
		return DeleteResult{}, fmt.Errorf("delete appointments: %w", err)
	}
	if err := tx.QueryRow(ctx, `
		WITH removed AS (DELETE FROM documents WHERE contact_id = $1 RETURNING 1)
		SELECT count(*) FROM removed
	`, id).Scan(&result.Documents); err != nil {
		return DeleteResult{}, fmt.Errorf("delete documents: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id); err != nil {
		return DeleteResult{}, fmt.Errorf("delete contact: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return DeleteResult{}, fmt.Errorf("commit delete: %w", err)
	}

	s.logger.Info("contact deleted",
		slog.Int64("contact_id", id),
		slog.Int("appointments", result.Appointments),
		slog.Int("documents", result.Documents),
	)

	for _, key := range keys {
		if s.provider == nil {
			break
		}
		if err := s.provider.Delete(ctx, key); err != nil {
			s.logger.Warn("document file removal failed",
				slog.Int64("contact_id", id),
				slog.String("key", key),
				slog.Any("error", err),
			)
			result.Warnings = append(result.Warnings, fmt.Sprintf("file %s was not removed", key))
		}
	}
	return result, nil
}

func collectStorageKeys(ctx context.Context, tx pgx.Tx, contactID int64) ([]string, error) {
	rows, err := tx.Query(ctx, `SELECT storage_key FROM documents WHERE contact_id = $1`, contactID)
	if err != nil {
		return nil, fmt.Errorf("list document keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan document key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
