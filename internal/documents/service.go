// Package documents manages client file uploads: bytes in the storage
// provider, metadata rows in Postgres.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advocrmhq/advocrm/internal/apperr"
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
		logger:   log.With(slog.String("service", "documents")),
	}
}

const documentColumns = `id, contact_id, original_name, mime, storage_key, size_bytes, created_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.ContactID, &d.OriginalName, &d.Mime,
		&d.StorageKey, &d.SizeBytes, &d.CreatedAt)
	return d, err
}

// Attach stores the uploaded bytes and records the metadata row. The
// contact must exist; nothing is written otherwise. Keys are namespaced by
// contact ID with a random component, so concurrent uploads never collide.
func (s *Service) Attach(ctx context.Context, contactID int64, reader io.Reader, filename, mime string, size int64) (Document, error) {
	if s.pool == nil || s.provider == nil {
		return Document{}, fmt.Errorf("documents service not configured")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return Document{}, apperr.Invalid("filename is required")
	}
	if reader == nil {
		return Document{}, apperr.Invalid("file content is required")
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM contacts WHERE id = $1)`, contactID).Scan(&exists); err != nil {
		return Document{}, fmt.Errorf("check contact: %w", err)
	}
	if !exists {
		return Document{}, apperr.NotFound("contact")
	}

	key := deriveKey(contactID, filename)
	if err := s.provider.Put(ctx, key, reader); err != nil {
		return Document{}, fmt.Errorf("store document: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (contact_id, original_name, mime, storage_key, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+documentColumns+`
	`, contactID, filename, strings.TrimSpace(mime), key, size)
	doc, err := scanDocument(row)
	if err != nil {
		if removeErr := s.provider.Delete(ctx, key); removeErr != nil {
			s.logger.Warn("orphaned upload cleanup failed",
				slog.String("key", key), slog.Any("error", removeErr))
		}
		return Document{}, fmt.Errorf("record document: %w", err)
	}
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	if s.pool == nil {
		return Document{}, fmt.Errorf("documents service not configured")
	}
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, apperr.NotFound("document")
		}
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Open returns the document metadata together with a reader over its bytes.
func (s *Service) Open(ctx context.Context, id int64) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	reader, err := s.provider.Open(ctx, doc.StorageKey)
	if err != nil {
		return Document{}, nil, fmt.Errorf("open document %s: %w", doc.StorageKey, err)
	}
	return doc, reader, nil
}

// ListByContact returns a contact's documents newest-first.
func (s *Service) ListByContact(ctx context.Context, contactID int64) ([]Document, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("documents service not configured")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE contact_id = $1
		ORDER BY created_at DESC, id DESC
	`, contactID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, doc)
	}
	return items, rows.Err()
}

// Delete removes the metadata row, then the stored file. A file removal
// failure does not roll back the row delete; it comes back as a warning.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	if s.pool == nil || s.provider == nil {
		return DeleteResult{}, fmt.Errorf("documents service not configured")
	}
	var key string
	err := s.pool.QueryRow(ctx,
		`DELETE FROM documents WHERE id = $1 RETURNING storage_key`, id).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeleteResult{}, apperr.NotFound("document")
		}
		return DeleteResult{}, fmt.Errorf("delete document: %w", err)
	}

	if err := s.provider.Delete(ctx, key); err != nil {
		s.logger.Warn("document file removal failed",
			slog.Int64("document_id", id),
			slog.String("key", key),
			slog.Any("error", err),
		)
		return DeleteResult{Warning: fmt.Sprintf("file %s was not removed", key)}, nil
	}
	return DeleteResult{}, nil
}

// deriveKey builds the storage key for an upload: the contact ID as a
// directory, a random prefix against collisions, and a sanitized basename.
func deriveKey(contactID int64, filename string) string {
	base := filepath.Base(filepath.FromSlash(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		base = "upload"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d/%s_%s", contactID, suffix, base)
}
