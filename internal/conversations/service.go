// Package conversations keeps the WhatsApp message history and sends
// outbound texts through a registered instance.
package conversations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advocrmhq/advocrm/internal/apperr"
	"github.com/advocrmhq/advocrm/internal/evolution"
	"github.com/advocrmhq/advocrm/internal/instances"
)

// Sender is the slice of the Evolution client this service needs.
type Sender interface {
	SendText(ctx context.Context, target evolution.Target, instanceName, number, text string) error
}

type Service struct {
	pool      *pgxpool.Pool
	sender    Sender
	instances *instances.Service
	logger    *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool, sender Sender, instanceService *instances.Service) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:      pool,
		sender:    sender,
		instances: instanceService,
		logger:    log.With(slog.String("service", "conversations")),
	}
}

// HistoryByPhone returns the conversation with a phone number, oldest first.
func (s *Service) HistoryByPhone(ctx context.Context, phone string) ([]Message, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("conversations pool not configured")
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperr.Invalid("phone is required")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, phone, origin, kind, content, created_at
		FROM conversations
		WHERE phone = $1
		ORDER BY created_at, id
	`, phone)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Phone, &m.Origin, &m.Kind, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// Record appends a message to the history.
func (s *Service) Record(ctx context.Context, phone, origin, kind, content string) (Message, error) {
	if s.pool == nil {
		return Message{}, fmt.Errorf("conversations pool not configured")
	}
	var m Message
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (phone, origin, kind, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, phone, origin, kind, content, created_at
	`, phone, origin, kind, content).Scan(&m.ID, &m.Phone, &m.Origin, &m.Kind, &m.Content, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("record message: %w", err)
	}
	return m, nil
}

// SendText delivers a WhatsApp text through the first registered instance
// and records it in the history on success.
func (s *Service) SendText(ctx context.Context, req SendRequest) (Message, error) {
	if s.sender == nil || s.instances == nil {
		return Message{}, fmt.Errorf("conversations sender not configured")
	}
	req.Phone = strings.TrimSpace(req.Phone)
	req.Text = strings.TrimSpace(req.Text)
	if req.Phone == "" || req.Text == "" {
		return Message{}, apperr.Invalid("phone and text are required")
	}

	inst, err := s.instances.First(ctx)
	if err != nil {
		if apperr.IsNotFound(err) {
			return Message{}, apperr.Invalid("no whatsapp instance registered")
		}
		return Message{}, err
	}

	if err := s.sender.SendText(ctx, inst.Target(), inst.InstanceName, req.Phone, req.Text); err != nil {
		return Message{}, fmt.Errorf("send text: %w", err)
	}

	msg, err := s.Record(ctx, req.Phone, OriginAttendant, "texto", req.Text)
	if err != nil {
		// Delivered but not recorded; surface the history gap instead of failing the send.
		s.logger.Warn("sent message not recorded",
			slog.String("phone", req.Phone),
			slog.Any("error", err),
		)
		return Message{Phone: req.Phone, Origin: OriginAttendant, Kind: "texto", Content: req.Text}, nil
	}
	return msg, nil
}
