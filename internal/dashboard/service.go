// Package dashboard computes summary counts for the frontend landing page.
//
// Counts come straight from Postgres; the instance count reads the cached
// status column and never calls the gateway, so dashboard latency does not
// depend on gateway health. Live state is refreshed elsewhere, explicitly.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
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
		logger: log.With(slog.String("service", "dashboard")),
	}
}

// Summary is the dashboard payload.
type Summary struct {
	TotalContacts       int64           `json:"total_contacts"`
	PendingAppointments int64           `json:"pending_appointments"`
	ActiveUsers         int64           `json:"active_users"`
	ConnectedInstances  int64           `json:"connected_instances"`
	RecentConversations []RecentContact `json:"recent_conversations"`
}

// RecentContact is a contact with recent WhatsApp activity.
type RecentContact struct {
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	LastSeen time.Time `json:"last_seen"`
}

// Summary returns the dashboard counts in a single round of queries.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if s.pool == nil {
		return Summary{}, fmt.Errorf("dashboard pool not configured")
	}

	var out Summary
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM contacts),
			(SELECT count(*) FROM appointments WHERE status = 'pending'),
			(SELECT count(*) FROM users WHERE active),
			(SELECT count(*) FROM instances WHERE status = 'open')
	`).Scan(&out.TotalContacts, &out.PendingAppointments, &out.ActiveUsers, &out.ConnectedInstances)
	if err != nil {
		return Summary{}, fmt.Errorf("summary counts: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.name, c.phone, max(cv.created_at) AS last_seen
		FROM contacts c
		JOIN conversations cv ON cv.phone = c.phone
		GROUP BY c.id, c.name, c.phone
		ORDER BY last_seen DESC
		LIMIT 5
	`)
	if err != nil {
		return Summary{}, fmt.Errorf("recent conversations: %w", err)
	}
	defer rows.Close()

	out.RecentConversations = make([]RecentContact, 0, 5)
	for rows.Next() {
		var rc RecentContact
		if err := rows.Scan(&rc.Name, &rc.Phone, &rc.LastSeen); err != nil {
			return Summary{}, fmt.Errorf("scan recent contact: %w", err)
		}
		out.RecentConversations = append(out.RecentConversations, rc)
	}
	return out, rows.Err()
}
