// Package instances manages WhatsApp messaging instance records.
//
// The gateway owns the live connection state; rows here carry a cached
// status so the dashboard never blocks on gateway health. RefreshStatus is
// the only operation that talks to the gateway about state.
package instances

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advocrmhq/advocrm/internal/apperr"
	"github.com/advocrmhq/advocrm/internal/db"
	"github.com/advocrmhq/advocrm/internal/evolution"
)

// Gateway is the slice of the Evolution client this service needs.
type Gateway interface {
	CreateInstance(ctx context.Context, target evolution.Target, name string) error
	ConnectionState(ctx context.Context, target evolution.Target, name string) (evolution.ConnectionState, error)
	DeleteInstance(ctx context.Context, target evolution.Target, name string) error
	FetchInstances(ctx context.Context, target evolution.Target) ([]evolution.Instance, error)
}

type Service struct {
	pool    *pgxpool.Pool
	gateway Gateway
	logger  *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool, gateway Gateway) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:    pool,
		gateway: gateway,
		logger:  log.With(slog.String("service", "instances")),
	}
}

const instanceColumns = `id, name, instance_name, evolution_url, evolution_key, status, checked_at, created_at`

func scanInstance(row pgx.Row) (Instance, error) {
	var (
		inst      Instance
		checkedAt pgtype.Timestamptz
	)
	err := row.Scan(&inst.ID, &inst.Name, &inst.InstanceName,
		&inst.EvolutionURL, &inst.EvolutionKey, &inst.Status,
		&checkedAt, &inst.CreatedAt)
	if checkedAt.Valid {
		t := checkedAt.Time
		inst.CheckedAt = &t
	}
	return inst, err
}

// Create registers the instance with the gateway, then records it locally
// with status unknown until the first refresh.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Instance, error) {
	if s.pool == nil {
		return Instance{}, fmt.Errorf("instances pool not configured")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.InstanceName = strings.TrimSpace(req.InstanceName)
	req.EvolutionURL = strings.TrimSpace(req.EvolutionURL)
	req.EvolutionKey = strings.TrimSpace(req.EvolutionKey)
	if req.Name == "" || req.InstanceName == "" {
		return Instance{}, apperr.Invalid("name and instance_name are required")
	}

	target := evolution.Target{BaseURL: req.EvolutionURL, APIKey: req.EvolutionKey}
	if s.gateway != nil {
		if err := s.gateway.CreateInstance(ctx, target, req.InstanceName); err != nil {
			return Instance{}, fmt.Errorf("register instance: %w", err)
		}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO instances (name, instance_name, evolution_url, evolution_key)
		VALUES ($1, $2, $3, $4)
		RETURNING `+instanceColumns+`
	`, req.Name, req.InstanceName, req.EvolutionURL, req.EvolutionKey)
	inst, err := scanInstance(row)
	if err != nil {
		return Instance{}, fmt.Errorf("record instance: %w", err)
	}
	return inst, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Instance, error) {
	if s.pool == nil {
		return Instance{}, fmt.Errorf("instances pool not configured")
	}
	row := s.pool.QueryRow(ctx, `SELECT `+instanceColumns+` FROM instances WHERE id = $1`, id)
	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Instance{}, apperr.NotFound("instance")
		}
		return Instance{}, fmt.Errorf("get instance: %w", err)
	}
	return inst, nil
}

// List returns instances newest-first with their cached status.
func (s *Service) List(ctx context.Context) ([]Instance, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("instances pool not configured")
	}
	rows, err := s.pool.Query(ctx, `SELECT `+instanceColumns+` FROM instances ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	items := make([]Instance, 0)
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		items = append(items, inst)
	}
	return items, rows.Err()
}

// First returns the oldest registered instance; message sending uses it
// when no instance is named explicitly.
func (s *Service) First(ctx context.Context) (Instance, error) {
	if s.pool == nil {
		return Instance{}, fmt.Errorf("instances pool not configured")
	}
	row := s.pool.QueryRow(ctx, `SELECT `+instanceColumns+` FROM instances ORDER BY id LIMIT 1`)
	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Instance{}, apperr.NotFound("instance")
		}
		return Instance{}, fmt.Errorf("first instance: %w", err)
	}
	return inst, nil
}

// Delete removes the local record and asks the gateway to drop the
// instance. Gateway failures are logged but never block the local delete;
// the gateway remains the source of truth for its own sessions.
func (s *Service) Delete(ctx context.Context, id int64) error {
	inst, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.gateway != nil {
		if err := s.gateway.DeleteInstance(ctx, inst.Target(), inst.InstanceName); err != nil {
			s.logger.Warn("gateway instance delete failed",
				slog.String("instance", inst.InstanceName),
				slog.Any("error", err),
			)
		}
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM instances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("instance")
	}
	return nil
}

// SyncStatuses refreshes every cached status with one gateway listing per
// distinct gateway target, instead of one connectionState call per row.
// Instances the gateway no longer reports become unknown; listing failures
// mark that target's rows unknown rather than leaving them stale.
func (s *Service) SyncStatuses(ctx context.Context) ([]Instance, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil || len(items) == 0 {
		return items, nil
	}

	states := make(map[evolution.Target]map[string]evolution.ConnectionState)
	for i := range items {
		target := items[i].Target()
		byName, fetched := states[target]
		if !fetched {
			byName = make(map[string]evolution.ConnectionState)
			listed, err := s.gateway.FetchInstances(ctx, target)
			if err != nil {
				s.logger.Warn("instance listing failed",
					slog.String("base_url", target.BaseURL),
					slog.Any("error", err),
				)
			}
			for _, inst := range listed {
				byName[inst.Name] = inst.State
			}
			states[target] = byName
		}
		state, known := byName[items[i].InstanceName]
		if !known {
			state = evolution.StateUnknown
		}

		row := s.pool.QueryRow(ctx, `
			UPDATE instances SET status = $2, checked_at = $3
			WHERE id = $1
			RETURNING `+instanceColumns+`
		`, items[i].ID, state, db.TimeToPg(time.Now().UTC()))
		updated, err := scanInstance(row)
		if err != nil {
			return nil, fmt.Errorf("record status: %w", err)
		}
		items[i] = updated
	}
	return items, nil
}

// RefreshStatus queries the gateway for the live connection state and
// overwrites the cached status and checked_at. A failed gateway call still
// overwrites: the status becomes unknown rather than silently staying stale.
func (s *Service) RefreshStatus(ctx context.Context, id int64) (Instance, error) {
	inst, err := s.Get(ctx, id)
	if err != nil {
		return Instance{}, err
	}

	state := evolution.StateUnknown
	if s.gateway != nil {
		fetched, err := s.gateway.ConnectionState(ctx, inst.Target(), inst.InstanceName)
		if err != nil {
			s.logger.Warn("connection state fetch failed",
				slog.String("instance", inst.InstanceName),
				slog.Any("error", err),
			)
		} else {
			state = fetched
		}
	}

	now := time.Now().UTC()
	row := s.pool.QueryRow(ctx, `
		UPDATE instances SET status = $2, checked_at = $3
		WHERE id = $1
		RETURNING `+instanceColumns+`
	`, id, state, db.TimeToPg(now))
	updated, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Instance{}, apperr.NotFound("instance")
		}
		return Instance{}, fmt.Errorf("record status: %w", err)
	}
	return updated, nil
}
