package instances_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advocrmhq/advocrm/internal/evolution"
	"github.com/advocrmhq/advocrm/internal/instances"
)

type stubGateway struct {
	state     evolution.ConnectionState
	stateErr  error
	deleteErr error
	listed    []evolution.Instance
	listErr   error
	created   []string
	deleted   []string
	fetches   int
}

func (g *stubGateway) CreateInstance(ctx context.Context, target evolution.Target, name string) error {
	g.created = append(g.created, name)
	return nil
}

func (g *stubGateway) ConnectionState(ctx context.Context, target evolution.Target, name string) (evolution.ConnectionState, error) {
	if g.stateErr != nil {
		return evolution.StateUnknown, g.stateErr
	}
	return g.state, nil
}

func (g *stubGateway) DeleteInstance(ctx context.Context, target evolution.Target, name string) error {
	g.deleted = append(g.deleted, name)
	return g.deleteErr
}

func (g *stubGateway) FetchInstances(ctx context.Context, target evolution.Target) ([]evolution.Instance, error) {
	g.fetches++
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.listed, nil
}

func setupIntegrationTest(t *testing.T) (*instances.Service, *stubGateway, func()) {
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

	gateway := &stubGateway{state: evolution.StateOpen}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := instances.NewService(logger, pool, gateway)

	return svc, gateway, func() { pool.Close() }
}

func TestIntegrationCreateStartsUnknown(t *testing.T) {
	svc, gateway, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	name := fmt.Sprintf("inst_%d", time.Now().UnixNano())

	inst, err := svc.Create(ctx, instances.CreateRequest{Name: "Principal", InstanceName: name})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer svc.Delete(ctx, inst.ID)

	if inst.Status != evolution.StateUnknown {
		t.Errorf("status = %q, want unknown before first refresh", inst.Status)
	}
	if inst.CheckedAt != nil {
		t.Errorf("checked_at = %v, want nil before first refresh", inst.CheckedAt)
	}
	if len(gateway.created) != 1 || gateway.created[0] != name {
		t.Errorf("gateway.created = %v", gateway.created)
	}
}

func TestIntegrationRefreshOverwritesOnFailure(t *testing.T) {
	svc, gateway, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	name := fmt.Sprintf("inst_%d", time.Now().UnixNano())

	inst, err := svc.Create(ctx, instances.CreateRequest{Name: "Principal", InstanceName: name})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer svc.Delete(ctx, inst.ID)

	refreshed, err := svc.RefreshStatus(ctx, inst.ID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.Status != evolution.StateOpen {
		t.Errorf("status = %q, want open", refreshed.Status)
	}
	if refreshed.CheckedAt == nil {
		t.Fatal("checked_at not set after refresh")
	}
	first := *refreshed.CheckedAt

	gateway.stateErr = evolution.ErrUnavailable
	refreshed, err = svc.RefreshStatus(ctx, inst.ID)
	if err != nil {
		t.Fatalf("refresh after gateway failure: %v", err)
	}
	if refreshed.Status != evolution.StateUnknown {
		t.Errorf("status = %q, want unknown after gateway failure", refreshed.Status)
	}
	if refreshed.CheckedAt == nil || !refreshed.CheckedAt.After(first) {
		t.Errorf("checked_at = %v, want later than %v", refreshed.CheckedAt, first)
	}
}

func TestIntegrationSyncStatuses(t *testing.T) {
	svc, gateway, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	nameA := fmt.Sprintf("inst_%d_a", time.Now().UnixNano())
	nameB := fmt.Sprintf("inst_%d_b", time.Now().UnixNano())

	instA, err := svc.Create(ctx, instances.CreateRequest{Name: "Principal", InstanceName: nameA})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer svc.Delete(ctx, instA.ID)
	instB, err := svc.Create(ctx, instances.CreateRequest{Name: "Plantão", InstanceName: nameB})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer svc.Delete(ctx, instB.ID)

	// The gateway listing knows only one of the two.
	gateway.listed = []evolution.Instance{{Name: nameA, State: evolution.StateOpen}}
	items, err := svc.SyncStatuses(ctx)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if gateway.fetches != 1 {
		t.Errorf("fetches = %d, want one listing for a shared target", gateway.fetches)
	}

	byName := make(map[string]instances.Instance, len(items))
	for _, inst := range items {
		byName[inst.InstanceName] = inst
	}
	if got := byName[nameA]; got.Status != evolution.StateOpen {
		t.Errorf("synced status = %q, want open", got.Status)
	}
	if got := byName[nameB]; got.Status != evolution.StateUnknown {
		t.Errorf("unlisted status = %q, want unknown", got.Status)
	}
	if got := byName[nameA]; got.CheckedAt == nil {
		t.Error("checked_at not set by sync")
	}
}

func TestIntegrationDeleteSurvivesGatewayFailure(t *testing.T) {
	svc, gateway, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	name := fmt.Sprintf("inst_%d", time.Now().UnixNano())

	inst, err := svc.Create(ctx, instances.CreateRequest{Name: "Principal", InstanceName: name})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	gateway.deleteErr = evolution.ErrUnavailable
	if err := svc.Delete(ctx, inst.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, inst.ID); err == nil {
		t.Fatal("instance still present after delete")
	}
}
