package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"neocore/pkg/domain"

	_ "modernc.org/sqlite"
)

// openStub hands the store an embedded sqlite handle; sqlite accepts the
// store's $1 placeholders, so the full persist/load path runs without a
// server.
func openStub(t *testing.T) func() {
	t.Helper()
	return OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		return sql.Open("sqlite", ":memory:")
	})
}

func TestPersistAndLoadThroughStub(t *testing.T) {
	ctx := context.Background()
	restore := openStub(t)
	defer restore()

	store, err := NewStore(ctx, "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, found, err := store.Load(ctx); err != nil || found {
		t.Fatalf("fresh store must be empty, found=%v err=%v", found, err)
	}

	name := "Eros"
	snap := domain.Snapshot{
		NEOs: []domain.NEORecord{
			{Designation: "433", Name: &name, DiameterKM: 16.84, Hazardous: false},
		},
		Approaches: []domain.ApproachRecord{
			{Designation: "433", DatetimeUTC: "2020-Jan-01 00:00", DistanceAU: 0.15, VelocityKMS: 5.0},
		},
	}
	if err := store.Persist(ctx, snap); err != nil {
		t.Fatalf("persist: %v", err)
	}
	got, found, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("expected stored snapshot")
	}
	if len(got.NEOs) != 1 || got.NEOs[0].Designation != "433" {
		t.Fatalf("unexpected NEOs: %+v", got.NEOs)
	}
	if len(got.Approaches) != 1 || got.Approaches[0].DistanceAU != 0.15 {
		t.Fatalf("unexpected approaches: %+v", got.Approaches)
	}
}

func TestNewStoreOpenFailure(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		return nil, errors.New("boom")
	})
	defer restore()

	if _, err := NewStore(context.Background(), "postgres://ignored"); err == nil {
		t.Fatal("expected open failure to surface")
	}
}
