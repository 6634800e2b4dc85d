package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"neocore/pkg/domain"
)

func fixtureSnapshot() domain.Snapshot {
	name := "Eros"
	return domain.Snapshot{
		NEOs: []domain.NEORecord{
			{Designation: "433", Name: &name, DiameterKM: 16.84, Hazardous: false},
			{Designation: "2020 AB", Name: nil, DiameterKM: domain.Diameter(math.NaN()), Hazardous: true},
		},
		Approaches: []domain.ApproachRecord{
			{Designation: "433", DatetimeUTC: "2020-Jan-01 12:30", DistanceAU: 0.15, VelocityKMS: 5.0},
		},
	}
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, found, err := store.Load(ctx); err != nil || found {
		t.Fatalf("fresh store must be empty, found=%v err=%v", found, err)
	}

	if err := store.Persist(ctx, fixtureSnapshot()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	snap, found, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("expected stored snapshot")
	}
	if len(snap.NEOs) != 2 || len(snap.Approaches) != 1 {
		t.Fatalf("unexpected sizes: %d NEOs, %d approaches", len(snap.NEOs), len(snap.Approaches))
	}
	if snap.NEOs[0].Name == nil || *snap.NEOs[0].Name != "Eros" {
		t.Fatalf("unexpected first NEO: %+v", snap.NEOs[0])
	}
	if snap.NEOs[1].Name != nil {
		t.Fatal("absent name must stay absent")
	}
	if snap.NEOs[1].DiameterKM.Known() {
		t.Fatal("unknown diameter must stay unknown")
	}
	if snap.Approaches[0].DatetimeUTC != "2020-Jan-01 12:30" {
		t.Fatalf("unexpected approach time: %q", snap.Approaches[0].DatetimeUTC)
	}
}

func TestPersistOverwrites(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Persist(ctx, fixtureSnapshot()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := store.Persist(ctx, domain.Snapshot{}); err != nil {
		t.Fatalf("second persist: %v", err)
	}
	snap, found, err := store.Load(ctx)
	if err != nil || !found {
		t.Fatalf("load after overwrite: found=%v err=%v", found, err)
	}
	if len(snap.NEOs) != 0 || len(snap.Approaches) != 0 {
		t.Fatalf("overwrite must replace, got %d NEOs, %d approaches",
			len(snap.NEOs), len(snap.Approaches))
	}
}

func TestReopenSeesPersistedState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Persist(ctx, fixtureSnapshot()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	snap, found, err := reopened.Load(ctx)
	if err != nil || !found {
		t.Fatalf("load after reopen: found=%v err=%v", found, err)
	}
	if len(snap.NEOs) != 2 {
		t.Fatalf("expected 2 NEOs after reopen, got %d", len(snap.NEOs))
	}
}

func TestDefaultPathAndNestedDirs(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "cache.db")
	store, err := NewStore(nested)
	if err != nil {
		t.Fatalf("NewStore must create parent dirs: %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.Path() != nested {
		t.Fatalf("unexpected path %q", store.Path())
	}
}
