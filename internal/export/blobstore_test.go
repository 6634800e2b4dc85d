package export

import (
	"context"
	"testing"

	"neocore/internal/blob"
)

func newTestBlob(t *testing.T) blob.Store {
	t.Helper()
	return blob.NewMemory()
}

func TestBlobObjectStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewBlobObjectStore(newTestBlob(t))

	artifact, err := store.Put(ctx, "exports/x.csv", []byte("datetime_utc\n"), "text/csv")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if artifact.ID != "exports/x.csv" || artifact.SizeBytes != 13 {
		t.Fatalf("unexpected artifact: %+v", artifact)
	}
	if artifact.URL == "" {
		t.Fatal("expected a URL")
	}

	got, payload, err := store.Get(ctx, "exports/x.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(payload) != "datetime_utc\n" || got.ContentType != "text/csv" {
		t.Fatalf("round trip mismatch: %q %+v", payload, got)
	}

	artifacts, err := store.List(ctx, "exports/")
	if err != nil || len(artifacts) != 1 {
		t.Fatalf("list: %v %d", err, len(artifacts))
	}

	existed, err := store.Delete(ctx, "exports/x.csv")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
}
