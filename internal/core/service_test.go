package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"neocore/pkg/domain"
)

type recordedObservation struct {
	operation string
	success   bool
	duration  time.Duration
}

type captureMetrics struct {
	mu  sync.Mutex
	obs []recordedObservation
}

func (c *captureMetrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.obs = append(c.obs, recordedObservation{operation, success, duration})
}

type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (c *captureLogger) log(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, msg)
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.log(msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.log(msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.log(msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.log(msg) }

func TestServiceLookupDesignation(t *testing.T) {
	svc := NewService(erosDatabase(t))

	neo, err := svc.LookupDesignation(context.Background(), "433")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name, ok := neo.NamedAs(); !ok || name != "Eros" {
		t.Fatalf("expected Eros, got %v", neo)
	}

	_, err = svc.LookupDesignation(context.Background(), "99999")
	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if notFound.Field != "designation" || notFound.Value != "99999" {
		t.Fatalf("unexpected error detail: %+v", notFound)
	}
}

func TestServiceLookupName(t *testing.T) {
	svc := NewService(erosDatabase(t))

	neo, err := svc.LookupName(context.Background(), "Eros")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if neo.Designation != "433" {
		t.Fatalf("expected designation 433, got %q", neo.Designation)
	}

	if _, err := svc.LookupName(context.Background(), ""); err == nil {
		t.Fatal("empty name must not resolve")
	}
}

func TestServiceQuery(t *testing.T) {
	svc := NewService(erosDatabase(t))

	got := svc.Query(context.Background(), domain.Filters{DistanceMax: ptrF(0.2)}, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	got = svc.Query(context.Background(), domain.Filters{DistanceMax: ptrF(0.1)}, 0)
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestServiceInstrumentation(t *testing.T) {
	metrics := &captureMetrics{}
	logs := &captureLogger{}
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc := NewService(erosDatabase(t),
		WithMetrics(metrics),
		WithLogger(logs),
		WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * 10 * time.Millisecond)
		}),
	)

	if _, err := svc.LookupDesignation(context.Background(), "433"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.LookupDesignation(context.Background(), "nope"); err == nil {
		t.Fatal("expected miss")
	}

	if len(metrics.obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(metrics.obs))
	}
	if metrics.obs[0].operation != "lookup_designation" || !metrics.obs[0].success {
		t.Fatalf("unexpected first observation: %+v", metrics.obs[0])
	}
	if metrics.obs[1].success {
		t.Fatalf("miss must record as failure: %+v", metrics.obs[1])
	}
	if metrics.obs[0].duration <= 0 {
		t.Fatalf("expected positive duration, got %v", metrics.obs[0].duration)
	}
	if len(logs.entries) == 0 {
		t.Fatal("expected log entries")
	}
}

func TestServiceOptionsIgnoreNil(t *testing.T) {
	svc := NewService(erosDatabase(t), WithLogger(nil), WithClock(nil))
	if svc.logger == nil || svc.nowFn == nil {
		t.Fatal("nil options must not clear defaults")
	}
	if _, err := svc.LookupDesignation(context.Background(), "433"); err != nil {
		t.Fatalf("service must still function: %v", err)
	}
}

func TestJSONTraceTracerRecordsSpans(t *testing.T) {
	tracer := NewJSONTracer(nil)
	svc := NewService(erosDatabase(t), WithTracer(tracer))

	if _, err := svc.LookupDesignation(context.Background(), "433"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.LookupName(context.Background(), "nobody"); err == nil {
		t.Fatal("expected miss")
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 trace entries, got %d", len(entries))
	}
	if entries[0].Operation != "lookup_designation" || entries[0].Error != "" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Operation != "lookup_name" || entries[1].Error == "" {
		t.Fatalf("miss must carry its error: %+v", entries[1])
	}
}

func TestExpvarMetricsRecorderSnapshot(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "query", true, 5*time.Millisecond)
	rec.Observe(context.Background(), "query", false, 7*time.Millisecond)

	snap := rec.Snapshot()
	if snap.Results["query"]["success"] != 1 || snap.Results["query"]["error"] != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.DurationsMS["query"] != 12 {
		t.Fatalf("expected 12ms total, got %v", snap.DurationsMS["query"])
	}
}
