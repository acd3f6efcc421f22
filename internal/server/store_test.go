package server

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"cryptoguide/internal/metrics"
)

func TestMetricStoreLimit(t *testing.T) {
	store := newMetricStore(2)
	for i := 0; i < 5; i++ {
		store.handle(metrics.Metric{Timestamp: time.Unix(int64(i), 0), Name: "queries", Value: i})
	}

	snapshot := store.snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 metrics in snapshot, got %d", len(snapshot))
	}

	if snapshot[0].Value != 3 || snapshot[1].Value != 4 {
		t.Fatalf("unexpected metrics retained: %#v", snapshot)
	}
}

func TestRingLast(t *testing.T) {
	r := newRing[int](3)
	if _, ok := r.last(); ok {
		t.Fatal("empty ring should have no last item")
	}
	r.add(1)
	r.add(2)
	if v, ok := r.last(); !ok || v != 2 {
		t.Fatalf("last() = %d, %v", v, ok)
	}
}

func TestLogStoreCapturesEntries(t *testing.T) {
	store := newLogStore(3)
	entry := logrus.NewEntry(logrus.New())
	entry.Time = time.Unix(10, 0)
	entry.Level = logrus.WarnLevel
	entry.Message = "snapshot unavailable"
	entry.Data = logrus.Fields{"component": "assistant", "coin": "bitcoin", "error": errors.New("boom")}

	if err := store.Fire(entry); err != nil {
		t.Fatalf("store.Fire returned error: %v", err)
	}

	snapshot := store.snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(snapshot))
	}

	got := snapshot[0]
	if got.Component != "assistant" || got.Fields["coin"] != "bitcoin" || got.Fields["error"] != "boom" {
		t.Fatalf("unexpected snapshot data: %#v", got)
	}
	if _, ok := got.Fields["component"]; ok {
		t.Fatalf("component should not be repeated in fields: %#v", got.Fields)
	}
}

func TestLogStoreRespectsLimitAndClose(t *testing.T) {
	store := newLogStore(2)
	for i := 0; i < 4; i++ {
		entry := logrus.NewEntry(logrus.New())
		entry.Message = "msg"
		entry.Level = logrus.InfoLevel
		entry.Data = logrus.Fields{"index": i}
		if err := store.Fire(entry); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	snapshot := store.snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 entries after pruning, got %d", len(snapshot))
	}

	store.close()
	entry := logrus.NewEntry(logrus.New())
	entry.Message = "ignored"
	if err := store.Fire(entry); err != nil {
		t.Fatalf("unexpected error after close: %v", err)
	}

	if len(store.snapshot()) != 2 {
		t.Fatalf("store accepted entries after close")
	}
}
