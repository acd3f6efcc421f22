package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type counter struct {
	n int64
}

var (
	queries          int64
	upstreamRequests int64
	upstreamErrors   int64
	cacheHits        int64
	cacheMisses      int64
	warns            sync.Map // component -> *counter
	errs             sync.Map // component -> *counter
)

func recordWarn(component string) {
	bump(&warns, component)
}

func recordError(component string) {
	bump(&errs, component)
}

func bump(m *sync.Map, key string) {
	v, _ := m.LoadOrStore(key, &counter{})
	atomic.AddInt64(&v.(*counter).n, 1)
}

// IncrementQuery counts one answered chat message.
func IncrementQuery() {
	atomic.AddInt64(&queries, 1)
}

// IncrementUpstream counts one call to the market-data provider.
func IncrementUpstream(failed bool) {
	atomic.AddInt64(&upstreamRequests, 1)
	if failed {
		atomic.AddInt64(&upstreamErrors, 1)
	}
}

// IncrementCacheLookup counts one snapshot cache lookup.
func IncrementCacheLookup(hit bool) {
	if hit {
		atomic.AddInt64(&cacheHits, 1)
		return
	}
	atomic.AddInt64(&cacheMisses, 1)
}

// StartReport logs runtime and traffic counters every interval until ctx is done.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	log.WithComponent("report").WithFields(reportFields(ctx)).Info("runtime report")
}

func reportFields(ctx context.Context) Fields {
	cpuPct := 0.0
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		cpuPct = pct[0]
	}
	var memoryMB int64
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		memoryMB = int64(vm.Used) / 1024 / 1024
	}

	return Fields{
		"queries":           atomic.LoadInt64(&queries),
		"upstream_requests": atomic.LoadInt64(&upstreamRequests),
		"upstream_errors":   atomic.LoadInt64(&upstreamErrors),
		"cache_hits":        atomic.LoadInt64(&cacheHits),
		"cache_misses":      atomic.LoadInt64(&cacheMisses),
		"warns":             snapshotCounters(&warns),
		"errors":            snapshotCounters(&errs),
		"goroutines":        runtime.NumGoroutine(),
		"cpu_percent":       cpuPct,
		"memory_mb":         memoryMB,
	}
}

func snapshotCounters(m *sync.Map) map[string]int64 {
	out := map[string]int64{}
	m.Range(func(k, v any) bool {
		out[k.(string)] = atomic.LoadInt64(&v.(*counter).n)
		return true
	})
	return out
}
