package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics records Go runtime gauges while a run is in progress
type RuntimeMetrics struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	heapSys    metric.Int64Gauge
	gcPause    metric.Float64Histogram

	lastGC uint32
}

// NewRuntimeMetrics creates the runtime instruments on meter
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64Gauge(
		"volscan_goroutines",
		metric.WithDescription("Number of live goroutines, workers included"),
	)
	if err != nil {
		return nil, err
	}

	heapAlloc, err := meter.Int64Gauge(
		"volscan_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	heapSys, err := meter.Int64Gauge(
		"volscan_heap_sys_bytes",
		metric.WithDescription("Heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcPause, err := meter.Float64Histogram(
		"volscan_gc_pause_seconds",
		metric.WithDescription("Garbage collection pause duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RuntimeMetrics{
		goroutines: goroutines,
		heapAlloc:  heapAlloc,
		heapSys:    heapSys,
		gcPause:    gcPause,
	}, nil
}

// RuntimeStats is one sample of the runtime
type RuntimeStats struct {
	Goroutines int64
	HeapAlloc  int64
	HeapSys    int64
	NumGC      uint32
}

// Collect samples the runtime and records it. GC pauses are recorded once per collection.
func (m *RuntimeMetrics) Collect(ctx context.Context) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := RuntimeStats{
		Goroutines: int64(runtime.NumGoroutine()),
		HeapAlloc:  int64(mem.HeapAlloc),
		HeapSys:    int64(mem.HeapSys),
		NumGC:      mem.NumGC,
	}

	m.goroutines.Record(ctx, stats.Goroutines)
	m.heapAlloc.Record(ctx, stats.HeapAlloc)
	m.heapSys.Record(ctx, stats.HeapSys)

	// PauseNs is a ring of the last 256 pauses
	from := m.lastGC
	if mem.NumGC-from > 256 {
		from = mem.NumGC - 256
	}
	for gc := from + 1; gc <= mem.NumGC; gc++ {
		pause := time.Duration(mem.PauseNs[(gc+255)%256])
		m.gcPause.Record(ctx, pause.Seconds())
	}
	m.lastGC = mem.NumGC

	return stats
}

// RuntimeCollector samples RuntimeMetrics on an interval until stopped
type RuntimeCollector struct {
	metrics  *RuntimeMetrics
	interval time.Duration
	stopCh   chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewRuntimeCollector creates a collector; call Start to begin sampling
func NewRuntimeCollector(meter metric.Meter, interval time.Duration) (*RuntimeCollector, error) {
	metrics, err := NewRuntimeMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	return &RuntimeCollector{
		metrics:  metrics,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start samples in a background goroutine until Stop or ctx is done
func (c *RuntimeCollector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.metrics.Collect(ctx)
		for {
			select {
			case <-ticker.C:
				c.metrics.Collect(ctx)
			case <-c.stopCh:
				// final sample so short runs still report once more at the end
				c.metrics.Collect(ctx)
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends sampling and waits for the collector goroutine to exit.
// It must only be called after Start.
func (c *RuntimeCollector) Stop() {
	c.once.Do(func() { close(c.stopCh) })
	<-c.done
}
