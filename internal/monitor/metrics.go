package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks gateway-wide operational counters and latency
// histograms for the admin /metrics surface: sliding-window histograms with
// lazy, cached percentile computation, plus counters specific to this
// gateway's domain (orders admitted, fills, risk alerts, persistence
// latency).
type SystemMetrics struct {
	mu sync.RWMutex

	OrderLatency      *LatencyHistogram
	MatchingLatency   *LatencyHistogram
	PersistenceLatency *LatencyHistogram

	ordersAdmitted uint64
	fillsProcessed uint64
	riskAlerts     uint64

	lastUpdate time.Time
}

// LatencyHistogram tracks latency samples with a fixed-size sliding
// window and lazily recomputed, cached percentile stats.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewSystemMetrics returns a metrics instance with 1000-sample histograms.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		OrderLatency:       NewLatencyHistogram(1000),
		MatchingLatency:    NewLatencyHistogram(1000),
		PersistenceLatency: NewLatencyHistogram(1000),
		lastUpdate:         time.Now(),
	}
}

// NewLatencyHistogram creates a sliding-window histogram of the given size.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{samples: make([]float64, 0, size), maxSize: size, dirty: true}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts d to milliseconds and records it.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min/max/avg/p50/p95/p99, recomputing only when dirty.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}
	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}
	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	h.cachedStats = LatencyStats{
		Min: sorted[0], Max: sorted[n-1], Avg: sum / float64(n),
		P50: sorted[n/2], P95: sorted[int(float64(n)*0.95)], P99: sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false
	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

func (m *SystemMetrics) IncrementOrdersAdmitted() { atomic.AddUint64(&m.ordersAdmitted, 1) }
func (m *SystemMetrics) IncrementFills()           { atomic.AddUint64(&m.fillsProcessed, 1) }
func (m *SystemMetrics) IncrementRiskAlerts()      { atomic.AddUint64(&m.riskAlerts, 1) }

// MetricsSnapshot is a point-in-time view suitable for JSON serialization.
type MetricsSnapshot struct {
	OrderLatency       LatencyStats `json:"order_latency"`
	MatchingLatency    LatencyStats `json:"matching_latency"`
	PersistenceLatency LatencyStats `json:"persistence_latency"`
	OrdersAdmitted     uint64       `json:"orders_admitted"`
	FillsProcessed     uint64       `json:"fills_processed"`
	RiskAlerts         uint64       `json:"risk_alerts"`
	GoroutineCount     int          `json:"goroutine_count"`
	HeapAlloc          uint64       `json:"heap_alloc_bytes"`
	HeapSys            uint64       `json:"heap_sys_bytes"`
	Timestamp          time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return MetricsSnapshot{
		OrderLatency:       m.OrderLatency.Stats(),
		MatchingLatency:    m.MatchingLatency.Stats(),
		PersistenceLatency: m.PersistenceLatency.Stats(),
		OrdersAdmitted:     atomic.LoadUint64(&m.ordersAdmitted),
		FillsProcessed:     atomic.LoadUint64(&m.fillsProcessed),
		RiskAlerts:         atomic.LoadUint64(&m.riskAlerts),
		GoroutineCount:     runtime.NumGoroutine(),
		HeapAlloc:          mem.HeapAlloc,
		HeapSys:            mem.HeapSys,
		Timestamp:          time.Now(),
	}
}

// Timer measures an operation's duration and records it to a histogram.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer starts a timer that records to h on Stop.
func NewTimer(h *LatencyHistogram) *Timer { return &Timer{start: time.Now(), histogram: h} }

// Stop records elapsed time to the histogram and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
