package logging

import "sync"

// Metrics keeps in-process telemetry counters and gauges. It is shared
// between the simulation loop, the command buffer, and the spawn path, so
// access is guarded even though the core tick itself is single-threaded.
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]uint64
	gauges   map[string]uint64
}

func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]uint64),
		gauges:   make(map[string]uint64),
	}
}

// TelemetryAdd increments the named counter by delta.
func (m *Metrics) TelemetryAdd(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	m.counters[key] += delta
	m.mu.Unlock()
}

// TelemetryStore overwrites the named gauge.
func (m *Metrics) TelemetryStore(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	m.gauges[key] = value
	m.mu.Unlock()
}

// CounterValue reads a counter, returning zero when absent.
func (m *Metrics) CounterValue(key string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[key]
}

// GaugeValue reads a gauge, returning zero when absent.
func (m *Metrics) GaugeValue(key string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[key]
}

// SnapshotCounters copies the counter map for reporting.
func (m *Metrics) SnapshotCounters() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.counters) == 0 {
		return nil
	}
	copied := make(map[string]uint64, len(m.counters))
	for k, v := range m.counters {
		copied[k] = v
	}
	return copied
}
