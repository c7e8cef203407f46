// File: internal/metrics/metrics.go
// Project: Starwake battle core
// Description: Centralized metrics collection and Prometheus-compatible export
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-14

package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector tracks simulator and recorder activity for a running host.
//
// It observes the return values of Simulator.Tick and persistence.Recorder
// calls; nothing in internal/battle imports this package directly.
type MetricsCollector struct {
	mu sync.RWMutex

	// Simulation activity
	ticksProcessed     atomic.Int64
	shotsFired         atomic.Int64
	unitsDestroyed     atomic.Int64
	retargetsForced    atomic.Int64
	stalematesDeclared atomic.Int64
	battlesEnded       atomic.Int64

	// Recorder activity
	recorderWrites atomic.Int64
	recorderErrors atomic.Int64

	// Performance
	averageTickTime time.Duration
	peakUnitCount   int64
	peakTime        time.Time

	// Custom counters
	customCounters map[string]*atomic.Int64
	customGauges   map[string]*atomic.Int64

	startTime time.Time
}

var global *MetricsCollector
var once sync.Once

// Init initializes the global metrics collector.
func Init() *MetricsCollector {
	once.Do(func() {
		global = &MetricsCollector{
			customCounters: make(map[string]*atomic.Int64),
			customGauges:   make(map[string]*atomic.Int64),
			startTime:      time.Now(),
		}
	})
	return global
}

// Global returns the global metrics collector.
func Global() *MetricsCollector {
	if global == nil {
		return Init()
	}
	return global
}

// Simulation metrics

func (m *MetricsCollector) IncrementTicksProcessed() {
	m.ticksProcessed.Add(1)
}

func (m *MetricsCollector) IncrementShotsFired() {
	m.shotsFired.Add(1)
}

func (m *MetricsCollector) IncrementUnitsDestroyed(n int64) {
	m.unitsDestroyed.Add(n)
}

func (m *MetricsCollector) IncrementRetargetsForced(n int64) {
	m.retargetsForced.Add(n)
}

func (m *MetricsCollector) IncrementStalematesDeclared() {
	m.stalematesDeclared.Add(1)
}

func (m *MetricsCollector) IncrementBattlesEnded() {
	m.battlesEnded.Add(1)
}

func (m *MetricsCollector) RecordUnitCount(n int64) {
	m.updatePeakUnitCount(n)
}

// RecordTickActivity folds the bookkeeping a host performs after every
// Simulator.Tick call into one call, so cmd/battlesim and
// cmd/headlessreport can't drift out of step with each other.
func (m *MetricsCollector) RecordTickActivity(shotsFired, unitsDestroyed int, aliveUnits int64, d time.Duration) {
	m.RecordTickTime(d)
	m.IncrementTicksProcessed()
	for i := 0; i < shotsFired; i++ {
		m.IncrementShotsFired()
	}
	m.IncrementUnitsDestroyed(int64(unitsDestroyed))
	m.RecordUnitCount(aliveUnits)
}

func (m *MetricsCollector) updatePeakUnitCount(current int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current > m.peakUnitCount {
		m.peakUnitCount = current
		m.peakTime = time.Now()
	}
}

// Recorder metrics

func (m *MetricsCollector) IncrementRecorderWrites() {
	m.recorderWrites.Add(1)
}

func (m *MetricsCollector) IncrementRecorderErrors() {
	m.recorderErrors.Add(1)
}

// Performance metrics

func (m *MetricsCollector) RecordTickTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.averageTickTime = d
}

// Custom metrics

func (m *MetricsCollector) IncrementCounter(name string) {
	m.mu.Lock()
	if _, ok := m.customCounters[name]; !ok {
		m.customCounters[name] = &atomic.Int64{}
	}
	counter := m.customCounters[name]
	m.mu.Unlock()
	counter.Add(1)
}

func (m *MetricsCollector) SetGauge(name string, value int64) {
	m.mu.Lock()
	if _, ok := m.customGauges[name]; !ok {
		m.customGauges[name] = &atomic.Int64{}
	}
	gauge := m.customGauges[name]
	m.mu.Unlock()
	gauge.Store(value)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	TicksProcessed     int64
	ShotsFired         int64
	UnitsDestroyed     int64
	RetargetsForced    int64
	StalematesDeclared int64
	BattlesEnded       int64

	RecorderWrites int64
	RecorderErrors int64

	AvgTickTime   time.Duration
	PeakUnitCount int64
	PeakTime      time.Time
	Uptime        time.Duration

	CustomCounters map[string]int64
	CustomGauges   map[string]int64
}

func (m *MetricsCollector) Snapshot() *MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	customCounters := make(map[string]int64)
	for k, v := range m.customCounters {
		customCounters[k] = v.Load()
	}
	customGauges := make(map[string]int64)
	for k, v := range m.customGauges {
		customGauges[k] = v.Load()
	}

	return &MetricsSnapshot{
		TicksProcessed:     m.ticksProcessed.Load(),
		ShotsFired:         m.shotsFired.Load(),
		UnitsDestroyed:     m.unitsDestroyed.Load(),
		RetargetsForced:    m.retargetsForced.Load(),
		StalematesDeclared: m.stalematesDeclared.Load(),
		BattlesEnded:       m.battlesEnded.Load(),
		RecorderWrites:     m.recorderWrites.Load(),
		RecorderErrors:     m.recorderErrors.Load(),
		AvgTickTime:        m.averageTickTime,
		PeakUnitCount:      m.peakUnitCount,
		PeakTime:           m.peakTime,
		Uptime:             time.Since(m.startTime),
		CustomCounters:     customCounters,
		CustomGauges:       customGauges,
	}
}

// PrometheusFormat returns metrics in Prometheus exposition format.
func (m *MetricsCollector) PrometheusFormat() string {
	snap := m.Snapshot()

	var out string
	out += fmt.Sprintf("# HELP starwake_ticks_processed_total Total simulator ticks processed\n")
	out += fmt.Sprintf("# TYPE starwake_ticks_processed_total counter\n")
	out += fmt.Sprintf("starwake_ticks_processed_total %d\n\n", snap.TicksProcessed)

	out += fmt.Sprintf("# HELP starwake_shots_fired_total Total successful weapon fires\n")
	out += fmt.Sprintf("# TYPE starwake_shots_fired_total counter\n")
	out += fmt.Sprintf("starwake_shots_fired_total %d\n\n", snap.ShotsFired)

	out += fmt.Sprintf("# HELP starwake_units_destroyed_total Total units destroyed\n")
	out += fmt.Sprintf("# TYPE starwake_units_destroyed_total counter\n")
	out += fmt.Sprintf("starwake_units_destroyed_total %d\n\n", snap.UnitsDestroyed)

	out += fmt.Sprintf("# HELP starwake_retargets_forced_total Total forced retargets\n")
	out += fmt.Sprintf("# TYPE starwake_retargets_forced_total counter\n")
	out += fmt.Sprintf("starwake_retargets_forced_total %d\n\n", snap.RetargetsForced)

	out += fmt.Sprintf("# HELP starwake_stalemates_total Total stalemates declared\n")
	out += fmt.Sprintf("# TYPE starwake_stalemates_total counter\n")
	out += fmt.Sprintf("starwake_stalemates_total %d\n\n", snap.StalematesDeclared)

	out += fmt.Sprintf("# HELP starwake_battles_ended_total Total battles that reached a terminal state\n")
	out += fmt.Sprintf("# TYPE starwake_battles_ended_total counter\n")
	out += fmt.Sprintf("starwake_battles_ended_total %d\n\n", snap.BattlesEnded)

	out += fmt.Sprintf("# HELP starwake_recorder_writes_total Total battle records persisted\n")
	out += fmt.Sprintf("# TYPE starwake_recorder_writes_total counter\n")
	out += fmt.Sprintf("starwake_recorder_writes_total %d\n\n", snap.RecorderWrites)

	out += fmt.Sprintf("# HELP starwake_recorder_errors_total Total persistence write failures\n")
	out += fmt.Sprintf("# TYPE starwake_recorder_errors_total counter\n")
	out += fmt.Sprintf("starwake_recorder_errors_total %d\n\n", snap.RecorderErrors)

	out += fmt.Sprintf("# HELP starwake_peak_unit_count Peak number of units seen in a single tick\n")
	out += fmt.Sprintf("# TYPE starwake_peak_unit_count gauge\n")
	out += fmt.Sprintf("starwake_peak_unit_count %d\n\n", snap.PeakUnitCount)

	out += fmt.Sprintf("# HELP starwake_last_tick_duration_seconds Wall-clock duration of the most recent tick\n")
	out += fmt.Sprintf("# TYPE starwake_last_tick_duration_seconds gauge\n")
	out += fmt.Sprintf("starwake_last_tick_duration_seconds %f\n\n", snap.AvgTickTime.Seconds())

	out += fmt.Sprintf("# HELP starwake_uptime_seconds Collector uptime in seconds\n")
	out += fmt.Sprintf("# TYPE starwake_uptime_seconds gauge\n")
	out += fmt.Sprintf("starwake_uptime_seconds %.0f\n\n", snap.Uptime.Seconds())

	for name, value := range snap.CustomCounters {
		out += fmt.Sprintf("# HELP starwake_custom_%s Custom counter\n", name)
		out += fmt.Sprintf("# TYPE starwake_custom_%s counter\n", name)
		out += fmt.Sprintf("starwake_custom_%s %d\n\n", name, value)
	}

	for name, value := range snap.CustomGauges {
		out += fmt.Sprintf("# HELP starwake_custom_%s Custom gauge\n", name)
		out += fmt.Sprintf("# TYPE starwake_custom_%s gauge\n", name)
		out += fmt.Sprintf("starwake_custom_%s %d\n\n", name, value)
	}

	return out
}
