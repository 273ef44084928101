// Package latency classifies connection quality from round-trip timing
// samples and drives the auto-hiding connection indicator.
package latency

import (
	"math"
	"sync"
	"time"
)

// Quality is the connection quality classification of a sample.
type Quality string

const (
	// QualityConnecting means no round trip has completed yet.
	QualityConnecting Quality = "connecting"

	// QualityExcellent is a round trip under 500ms.
	QualityExcellent Quality = "excellent"

	// QualityGood is a round trip between 500ms and 999ms.
	QualityGood Quality = "good"

	// QualityPoor is a round trip of 1000ms or more.
	QualityPoor Quality = "poor"
)

// Classification thresholds and defaults.
const (
	excellentBelow = 500 * time.Millisecond
	goodBelow      = 1000 * time.Millisecond

	// DefaultWindowSize is the number of samples in the rolling window.
	DefaultWindowSize = 10

	// DefaultHideDelay is how long the indicator stays visible after the
	// last sample.
	DefaultHideDelay = 3 * time.Second
)

// Classify maps a round-trip time to a quality bucket.
func Classify(rtt time.Duration) Quality {
	switch {
	case rtt < excellentBelow:
		return QualityExcellent
	case rtt < goodBelow:
		return QualityGood
	default:
		return QualityPoor
	}
}

// Snapshot is a point-in-time view of the monitor for display.
type Snapshot struct {
	Quality       Quality `json:"quality"`
	AverageMillis int     `json:"average_ms"`
	LastMillis    int     `json:"last_ms"` // -1 while connecting
	Visible       bool    `json:"visible"`
	SampleCount   int     `json:"sample_count"`
}

// Monitor keeps a rolling window of round-trip samples and owns the
// indicator hide timer. It is goroutine-safe.
type Monitor struct {
	mu        sync.Mutex
	window    []time.Duration
	size      int
	hideDelay time.Duration

	last       time.Duration
	connecting bool
	visible    bool
	hideTimer  *time.Timer
	closed     bool

	onUpdate func(Snapshot)
}

// NewMonitor creates a monitor with the default window and hide delay.
func NewMonitor() *Monitor {
	return &Monitor{
		window:     make([]time.Duration, 0, DefaultWindowSize),
		size:       DefaultWindowSize,
		hideDelay:  DefaultHideDelay,
		connecting: true,
	}
}

// WithHideDelay overrides the auto-hide delay. Intended for tests and
// dashboard tuning; returns the monitor for chaining.
func (m *Monitor) WithHideDelay(d time.Duration) *Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hideDelay = d
	return m
}

// OnUpdate sets a callback that fires whenever the snapshot changes.
func (m *Monitor) OnUpdate(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// Record adds a completed round-trip sample, shows the indicator, and
// resets the hide timer.
func (m *Monitor) Record(rtt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.window = append(m.window, rtt)
	if len(m.window) > m.size {
		m.window = m.window[1:]
	}
	m.last = rtt
	m.connecting = false
	m.showLocked()
	m.notifyLocked()
}

// RecordConnecting marks a pending round trip (no timing yet). The
// indicator shows the distinct "connecting" state.
func (m *Monitor) RecordConnecting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.connecting = true
	m.showLocked()
	m.notifyLocked()
}

// Snapshot returns the current display state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Close cancels the hide timer. The monitor accepts no samples afterwards.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.hideTimer != nil {
		m.hideTimer.Stop()
		m.hideTimer = nil
	}
}

// showLocked makes the indicator visible and (re)arms the hide timer.
// Must be called with the mutex held.
func (m *Monitor) showLocked() {
	m.visible = true
	if m.hideTimer != nil {
		m.hideTimer.Stop()
	}
	m.hideTimer = time.AfterFunc(m.hideDelay, m.hide)
}

func (m *Monitor) hide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.visible {
		return
	}
	m.visible = false
	m.notifyLocked()
}

func (m *Monitor) snapshotLocked() Snapshot {
	snap := Snapshot{
		Visible:     m.visible,
		SampleCount: len(m.window),
		LastMillis:  -1,
	}

	if m.connecting {
		snap.Quality = QualityConnecting
	} else {
		snap.Quality = Classify(m.last)
		snap.LastMillis = int(m.last.Milliseconds())
	}

	if len(m.window) > 0 {
		var sum time.Duration
		for _, s := range m.window {
			sum += s
		}
		mean := float64(sum.Milliseconds()) / float64(len(m.window))
		snap.AverageMillis = int(math.Round(mean))
	}

	return snap
}

// notifyLocked fires the update callback with a copy of the snapshot.
// Must be called with the mutex held.
func (m *Monitor) notifyLocked() {
	if m.onUpdate != nil {
		snap := m.snapshotLocked()
		go m.onUpdate(snap)
	}
}
