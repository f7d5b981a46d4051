package bulb

import (
	"log/slog"
	"sync"
)

// Manager owns every bulb's Runtime and Pump, keyed by mac, and applies
// config reloads: new macs get a fresh Runtime+Pump, macs no longer
// present are retired, and macs that persist across a reload keep their
// state (§5: "in-flight queues keyed on mac survive a reload if the MAC
// persists").
type Manager struct {
	sender   Sender
	verifier Verifier
	observer Observer
	logger   *slog.Logger

	mu       sync.RWMutex
	runtimes map[string]*Runtime
	pumps    map[string]*Pump
}

// NewManager creates an empty Manager.
func NewManager(sender Sender, verifier Verifier, logger *slog.Logger) *Manager {
	return &Manager{
		sender:   sender,
		verifier: verifier,
		logger:   logger,
		runtimes: make(map[string]*Runtime),
		pumps:    make(map[string]*Pump),
	}
}

// SetObserver attaches an optional telemetry observer to every pump,
// existing and future. Pumps that are already running are updated through
// Pump.SetObserver without synchronization, so it is only safe to call
// before the first Reload starts any pump.
func (m *Manager) SetObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = o
	for _, pump := range m.pumps {
		pump.SetObserver(o)
	}
}

// Reload replaces the bulb list atomically (§5: "the reload replaces the
// whole list atomically"). Only this method writes to the membership set;
// individual Runtimes remain owned by their Pump goroutine (§9).
func (m *Manager) Reload(records []Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		seen[rec.MAC] = true

		if rt, ok := m.runtimes[rec.MAC]; ok {
			rt.SetRecord(rec) // IP may have changed across reloads (§3)
			continue
		}

		rt := NewRuntime(rec)
		pump := NewPump(rt, m.sender, m.verifier, m.logger)
		if m.observer != nil {
			pump.SetObserver(m.observer)
		}
		m.runtimes[rec.MAC] = rt
		m.pumps[rec.MAC] = pump
		go pump.Run()
		m.logger.Info("bulb added", "mac", rec.MAC, "name", rec.Name, "channel", rec.Channel)
	}

	for mac, pump := range m.pumps {
		if !seen[mac] {
			pump.Stop()
			delete(m.pumps, mac)
			delete(m.runtimes, mac)
			m.logger.Info("bulb removed", "mac", mac)
		}
	}
}

// Runtimes returns a snapshot slice of all currently-known runtimes, for
// the bridge's change detector to iterate each frame (§4.2 "a snapshot —
// see §5").
func (m *Manager) Runtimes() []*Runtime {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Runtime, 0, len(m.runtimes))
	for _, rt := range m.runtimes {
		out = append(out, rt)
	}
	return out
}

// Stop retires every pump, for process shutdown.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pump := range m.pumps {
		pump.Stop()
	}
}
