// Package bridge wires the Art-Net decoder to the per-bulb queues: for
// every accepted frame on the configured universe it slices each bulb's
// six slots, runs them through the change detector, and enqueues on
// change (§4.2). This is the adapted equivalent of the teacher's
// remap.Engine — instead of remapping one DMX universe's channels onto
// another, it "remaps" universe channels onto per-bulb mailboxes.
package bridge

import (
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/pjlighting/artwiz-bridge/artnet"
	"github.com/pjlighting/artwiz-bridge/bulb"
	"github.com/pjlighting/artwiz-bridge/metrics"
)

// StatusHook is invoked from the stats ticker so callers (the MQTT
// telemetry client, in production) can publish a periodic status snapshot
// without the bridge package depending on telemetry wire formats.
type StatusHook func(bulbCount int, framesAccepted, framesDropped uint64)

// Engine is the core translation step described in §2's data-flow row;
// HandleFrame performs the per-frame work of §4.2.
type Engine struct {
	universe uint16
	manager  *bulb.Manager
	logger   *slog.Logger

	statusHook StatusHook

	framesAccepted atomic.Uint64
	framesDropped  atomic.Uint64
}

// NewEngine creates an Engine that only processes frames for universe
// (§4.1: "Only universe == 0 is processed; others are silently dropped").
func NewEngine(universe uint16, manager *bulb.Manager, logger *slog.Logger) *Engine {
	return &Engine{universe: universe, manager: manager, logger: logger}
}

// SetStatusHook attaches an optional callback invoked on every stats tick.
func (e *Engine) SetStatusHook(hook StatusHook) {
	e.statusHook = hook
}

// HandleFrame is an artnet.FrameHandler the receiver invokes for every
// decoded ArtDmx packet.
func (e *Engine) HandleFrame(src *net.UDPAddr, frame artnet.Frame) {
	if frame.Universe != e.universe {
		e.framesDropped.Add(1)
		metrics.FramesDropped.Inc()
		return
	}
	e.framesAccepted.Add(1)
	metrics.FramesAccepted.Inc()

	for _, rt := range e.manager.Runtimes() {
		v := bulb.DeriveSlotVector(frame.Slots, rt.Record())
		rt.OnFrame(v)
	}
}

// Stats is a point-in-time snapshot of ingress counters, for the stats
// ticker and /metrics endpoint.
type Stats struct {
	FramesAccepted uint64
	FramesDropped  uint64
}

// Stats returns the current ingress counters.
func (e *Engine) Stats() Stats {
	return Stats{
		FramesAccepted: e.framesAccepted.Load(),
		FramesDropped:  e.framesDropped.Load(),
	}
}

// StartStatsTicker logs a periodic summary of ingress and per-bulb
// counters, per §5's "30s stats tick". Returns a stop function.
func (e *Engine) StartStatsTicker(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				e.logStats()
			}
		}
	}()
	return func() { close(done) }
}

func (e *Engine) logStats() {
	s := e.Stats()
	e.logger.Info("ingress stats", "accepted", s.FramesAccepted, "dropped_other_universe", s.FramesDropped)

	runtimes := e.manager.Runtimes()
	for _, rt := range runtimes {
		bs := rt.Stats()
		e.logger.Debug("bulb stats",
			"mac", rt.Record().MAC,
			"queued", bs.Queued,
			"sent", bs.Sent,
			"dropped", bs.Dropped,
			"queue_len", rt.QueueLen())
	}

	if e.statusHook != nil {
		e.statusHook(len(runtimes), s.FramesAccepted, s.FramesDropped)
	}
}
