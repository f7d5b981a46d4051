package bulb

import (
	"context"
	"log/slog"

	"github.com/pjlighting/artwiz-bridge/wiz"
)

// Sender transmits a setPilot command to a bulb. Implemented by
// *wiz.Conn in production, faked in tests.
type Sender interface {
	SendSetPilot(ip string, v wiz.SlotVector) error
}

// Verifier checks whether an off-transition was applied, per §4.5. It owns
// the 200ms settle sleep and the up-to-1000ms getPilot round trip.
type Verifier interface {
	CheckOff(ctx context.Context, ip string) (applied bool)
}

// Observer is notified of send/queue events, for optional telemetry (MQTT
// events, metrics counters). It must not block — implementations should
// enqueue and return immediately.
type Observer interface {
	// OnSent fires after every committed send (including suppressed-but-
	// counted off vectors, §3 invariant 5).
	OnSent(mac string, v wiz.SlotVector, applied bool)
	// OnQueueDepth fires after every enqueue, reporting the resulting
	// queue depth (§3 "Queue discipline").
	OnQueueDepth(mac string, depth int)
	// OnDropped fires when an enqueue evicts the oldest queued entry
	// because the queue was already at QueueCap.
	OnDropped(mac string)
	// OnOffVerifyRetry fires each time the off-verifier re-enqueues an
	// off vector for another attempt (§4.5 step 5).
	OnOffVerifyRetry(mac string, attempt int)
}

// Pump is the single-consumer drain loop for one bulb's Runtime,
// implementing §4.3. At most one send (and its verifier, if any) is ever
// in flight for a given mac — Runtime.processing is the mutex over that.
type Pump struct {
	rt       *Runtime
	sender   Sender
	verifier Verifier
	observer Observer
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// SetObserver attaches an optional telemetry observer, propagating it to
// the bound Runtime as well (queue depth/drop events originate there).
// Not safe to call once Run has started.
func (p *Pump) SetObserver(o Observer) {
	p.observer = o
	p.rt.SetObserver(o)
}

// NewPump creates a pump bound to rt.
func NewPump(rt *Runtime, sender Sender, verifier Verifier, logger *slog.Logger) *Pump {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pump{
		rt:       rt,
		sender:   sender,
		verifier: verifier,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run drives the pump until Stop is called. Call in its own goroutine.
func (p *Pump) Run() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.rt.mailbox:
		}
		p.drainOnce()
	}
}

// Stop ends the pump's goroutine. In-flight verifier timers are abandoned
// per §5 — there is no persistent state they could corrupt.
func (p *Pump) Stop() {
	p.cancel()
}

// drainOnce processes exactly one queue head, if any, and re-wakes itself
// when more work remains or a verifier completes — this is the iterative
// equivalent of the spec's "clear processing[mac] and drain the next item"
// recursion (§4.3 step 4, §9 deadlock fix).
func (p *Pump) drainOnce() {
	p.rt.mu.Lock()
	if p.rt.processing || len(p.rt.queue) == 0 {
		p.rt.mu.Unlock()
		return
	}
	p.rt.processing = true
	msg := p.rt.queue[0]
	p.rt.queue = p.rt.queue[1:]
	lastSent := p.rt.lastSent
	p.rt.mu.Unlock()

	// Coalescing: a dequeued vector identical to lastSent is never
	// transmitted. Clear processing and re-enter — this is exactly the
	// §9 fix for the variant that used to deadlock here.
	if msg.vector.Equal(lastSent) {
		p.finish(false, wiz.SlotVector{}, 0)
		return
	}

	stateChanged := msg.vector.State != lastSent.State

	// Codec-layer suppression (§3 invariant 5, §4.4): an off vector whose
	// state didn't just change never transmits, but the completion
	// callback still fires so the queue keeps draining and stats.sent
	// still counts it, matching the spec's "codec does not transmit; it
	// invokes the completion callback immediately".
	if !msg.vector.State && !stateChanged {
		p.rt.mu.Lock()
		p.rt.stats.Sent++
		p.rt.mu.Unlock()
		p.finish(true, msg.vector, 0)
		return
	}

	rec := p.rt.Record()
	if err := p.sender.SendSetPilot(rec.IP, msg.vector); err != nil {
		p.logger.Warn("setPilot send failed", "mac", rec.MAC, "error", err)
	}
	p.rt.mu.Lock()
	p.rt.stats.Sent++
	p.rt.mu.Unlock()

	if stateChanged && !msg.vector.State {
		// Off-transition: hand off to the verifier (§4.5). lastSent is
		// only updated once verification settles (success, or final
		// give-up, per step 5).
		go p.verifyOff(msg.vector, msg.retries)
		return
	}

	p.finish(true, msg.vector, 0)
}

// verifyOff runs the off-verifier and either commits lastSent, requeues
// for another attempt, or gives up after MaxOffRetries (§4.5 step 5).
func (p *Pump) verifyOff(v wiz.SlotVector, retries int) {
	rec := p.rt.Record()
	applied := p.verifier.CheckOff(p.ctx, rec.IP)
	if applied {
		p.finish(true, v, 0)
		return
	}

	if retries < MaxOffRetries {
		p.logger.Debug("off-verify failed, retrying",
			"mac", rec.MAC, "attempt", retries+1)
		if p.observer != nil {
			p.observer.OnOffVerifyRetry(rec.MAC, retries+1)
		}
		p.rt.mu.Lock()
		p.rt.processing = false
		p.rt.mu.Unlock()
		p.rt.requeueForRetry(v, retries+1)
		return
	}

	p.logger.Error("off-verify gave up after max retries",
		"mac", rec.MAC, "retries", retries)
	// lastSent is still updated so future coalescing is correct, per
	// §4.5 step 5's final sentence.
	p.finish(true, v, 0)
}

// finish clears processing, optionally commits lastSent, and re-wakes the
// pump so it can immediately pick up anything left in the queue.
func (p *Pump) finish(commit bool, v wiz.SlotVector, _ int) {
	p.rt.mu.Lock()
	if commit {
		p.rt.lastSent = v
	}
	p.rt.processing = false
	hasMore := len(p.rt.queue) > 0
	p.rt.mu.Unlock()

	if commit && p.observer != nil {
		p.observer.OnSent(p.rt.Record().MAC, v, true)
	}

	if hasMore {
		p.rt.wake()
	}
}
