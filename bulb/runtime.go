package bulb

import (
	"sync"

	"github.com/pjlighting/artwiz-bridge/wiz"
)

// QueueCap is the bounded capacity of a bulb's outbound queue (§3).
const QueueCap = 10

// MaxOffRetries is the number of off-transition re-sends the verifier will
// attempt before giving up (§4.5).
const MaxOffRetries = 3

// queued is a pending outbound vector plus its off-verify retry count.
type queued struct {
	vector  wiz.SlotVector
	retries int
}

// Stats are the per-bulb counters of §3.
type Stats struct {
	Queued  uint64
	Sent    uint64
	Dropped uint64
}

// Runtime is the per-mac process-wide state described in §3/§5: last
// received/sent vectors, the bounded queue, the processing mutex-flag, and
// counters. It is owned exclusively by its Pump goroutine plus the config
// reloader that creates/retires it (§5, §9 "single-ownership pumps").
type Runtime struct {
	mu           sync.Mutex
	record       Record
	lastReceived wiz.SlotVector
	lastSent     wiz.SlotVector
	queue        []queued
	processing   bool
	stats        Stats
	observer     Observer

	mailbox chan struct{} // wakes the pump goroutine; buffered len 1
}

// NewRuntime creates a Runtime for rec with all state zeroed (off), per §3.
func NewRuntime(rec Record) *Runtime {
	return &Runtime{
		record:  rec,
		mailbox: make(chan struct{}, 1),
	}
}

// SetObserver attaches the optional telemetry observer notified of queue
// depth changes and overflow drops.
func (r *Runtime) SetObserver(o Observer) {
	r.mu.Lock()
	r.observer = o
	r.mu.Unlock()
}

// Record returns a snapshot of the bulb's current config record. Safe to
// call from any goroutine — it's the only way to read IP/MAC/Channel,
// since a config reload can rewrite them (e.g. a changed IP, §3) while the
// pump goroutine is mid-send.
func (r *Runtime) Record() Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record
}

// SetRecord updates the bulb's config record. Only Manager.Reload calls
// this, for a mac that survives a reload with changed fields.
func (r *Runtime) SetRecord(rec Record) {
	r.mu.Lock()
	r.record = rec
	r.mu.Unlock()
}

// Stats returns a snapshot of the bulb's counters.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// QueueLen returns the current queue depth (test/metrics helper).
func (r *Runtime) QueueLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// LastReceived returns the last slot vector observed on the wire for this
// bulb.
func (r *Runtime) LastReceived() wiz.SlotVector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReceived
}

// LastSent returns the last vector acknowledged-sent to the bulb.
func (r *Runtime) LastSent() wiz.SlotVector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSent
}

// OnFrame is called by the bridge's change detector for every accepted DMX
// frame. It updates lastReceived and enqueues iff the vector differs from
// the previous one (§4.2). Returns true if the frame changed anything.
func (r *Runtime) OnFrame(v wiz.SlotVector) bool {
	r.mu.Lock()
	if v.Equal(r.lastReceived) {
		r.mu.Unlock()
		return false
	}
	r.lastReceived = v
	dropped, depth := r.enqueueWithRetryLocked(v, 0)
	mac, observer := r.record.MAC, r.observer
	r.mu.Unlock()

	r.notifyQueue(observer, mac, dropped, depth)
	r.wake()
	return true
}

// enqueueWithRetryLocked appends v to the queue, evicting the oldest entry
// and incrementing Dropped if the queue is already at capacity (§3
// invariant 2, §4.3 "Queue discipline"). Caller must hold r.mu. Returns
// whether an eviction occurred and the resulting queue depth, for the
// caller to report to the observer outside the lock.
func (r *Runtime) enqueueWithRetryLocked(v wiz.SlotVector, retries int) (dropped bool, depth int) {
	if len(r.queue) >= QueueCap {
		r.queue = r.queue[1:]
		r.stats.Dropped++
		dropped = true
	}
	r.queue = append(r.queue, queued{vector: v, retries: retries})
	r.stats.Queued++
	return dropped, len(r.queue)
}

// requeueForRetry is used by the verifier to re-enqueue the same
// off-vector with an incremented retry count (§4.5 step 5). It bypasses
// the lastReceived comparison — the retry must happen regardless of
// whether a newer identical frame arrived.
func (r *Runtime) requeueForRetry(v wiz.SlotVector, retries int) {
	r.mu.Lock()
	dropped, depth := r.enqueueWithRetryLocked(v, retries)
	mac, observer := r.record.MAC, r.observer
	r.mu.Unlock()

	r.notifyQueue(observer, mac, dropped, depth)
	r.wake()
}

// notifyQueue reports the post-enqueue queue depth, and an overflow drop if
// one occurred, to the observer. Never called while r.mu is held, since
// Observer implementations must not block but shouldn't be trusted not to.
func (r *Runtime) notifyQueue(observer Observer, mac string, dropped bool, depth int) {
	if observer == nil {
		return
	}
	observer.OnQueueDepth(mac, depth)
	if dropped {
		observer.OnDropped(mac)
	}
}

func (r *Runtime) wake() {
	select {
	case r.mailbox <- struct{}{}:
	default:
	}
}
