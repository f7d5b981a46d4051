package mqtt

import (
	"io"
	"log/slog"
	"testing"

	"github.com/pjlighting/artwiz-bridge/wiz"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewClientAppliesDefaults(t *testing.T) {
	c := NewClient(Config{Broker: "tcp://localhost:1883"}, discardLogger())
	if c.cfg.ClientID != "artwiz-bridge" {
		t.Errorf("ClientID = %q, want default", c.cfg.ClientID)
	}
	if c.cfg.Topic != "artwiz/bridge" {
		t.Errorf("Topic = %q, want default", c.cfg.Topic)
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	c := NewClient(Config{Broker: "tcp://localhost:1883"}, discardLogger())
	// Fill the buffer beyond capacity without a connected client draining it.
	for i := 0; i < 100; i++ {
		c.Publish(Event{MAC: "aa:bb"})
	}
	// Must not block or panic — excess events are dropped.
	if len(c.events) == 0 {
		t.Error("expected buffered events")
	}
}

func TestOnSentEnqueuesEvent(t *testing.T) {
	c := NewClient(Config{Broker: "tcp://localhost:1883"}, discardLogger())
	c.OnSent("aa:bb:cc", wiz.SlotVector{}, true)
	select {
	case ev := <-c.events:
		if ev.MAC != "aa:bb:cc" {
			t.Errorf("MAC = %q", ev.MAC)
		}
	default:
		t.Error("expected an event to be enqueued")
	}
}

// PublishStatus requires a live paho client to actually publish; before
// Start() (or if Start failed) c.client is nil, and this must be a safe
// no-op rather than a nil-pointer panic — the bridge calls it unconditionally
// from the stats ticker whenever MQTT is configured.
func TestPublishStatusNoopsWithoutConnection(t *testing.T) {
	c := NewClient(Config{Broker: "tcp://localhost:1883"}, discardLogger())
	c.PublishStatus(Status{BulbCount: 3, FramesAccepted: 100, FramesDropped: 1})
}

// The other bulb.Observer methods are telemetry no-ops for this client —
// metrics owns queue-depth/drop/retry counters — but must still be safe
// to call.
func TestQueueObserverMethodsAreSafeNoops(t *testing.T) {
	c := NewClient(Config{Broker: "tcp://localhost:1883"}, discardLogger())
	c.OnQueueDepth("aa:bb", 3)
	c.OnDropped("aa:bb")
	c.OnOffVerifyRetry("aa:bb", 1)
}
