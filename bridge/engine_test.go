package bridge

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/pjlighting/artwiz-bridge/artnet"
	"github.com/pjlighting/artwiz-bridge/bulb"
	"github.com/pjlighting/artwiz-bridge/wiz"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	ch chan wiz.SlotVector
}

func (r *recordingSender) SendSetPilot(ip string, v wiz.SlotVector) error {
	r.ch <- v
	return nil
}

type fakeVerifierAlways struct{}

func (fakeVerifierAlways) CheckOff(ctx context.Context, ip string) bool {
	return true
}

func TestEngineDropsOtherUniverses(t *testing.T) {
	manager := bulb.NewManager(&recordingSender{ch: make(chan wiz.SlotVector, 8)}, fakeVerifierAlways{}, discardLogger())
	manager.Reload([]bulb.Record{{MAC: "aa:bb", IP: "10.0.0.1", Channel: 1}})

	e := NewEngine(0, manager, discardLogger())
	e.HandleFrame(nil, artnet.Frame{Universe: 1, Slots: []byte{255, 0, 0, 0, 0, 255}})

	if s := e.Stats(); s.FramesAccepted != 0 || s.FramesDropped != 1 {
		t.Errorf("Stats = %+v, want accepted=0 dropped=1", s)
	}
}

func TestEngineRoutesMatchingUniverseToBulbs(t *testing.T) {
	sender := &recordingSender{ch: make(chan wiz.SlotVector, 8)}
	manager := bulb.NewManager(sender, fakeVerifierAlways{}, discardLogger())
	manager.Reload([]bulb.Record{{MAC: "aa:bb", IP: "10.0.0.1", Channel: 1}})

	e := NewEngine(0, manager, discardLogger())
	e.HandleFrame(&net.UDPAddr{}, artnet.Frame{Universe: 0, Slots: []byte{255, 0, 0, 0, 0, 255}})

	select {
	case v := <-sender.ch:
		if v.R != 255 || !v.State {
			t.Errorf("got %+v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bulb never received an update")
	}

	if s := e.Stats(); s.FramesAccepted != 1 {
		t.Errorf("FramesAccepted = %d, want 1", s.FramesAccepted)
	}
}
