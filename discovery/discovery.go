// Package discovery implements the broadcast bulb-discovery sweep (§4.6):
// broadcast a getPilot to the LAN, collect unique responders by MAC
// within a deadline, and hand back the list for an operator (or the
// store) to reconcile into configured Records.
//
// The responder registry is adapted from the teacher's senders.go TTL
// table — here keyed by mac instead of by source, and collecting
// "first seen" rather than expiring entries, since a sweep is a single
// bounded window rather than an ongoing liveness table.
package discovery

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/pjlighting/artwiz-bridge/wiz"
)

// DefaultTimeout is the default sweep window, per §4.6.
const DefaultTimeout = 3 * time.Second

// broadcastAddr is the well-known WiZ discovery broadcast target.
var broadcastAddr = &net.UDPAddr{IP: net.IPv4bcast, Port: wiz.Port}

// Found describes one bulb that answered the sweep.
type Found struct {
	MAC     string
	IP      string
	State   bool
	Dimming uint8
	RSSI    int
	Raw     map[string]any // the whole getPilot result object
}

// registry is the adapted TTL-table shape: here "TTL" degenerates to
// "seen once during this sweep", since discovery is a bounded window
// rather than a background liveness tracker.
type registry struct {
	mu    sync.Mutex
	byMAC map[string]Found
}

func newRegistry() *registry {
	return &registry{byMAC: make(map[string]Found)}
}

func (r *registry) record(f Found) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byMAC[f.MAC]; !exists {
		r.byMAC[f.MAC] = f
	}
}

func (r *registry) all() []Found {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Found, 0, len(r.byMAC))
	for _, f := range r.byMAC {
		out = append(out, f)
	}
	return out
}

// listenConfig binds the discovery socket with SO_BROADCAST enabled, since
// a plain net.ListenUDP socket rejects sendto to the limited broadcast
// address (255.255.255.255) with EACCES on Linux.
var listenConfig = net.ListenConfig{
	Control: func(network, address string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
		}); err != nil {
			return err
		}
		return sockErr
	},
}

// Sweep broadcasts a getPilot request and collects unique responders by
// MAC for timeout (or until ctx is done), per §4.6.
func Sweep(ctx context.Context, timeout time.Duration, logger *slog.Logger) ([]Found, error) {
	packetConn, err := listenConfig.ListenPacket(ctx, "udp4", "0.0.0.0:0")
	if err != nil {
		return nil, err
	}
	conn := packetConn.(*net.UDPConn)
	defer conn.Close()

	payload, err := wiz.EncodeGetPilot()
	if err != nil {
		return nil, err
	}
	if _, err := conn.WriteToUDP(payload, broadcastAddr); err != nil {
		return nil, err
	}

	reg := newRegistry()
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)

	buf := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			return reg.all(), nil
		default:
		}

		if time.Now().After(deadline) {
			return reg.all(), nil
		}

		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return reg.all(), nil
			}
			logger.Warn("discovery read error", "error", err)
			continue
		}

		result, err := wiz.ParseGetPilotReply(buf[:n])
		if err != nil {
			// Not a getPilot reply (or malformed) — ignore, per §4.6/§7.
			continue
		}
		if result.MAC == "" {
			continue
		}

		reg.record(Found{
			MAC:     result.MAC,
			IP:      src.IP.String(),
			State:   result.State,
			Dimming: result.Dimming,
			RSSI:    result.RSSI,
			Raw:     result.Raw,
		})
	}
}
