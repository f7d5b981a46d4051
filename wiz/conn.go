package wiz

import (
	"context"
	"log/slog"
	"net"
	"sync"
)

// Conn is the shared UDP socket used both to send setPilot/getPilot
// datagrams and to receive getPilot replies, with reply dispatch by source
// IP (§4.5, §5: "Control socket on :38899 ... reply dispatch by source
// IP"). One Conn serves every bulb's pump and the off-verifier.
type Conn struct {
	socket *net.UDPConn
	logger *slog.Logger

	mu      sync.Mutex
	waiters map[string]chan []byte // keyed by source IP string
	done    chan struct{}
}

// NewConn binds a UDP4 socket on Port and starts the reply-dispatch loop.
func NewConn(logger *slog.Logger) (*Conn, error) {
	socket, err := net.ListenUDP("udp4", &net.UDPAddr{Port: Port})
	if err != nil {
		return nil, err
	}

	c := &Conn{
		socket:  socket,
		logger:  logger,
		waiters: make(map[string]chan []byte),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close shuts down the socket and the read loop.
func (c *Conn) Close() error {
	close(c.done)
	return c.socket.Close()
}

// Send writes a raw datagram to addr:Port. Fire-and-forget — callers that
// need a reply use AwaitReply (registered before sending, to avoid missing
// a fast response).
func (c *Conn) Send(ip net.IP, payload []byte) error {
	addr := &net.UDPAddr{IP: ip, Port: Port}
	_, err := c.socket.WriteToUDP(payload, addr)
	return err
}

// AwaitReply registers a waiter for replies from ip and returns a channel
// that receives the next datagram from that source. Callers must call the
// returned cancel func exactly once, whether or not a reply arrived.
func (c *Conn) AwaitReply(ip net.IP) (ch <-chan []byte, cancel func()) {
	key := ip.String()
	waiter := make(chan []byte, 1)

	c.mu.Lock()
	c.waiters[key] = waiter
	c.mu.Unlock()

	return waiter, func() {
		c.mu.Lock()
		if c.waiters[key] == waiter {
			delete(c.waiters, key)
		}
		c.mu.Unlock()
	}
}

func (c *Conn) readLoop() {
	buf := make([]byte, 2048)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		n, src, err := c.socket.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				c.logger.Warn("wiz read error", "error", err)
				continue
			}
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		key := src.IP.String()
		c.mu.Lock()
		waiter, ok := c.waiters[key]
		c.mu.Unlock()
		if !ok {
			continue
		}

		select {
		case waiter <- data:
		default:
		}
	}
}

// waitReply blocks on ch until it fires or ctx is done — small helper used
// by the off-verifier.
func waitReply(ctx context.Context, ch <-chan []byte) ([]byte, bool) {
	select {
	case data := <-ch:
		return data, true
	case <-ctx.Done():
		return nil, false
	}
}
