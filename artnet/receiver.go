package artnet

import (
	"log/slog"
	"net"
)

// FrameHandler is called for every accepted ArtDmx frame. The universe
// filter (§4.1: "only universe == 0 is processed") is the caller's job —
// the receiver hands every decoded frame up regardless of universe.
type FrameHandler func(src *net.UDPAddr, frame Frame)

// Receiver listens for ArtNet packets on a UDP socket (default :6454).
type Receiver struct {
	conn    *net.UDPConn
	handler FrameHandler
	logger  *slog.Logger
	done    chan struct{}
}

// NewReceiver binds a UDP socket at addr and returns a Receiver.
func NewReceiver(addr *net.UDPAddr, handler FrameHandler, logger *slog.Logger) (*Receiver, error) {
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, err
	}

	return &Receiver{
		conn:    conn,
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start begins receiving packets in a background goroutine.
func (r *Receiver) Start() {
	go r.receiveLoop()
}

// Stop closes the socket and stops the receive loop.
func (r *Receiver) Stop() {
	close(r.done)
	r.conn.Close()
}

func (r *Receiver) receiveLoop() {
	buf := make([]byte, 2048)

	for {
		select {
		case <-r.done:
			return
		default:
		}

		n, src, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.done:
				return
			default:
				r.logger.Warn("artnet read error", "error", err)
				continue
			}
		}

		frame, err := Parse(buf[:n])
		if err != nil {
			// Malformed packets are dropped silently, per §4.1/§7.
			continue
		}

		r.handler(src, frame)
	}
}

// LocalAddr returns the local address the receiver is bound to.
func (r *Receiver) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}
