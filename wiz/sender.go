package wiz

import (
	"log/slog"
	"net"
)

// BulbConn adapts a shared Conn to the bulb package's Sender interface
// (OffVerifier is the Verifier adapter), so the pump never has to know
// about JSON encoding or UDP addressing.
type BulbConn struct {
	conn   *Conn
	logger *slog.Logger
}

// NewBulbConn wraps conn.
func NewBulbConn(conn *Conn, logger *slog.Logger) *BulbConn {
	return &BulbConn{conn: conn, logger: logger}
}

// SendSetPilot encodes and sends a setPilot datagram to ip (§4.4). It does
// not wait for a reply — setPilot is fire-and-forget at this layer.
func (b *BulbConn) SendSetPilot(ip string, v SlotVector) error {
	payload, err := EncodeSetPilot(v)
	if err != nil {
		return err
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		b.logger.Warn("invalid bulb IP", "ip", ip)
		return nil
	}
	return b.conn.Send(parsed, payload)
}
