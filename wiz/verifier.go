package wiz

import (
	"context"
	"log/slog"
	"net"
	"time"
)

const (
	// settleDelay is the post-off sleep before polling, per §4.5 step 1.
	settleDelay = 200 * time.Millisecond
	// replyTimeout is how long to wait for a getPilot reply, §4.5 step 3.
	replyTimeout = 1000 * time.Millisecond
)

// OffVerifier polls a bulb after an off-transition to confirm it applied,
// per §4.5. It shares the control-socket Conn with setPilot sends — reply
// dispatch is by source IP.
type OffVerifier struct {
	conn   *Conn
	logger *slog.Logger
}

// NewOffVerifier wraps conn.
func NewOffVerifier(conn *Conn, logger *slog.Logger) *OffVerifier {
	return &OffVerifier{conn: conn, logger: logger}
}

// CheckOff implements bulb.Verifier. It sleeps 200ms, sends getPilot, and
// waits up to 1000ms for a parseable getPilot reply from ip; it reports
// applied=true iff result.state == false (§4.5 steps 1-4).
func (v *OffVerifier) CheckOff(ctx context.Context, ip string) bool {
	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		return false
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	replyCh, cancel := v.conn.AwaitReply(parsed)
	defer cancel()

	payload, err := EncodeGetPilot()
	if err != nil {
		v.logger.Warn("encode getPilot failed", "error", err)
		return false
	}
	if err := v.conn.Send(parsed, payload); err != nil {
		v.logger.Warn("send getPilot failed", "ip", ip, "error", err)
		return false
	}

	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, replyTimeout)
	defer cancelTimeout()

	for {
		data, ok := waitReply(timeoutCtx, replyCh)
		if !ok {
			// Timeout is treated identically to verification failure, §7.
			return false
		}

		result, err := ParseGetPilotReply(data)
		if err != nil {
			// Not a getPilot reply; keep waiting until the timeout.
			continue
		}

		return !result.State
	}
}
