// Package supervisor restarts the bridge process on crash with
// exponential backoff, per §4.7. It deliberately lives outside the
// bridge process itself — a crash inside the bridge can never take the
// supervisor down with it.
//
// The subprocess-wrapper shape (exec.CommandContext, captured combined
// output) is grounded on the teacher pack's
// dmx.Client.exec — here wrapping the bridge binary itself instead of a
// one-shot CLI tool, and run to completion rather than called per
// command.
package supervisor

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// MaxBackoff is the ceiling on restart backoff (§4.7).
const MaxBackoff = 60 * time.Second

// ResetAfter is the uptime after which a restart resets the backoff
// counter back to zero (§4.7: "if the child ran for at least this long,
// treat the next crash as a fresh failure").
const ResetAfter = MaxBackoff

// Controller supervises a single child process, restarting it on exit
// with exponential backoff.
type Controller struct {
	command string
	args    []string
	logger  *slog.Logger

	// OnRestart, if set, is called once per restart decision (not on the
	// first launch). Used to feed an external restart counter metric.
	OnRestart func()

	mu       sync.Mutex
	running  bool
	attempt  int
	lastExit time.Time
}

// Status is a point-in-time snapshot of the supervised process, per §4.7's
// "running flag, restart count, last-restart timestamp".
type Status struct {
	Running      bool
	RestartCount int
	LastRestart  time.Time
}

// Status returns the current running flag, restart count, and timestamp
// of the last restart decision (zero if none yet).
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Running:      c.running,
		RestartCount: c.attempt,
		LastRestart:  c.lastExit,
	}
}

// New creates a Controller that will run command with args.
func New(command string, args []string, logger *slog.Logger) *Controller {
	return &Controller{command: command, args: args, logger: logger}
}

// Run supervises the child process until ctx is canceled. Each exit
// (clean or not) triggers a restart after the current backoff delay,
// unless ctx is done first.
func (c *Controller) Run(ctx context.Context) error {
	for {
		c.setRunning(true)
		start := time.Now()
		err := c.runOnce(ctx)
		c.setRunning(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		uptime := time.Since(start)
		c.logger.Warn("bridge exited", "uptime", uptime, "error", err)

		delay := c.nextBackoff(uptime)
		c.logger.Info("restarting bridge", "delay", delay, "attempt", c.currentAttempt())
		if c.OnRestart != nil {
			c.OnRestart()
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) runOnce(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.command, c.args...)
	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		c.logger.Debug("bridge output", "output", string(output))
	}
	return err
}

// nextBackoff computes the delay before the next restart attempt, per
// §4.7: min(2^attempt * 1s, 60s), with attempt reset to 0 if the
// previous run lasted at least ResetAfter (treating the crash as a
// fresh failure rather than a continuation of a crash loop).
func (c *Controller) nextBackoff(uptime time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if uptime >= ResetAfter {
		c.attempt = 0
	}

	// 2^6 * 1s = 64s already exceeds the 60s cap, so clamp the exponent
	// here rather than let attempt grow unbounded across a long crash
	// loop (an unbounded shift count would eventually wrap to 0).
	const maxExponent = 6
	exponent := c.attempt
	if exponent > maxExponent {
		exponent = maxExponent
	}

	delay := time.Duration(1<<uint(exponent)) * time.Second
	if delay > MaxBackoff {
		delay = MaxBackoff
	}

	c.attempt++
	c.lastExit = time.Now()
	return delay
}

func (c *Controller) currentAttempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

func (c *Controller) setRunning(running bool) {
	c.mu.Lock()
	c.running = running
	c.mu.Unlock()
}
