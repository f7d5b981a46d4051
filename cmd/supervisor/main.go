package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pjlighting/artwiz-bridge/metrics"
	"github.com/pjlighting/artwiz-bridge/supervisor"
)

// statusLogInterval is how often the supervisor logs its Status() snapshot
// (running flag, restart count, last-restart timestamp, per §4.7).
const statusLogInterval = 30 * time.Second

func main() {
	bridgePath := flag.String("bridge", "./bridge", "path to the bridge binary")
	bridgeArgs := flag.String("args", "", "comma-separated arguments to pass to the bridge binary")
	metricsAddr := flag.String("metrics-listen", "", "metrics listen address (empty disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var args []string
	if *bridgeArgs != "" {
		args = strings.Split(*bridgeArgs, ",")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		go func() {
			if err := metrics.Serve(*metricsAddr); err != nil {
				logger.Error("supervisor metrics server error", "error", err)
			}
		}()
	}

	ctrl := supervisor.New(*bridgePath, args, logger)
	ctrl.OnRestart = func() { metrics.SupervisorRestarts.Inc() }
	logger.Info("supervisor starting", "bridge", *bridgePath)

	go logStatus(ctx, ctrl, logger)

	if err := ctrl.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("supervisor exited", "error", err)
		os.Exit(1)
	}
	logger.Info("supervisor shut down")
}

// logStatus periodically logs the controller's Status() snapshot, the
// operator-facing surface for §4.7's running flag/restart count/
// last-restart timestamp.
func logStatus(ctx context.Context, ctrl *supervisor.Controller, logger *slog.Logger) {
	ticker := time.NewTicker(statusLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := ctrl.Status()
			logger.Info("supervisor status",
				"running", s.Running,
				"restart_count", s.RestartCount,
				"last_restart", s.LastRestart)
		}
	}
}
