package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pjlighting/artwiz-bridge/bridge"
	"github.com/pjlighting/artwiz-bridge/bulb"
	"github.com/pjlighting/artwiz-bridge/config"
	"github.com/pjlighting/artwiz-bridge/discovery"
	"github.com/pjlighting/artwiz-bridge/metrics"
	"github.com/pjlighting/artwiz-bridge/store"
	"github.com/pjlighting/artwiz-bridge/store/httpstore"
	telemetrymqtt "github.com/pjlighting/artwiz-bridge/telemetry/mqtt"
	"github.com/pjlighting/artwiz-bridge/wiz"

	"github.com/pjlighting/artwiz-bridge/artnet"
)

func main() {
	configPath := flag.String("config", "bridge.toml", "path to config file")
	logLevel := flag.String("log-level", "", "override config log level (debug, info, warn, error)")
	dryRun := flag.Bool("dry-run", false, "load config and exit without starting the bridge")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if *dryRun {
		logger.Info("config loaded, dry-run requested", "store_url", cfg.Store.URL)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := wiz.NewConn(logger)
	if err != nil {
		logger.Error("wiz conn error", "error", err)
		os.Exit(1)
	}

	sender := wiz.NewBulbConn(conn, logger)
	verifier := wiz.NewOffVerifier(conn, logger)
	manager := bulb.NewManager(sender, verifier, logger)

	var mqttClient *telemetrymqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient = telemetrymqtt.NewClient(telemetrymqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
		}, logger)
		if err := mqttClient.Start(); err != nil {
			logger.Error("mqtt start failed, continuing without telemetry", "error", err)
			mqttClient = nil
		} else {
			defer mqttClient.Stop()
		}
	}

	if cfg.Metrics.Enabled {
		go func() {
			logger.Info("metrics server starting", "addr", cfg.Metrics.ListenAddr)
			if err := metrics.Serve(cfg.Metrics.ListenAddr); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	var observers []bulb.Observer
	if cfg.Metrics.Enabled {
		observers = append(observers, metrics.Observer{})
	}
	if mqttClient != nil {
		observers = append(observers, mqttClient)
	}
	if len(observers) > 0 {
		manager.SetObserver(fanoutObserver(observers))
	}

	reader := store.Reader(httpstore.New(cfg.Store.URL))
	if err := reloadBulbs(ctx, reader, manager, logger); err != nil {
		logger.Error("initial bulb load failed", "error", err)
	}
	go reloadLoop(ctx, cfg.Store.ReloadInterval, reader, manager, logger)

	if cfg.Discovery.PeriodicSweep {
		go sweepLoop(ctx, cfg.Discovery.Interval, cfg.Discovery.Timeout, logger)
	}

	engine := bridge.NewEngine(uint16(cfg.ArtNet.Universe), manager, logger)
	if mqttClient != nil {
		engine.SetStatusHook(func(bulbCount int, framesAccepted, framesDropped uint64) {
			mqttClient.PublishStatus(telemetrymqtt.Status{
				BulbCount:      bulbCount,
				FramesAccepted: framesAccepted,
				FramesDropped:  framesDropped,
			})
		})
	}
	stopStats := engine.StartStatsTicker(30 * time.Second)
	defer stopStats()

	listenAddr, err := net.ResolveUDPAddr("udp4", cfg.ArtNet.ListenAddr)
	if err != nil {
		logger.Error("invalid artnet listen address", "addr", cfg.ArtNet.ListenAddr, "error", err)
		os.Exit(1)
	}

	var stopReceiver func()
	if cfg.ArtNet.UsePcap {
		pcapReceiver, err := artnet.NewPcapReceiver(cfg.ArtNet.PcapIface, engine.HandleFrame, logger)
		if err != nil {
			logger.Error("pcap receiver error", "error", err)
			os.Exit(1)
		}
		pcapReceiver.Start()
		stopReceiver = pcapReceiver.Stop
		logger.Info("bridge starting", "artnet_ingress", "pcap", "iface", cfg.ArtNet.PcapIface, "universe", cfg.ArtNet.Universe)
	} else {
		receiver, err := artnet.NewReceiver(listenAddr, engine.HandleFrame, logger)
		if err != nil {
			logger.Error("artnet receiver error", "error", err)
			os.Exit(1)
		}
		receiver.Start()
		stopReceiver = receiver.Stop
		logger.Info("bridge starting", "artnet_listen", cfg.ArtNet.ListenAddr, "universe", cfg.ArtNet.Universe)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	stopReceiver()
	manager.Stop()
}

func reloadBulbs(ctx context.Context, reader store.Reader, manager *bulb.Manager, logger *slog.Logger) error {
	records, err := reader.ReadAll(ctx)
	if err != nil {
		return err
	}
	manager.Reload(records)
	logger.Info("bulb list reloaded", "count", len(records))
	return nil
}

func reloadLoop(ctx context.Context, interval time.Duration, reader store.Reader, manager *bulb.Manager, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := reloadBulbs(ctx, reader, manager, logger); err != nil {
				logger.Warn("bulb reload failed", "error", err)
			}
		}
	}
}

// sweepLoop runs the broadcast discovery sweep (§4.6) on a timer, purely
// to keep the DiscoveredBulbs gauge current — it never reconciles into the
// store, which remains the operator's job.
func sweepLoop(ctx context.Context, interval, timeout time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			found, err := discovery.Sweep(ctx, timeout, logger)
			if err != nil {
				logger.Warn("discovery sweep failed", "error", err)
				continue
			}
			metrics.DiscoveredBulbs.Set(float64(len(found)))
			logger.Debug("discovery sweep complete", "bulbs_found", len(found))
		}
	}
}

// fanoutObserver broadcasts bulb.Observer events to every underlying
// observer, so metrics and MQTT telemetry can both subscribe without the
// bulb package needing to know about either.
type fanoutObserver []bulb.Observer

func (f fanoutObserver) OnSent(mac string, v wiz.SlotVector, applied bool) {
	for _, o := range f {
		o.OnSent(mac, v, applied)
	}
}

func (f fanoutObserver) OnQueueDepth(mac string, depth int) {
	for _, o := range f {
		o.OnQueueDepth(mac, depth)
	}
}

func (f fanoutObserver) OnDropped(mac string) {
	for _, o := range f {
		o.OnDropped(mac)
	}
}

func (f fanoutObserver) OnOffVerifyRetry(mac string, attempt int) {
	for _, o := range f {
		o.OnOffVerifyRetry(mac, attempt)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
