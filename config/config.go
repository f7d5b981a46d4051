// Package config loads the bridge's static TOML configuration, in the
// same Load/defaulting/validation shape the teacher's config package
// used for its channel-mapping file — adapted here to the bridge's own
// settings (listen addresses, the store URL, discovery and metrics/MQTT
// toggles) rather than DMX-to-destination mappings.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the bridge's static configuration, loaded once at startup.
type Config struct {
	ArtNet    ArtNetConfig    `toml:"artnet"`
	Store     StoreConfig     `toml:"store"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Metrics   MetricsConfig   `toml:"metrics"`
	MQTT      MQTTConfig      `toml:"mqtt"`
	LogLevel  string          `toml:"log_level"`
}

// ArtNetConfig configures Art-Net ingress (§4.1).
type ArtNetConfig struct {
	ListenAddr string `toml:"listen_addr"` // default ":6454"
	Universe   int    `toml:"universe"`    // default 0
	UsePcap    bool   `toml:"use_pcap"`    // opt-in alternate ingress, never default
	PcapIface  string `toml:"pcap_iface"`
}

// StoreConfig configures where bulb records are read from (§2, §3).
type StoreConfig struct {
	URL            string        `toml:"url"`
	ReloadInterval time.Duration `toml:"reload_interval"` // default 60s, per §4/§5
}

// DiscoveryConfig configures the broadcast bulb sweep (§4.6). PeriodicSweep
// opts into running the sweep on a timer in the running bridge process
// (rather than only as an operator-invoked one-off), purely to keep the
// DiscoveredBulbs gauge current; it never drives reconciliation — that
// remains the store's job.
type DiscoveryConfig struct {
	Timeout       time.Duration `toml:"timeout"`        // default 3s, per sweep window
	PeriodicSweep bool          `toml:"periodic_sweep"` // opt-in, default false
	Interval      time.Duration `toml:"interval"`       // default 5m when PeriodicSweep is set
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"` // default ":9090"
}

// MQTTConfig configures the optional telemetry publisher.
type MQTTConfig struct {
	Enabled  bool   `toml:"enabled"`
	Broker   string `toml:"broker"`
	ClientID string `toml:"client_id"`
	Topic    string `toml:"topic"`
}

// Load decodes path and applies defaults, matching the teacher's
// Load-then-normalize-then-validate shape.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ArtNet.ListenAddr == "" {
		c.ArtNet.ListenAddr = ":6454"
	}
	if c.Store.ReloadInterval == 0 {
		c.Store.ReloadInterval = 60 * time.Second
	}
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = 3 * time.Second
	}
	if c.Discovery.PeriodicSweep && c.Discovery.Interval == 0 {
		c.Discovery.Interval = 5 * time.Minute
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "artwiz-bridge"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "artwiz/bridge"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.Store.URL == "" {
		return fmt.Errorf("store.url is required")
	}
	if c.ArtNet.Universe < 0 || c.ArtNet.Universe > 0x7FFF {
		return fmt.Errorf("artnet.universe %d out of range", c.ArtNet.Universe)
	}
	if c.ArtNet.UsePcap && c.ArtNet.PcapIface == "" {
		return fmt.Errorf("artnet.pcap_iface is required when artnet.use_pcap is set")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enabled is set")
	}
	return nil
}
