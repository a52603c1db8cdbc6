// Package config loads the bridge configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Debug bool `yaml:"debug"`

	WS      WSConfig      `yaml:"ws"`
	Pairing PairingConfig `yaml:"pairing"`
	HTTP    HTTPConfig    `yaml:"http"`
	World   WorldConfig   `yaml:"world"`
}

type WSConfig struct {
	BindAddress      string   `yaml:"bindAddress"`
	Port             int      `yaml:"port"`
	AdvertiseAddress string   `yaml:"advertiseAddress"`
	MaxMsgPerSecond  int      `yaml:"maxMsgPerSecond"`
	MaxMsgBytes      int      `yaml:"maxMsgBytes"`
	OriginWhitelist  []string `yaml:"originWhitelist"`
	RequirePairing   *bool    `yaml:"requirePairing"`
}

type PairingConfig struct {
	WindowSeconds int `yaml:"windowSeconds"`
}

type HTTPConfig struct {
	Enabled          *bool    `yaml:"enabled"`
	Path             string   `yaml:"path"`
	CORSAllowOrigins []string `yaml:"corsAllowOrigins"`
	CacheSeconds     int      `yaml:"cacheSeconds"`
}

type WorldConfig struct {
	ID         string   `yaml:"id"`
	TickRateHz int      `yaml:"tickRateHz"`
	Players    []string `yaml:"players"`
}

func Defaults() Config {
	t := true
	return Config{
		WS: WSConfig{
			BindAddress:     "0.0.0.0",
			Port:            8787,
			MaxMsgPerSecond: 30,
			MaxMsgBytes:     8192,
			RequirePairing:  &t,
		},
		Pairing: PairingConfig{WindowSeconds: 60},
		HTTP: HTTPConfig{
			Enabled:      &t,
			Path:         "/tw/twbridge.js",
			CacheSeconds: 60,
		},
		World: WorldConfig{ID: "world_1", TickRateHz: 10},
	}
}

// Load reads path over the defaults. A missing file is an error; callers
// wanting pure defaults pass an empty path.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("bridge.yaml: %w", err)
	}
	if cfg.WS.Port <= 0 || cfg.WS.Port > 65535 {
		return cfg, fmt.Errorf("bridge.yaml: ws.port out of range: %d", cfg.WS.Port)
	}
	if cfg.WS.MaxMsgPerSecond <= 0 {
		return cfg, fmt.Errorf("bridge.yaml: ws.maxMsgPerSecond must be positive")
	}
	if cfg.WS.MaxMsgBytes <= 0 {
		return cfg, fmt.Errorf("bridge.yaml: ws.maxMsgBytes must be positive")
	}
	if cfg.Pairing.WindowSeconds <= 0 {
		return cfg, fmt.Errorf("bridge.yaml: pairing.windowSeconds must be positive")
	}
	return cfg, nil
}

func (c Config) RequirePairing() bool {
	return c.WS.RequirePairing == nil || *c.WS.RequirePairing
}

func (c Config) HTTPEnabled() bool {
	return c.HTTP.Enabled == nil || *c.HTTP.Enabled
}

// ListenAddr is the bind address of the single HTTP server hosting the ws
// endpoint, the asset script and the admin surface.
func (c Config) ListenAddr() string {
	host := strings.TrimSpace(c.WS.BindAddress)
	return fmt.Sprintf("%s:%d", host, c.WS.Port)
}

// AdvertisedWSURL builds the ws URL injected into the client script. Any
// wildcard bind address falls back to loopback.
func (c Config) AdvertisedWSURL() string {
	host := strings.TrimSpace(c.WS.AdvertiseAddress)
	if host == "" || isAnyAddress(host) {
		host = strings.TrimSpace(c.WS.BindAddress)
	}
	if host == "" || isAnyAddress(host) {
		host = "127.0.0.1"
	}
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("ws://%s:%d/v1/ws", host, c.WS.Port)
}

func isAnyAddress(host string) bool {
	switch host {
	case "0.0.0.0", "::", "::0", "*":
		return true
	}
	return false
}
