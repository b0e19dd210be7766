package config

import "time"

// Config holds runtime settings for the multichat CLI.
//
// Fields:
//   - ServerURL: base URL of the server's HTTP endpoint.
//   - GRPCAddr: host:port of the Relay gRPC endpoint. When set, the CLI
//     uses gRPC instead of the HTTP endpoint.
//   - RequestTimeout: upper bound for a single RPC round trip. Prompts wait
//     on the model provider, so the default is generous.
type Config struct {
	ServerURL      string
	GRPCAddr       string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000"
	c.RequestTimeout = 2 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
