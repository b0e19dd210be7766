package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/multichat/internal/flagx"
	"github.com/dmitrijs2005/multichat/internal/timex"
)

// JsonConfig is the on-disk form of Config.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	GRPCAddr       string         `json:"grpc_addr"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with the file named by -c/-config. Missing keys
// keep their current values. It panics on read or decode errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.GRPCAddr != "" {
		cfg.GRPCAddr = jc.GRPCAddr
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
