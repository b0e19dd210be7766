package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/multichat/internal/flagx"
	"github.com/dmitrijs2005/multichat/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file.
// Durations accept "15m" style strings or integer nanoseconds. Absent
// fields keep the value already present in Config.
type JsonConfig struct {
	EndpointAddrHTTP             string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string          `json:"database_dsn"`
	SecretKey                    string          `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   int             `json:"bcrypt_cost"`
	OpenAIAPIKey                 string          `json:"openai_api_key"`
	OpenAIBaseURL                string          `json:"openai_base_url"`
	GeminiAPIKey                 string          `json:"gemini_api_key"`
	GeminiBaseURL                string          `json:"gemini_base_url"`
	RedisAddr                    string          `json:"redis_addr"`
	ModelCacheTTL                *timex.Duration `json:"model_cache_ttl"`
	LogLevel                     string          `json:"log_level"`
}

// parseJson loads the file named by -c/-config, if any, into config.
// Unreadable or invalid files panic: a broken config must stop startup.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err = json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	if c.EndpointAddrGRPC != nil {
		config.EndpointAddrGRPC = *c.EndpointAddrGRPC
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.BcryptCost > 0 {
		config.BcryptCost = c.BcryptCost
	}
	setString(&config.OpenAIAPIKey, c.OpenAIAPIKey)
	setString(&config.OpenAIBaseURL, c.OpenAIBaseURL)
	setString(&config.GeminiAPIKey, c.GeminiAPIKey)
	setString(&config.GeminiBaseURL, c.GeminiBaseURL)
	setString(&config.RedisAddr, c.RedisAddr)
	if c.ModelCacheTTL != nil {
		config.ModelCacheTTL = c.ModelCacheTTL.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
