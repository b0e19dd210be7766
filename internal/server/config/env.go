package config

import (
	"os"

	"github.com/dmitrijs2005/multichat/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays environment variables. The file named by -env is loaded
// first (it must exist); without -env a .env in the working directory is
// loaded when present. Variables already set in the process win over the file.
func parseEnv(config *Config) {
	if envFile := flagx.EnvFileFlag(); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	lookup(&config.EndpointAddrHTTP, "HTTP_ADDR")
	lookup(&config.EndpointAddrGRPC, "GRPC_ADDR")
	lookup(&config.DatabaseDSN, "DATABASE_DSN")
	lookup(&config.SecretKey, "SECRET_KEY")
	lookup(&config.OpenAIAPIKey, "OPENAI_API_KEY")
	lookup(&config.OpenAIBaseURL, "OPENAI_BASE_URL")
	lookup(&config.GeminiAPIKey, "GEMINI_API_KEY")
	lookup(&config.GeminiBaseURL, "GEMINI_BASE_URL")
	lookup(&config.RedisAddr, "REDIS_ADDR")
	lookup(&config.LogLevel, "LOG_LEVEL")
}

func lookup(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
