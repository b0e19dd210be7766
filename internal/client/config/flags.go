package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/multichat/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   base URL of the server (default from Config)
//	-g string   Relay gRPC address (default from Config)
//	-t int      request timeout in seconds (default from Config)
//
// os.Args is filtered with flagx.FilterArgs so flags owned by other loaders
// (-c/-config) do not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "address and port of the gRPC endpoint")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
