// Package grpcclient talks to the Relay gRPC service. It offers the same
// typed calls as the HTTP rpc client, so the REPL can use either transport.
package grpcclient
