// Package spamdclient provides a client for the SpamAssassin spamd
// protocol (SPAMC/1.5) over TCP, TLS or a unix socket. It supports pooled
// connections, per-exchange timeouts, zlib body compression and per-user
// filter rules.
//
// Example usage:
//
//	cfg := config.NewConfig("localhost:783")
//	reply, err := spamdclient.Check(context.Background(), cfg, emailBytes)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Spam: %v (%.1f/%.1f)\n", reply.IsSpam, reply.Score, reply.Threshold)
package spamdclient

import (
	"context"

	"github.com/spamd/spamdclient-go/client"
	"github.com/spamd/spamdclient-go/config"
	"github.com/spamd/spamdclient-go/protocol"
)

// Re-export commonly used types and functions
type (
	Config        = config.Config
	TLSSettings   = config.TLSSettings
	Client        = client.Client
	Command       = protocol.Command
	Request       = protocol.Request
	Response      = protocol.Response
	HeaderList    = protocol.HeaderList
	CheckReply    = protocol.CheckReply
	ReportReply   = protocol.ReportReply
	SymbolsReply  = protocol.SymbolsReply
	ProcessReply  = protocol.ProcessReply
	TellReply     = protocol.TellReply
	PingReply     = protocol.PingReply
	MessageClass  = protocol.MessageClass
	ActionTargets = protocol.ActionTargets
)

// Re-export constructors
var (
	NewConfig     = config.NewConfig
	NewClient     = client.New
	NewRequest    = protocol.NewRequest
	NewHeaderList = protocol.NewHeaderList
)

// Re-export commands and message classes
const (
	CheckCommand        = protocol.Check
	SymbolsCommand      = protocol.Symbols
	ReportCommand       = protocol.Report
	ReportIfSpamCommand = protocol.ReportIfSpam
	ProcessCommand      = protocol.Process
	HeadersCommand      = protocol.Headers
	PingCommand         = protocol.Ping
	TellCommand         = protocol.Tell
	SkipCommand         = protocol.Skip

	ClassSpam = protocol.ClassSpam
	ClassHam  = protocol.ClassHam
)

// Check asks the daemon whether a message is spam.
//
// Example:
//
//	cfg := NewConfig("localhost:783")
//	reply, err := Check(context.Background(), cfg, email)
//	if err != nil {
//		return err
//	}
//
//	fmt.Printf("Spam: %v, Score: %.2f\n", reply.IsSpam, reply.Score)
func Check(ctx context.Context, cfg *Config, message []byte) (*CheckReply, error) {
	return client.Check(ctx, cfg, message)
}

// Report checks a message and returns the daemon's detailed rule report.
func Report(ctx context.Context, cfg *Config, message []byte) (*ReportReply, error) {
	return client.Report(ctx, cfg, message)
}

// Ping health-checks the daemon.
func Ping(ctx context.Context, cfg *Config) (*PingReply, error) {
	return client.Ping(ctx, cfg)
}

// LearnSpam trains the daemon's filter with a message known to be spam.
func LearnSpam(ctx context.Context, cfg *Config, message []byte) (*TellReply, error) {
	return client.Learn(ctx, cfg, message, protocol.ClassSpam)
}

// LearnHam trains the daemon's filter with a message known to be ham.
func LearnHam(ctx context.Context, cfg *Config, message []byte) (*TellReply, error) {
	return client.Learn(ctx, cfg, message, protocol.ClassHam)
}
