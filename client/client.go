// Package client drives full request/response exchanges against a spamd
// daemon through a bounded connection pool.
package client

import (
	"context"
	"time"

	"github.com/spamd/spamdclient-go/config"
	"github.com/spamd/spamdclient-go/errors"
	"github.com/spamd/spamdclient-go/protocol"
	"github.com/spamd/spamdclient-go/transport"
)

// Client executes SPAMC exchanges. It is safe for concurrent use; each
// exchange owns its connection exclusively for its whole duration.
type Client struct {
	cfg  *config.Config
	pool *connPool
}

// New creates a new client for the daemon described by cfg
func New(cfg *config.Config) (*Client, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, errors.NewConfigError("daemon address is required")
	}
	return &Client{cfg: cfg, pool: newConnPool(cfg)}, nil
}

// Close releases all idle pooled connections
func (c *Client) Close() error {
	return c.pool.close()
}

// withDeadline applies the configured exchange timeout unless the caller
// already set a deadline.
func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok && c.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(c.cfg.Timeout*float64(time.Second)))
	}
	return ctx, func() {}
}

// prepare applies config-level defaults (User header, compression) to a
// shallow copy, leaving the caller's request untouched.
func (c *Client) prepare(req *protocol.Request) *protocol.Request {
	r := *req
	if r.Version == "" {
		r.Version = c.cfg.Version
	}
	if c.cfg.Compress {
		r.Compress = true
	}
	if c.cfg.User != nil {
		if _, ok := r.Headers.Get(protocol.HeaderUser); !ok {
			headers := protocol.NewHeaderList()
			for _, hdr := range r.Headers.All() {
				headers.Add(hdr.Name, hdr.Value)
			}
			headers.Add(protocol.HeaderUser, *c.cfg.User)
			r.Headers = headers
		}
	}
	return &r
}

// Execute runs one full exchange: acquire a connection, encode, send,
// receive and decode, then release. The connection is returned to the pool
// only on clean completion; any I/O or protocol failure discards it.
// Connection establishment is retried up to the configured count; nothing
// else is ever retried automatically.
func (c *Client) Execute(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	command := req.Command.String()
	wire, err := c.prepare(req).Encode()
	if err != nil {
		return nil, errors.WithContext(err, command, c.cfg.Address)
	}

	attempts := int(c.cfg.Retries) + 1
	start := time.Now()
	for attempt := 0; ; attempt++ {
		conn, err := c.pool.acquire(ctx)
		if err != nil {
			if errors.TypeOf(err) == errors.ConnectionError && attempt+1 < attempts {
				if serr := c.sleepRetry(ctx); serr != nil {
					return nil, errors.WithContext(serr, command, c.cfg.Address)
				}
				continue
			}
			c.logExchange(command, start, 0, err)
			return nil, errors.WithContext(err, command, c.cfg.Address)
		}

		resp, err := c.exchange(ctx, conn, wire)
		if err != nil {
			c.pool.release(conn, false)
			c.logExchange(command, start, 0, err)
			return nil, errors.WithContext(err, command, c.cfg.Address)
		}
		c.pool.release(conn, true)

		if resp.IsError() {
			err := errors.NewDaemonError(resp.StatusCode, resp.StatusMessage)
			c.logExchange(command, start, resp.StatusCode, err)
			return nil, errors.WithContext(err, command, c.cfg.Address)
		}
		c.logExchange(command, start, resp.StatusCode, nil)
		return resp, nil
	}
}

func (c *Client) exchange(ctx context.Context, conn *transport.Conn, wire []byte) (*protocol.Response, error) {
	if err := conn.Send(ctx, wire); err != nil {
		return nil, err
	}
	if c.cfg.HalfClose {
		if err := conn.CloseWrite(); err != nil {
			return nil, errors.NewWriteError(err)
		}
	}
	return conn.Receive(ctx, protocol.NewDecoder())
}

func (c *Client) sleepRetry(ctx context.Context) error {
	delay := time.Duration(c.cfg.RetryDelay * float64(time.Second))
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return errors.NewTimeoutError("while waiting to retry connect", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

func (c *Client) logExchange(command string, start time.Time, code int, err error) {
	if c.cfg.Logger == nil {
		return
	}
	if err != nil {
		c.cfg.Logger.Debug("exchange failed",
			"command", command, "addr", c.cfg.Address,
			"elapsed", time.Since(start), "error", err)
		return
	}
	c.cfg.Logger.Debug("exchange completed",
		"command", command, "addr", c.cfg.Address,
		"elapsed", time.Since(start), "code", code)
}

// Check asks the daemon whether a message is spam
func (c *Client) Check(ctx context.Context, message []byte) (*protocol.CheckReply, error) {
	resp, err := c.run(ctx, protocol.Check, message, nil)
	if err != nil {
		return nil, err
	}
	return protocol.NewCheckReply(resp)
}

// Symbols checks a message and returns the names of the rules that matched
func (c *Client) Symbols(ctx context.Context, message []byte) (*protocol.SymbolsReply, error) {
	resp, err := c.run(ctx, protocol.Symbols, message, nil)
	if err != nil {
		return nil, err
	}
	check, err := protocol.NewCheckReply(resp)
	if err != nil {
		return nil, err
	}
	return &protocol.SymbolsReply{
		CheckReply: *check,
		Symbols:    protocol.ParseSymbols(resp.Body),
	}, nil
}

// Report checks a message and returns the daemon's detailed report
func (c *Client) Report(ctx context.Context, message []byte) (*protocol.ReportReply, error) {
	return c.report(ctx, protocol.Report, message)
}

// ReportIfSpam is like Report but the daemon includes the report body only
// for messages it considers spam.
func (c *Client) ReportIfSpam(ctx context.Context, message []byte) (*protocol.ReportReply, error) {
	return c.report(ctx, protocol.ReportIfSpam, message)
}

func (c *Client) report(ctx context.Context, command protocol.Command, message []byte) (*protocol.ReportReply, error) {
	resp, err := c.run(ctx, command, message, nil)
	if err != nil {
		return nil, err
	}
	check, err := protocol.NewCheckReply(resp)
	if err != nil {
		return nil, err
	}
	return &protocol.ReportReply{
		CheckReply: *check,
		Report:     string(resp.Body),
		Hits:       protocol.ParseRuleHits(resp.Body),
	}, nil
}

// Process checks a message and returns the daemon-modified version
func (c *Client) Process(ctx context.Context, message []byte) (*protocol.ProcessReply, error) {
	return c.process(ctx, protocol.Process, message)
}

// Headers checks a message and returns only its rewritten headers
func (c *Client) Headers(ctx context.Context, message []byte) (*protocol.ProcessReply, error) {
	return c.process(ctx, protocol.Headers, message)
}

func (c *Client) process(ctx context.Context, command protocol.Command, message []byte) (*protocol.ProcessReply, error) {
	resp, err := c.run(ctx, command, message, nil)
	if err != nil {
		return nil, err
	}
	check, err := protocol.NewCheckReply(resp)
	if err != nil {
		return nil, err
	}
	return &protocol.ProcessReply{
		CheckReply: *check,
		Message:    resp.Body,
	}, nil
}

// Ping health-checks the daemon
func (c *Client) Ping(ctx context.Context) (*protocol.PingReply, error) {
	resp, err := c.run(ctx, protocol.Ping, nil, nil)
	if err != nil {
		return nil, err
	}
	return &protocol.PingReply{
		Version: resp.Version,
		Message: resp.StatusMessage,
	}, nil
}

// Tell trains the daemon's filter: class says what the message is, set and
// remove say which databases to update.
func (c *Client) Tell(ctx context.Context, message []byte, class protocol.MessageClass, set, remove protocol.ActionTargets) (*protocol.TellReply, error) {
	headers := protocol.NewHeaderList()
	if err := headers.Set(protocol.HeaderMessageClass, string(class)); err != nil {
		return nil, err
	}
	if s := set.String(); s != "" {
		if err := headers.Set(protocol.HeaderSet, s); err != nil {
			return nil, err
		}
	}
	if s := remove.String(); s != "" {
		if err := headers.Set(protocol.HeaderRemove, s); err != nil {
			return nil, err
		}
	}
	resp, err := c.run(ctx, protocol.Tell, message, headers)
	if err != nil {
		return nil, err
	}
	return protocol.NewTellReply(resp)
}

// Learn records a message in the local database as the given class
func (c *Client) Learn(ctx context.Context, message []byte, class protocol.MessageClass) (*protocol.TellReply, error) {
	return c.Tell(ctx, message, class, protocol.ActionTargets{Local: true}, protocol.ActionTargets{})
}

// Forget removes a previously learned message from the local database
func (c *Client) Forget(ctx context.Context, message []byte, class protocol.MessageClass) (*protocol.TellReply, error) {
	return c.Tell(ctx, message, class, protocol.ActionTargets{}, protocol.ActionTargets{Local: true})
}

// Skip tells the daemon to discard the message. No response body is
// expected and the connection is never reused.
func (c *Client) Skip(ctx context.Context, message []byte) error {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	req, err := protocol.NewRequest(protocol.Skip, nil, message)
	if err != nil {
		return err
	}
	wire, err := c.prepare(req).Encode()
	if err != nil {
		return errors.WithContext(err, req.Command.String(), c.cfg.Address)
	}

	conn, err := c.pool.acquire(ctx)
	if err != nil {
		return errors.WithContext(err, req.Command.String(), c.cfg.Address)
	}
	defer c.pool.release(conn, false)

	if err := conn.Send(ctx, wire); err != nil {
		return errors.WithContext(err, req.Command.String(), c.cfg.Address)
	}
	return conn.CloseWrite()
}

func (c *Client) run(ctx context.Context, command protocol.Command, message []byte, headers *protocol.HeaderList) (*protocol.Response, error) {
	req, err := protocol.NewRequest(command, headers, message)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, req)
}

// Check performs one CHECK exchange with a throwaway client
func Check(ctx context.Context, cfg *config.Config, message []byte) (*protocol.CheckReply, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Check(ctx, message)
}

// Report performs one REPORT exchange with a throwaway client
func Report(ctx context.Context, cfg *config.Config, message []byte) (*protocol.ReportReply, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Report(ctx, message)
}

// Ping health-checks the daemon with a throwaway client
func Ping(ctx context.Context, cfg *config.Config) (*protocol.PingReply, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Ping(ctx)
}

// Learn trains the daemon with a throwaway client
func Learn(ctx context.Context, cfg *config.Config, message []byte, class protocol.MessageClass) (*protocol.TellReply, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Learn(ctx, message, class)
}
