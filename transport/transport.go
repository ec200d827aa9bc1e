// Package transport manages a single stream connection to a spamd daemon,
// over TCP, TLS or a unix socket.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/spamd/spamdclient-go/config"
	"github.com/spamd/spamdclient-go/errors"
	"github.com/spamd/spamdclient-go/protocol"
)

const readChunkSize = 4096

// Conn owns exactly one socket. A Conn is exclusively owned by at most one
// in-flight exchange; the client's pool enforces this.
type Conn struct {
	nc   net.Conn
	addr string

	mu sync.Mutex
	// broken marks a connection whose framing state is unknown after an
	// I/O or protocol failure; it must never be reused
	broken     bool
	eof        bool
	halfClosed bool
	closed     bool
}

// seconds converts a float seconds value to a Duration
func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// Dial opens a connection to the daemon described by cfg
func Dial(ctx context.Context, cfg *config.Config) (*Conn, error) {
	network := cfg.ResolveNetwork()
	dialer := net.Dialer{Timeout: seconds(cfg.ConnectTimeout)}

	nc, err := dialer.DialContext(ctx, network, cfg.Address)
	if err != nil {
		return nil, errors.NewConnectionError(cfg.Address, err)
	}

	if cfg.TLSSettings != nil && network == "tcp" {
		tlsConn, err := wrapTLS(ctx, nc, cfg)
		if err != nil {
			nc.Close()
			return nil, err
		}
		nc = tlsConn
	}

	return &Conn{nc: nc, addr: cfg.Address}, nil
}

// wrapTLS performs a client TLS handshake per the configured settings
func wrapTLS(ctx context.Context, nc net.Conn, cfg *config.Config) (net.Conn, error) {
	tlsConfig := &tls.Config{}

	host, _, err := net.SplitHostPort(cfg.Address)
	if err == nil {
		tlsConfig.ServerName = host
	}

	if cfg.TLSSettings.CertPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSSettings.CertPath, cfg.TLSSettings.KeyPath)
		if err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("failed to load client certificate: %v", err))
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.TLSSettings.CAPath != nil {
		caCert, err := os.ReadFile(*cfg.TLSSettings.CAPath)
		if err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("failed to read CA file: %v", err))
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, errors.NewConfigError("failed to append CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	tlsConn := tls.Client(nc, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, errors.NewConnectionError(cfg.Address, err)
	}
	return tlsConn, nil
}

// Addr returns the daemon address this connection targets
func (c *Conn) Addr() string {
	return c.addr
}

// arm maps the context onto socket deadlines. The returned stop function
// must be called when the I/O completes; cancellation fires a past
// deadline so blocked reads and writes abort promptly.
func (c *Conn) arm(ctx context.Context) func() bool {
	if dl, ok := ctx.Deadline(); ok {
		c.nc.SetDeadline(dl)
	} else {
		c.nc.SetDeadline(time.Time{})
	}
	return context.AfterFunc(ctx, func() {
		c.nc.SetDeadline(time.Now())
	})
}

// Send writes the full byte sequence, looping on partial writes. Any
// failure marks the connection unusable.
func (c *Conn) Send(ctx context.Context, b []byte) error {
	stop := c.arm(ctx)
	defer stop()

	for len(b) > 0 {
		n, err := c.nc.Write(b)
		b = b[n:]
		if err != nil {
			c.markBroken()
			return c.classifyIOError(ctx, err, errors.NewWriteError)
		}
	}
	return nil
}

// Receive reads until the decoder frames a complete response, the peer
// closes early, or the deadline elapses. The decoder instance is owned by
// this single exchange.
func (c *Conn) Receive(ctx context.Context, dec *protocol.Decoder) (*protocol.Response, error) {
	stop := c.arm(ctx)
	defer stop()

	buf := make([]byte, readChunkSize)
	for {
		n, rerr := c.nc.Read(buf)
		if n > 0 {
			done, err := dec.Feed(buf[:n])
			if err != nil {
				c.markBroken()
				return nil, err
			}
			if done {
				return dec.Response(), nil
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				c.markEOF()
				done, err := dec.CloseEOF()
				if err != nil {
					return nil, err
				}
				if done {
					return dec.Response(), nil
				}
				return nil, errors.NewUnexpectedEOFError("connection closed mid-response")
			}
			c.markBroken()
			return nil, c.classifyIOError(ctx, rerr, errors.NewReadError)
		}
	}
}

// classifyIOError distinguishes timeouts and cancellation from plain I/O
// failures
func (c *Conn) classifyIOError(ctx context.Context, err error, wrap func(error) *errors.SpamdError) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.NewTimeoutError("exchange deadline exceeded or canceled", ctxErr)
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return errors.NewTimeoutError(err.Error(), err)
	}
	return wrap(err)
}

// CloseWrite shuts down the write side so the daemon sees EOF on the
// request. The connection can still be read from, but never reused.
func (c *Conn) CloseWrite() error {
	type closeWriter interface {
		CloseWrite() error
	}
	c.mu.Lock()
	c.halfClosed = true
	c.mu.Unlock()
	if cw, ok := c.nc.(closeWriter); ok {
		return cw.CloseWrite()
	}
	return nil
}

// Reusable reports whether the connection completed its last exchange
// cleanly and may be returned to a pool.
func (c *Conn) Reusable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.broken && !c.eof && !c.halfClosed && !c.closed
}

// Close releases the socket; it is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.nc.Close()
}

func (c *Conn) markBroken() {
	c.mu.Lock()
	c.broken = true
	c.mu.Unlock()
}

func (c *Conn) markEOF() {
	c.mu.Lock()
	c.eof = true
	c.mu.Unlock()
}
