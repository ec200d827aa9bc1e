package client

import (
	"context"
	"sync"

	"github.com/spamd/spamdclient-go/config"
	"github.com/spamd/spamdclient-go/errors"
	"github.com/spamd/spamdclient-go/transport"
)

// connPool hands out transport connections with a bounded total count.
// The idle set is the only shared mutable state of the client; every
// mutation happens under the one mutex so a connection can never be handed
// to two exchanges at once.
type connPool struct {
	cfg *config.Config
	// sem bounds in-use plus idle connections; nil means unbounded
	sem chan struct{}

	mu     sync.Mutex
	idle   []*transport.Conn
	closed bool
}

func newConnPool(cfg *config.Config) *connPool {
	p := &connPool{cfg: cfg}
	if cfg.MaxConnections > 0 {
		p.sem = make(chan struct{}, cfg.MaxConnections)
	}
	return p
}

// acquire returns an idle pooled connection if one exists, else dials a
// new one. When the pool is at its bound, acquirers either wait FIFO or
// fail fast with PoolExhausted, per configuration.
func (p *connPool) acquire(ctx context.Context) (*transport.Conn, error) {
	if err := p.admit(ctx); err != nil {
		return nil, err
	}

	for {
		conn := p.popIdle()
		if conn == nil {
			break
		}
		if conn.Reusable() {
			return conn, nil
		}
		conn.Close()
	}

	conn, err := transport.Dial(ctx, p.cfg)
	if err != nil {
		p.free()
		return nil, err
	}
	return conn, nil
}

func (p *connPool) admit(ctx context.Context) error {
	if p.sem == nil {
		return nil
	}
	if p.cfg.WaitOnExhausted {
		select {
		case p.sem <- struct{}{}:
			return nil
		case <-ctx.Done():
			return errors.NewTimeoutError("waiting for a pooled connection", ctx.Err())
		}
	}
	select {
	case p.sem <- struct{}{}:
		return nil
	default:
		return errors.NewPoolExhaustedError("all connections in use")
	}
}

func (p *connPool) popIdle() *transport.Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) == 0 {
		return nil
	}
	conn := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	return conn
}

// release returns a connection after its exchange. Only a connection that
// completed cleanly goes back to the idle set; anything else is closed,
// since its framing state is unknown.
func (p *connPool) release(conn *transport.Conn, reuse bool) {
	defer p.free()

	if !reuse || !conn.Reusable() {
		conn.Close()
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		conn.Close()
		return
	}
	p.idle = append(p.idle, conn)
	p.mu.Unlock()
}

func (p *connPool) free() {
	if p.sem != nil {
		<-p.sem
	}
}

// close shuts down every idle connection. In-flight connections are closed
// by their own release.
func (p *connPool) close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	var firstErr error
	for _, conn := range idle {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// idleCount is used by tests to observe pooling behavior
func (p *connPool) idleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}
