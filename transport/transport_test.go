package transport

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spamd/spamdclient-go/config"
	"github.com/spamd/spamdclient-go/errors"
	"github.com/spamd/spamdclient-go/protocol"
)

// serve starts a one-connection fake daemon and returns its address. The
// handler runs on the accepted connection; the listener is torn down with
// the test.
func serve(t *testing.T, handler func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}()
	return ln.Addr().String()
}

// readRequestLine consumes the request up to the blank line and returns
// the first line. Runs on server goroutines, so it reports nothing itself.
func readRequestLine(conn net.Conn) string {
	r := bufio.NewReader(conn)
	first, err := r.ReadString('\n')
	if err != nil {
		return ""
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil || line == "\r\n" {
			break
		}
	}
	return strings.TrimRight(first, "\r\n")
}

func TestSendReceive(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		line := readRequestLine(conn)
		assert.Equal(t, "PING SPAMC/1.5", line)
		conn.Write([]byte("SPAMD/1.5 0 PONG\r\nContent-length: 0\r\n\r\n"))
	})

	cfg := config.NewConfig(addr)
	ctx := context.Background()

	c, err := Dial(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(ctx, []byte("PING SPAMC/1.5\r\n\r\n")))

	resp, err := c.Receive(ctx, protocol.NewDecoder())
	require.NoError(t, err)
	assert.Equal(t, protocol.ExOK, resp.StatusCode)
	assert.Equal(t, "PONG", resp.StatusMessage)
	assert.True(t, c.Reusable(), "length-framed completion keeps the connection reusable")
}

func TestReceiveReadUntilCloseNotReusable(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		readRequestLine(conn)
		conn.Write([]byte("SPAMD/1.5 0 EX_OK\r\nSpam: False ; 0.0 / 5.0\r\n\r\nbody without length"))
	})

	cfg := config.NewConfig(addr)
	ctx := context.Background()

	c, err := Dial(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(ctx, []byte("CHECK SPAMC/1.5\r\nContent-length: 1\r\n\r\nx")))

	resp, err := c.Receive(ctx, protocol.NewDecoder())
	require.NoError(t, err)
	assert.Equal(t, []byte("body without length"), resp.Body)
	assert.False(t, c.Reusable(), "EOF-framed completion forecloses reuse")
}

func TestReceiveUnexpectedEOF(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		readRequestLine(conn)
		conn.Write([]byte("SPAMD/1.5 0 EX_OK\r\nContent-length: 10\r\n\r\n12345"))
	})

	cfg := config.NewConfig(addr)
	ctx := context.Background()

	c, err := Dial(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(ctx, []byte("PING SPAMC/1.5\r\n\r\n")))

	_, err = c.Receive(ctx, protocol.NewDecoder())
	require.Error(t, err)
	assert.Equal(t, errors.UnexpectedEOF, errors.TypeOf(err))
	assert.False(t, c.Reusable())
}

func TestReceiveTimeout(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		readRequestLine(conn)
		// Never answer; the client's deadline must fire
		time.Sleep(2 * time.Second)
	})

	cfg := config.NewConfig(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c, err := Dial(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(ctx, []byte("PING SPAMC/1.5\r\n\r\n")))

	start := time.Now()
	_, err = c.Receive(ctx, protocol.NewDecoder())
	require.Error(t, err)
	assert.Equal(t, errors.Timeout, errors.TypeOf(err))
	assert.Less(t, time.Since(start), time.Second, "timeout must abort the read promptly")
	assert.False(t, c.Reusable())
}

func TestReceiveCancellation(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		readRequestLine(conn)
		time.Sleep(2 * time.Second)
	})

	cfg := config.NewConfig(addr)
	ctx, cancel := context.WithCancel(context.Background())

	c, err := Dial(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(ctx, []byte("PING SPAMC/1.5\r\n\r\n")))

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = c.Receive(ctx, protocol.NewDecoder())
	require.Error(t, err)
	assert.Equal(t, errors.Timeout, errors.TypeOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestDialRefused(t *testing.T) {
	// Grab a free port and close it again so nothing listens there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	cfg := config.NewConfig(addr)
	_, err = Dial(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, errors.ConnectionError, errors.TypeOf(err))
}

func TestDialUnixSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "spamd.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		readRequestLine(conn)
		conn.Write([]byte("SPAMD/1.5 0 PONG\r\nContent-length: 0\r\n\r\n"))
	}()

	cfg := config.NewConfig(sock)
	require.Equal(t, "unix", cfg.ResolveNetwork(), "socket path implies unix network")

	ctx := context.Background()
	c, err := Dial(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(ctx, []byte("PING SPAMC/1.5\r\n\r\n")))
	resp, err := c.Receive(ctx, protocol.NewDecoder())
	require.NoError(t, err)
	assert.Equal(t, "PONG", resp.StatusMessage)
}

func TestCloseWriteForeclosesReuse(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		readRequestLine(conn)
		conn.Write([]byte("SPAMD/1.5 0 PONG\r\nContent-length: 0\r\n\r\n"))
	})

	cfg := config.NewConfig(addr)
	ctx := context.Background()

	c, err := Dial(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(ctx, []byte("PING SPAMC/1.5\r\n\r\n")))
	require.NoError(t, c.CloseWrite())

	_, err = c.Receive(ctx, protocol.NewDecoder())
	require.NoError(t, err)
	assert.False(t, c.Reusable())
}

func TestCloseIdempotent(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {})

	c, err := Dial(context.Background(), config.NewConfig(addr))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.Reusable())
}
