package protocol

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spamd/spamdclient-go/errors"
)

func TestEncodePingExactBytes(t *testing.T) {
	req, err := NewRequest(Ping, nil, nil)
	require.NoError(t, err)

	wire, err := req.Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte("PING SPAMC/1.5\r\n\r\n"), wire)
}

func TestEncodeCheckContentLength(t *testing.T) {
	body := []byte("Hello world!") // 12 bytes
	headers := NewHeaderList()
	require.NoError(t, headers.Add("User", "alice"))

	req, err := NewRequest(Check, headers, body)
	require.NoError(t, err)

	wire, err := req.Encode()
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(wire, []byte("CHECK SPAMC/1.5\r\n")))
	assert.Contains(t, string(wire), "User: alice\r\n")
	assert.Contains(t, string(wire), "Content-length: 12\r\n")
	assert.True(t, bytes.HasSuffix(wire, append([]byte("\r\n"), body...)))
}

func TestEncodeRejectsExplicitContentLength(t *testing.T) {
	headers := NewHeaderList()
	require.NoError(t, headers.Add("CONTENT-LENGTH", "5"))

	req, err := NewRequest(Check, headers, []byte("hello"))
	require.NoError(t, err)

	_, err = req.Encode()
	require.Error(t, err)
	assert.Equal(t, errors.EncodeError, errors.TypeOf(err))
}

func TestEncodeBodyCommandMismatch(t *testing.T) {
	_, err := NewRequest(Ping, nil, []byte("unexpected"))
	require.Error(t, err)
	assert.Equal(t, errors.InvalidRequest, errors.TypeOf(err))

	_, err = NewRequest(Check, nil, nil)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidRequest, errors.TypeOf(err))

	// Empty but present body satisfies a body-requiring command
	_, err = NewRequest(Check, nil, []byte{})
	require.NoError(t, err)
}

func TestEncodeCompressedBody(t *testing.T) {
	body := bytes.Repeat([]byte("spam and eggs "), 100)
	req, err := NewRequest(Process, nil, body)
	require.NoError(t, err)
	req.Compress = true

	wire, err := req.Encode()
	require.NoError(t, err)

	head, wireBody, found := bytes.Cut(wire, []byte("\r\n\r\n"))
	require.True(t, found)
	assert.Contains(t, string(head), "Compress: zlib\r\n")

	// Declared length matches the compressed body, not the original
	assert.Contains(t, string(head), fmt.Sprintf("Content-length: %d\r\n", len(wireBody)))
	assert.Less(t, len(wireBody), len(body))

	inflated, err := decompressBody(wireBody)
	require.NoError(t, err)
	assert.Equal(t, body, inflated)
}

func TestEncodeCommandTokens(t *testing.T) {
	tokens := map[Command]string{
		Check:        "CHECK",
		Symbols:      "SYMBOLS",
		Report:       "REPORT",
		ReportIfSpam: "REPORT_IFSPAM",
		Process:      "PROCESS",
		Headers:      "HEADERS",
		Ping:         "PING",
		Tell:         "TELL",
		Skip:         "SKIP",
	}
	for command, token := range tokens {
		assert.Equal(t, token, command.String())

		desc := FromCommand(command)
		var req *Request
		var err error
		if desc.RequiresBody {
			req, err = NewRequest(command, nil, []byte("x"))
		} else {
			req, err = NewRequest(command, nil, nil)
		}
		require.NoError(t, err)

		wire, err := req.Encode()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(wire), token+" SPAMC/1.5\r\n"), "command %s", token)
	}
}

func TestRequestVersionOverride(t *testing.T) {
	req, err := NewRequest(Ping, nil, nil)
	require.NoError(t, err)
	req.Version = "1.4"

	wire, err := req.Encode()
	require.NoError(t, err)
	assert.Equal(t, "PING SPAMC/1.4\r\n\r\n", string(wire))
}
