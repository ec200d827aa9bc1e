package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/spamd/spamdclient-go/errors"
)

// Request represents one SPAMC request. A Request is built per exchange and
// must not be mutated after it is handed to the client.
type Request struct {
	Command Command
	// Version is the protocol version token; empty means Version (1.5)
	Version string
	Headers *HeaderList
	Body    []byte
	// Compress enables zlib compression of the body on encode
	Compress bool
}

// NewRequest creates a request and validates it against the command's body
// semantics.
func NewRequest(command Command, headers *HeaderList, body []byte) (*Request, error) {
	if headers == nil {
		headers = NewHeaderList()
	}
	req := &Request{
		Command: command,
		Version: Version,
		Headers: headers,
		Body:    body,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks the request shape against the command descriptor
func (r *Request) Validate() error {
	desc := FromCommand(r.Command)
	if desc.RequiresBody && r.Body == nil {
		return errors.NewInvalidRequestError(fmt.Sprintf("command %s requires a message body", r.Command))
	}
	if !desc.RequiresBody && len(r.Body) > 0 {
		return errors.NewInvalidRequestError(fmt.Sprintf("command %s does not take a body", r.Command))
	}
	for _, hdr := range r.Headers.All() {
		if err := validateName(hdr.Name); err != nil {
			return err
		}
		if err := validateValue(hdr.Name, hdr.Value); err != nil {
			return err
		}
	}
	return nil
}

// Encode serializes the request into the exact byte framing the daemon
// expects: command line, header lines with an automatically computed
// Content-length, a blank line and the raw body. Compression, when enabled,
// is applied before the length is computed.
func (r *Request) Encode() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if _, present := r.Headers.Get(HeaderContentLength); present {
		return nil, errors.NewEncodeError("Content-length is computed automatically and must not be set by the caller")
	}

	version := r.Version
	if version == "" {
		version = Version
	}

	body := r.Body
	if r.Compress && body != nil {
		compressed, err := compressBody(body)
		if err != nil {
			return nil, err
		}
		body = compressed
	}

	var buf bytes.Buffer
	buf.WriteString(r.Command.String())
	buf.WriteString(" SPAMC/")
	buf.WriteString(version)
	buf.WriteString("\r\n")

	for _, hdr := range r.Headers.All() {
		// A single canonical Compress header is written below
		if r.Compress && strings.EqualFold(hdr.Name, HeaderCompress) {
			continue
		}
		buf.WriteString(hdr.Name)
		buf.WriteString(": ")
		buf.WriteString(hdr.Value)
		buf.WriteString("\r\n")
	}
	if r.Compress && body != nil {
		buf.WriteString(HeaderCompress)
		buf.WriteString(": ")
		buf.WriteString(CompressZlib)
		buf.WriteString("\r\n")
	}
	if body != nil {
		buf.WriteString(HeaderContentLength)
		buf.WriteString(": ")
		buf.WriteString(strconv.Itoa(len(body)))
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(body)

	return buf.Bytes(), nil
}
