package protocol

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spamd/spamdclient-go/errors"
)

// decodeState tracks the decoder's position in the response framing
type decodeState int

const (
	stateStatusLine decodeState = iota
	stateHeaders
	stateBody
	stateComplete
)

var statusLineRe = regexp.MustCompile(`^SPAMD/(\d+\.\d+)[ \t]+(\d+)[ \t]+(.*)$`)

// Decoder is a resumable parser for one SPAMD response. Network reads
// arrive in arbitrary-sized chunks, so the decoder carries its partial
// state across Feed calls; one decoder instance serves exactly one
// exchange.
type Decoder struct {
	state decodeState
	buf   []byte
	resp  *Response
	// want is the declared body length, or -1 to read until the peer
	// closes the connection
	want int
	err  error
}

// NewDecoder creates a decoder in the status-line state
func NewDecoder() *Decoder {
	return &Decoder{
		resp: &Response{Headers: NewHeaderList()},
		want: -1,
	}
}

// Complete reports whether a full response has been framed
func (d *Decoder) Complete() bool {
	return d.state == stateComplete
}

// Response returns the decoded response once Complete reports true
func (d *Decoder) Response() *Response {
	if d.state != stateComplete {
		return nil
	}
	return d.resp
}

// Feed drives the decoder with newly-arrived bytes. It returns true when
// the response is complete. Errors are sticky; a decoder that failed must
// be discarded along with its connection.
func (d *Decoder) Feed(p []byte) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.state == stateComplete {
		return true, nil
	}
	d.buf = append(d.buf, p...)

	for {
		switch d.state {
		case stateStatusLine:
			line, ok := d.takeLine()
			if !ok {
				return false, nil
			}
			if err := d.parseStatusLine(line); err != nil {
				return false, d.fail(err)
			}
			d.state = stateHeaders

		case stateHeaders:
			line, ok := d.takeLine()
			if !ok {
				return false, nil
			}
			if len(line) == 0 {
				if err := d.beginBody(); err != nil {
					return false, d.fail(err)
				}
				if d.state == stateComplete {
					return true, nil
				}
				continue
			}
			if err := d.parseHeaderLine(line); err != nil {
				return false, d.fail(err)
			}

		case stateBody:
			if d.want < 0 {
				// No declared length; only the peer closing the
				// connection can complete the body.
				return false, nil
			}
			if len(d.buf) < d.want {
				return false, nil
			}
			if err := d.finishBody(d.buf[:d.want]); err != nil {
				return false, d.fail(err)
			}
			return true, nil

		case stateComplete:
			return true, nil
		}
	}
}

// CloseEOF signals that the peer closed the connection. A body without a
// declared length completes here; anything else mid-frame is an
// unexpected EOF.
func (d *Decoder) CloseEOF() (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	switch d.state {
	case stateComplete:
		return true, nil
	case stateBody:
		if d.want < 0 {
			if err := d.finishBody(d.buf); err != nil {
				return false, d.fail(err)
			}
			return true, nil
		}
		return false, d.fail(errors.NewUnexpectedEOFError(
			fmt.Sprintf("got %d of %d declared body bytes", len(d.buf), d.want)))
	default:
		return false, d.fail(errors.NewUnexpectedEOFError("connection closed before response framing completed"))
	}
}

// takeLine consumes one CRLF-terminated line from the buffer, without the
// terminator. Returns false when no full line has arrived yet.
func (d *Decoder) takeLine() ([]byte, bool) {
	idx := bytes.Index(d.buf, []byte("\r\n"))
	if idx < 0 {
		return nil, false
	}
	line := d.buf[:idx]
	d.buf = d.buf[idx+2:]
	return line, true
}

func (d *Decoder) parseStatusLine(line []byte) error {
	m := statusLineRe.FindSubmatch(line)
	if m == nil {
		return errors.NewMalformedStatusLineError(fmt.Sprintf("%q", line))
	}
	code, err := strconv.Atoi(string(m[2]))
	if err != nil {
		return errors.NewMalformedStatusLineError(fmt.Sprintf("status code %q", m[2]))
	}
	d.resp.Version = string(m[1])
	d.resp.StatusCode = code
	d.resp.StatusMessage = strings.TrimSpace(string(m[3]))
	return nil
}

func (d *Decoder) parseHeaderLine(line []byte) error {
	name, value, found := strings.Cut(string(line), ":")
	if !found {
		return errors.NewMalformedHeaderError(fmt.Sprintf("no colon in %q", line))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewMalformedHeaderError(fmt.Sprintf("empty name in %q", line))
	}
	// Split on the first colon only; values may themselves contain colons.
	d.resp.Headers.headers = append(d.resp.Headers.headers, Header{
		Name:  name,
		Value: strings.TrimSpace(value),
	})
	return nil
}

// beginBody transitions out of the header state once the blank line is seen
func (d *Decoder) beginBody() error {
	length, present, err := d.resp.Headers.ContentLength()
	if err != nil {
		return err
	}
	if present {
		d.want = length
		if length == 0 {
			return d.finishBody(nil)
		}
	} else {
		d.want = -1
	}
	d.state = stateBody
	return nil
}

// finishBody applies negotiated decompression after the declared wire byte
// count has been read in full, then completes the response.
func (d *Decoder) finishBody(body []byte) error {
	if len(body) > 0 {
		if token, ok := d.resp.Headers.Get(HeaderCompress); ok && strings.EqualFold(strings.TrimSpace(token), CompressZlib) {
			inflated, err := decompressBody(body)
			if err != nil {
				return err
			}
			body = inflated
		}
	}
	if len(body) > 0 {
		d.resp.Body = append([]byte(nil), body...)
	}
	d.buf = nil
	d.state = stateComplete
	return nil
}

func (d *Decoder) fail(err error) error {
	d.err = err
	return err
}
