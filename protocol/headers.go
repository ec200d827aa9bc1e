package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spamd/spamdclient-go/errors"
)

// Well-known header names. Matching is case-insensitive everywhere; these
// casings follow the daemon's own output.
const (
	HeaderContentLength = "Content-length"
	HeaderCompress      = "Compress"
	HeaderUser          = "User"
	HeaderMessageClass  = "Message-class"
	HeaderSet           = "Set"
	HeaderRemove        = "Remove"
	HeaderDidSet        = "DidSet"
	HeaderDidRemove     = "DidRemove"
	HeaderSpam          = "Spam"
)

// CompressZlib is the only compression token the daemon understands
const CompressZlib = "zlib"

// Header is a single name/value pair
type Header struct {
	Name  string
	Value string
}

// HeaderList is an ordered collection of headers. Insertion order is
// preserved for deterministic wire output; name matching is
// case-insensitive and duplicates are allowed.
type HeaderList struct {
	headers []Header
}

// NewHeaderList creates an empty header list
func NewHeaderList() *HeaderList {
	return &HeaderList{}
}

// validateName rejects names that would break the line-oriented framing
func validateName(name string) error {
	if name == "" {
		return errors.NewInvalidHeaderNameError("header name is empty")
	}
	if strings.ContainsAny(name, ":\r\n") {
		return errors.NewInvalidHeaderNameError(fmt.Sprintf("header name %q contains forbidden characters", name))
	}
	return nil
}

// validateValue rejects values that could smuggle extra lines
func validateValue(name, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return errors.NewInvalidHeaderValueError(fmt.Sprintf("value of header %q contains CR or LF", name))
	}
	return nil
}

// Add appends a header, keeping any existing headers with the same name
func (h *HeaderList) Add(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateValue(name, value); err != nil {
		return err
	}
	h.headers = append(h.headers, Header{Name: name, Value: value})
	return nil
}

// Set replaces all headers matching name with a single one. The caller's
// casing is preserved.
func (h *HeaderList) Set(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateValue(name, value); err != nil {
		return err
	}
	h.Del(name)
	h.headers = append(h.headers, Header{Name: name, Value: value})
	return nil
}

// Del removes all headers matching name
func (h *HeaderList) Del(name string) {
	kept := h.headers[:0]
	for _, hdr := range h.headers {
		if !strings.EqualFold(hdr.Name, name) {
			kept = append(kept, hdr)
		}
	}
	h.headers = kept
}

// Get returns the first value for name and whether it was present
func (h *HeaderList) Get(name string) (string, bool) {
	for _, hdr := range h.headers {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Values returns every value recorded for name, in insertion order
func (h *HeaderList) Values(name string) []string {
	var values []string
	for _, hdr := range h.headers {
		if strings.EqualFold(hdr.Name, name) {
			values = append(values, hdr.Value)
		}
	}
	return values
}

// All returns the headers in insertion order. The slice is shared; callers
// must not mutate it.
func (h *HeaderList) All() []Header {
	return h.headers
}

// Len returns the number of headers
func (h *HeaderList) Len() int {
	if h == nil {
		return 0
	}
	return len(h.headers)
}

// ContentLength returns the parsed Content-length header, if present
func (h *HeaderList) ContentLength() (int, bool, error) {
	value, ok := h.Get(HeaderContentLength)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, true, errors.NewMalformedHeaderError(fmt.Sprintf("Content-length %q is not a byte count", value))
	}
	return n, true, nil
}

// MessageClass classifies a message for TELL exchanges
type MessageClass string

const (
	ClassSpam MessageClass = "spam"
	ClassHam  MessageClass = "ham"
)

// ParseMessageClass parses a Message-class header value
func ParseMessageClass(value string) (MessageClass, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "spam":
		return ClassSpam, nil
	case "ham":
		return ClassHam, nil
	}
	return "", errors.NewMalformedHeaderError(fmt.Sprintf("Message-class %q is neither ham nor spam", value))
}

// ActionTargets is the value of the Set, Remove, DidSet and DidRemove
// headers: which databases (local, remote or both) an action applies to.
type ActionTargets struct {
	Local  bool
	Remote bool
}

// String renders the header value form, e.g. "local, remote"
func (a ActionTargets) String() string {
	switch {
	case a.Local && a.Remote:
		return "local, remote"
	case a.Remote:
		return "remote"
	case a.Local:
		return "local"
	default:
		return ""
	}
}

// ParseActionTargets parses a Set/Remove/DidSet/DidRemove header value
func ParseActionTargets(value string) (ActionTargets, error) {
	var targets ActionTargets
	for _, part := range strings.Split(value, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "local":
			targets.Local = true
		case "remote":
			targets.Remote = true
		case "":
		default:
			return ActionTargets{}, errors.NewMalformedHeaderError(fmt.Sprintf("action target %q is neither local nor remote", part))
		}
	}
	return targets, nil
}

// SpamStatus is the parsed Spam response header,
// e.g. "True ; 7.5 / 5.0".
type SpamStatus struct {
	IsSpam    bool
	Score     float64
	Threshold float64
}

// ParseSpamStatus parses a Spam header value
func ParseSpamStatus(value string) (SpamStatus, error) {
	verdict, rest, found := strings.Cut(value, ";")
	if !found {
		return SpamStatus{}, errors.NewMalformedHeaderError(fmt.Sprintf("Spam header %q has no score section", value))
	}

	var status SpamStatus
	switch strings.ToLower(strings.TrimSpace(verdict)) {
	case "true", "yes":
		status.IsSpam = true
	case "false", "no":
		status.IsSpam = false
	default:
		return SpamStatus{}, errors.NewMalformedHeaderError(fmt.Sprintf("Spam header verdict %q is not a boolean", verdict))
	}

	scoreStr, thresholdStr, found := strings.Cut(rest, "/")
	if !found {
		return SpamStatus{}, errors.NewMalformedHeaderError(fmt.Sprintf("Spam header %q has no threshold", value))
	}

	var err error
	status.Score, err = strconv.ParseFloat(strings.TrimSpace(scoreStr), 64)
	if err != nil {
		return SpamStatus{}, errors.NewMalformedHeaderError(fmt.Sprintf("Spam header score %q is not a number", scoreStr))
	}
	status.Threshold, err = strconv.ParseFloat(strings.TrimSpace(thresholdStr), 64)
	if err != nil {
		return SpamStatus{}, errors.NewMalformedHeaderError(fmt.Sprintf("Spam header threshold %q is not a number", thresholdStr))
	}
	return status, nil
}
