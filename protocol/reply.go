package protocol

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spamd/spamdclient-go/errors"
)

// CheckReply is the outcome of a CHECK exchange
type CheckReply struct {
	IsSpam    bool
	Score     float64
	Threshold float64
	// Raw is the full decoded response
	Raw *Response
}

// RuleHit is one matched rule from a REPORT body
type RuleHit struct {
	Score       float64
	Rule        string
	Description string
}

// ReportReply is the outcome of a REPORT or REPORT_IFSPAM exchange
type ReportReply struct {
	CheckReply
	// Report is the human-readable report body
	Report string
	// Hits are the rules parsed out of the content analysis table
	Hits []RuleHit
}

// SymbolsReply is the outcome of a SYMBOLS exchange
type SymbolsReply struct {
	CheckReply
	// Symbols are the names of the rules that matched
	Symbols []string
}

// ProcessReply is the outcome of a PROCESS exchange; Message is the
// daemon-modified message. HEADERS responses use the same shape with only
// the rewritten headers as the message.
type ProcessReply struct {
	CheckReply
	Message []byte
}

// TellReply is the outcome of a TELL exchange
type TellReply struct {
	DidSet    ActionTargets
	DidRemove ActionTargets
	Raw       *Response
}

// PingReply is the outcome of a PING exchange
type PingReply struct {
	Version string
	Message string
}

// A content analysis line: points, rule name, description.
var ruleHitRe = regexp.MustCompile(`^\s*(-?[0-9]+(?:\.[0-9]+)?)\s+([A-Za-z0-9_]+)\s*(.*)$`)

// ParseRuleHits extracts the matched-rule table from a REPORT body. Lines
// that do not look like table rows (preamble, separators) are skipped.
func ParseRuleHits(body []byte) []RuleHit {
	var hits []RuleHit
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimRight(line, " \t\r")
		m := ruleHitRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		score, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		hits = append(hits, RuleHit{
			Score:       score,
			Rule:        m[2],
			Description: strings.TrimSpace(m[3]),
		})
	}
	return hits
}

// ParseSymbols splits a SYMBOLS body into rule names
func ParseSymbols(body []byte) []string {
	var symbols []string
	for _, part := range strings.FieldsFunc(string(body), func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	}) {
		part = strings.TrimSpace(part)
		if part != "" {
			symbols = append(symbols, part)
		}
	}
	return symbols
}

// NewCheckReply builds a CheckReply from a decoded response. The daemon
// answers every scan command with a Spam header.
func NewCheckReply(resp *Response) (*CheckReply, error) {
	status, ok, err := resp.SpamStatus()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewMalformedHeaderError("response has no Spam header")
	}
	return &CheckReply{
		IsSpam:    status.IsSpam,
		Score:     status.Score,
		Threshold: status.Threshold,
		Raw:       resp,
	}, nil
}

// NewTellReply builds a TellReply from a decoded response
func NewTellReply(resp *Response) (*TellReply, error) {
	reply := &TellReply{Raw: resp}
	if value, ok := resp.Headers.Get(HeaderDidSet); ok {
		targets, err := ParseActionTargets(value)
		if err != nil {
			return nil, err
		}
		reply.DidSet = targets
	}
	if value, ok := resp.Headers.Get(HeaderDidRemove); ok {
		targets, err := ParseActionTargets(value)
		if err != nil {
			return nil, err
		}
		reply.DidRemove = targets
	}
	return reply, nil
}
