// Package protocol contains the SPAMC/SPAMD message model and wire codec
package protocol

// Version is the protocol version spoken by this client
const Version = "1.5"

// Command represents commands that can be sent to the daemon
type Command int

const (
	Check Command = iota
	Symbols
	Report
	ReportIfSpam
	Process
	Headers
	Ping
	Tell
	Skip
)

// String returns the wire token for the command
func (c Command) String() string {
	switch c {
	case Check:
		return "CHECK"
	case Symbols:
		return "SYMBOLS"
	case Report:
		return "REPORT"
	case ReportIfSpam:
		return "REPORT_IFSPAM"
	case Process:
		return "PROCESS"
	case Headers:
		return "HEADERS"
	case Ping:
		return "PING"
	case Tell:
		return "TELL"
	case Skip:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// Descriptor describes the body semantics of a command
type Descriptor struct {
	Command Command
	// RequiresBody reports whether the request must carry a message body
	RequiresBody bool
	// ResponseHasBody reports whether the daemon answers with a body
	ResponseHasBody bool
}

// FromCommand creates a descriptor for a command
func FromCommand(command Command) Descriptor {
	switch command {
	case Check:
		return Descriptor{Command: command, RequiresBody: true}
	case Symbols:
		return Descriptor{Command: command, RequiresBody: true, ResponseHasBody: true}
	case Report:
		return Descriptor{Command: command, RequiresBody: true, ResponseHasBody: true}
	case ReportIfSpam:
		return Descriptor{Command: command, RequiresBody: true, ResponseHasBody: true}
	case Process:
		return Descriptor{Command: command, RequiresBody: true, ResponseHasBody: true}
	case Headers:
		return Descriptor{Command: command, RequiresBody: true, ResponseHasBody: true}
	case Ping:
		return Descriptor{Command: command}
	case Tell:
		return Descriptor{Command: command, RequiresBody: true}
	case Skip:
		return Descriptor{Command: command, RequiresBody: true}
	default:
		return Descriptor{Command: command}
	}
}
