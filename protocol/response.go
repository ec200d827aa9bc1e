package protocol

// Daemon status codes, following sysexits.h as the daemon does
const (
	ExOK          = 0
	ExUsage       = 64
	ExDataErr     = 65
	ExNoInput     = 66
	ExNoUser      = 67
	ExNoHost      = 68
	ExUnavailable = 69
	ExSoftware    = 70
	ExOSErr       = 71
	ExOSFile      = 72
	ExCantCreat   = 73
	ExIOErr       = 74
	ExTempFail    = 75
	ExProtocol    = 76
	ExNoPerm      = 77
	ExConfig      = 78
)

// Response represents one SPAMD response
type Response struct {
	Version       string
	StatusCode    int
	StatusMessage string
	Headers       *HeaderList
	Body          []byte
}

// IsError reports whether the daemon rejected the request
func (r *Response) IsError() bool {
	return r.StatusCode != ExOK
}

// SpamStatus returns the parsed Spam header, if the response carries one
func (r *Response) SpamStatus() (SpamStatus, bool, error) {
	value, ok := r.Headers.Get(HeaderSpam)
	if !ok {
		return SpamStatus{}, false, nil
	}
	status, err := ParseSpamStatus(value)
	if err != nil {
		return SpamStatus{}, true, err
	}
	return status, true, nil
}
