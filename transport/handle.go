package transport

import (
	"errors"
	"time"
)

var (
	ErrSyncUnsupported = errors.New("synchronous exchanges are not supported")
	ErrInvalidState    = errors.New("invalid exchange state")
	ErrInvalidMethod   = errors.New("invalid method")
	ErrRelativeURL     = errors.New("relative url without base url")
	ErrAborted         = errors.New("exchange aborted")
	ErrUnsupportedBody = errors.New("unsupported body type")
)

// ReadyState tracks the progress of an exchange.
type ReadyState int

const (
	Unsent ReadyState = iota
	Opened
	HeadersReceived
	Loading
	Done
)

func (s ReadyState) String() string {
	switch s {
	case Unsent:
		return "UNSENT"
	case Opened:
		return "OPENED"
	case HeadersReceived:
		return "HEADERS_RECEIVED"
	case Loading:
		return "LOADING"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Response types understood by [Handle.SetResponseType].
const (
	ResponseTypeText        = "text"
	ResponseTypeJSON        = "json"
	ResponseTypeArrayBuffer = "arraybuffer"
	ResponseTypeBlob        = "blob"
)

// Progress reports bytes moved for an upload or a download.
// Total is 0 when the length is unknown.
type Progress struct {
	Loaded           int64
	Total            int64
	LengthComputable bool
}

// Handle is a single, non-reusable HTTP exchange driven through callbacks.
type Handle interface {
	Open(method, url string, async bool) error
	SetResponseType(responseType string)
	SetTimeout(d time.Duration)
	SetWithCredentials(include bool)
	SetRequestHeader(name, value string) error

	OnReadyStateChange(fn func())
	OnError(fn func(err error))
	OnTimeout(fn func())
	OnProgress(fn func(Progress))
	OnUploadProgress(fn func(Progress))

	Send(body any) error
	Abort()

	ReadyState() ReadyState
	Status() int
	StatusText() string
	AllResponseHeaders() string
	Response() any
	ResponseText() string
}

// Opener hands out a fresh Handle per exchange.
type Opener interface {
	NewHandle() Handle
}

// OpenerFunc adapts a func to an Opener.
type OpenerFunc func() Handle

func (f OpenerFunc) NewHandle() Handle { return f() }
