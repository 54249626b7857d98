package xhr

import (
	"errors"

	"github.com/adamwoolhether/xhr/transport"
)

// Kind classifies why an exchange was rejected.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindStatus
	KindCanceled
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindCanceled:
		return "canceled"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Machine-readable codes carried by Error.Code.
const (
	CodeAborted   = "ECONNABORTED"
	CodeCanceled  = "ERR_CANCELED"
	CodeBadConfig = "ERR_BAD_CONFIG"
)

// Sentinels matched by errors.Is against an *Error of the same Kind.
var (
	ErrNetwork  = errors.New("network error")
	ErrTimeout  = errors.New("timeout exceeded")
	ErrStatus   = errors.New("status rejected")
	ErrCanceled = errors.New("request canceled")
	ErrConfig   = errors.New("invalid request config")
)

// Error is returned for every exchange the executor rejects itself.
// Response is only set for KindStatus.
type Error struct {
	Kind     Kind
	Message  string
	Config   *Config
	Code     string
	Request  transport.Handle
	Response *Response
	Err      error
}

// NewError builds a classified error. It has no side effects.
func NewError(kind Kind, message string, cfg *Config, code string, h transport.Handle, resp *Response) *Error {
	return &Error{
		Kind:     kind,
		Message:  message,
		Config:   cfg,
		Code:     code,
		Request:  h,
		Response: resp,
	}
}

// WithCause returns a copy of e carrying err as its cause.
func (e *Error) WithCause(err error) *Error {
	cpy := *e
	cpy.Err = err
	return &cpy
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindTimeout:
		return ErrTimeout
	case KindStatus:
		return ErrStatus
	case KindCanceled:
		return ErrCanceled
	case KindConfig:
		return ErrConfig
	default:
		return nil
	}
}

// AsError reports whether err was classified by the executor, as opposed
// to a cancellation reason or an arbitrary error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return nil, false
	}
	return e, true
}
