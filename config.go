package xhr

import (
	"time"

	"github.com/adamwoolhether/xhr/cancel"
	"github.com/adamwoolhether/xhr/transport"
)

// DefaultMethod is used when Config.Method is empty.
const DefaultMethod = "get"

// Config is a fully resolved request. The executor reads it and never
// modifies the caller's copy.
type Config struct {
	URL    string `json:"url" validate:"required"`
	Method string `json:"method" validate:"omitempty,token"`

	// Data is the request body: nil, string, []byte, url.Values,
	// io.Reader or *transport.FormData. Empty bodies (see
	// transport.IsEmptyBody) are sent without a Content-Type.
	Data any `json:"-" validate:"-"`

	// Headers with an empty value are treated as unset.
	Headers map[string]string `json:"headers" validate:"-"`

	// Timeout of zero means no timeout.
	Timeout time.Duration `json:"timeout" validate:"gte=0"`

	// ResponseType selects the body representation. Empty means text.
	ResponseType string `json:"responseType" validate:"omitempty,oneof=text json arraybuffer blob"`

	WithCredentials bool   `json:"withCredentials"`
	XSRFCookieName  string `json:"xsrfCookieName"`
	XSRFHeaderName  string `json:"xsrfHeaderName" validate:"omitempty,token"`

	Auth *BasicAuth `json:"auth"`

	OnDownloadProgress func(transport.Progress) `json:"-" validate:"-"`
	OnUploadProgress   func(transport.Progress) `json:"-" validate:"-"`

	// ValidateStatus decides which status codes resolve. Nil uses
	// DefaultValidateStatus.
	ValidateStatus func(status int) bool `json:"-" validate:"-"`

	CancelToken *cancel.Token `json:"-" validate:"-"`
}

// BasicAuth credentials are sent as an Authorization: Basic header.
type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DefaultValidateStatus accepts 2xx statuses.
func DefaultValidateStatus(status int) bool {
	return status >= 200 && status < 300
}

func withDefaults(cfg Config) Config {
	if cfg.Method == "" {
		cfg.Method = DefaultMethod
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	return cfg
}
