package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpguts"

	"github.com/adamwoolhether/xhr/transport/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	userAgent         string
	throttle          *throttle.Config
	noFollowRedirects bool
	jar               http.CookieJar
	baseURL           *url.URL
	logger            *slog.Logger
}

// WithClient uses a copy of hc as the underlying [http.Client]. Its
// Transport, if any, becomes the base of the round-tripper chain.
func WithClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("http client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets the base [http.RoundTripper]. It takes precedence
// over the Transport of a client given to WithClient.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("round tripper must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithUserAgent sends ua on every exchange that does not set its own
// User-Agent.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		if !httpguts.ValidHeaderFieldValue(ua) {
			return fmt.Errorf("invalid user agent %q", ua)
		}
		o.userAgent = ua
		return nil
	}
}

// WithThrottle limits each destination host to rps requests per second
// with bursts of up to burst requests.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithNoFollowRedirects hands 3xx responses back to the exchange instead
// of following them.
func WithNoFollowRedirects() Option {
	return func(o *options) error {
		o.noFollowRedirects = true
		return nil
	}
}

// WithJar stores and sends cookies through jar, for exchanges that
// include credentials only.
func WithJar(jar http.CookieJar) Option {
	return func(o *options) error {
		if jar == nil {
			return errors.New("cookie jar must not be nil")
		}
		o.jar = jar
		return nil
	}
}

// WithBaseURL resolves relative request URLs against base, the way a
// browser resolves them against the document.
func WithBaseURL(base string) Option {
	return func(o *options) error {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("parsing base url: %w", err)
		}
		if !u.IsAbs() {
			return fmt.Errorf("base url %q must be absolute", base)
		}
		o.baseURL = u
		return nil
	}
}

// WithLogger sets the logger used for transfer progress, throttling and
// failed exchanges.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// defaultUserAgent fills in User-Agent on requests that lack one.
type defaultUserAgent struct {
	ua   string
	next http.RoundTripper
}

func (d defaultUserAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") != "" {
		return d.next.RoundTrip(r)
	}

	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", d.ua)
	return d.next.RoundTrip(cpy)
}
