package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/adamwoolhether/xhr/transport/throttle"
)

// Client builds net/http backed exchanges. It owns the *http.Client and
// round-tripper chain shared by every Handle it creates.
type Client struct {
	c      *http.Client
	base   *url.URL
	logger *slog.Logger
}

// Build creates a Client. If no *http.Client or RoundTripper is given,
// a fresh client over http.DefaultTransport is used.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:      &http.Client{},
		logger: slog.Default(),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying transport option: %w", err)
		}
	}

	if opts.client != nil {
		cpy := *opts.client
		client.c = &cpy
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.jar != nil {
		client.c.Jar = opts.jar
	}

	client.base = opts.baseURL

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var rt http.RoundTripper
	switch {
	case opts.rt != nil:
		rt = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		rt = opts.client.Transport
	default:
		rt = http.DefaultTransport
	}
	if opts.userAgent != "" {
		rt = defaultUserAgent{ua: opts.userAgent, next: rt}
	}
	if opts.throttle != nil {
		thr, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, rt)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		rt = thr
	}
	client.c.Transport = rt

	return client, nil
}

// NewHandle returns an unopened exchange.
func (c *Client) NewHandle() Handle {
	return &Exchange{client: c}
}

// httpClient returns the client to use for one exchange. Cookies from the
// jar are only attached when the exchange includes credentials.
func (c *Client) httpClient(withCredentials bool) *http.Client {
	if withCredentials || c.c.Jar == nil {
		return c.c
	}

	cpy := *c.c
	cpy.Jar = nil
	return &cpy
}

func (c *Client) resolve(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	if u.IsAbs() {
		return u, nil
	}

	if c.base == nil {
		return nil, fmt.Errorf("%q: %w", raw, ErrRelativeURL)
	}

	return c.base.ResolveReference(u), nil
}

var defaultClient = sync.OnceValue(func() *Client {
	c, _ := Build()
	return c
})

// Default returns a shared Client built with no options.
func Default() *Client {
	return defaultClient()
}
