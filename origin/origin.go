// Package origin classifies request URLs as same-origin or cross-origin
// relative to the document that issues them.
package origin

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNoHost = errors.New("document url must be absolute")

// Checker compares request URLs against a fixed document origin.
type Checker struct {
	doc    *url.URL
	origin string
}

// New parses documentURL, which must carry a scheme and host.
func New(documentURL string) (*Checker, error) {
	u, err := url.Parse(documentURL)
	if err != nil {
		return nil, fmt.Errorf("parsing document url: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q: %w", documentURL, ErrNoHost)
	}

	return &Checker{doc: u, origin: Of(u)}, nil
}

// IsSame reports whether raw, resolved against the document URL, shares
// the document's scheme, host and port. Unparseable URLs are cross-origin.
func (c *Checker) IsSame(raw string) bool {
	ref, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return Of(c.doc.ResolveReference(ref)) == c.origin
}

// String returns the document origin, e.g. "https://example.com".
func (c *Checker) String() string { return c.origin }

// Of serialises the origin of u, dropping default ports.
func Of(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()

	switch {
	case port == "":
	case scheme == "http" && port == "80":
		port = ""
	case scheme == "https" && port == "443":
		port = ""
	}

	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	if port == "" {
		return scheme + "://" + host
	}

	return scheme + "://" + host + ":" + port
}
