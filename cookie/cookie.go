// Package cookie provides read access to the cookies visible to the
// document issuing requests, used to echo XSRF tokens into headers.
package cookie

import (
	"fmt"
	"net/http"
	"net/url"
)

// Reader reads a single cookie by name.
type Reader interface {
	Read(name string) (string, bool)
}

// ReaderFunc adapts a plain func to a Reader.
type ReaderFunc func(name string) (string, bool)

func (f ReaderFunc) Read(name string) (string, bool) { return f(name) }

// Static is a fixed set of cookies, keyed by name.
type Static map[string]string

func (s Static) Read(name string) (string, bool) {
	v, ok := s[name]
	return v, ok
}

// FromString parses a "name=value; other=value" cookie string, the format
// a browser exposes for the current document. Malformed pairs are skipped.
func FromString(raw string) Static {
	s := make(Static)

	cookies, err := http.ParseCookie(raw)
	if err != nil {
		// ParseCookie fails the whole line on one bad pair; fall back to
		// parsing pairs one by one.
		for _, c := range parseLenient(raw) {
			s[c.Name] = c.Value
		}
		return s
	}

	for _, c := range cookies {
		s[c.Name] = c.Value
	}

	return s
}

// Jar reads cookies stored in an http.CookieJar for a fixed document URL.
type Jar struct {
	jar http.CookieJar
	doc *url.URL
}

// NewJar returns a Jar reading cookies that jar would send to documentURL.
func NewJar(jar http.CookieJar, documentURL string) (*Jar, error) {
	if jar == nil {
		return nil, fmt.Errorf("cookie jar must not be nil")
	}

	u, err := url.Parse(documentURL)
	if err != nil {
		return nil, fmt.Errorf("parsing document url: %w", err)
	}

	return &Jar{jar: jar, doc: u}, nil
}

func (j *Jar) Read(name string) (string, bool) {
	for _, c := range j.jar.Cookies(j.doc) {
		if c.Name == name {
			return c.Value, true
		}
	}

	return "", false
}
