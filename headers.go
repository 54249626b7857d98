package xhr

import (
	"context"
	"encoding/base64"

	"github.com/adamwoolhether/xhr/headers"
	"github.com/adamwoolhether/xhr/transport"
)

// buildHeaders derives the outgoing header set from cfg without touching
// cfg.Headers. Order matters: later steps may override earlier ones.
func (e *Executor) buildHeaders(ctx context.Context, cfg *Config) (headers.Fields, error) {
	b := headers.NewBuilder(cfg.Headers)

	// The transport picks the multipart boundary.
	if transport.IsFormData(cfg.Data) {
		b.Del("Content-Type")
	}

	if (cfg.WithCredentials || e.sameOrigin(cfg.URL)) && cfg.XSRFCookieName != "" && e.cookies != nil {
		if v, ok := e.cookies.Read(cfg.XSRFCookieName); ok && v != "" && cfg.XSRFHeaderName != "" {
			b.Set(cfg.XSRFHeaderName, v)
		}
	}

	if cfg.Auth != nil {
		b.Set("Authorization", basicAuth(cfg.Auth.Username, cfg.Auth.Password))
	}

	e.propagator.Inject(ctx, b)

	if transport.IsEmptyBody(cfg.Data) {
		b.Del("Content-Type")
	}

	return b.Build()
}

func (e *Executor) sameOrigin(rawURL string) bool {
	if e.origin == nil {
		return false
	}
	return e.origin.IsSame(rawURL)
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
