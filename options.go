package xhr

import (
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/xhr/cookie"
	"github.com/adamwoolhether/xhr/origin"
	"github.com/adamwoolhether/xhr/transport"
)

// Option is a functional option for configuring an [Executor] via [New].
type Option func(*options) error
type options struct {
	opener     transport.Opener
	logger     *slog.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	cookies    cookie.Reader
	origin     *origin.Checker
}

// WithTransport sets where the executor gets a fresh [transport.Handle]
// for each exchange. Defaults to [transport.Default].
func WithTransport(o transport.Opener) Option {
	return func(opts *options) error {
		if o == nil {
			return errors.New("transport must not be nil")
		}
		opts.opener = o
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Executor].
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) error {
		opts.logger = logger
		return nil
	}
}

// WithTracer records a span per exchange with tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *options) error {
		opts.tracer = tracer
		return nil
	}
}

// WithPropagator overrides the global otel propagator used to inject
// trace context into request headers.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(opts *options) error {
		opts.propagator = p
		return nil
	}
}

// WithCookies sets where XSRF cookies are read from.
func WithCookies(r cookie.Reader) Option {
	return func(opts *options) error {
		opts.cookies = r
		return nil
	}
}

// WithOrigin sets the document URL used to decide whether a request is
// same-origin. Without it, no request is considered same-origin.
func WithOrigin(documentURL string) Option {
	return func(opts *options) error {
		c, err := origin.New(documentURL)
		if err != nil {
			return fmt.Errorf("origin: %w", err)
		}
		opts.origin = c
		return nil
	}
}
