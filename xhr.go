// Package xhr drives single HTTP exchanges over a callback-based
// transport and reports each one as a [Result] that settles exactly once.
//
//	exec, err := xhr.New(xhr.WithOrigin("https://app.example.com"))
//	res := exec.Execute(ctx, xhr.Config{
//		URL:            "https://app.example.com/api/items",
//		XSRFCookieName: "XSRF-TOKEN",
//		XSRFHeaderName: "X-XSRF-TOKEN",
//	})
//	resp, err := res.Response()
//
// Rejections are *[Error] values tagged with a [Kind], except for
// cancellation through a [cancel.Token], which rejects with the token's
// *[cancel.Reason] unchanged.
package xhr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/xhr/cookie"
	"github.com/adamwoolhether/xhr/origin"
	"github.com/adamwoolhether/xhr/transport"
)

// Executor runs exchanges. It is safe for concurrent use; each Execute
// call owns its own transport handle.
type Executor struct {
	opener     transport.Opener
	logger     *slog.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	cookies    cookie.Reader
	origin     *origin.Checker
}

// New creates an Executor. If not specified, the shared default transport,
// slog.Default and a no-op tracer are used.
func New(optFns ...Option) (*Executor, error) {
	e := &Executor{
		opener: transport.Default(),
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer("no-op tracer"),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying executor option: %w", err)
		}
	}

	if opts.opener != nil {
		e.opener = opts.opener
	}
	if opts.logger != nil {
		e.logger = opts.logger
	}
	if opts.tracer != nil {
		e.tracer = opts.tracer
	}
	e.propagator = opts.propagator
	if e.propagator == nil {
		e.propagator = otel.GetTextMapPropagator()
	}
	e.cookies = opts.cookies
	e.origin = opts.origin

	return e, nil
}

var defaultExecutor = sync.OnceValue(func() *Executor {
	e, _ := New()
	return e
})

// Execute runs cfg on an Executor with default settings.
func Execute(ctx context.Context, cfg Config) *Result {
	return defaultExecutor().Execute(ctx, cfg)
}

// Execute starts one exchange and returns immediately. Ending ctx aborts
// the exchange and rejects the Result with KindCanceled.
func (e *Executor) Execute(ctx context.Context, cfg Config) *Result {
	res := newResult()
	cfg = withDefaults(cfg)
	c := &cfg
	method := strings.ToUpper(c.Method)
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "xhr.execute", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("exchange.id", res.id.String()),
		attribute.String("http.request.method", method),
		attribute.String("url.full", c.URL),
	)

	reject := func(err error) *Result {
		res.reject(err)
		e.finish(span, res, method, c.URL, start)
		return res
	}

	if err := Validate(c); err != nil {
		return reject(NewError(KindConfig, "invalid request config", c, CodeBadConfig, nil, nil).WithCause(err))
	}

	h := e.opener.NewHandle()
	if err := h.Open(method, c.URL, true); err != nil {
		return reject(NewError(KindConfig, "opening exchange", c, CodeBadConfig, h, nil).WithCause(err))
	}

	configure(h, c)
	wireEvents(h, c, res)

	fields, err := e.buildHeaders(ctx, c)
	if err != nil {
		return reject(NewError(KindConfig, "invalid request headers", c, CodeBadConfig, h, nil).WithCause(err))
	}
	for _, f := range fields {
		if err := h.SetRequestHeader(f.Name, f.Value); err != nil {
			return reject(NewError(KindConfig, "invalid request headers", c, CodeBadConfig, h, nil).WithCause(err))
		}
	}

	go e.watch(ctx, h, c, res, span, method, start)

	// A send refused because of an earlier abort is settled by whoever
	// aborted.
	switch err := h.Send(c.Data); {
	case err == nil, errors.Is(err, transport.ErrAborted):
	case errors.Is(err, transport.ErrUnsupportedBody):
		res.reject(NewError(KindConfig, "unsupported request body", c, CodeBadConfig, h, nil).WithCause(err))
	default:
		res.reject(NewError(KindNetwork, "Network Error", c, "", h, nil).WithCause(err))
	}

	return res
}

// configure applies only the settings the caller provided, leaving
// transport defaults alone otherwise.
func configure(h transport.Handle, cfg *Config) {
	if cfg.ResponseType != "" {
		h.SetResponseType(cfg.ResponseType)
	}
	if cfg.Timeout > 0 {
		h.SetTimeout(cfg.Timeout)
	}
	if cfg.WithCredentials {
		h.SetWithCredentials(true)
	}
}

func wireEvents(h transport.Handle, cfg *Config, res *Result) {
	h.OnReadyStateChange(func() {
		if h.ReadyState() != transport.Done {
			return
		}

		// Aborted, failed and timed out exchanges finish with status 0.
		// Their own paths settle the result.
		if h.Status() == 0 {
			return
		}

		settleStatus(res, normalize(h, cfg))
	})

	h.OnError(func(err error) {
		res.reject(NewError(KindNetwork, "Network Error", cfg, "", h, nil).WithCause(err))
	})

	h.OnTimeout(func() {
		res.reject(NewError(KindTimeout, timeoutMessage(cfg.Timeout), cfg, CodeAborted, h, nil))
	})

	if cfg.OnDownloadProgress != nil {
		h.OnProgress(cfg.OnDownloadProgress)
	}
	if cfg.OnUploadProgress != nil {
		h.OnUploadProgress(cfg.OnUploadProgress)
	}
}

// timeoutMessage reports d in whole milliseconds, rounded up so sub-millisecond
// timeouts never read as 0.
func timeoutMessage(d time.Duration) string {
	ms := (d + time.Millisecond - 1) / time.Millisecond
	return fmt.Sprintf("timeout of %d ms exceeded", int64(ms))
}

func settleStatus(res *Result, resp *Response) {
	valid := resp.Config.ValidateStatus
	if valid == nil {
		valid = DefaultValidateStatus
	}

	if valid(resp.Status) {
		res.resolve(resp)
		return
	}

	msg := fmt.Sprintf("request failed with status code %d", resp.Status)
	res.reject(NewError(KindStatus, msg, resp.Config, "", resp.Request, resp))
}

// watch races settlement against cancellation. It returns once the
// result has settled, whichever side settled it.
func (e *Executor) watch(ctx context.Context, h transport.Handle, cfg *Config, res *Result, span trace.Span, method string, start time.Time) {
	var canceled <-chan struct{}
	if cfg.CancelToken != nil {
		canceled = cfg.CancelToken.Done()
	}

	select {
	case <-res.Done():
	case <-canceled:
		if !res.settled.Load() {
			h.Abort()
			res.reject(cfg.CancelToken.Reason())
		}
	case <-ctx.Done():
		if !res.settled.Load() {
			h.Abort()
			res.reject(NewError(KindCanceled, "request canceled", cfg, CodeCanceled, h, nil).WithCause(ctx.Err()))
		}
	}

	e.finish(span, res, method, cfg.URL, start)
}

func (e *Executor) finish(span trace.Span, res *Result, method, url string, start time.Time) {
	defer span.End()

	resp, err := res.Response()
	attrs := []any{
		"exchange", res.id.String(),
		"method", method,
		"url", url,
		"elapsed", time.Since(start).Round(time.Millisecond),
	}

	if err != nil {
		if xe, ok := AsError(err); ok && xe.Response != nil {
			span.SetAttributes(attribute.Int("http.response.status_code", xe.Response.Status))
			attrs = append(attrs, "status", xe.Response.Status)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Debug("exchange rejected", append(attrs, "error", err)...)
		return
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	e.logger.Debug("exchange resolved", append(attrs, "status", resp.Status)...)
}
