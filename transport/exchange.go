package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http/httpguts"
)

// Exchange is the net/http implementation of [Handle]. The request runs on
// its own goroutine, which also fires every callback except upload
// progress; that one fires from whichever goroutine net/http uses to write
// the body.
type Exchange struct {
	client *Client

	mu              sync.Mutex
	state           ReadyState
	method          string
	url             string
	responseType    string
	timeout         time.Duration
	withCredentials bool
	header          http.Header
	sent            bool
	aborted         bool
	finished        bool
	cancel          context.CancelFunc

	status     int
	statusText string
	respHeader http.Header
	body       []byte

	onReadyStateChange func()
	onError            func(error)
	onTimeout          func()
	onProgress         func(Progress)
	onUploadProgress   func(Progress)
}

// Open prepares the exchange. Only asynchronous exchanges are supported.
func (e *Exchange) Open(method, rawURL string, async bool) error {
	if !async {
		return ErrSyncUnsupported
	}

	if method == "" || !httpguts.ValidHeaderFieldName(method) {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	u, err := e.client.resolve(rawURL)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.sent && !e.finished {
		e.mu.Unlock()
		return fmt.Errorf("%w: exchange in flight", ErrInvalidState)
	}
	e.method = method
	e.url = u.String()
	e.header = make(http.Header)
	e.sent, e.aborted, e.finished = false, false, false
	e.status, e.statusText, e.respHeader, e.body = 0, "", nil, nil
	e.state = Opened
	e.mu.Unlock()

	e.fireReadyStateChange()

	return nil
}

// SetResponseType selects how Response decodes the body. Unknown values
// are ignored.
func (e *Exchange) SetResponseType(responseType string) {
	switch responseType {
	case "", ResponseTypeText, ResponseTypeJSON, ResponseTypeArrayBuffer, ResponseTypeBlob:
	default:
		return
	}

	e.mu.Lock()
	e.responseType = responseType
	e.mu.Unlock()
}

func (e *Exchange) SetTimeout(d time.Duration) {
	e.mu.Lock()
	e.timeout = d
	e.mu.Unlock()
}

func (e *Exchange) SetWithCredentials(include bool) {
	e.mu.Lock()
	e.withCredentials = include
	e.mu.Unlock()
}

// SetRequestHeader adds value to the named request header.
func (e *Exchange) SetRequestHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("invalid header field name %q", name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("invalid header field value for %q", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Opened || e.sent {
		return fmt.Errorf("%w: setting header on %s exchange", ErrInvalidState, e.state)
	}

	e.header.Add(name, value)

	return nil
}

func (e *Exchange) OnReadyStateChange(fn func()) {
	e.mu.Lock()
	e.onReadyStateChange = fn
	e.mu.Unlock()
}

func (e *Exchange) OnError(fn func(error)) {
	e.mu.Lock()
	e.onError = fn
	e.mu.Unlock()
}

func (e *Exchange) OnTimeout(fn func()) {
	e.mu.Lock()
	e.onTimeout = fn
	e.mu.Unlock()
}

func (e *Exchange) OnProgress(fn func(Progress)) {
	e.mu.Lock()
	e.onProgress = fn
	e.mu.Unlock()
}

func (e *Exchange) OnUploadProgress(fn func(Progress)) {
	e.mu.Lock()
	e.onUploadProgress = fn
	e.mu.Unlock()
}

// Send starts the exchange in the background. Bodies on GET and HEAD
// requests are ignored.
func (e *Exchange) Send(body any) error {
	e.mu.Lock()
	if e.aborted {
		e.mu.Unlock()
		return ErrAborted
	}
	if e.state != Opened || e.sent {
		e.mu.Unlock()
		return fmt.Errorf("%w: send on %s exchange", ErrInvalidState, e.state)
	}
	e.sent = true
	method, target, timeout, withCredentials := e.method, e.url, e.timeout, e.withCredentials
	header := e.header.Clone()
	onUpload := e.onUploadProgress
	e.mu.Unlock()

	if method == http.MethodGet || method == http.MethodHead {
		body = nil
	}

	p, err := encodeBody(body)
	if err != nil {
		e.reset()
		return err
	}

	if p.contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", p.contentType)
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, p.r)
	if err != nil {
		cancel()
		e.reset()
		return fmt.Errorf("building request: %w", err)
	}
	req.Header = header
	switch {
	case p.r == nil:
	case p.length == 0:
		req.Body = http.NoBody
		req.ContentLength = 0
	case p.length > 0:
		req.ContentLength = p.length
	}
	if onUpload != nil {
		e.trackUpload(req, p.length, onUpload)
	}

	e.mu.Lock()
	if e.aborted {
		e.mu.Unlock()
		cancel()
		return ErrAborted
	}
	e.cancel = cancel
	e.mu.Unlock()

	go e.run(ctx, cancel, req, withCredentials)

	return nil
}

// Abort cancels an in-flight exchange. The exchange then reaches Done with
// status 0 and returns to Unsent. Aborting a finished exchange is a no-op.
func (e *Exchange) Abort() {
	e.mu.Lock()
	if e.aborted || e.finished {
		e.mu.Unlock()
		return
	}
	e.aborted = true
	cancel := e.cancel
	if !e.sent {
		e.state = Unsent
	}
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (e *Exchange) ReadyState() ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Exchange) Status() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Exchange) StatusText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusText
}

// AllResponseHeaders returns the response headers as lower-cased, sorted
// "name: value" lines separated by CRLF.
func (e *Exchange) AllResponseHeaders() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state < HeadersReceived || e.respHeader == nil {
		return ""
	}

	names := make([]string, 0, len(e.respHeader))
	for k := range e.respHeader {
		names = append(names, k)
	}
	slices.Sort(names)

	var b strings.Builder
	for _, k := range names {
		b.WriteString(strings.ToLower(k))
		b.WriteString(": ")
		b.WriteString(strings.Join(e.respHeader[k], ", "))
		b.WriteString("\r\n")
	}

	return b.String()
}

// Response returns the body decoded per the response type: a string for
// text, the unmarshalled value for json (nil if malformed) and a []byte for
// arraybuffer and blob.
func (e *Exchange) Response() any {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Done || e.body == nil {
		return nil
	}

	switch e.responseType {
	case "", ResponseTypeText:
		return decodeText(e.body, e.respHeader.Get("Content-Type"))
	case ResponseTypeJSON:
		var v any
		if err := json.Unmarshal(e.body, &v); err != nil {
			return nil
		}
		return v
	default:
		return bytes.Clone(e.body)
	}
}

// ResponseText returns the body decoded to UTF-8. It is empty unless the
// response type is text.
func (e *Exchange) ResponseText() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.responseType != "" && e.responseType != ResponseTypeText {
		return ""
	}
	if e.state != Done || e.body == nil {
		return ""
	}

	return decodeText(e.body, e.respHeader.Get("Content-Type"))
}

func (e *Exchange) run(ctx context.Context, cancel context.CancelFunc, req *http.Request, withCredentials bool) {
	defer cancel()

	resp, err := e.client.httpClient(withCredentials).Do(req)
	if err != nil {
		e.fail(ctx, err)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			e.client.logger.Error("failed to close response body", "error", err)
		}
	}()

	e.mu.Lock()
	e.status = resp.StatusCode
	e.statusText = statusText(resp)
	e.respHeader = resp.Header
	e.state = HeadersReceived
	onProgress := e.onProgress
	e.mu.Unlock()
	e.fireReadyStateChange()

	e.setState(Loading)
	e.fireReadyStateChange()

	var r io.Reader = resp.Body
	if onProgress != nil {
		r = &progressReader{r: resp.Body, total: resp.ContentLength, fn: onProgress, logger: e.client.logger, startTime: time.Now()}
	}

	body, err := io.ReadAll(r)
	if err != nil {
		e.fail(ctx, err)
		return
	}

	e.mu.Lock()
	e.body = body
	e.state = Done
	e.finished = true
	e.mu.Unlock()
	e.fireReadyStateChange()
}

// fail moves the exchange to Done with status 0, then reports the failure
// as an abort, a timeout or a network error.
func (e *Exchange) fail(ctx context.Context, err error) {
	e.mu.Lock()
	aborted := e.aborted
	e.status, e.statusText, e.respHeader, e.body = 0, "", nil, nil
	e.state = Done
	e.finished = true
	onError, onTimeout := e.onError, e.onTimeout
	e.mu.Unlock()

	e.fireReadyStateChange()

	switch {
	case aborted:
		e.setState(Unsent)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		if onTimeout != nil {
			onTimeout()
		}
	default:
		e.client.logger.Debug("exchange failed", "url", e.target(), "error", err)
		if onError != nil {
			onError(err)
		}
	}
}

// trackUpload reports body reads to fn. Replayed bodies, as sent when
// following a 307 or 308, are tracked from zero again.
func (e *Exchange) trackUpload(req *http.Request, total int64, fn func(Progress)) {
	if req.Body == nil || req.Body == http.NoBody {
		return
	}

	wrap := func(rc io.ReadCloser) io.ReadCloser {
		pr := &progressReader{r: rc, total: total, fn: fn, logger: e.client.logger, startTime: time.Now()}
		return struct {
			io.Reader
			io.Closer
		}{pr, rc}
	}

	req.Body = wrap(req.Body)
	if getBody := req.GetBody; getBody != nil {
		req.GetBody = func() (io.ReadCloser, error) {
			rc, err := getBody()
			if err != nil {
				return nil, err
			}
			return wrap(rc), nil
		}
	}
}

func (e *Exchange) reset() {
	e.mu.Lock()
	e.sent = false
	e.mu.Unlock()
}

func (e *Exchange) setState(s ReadyState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Exchange) fireReadyStateChange() {
	e.mu.Lock()
	fn := e.onReadyStateChange
	e.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (e *Exchange) target() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

// statusText strips the numeric code from resp.Status, falling back to the
// canonical text for the code.
func statusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}

var _ Handle = (*Exchange)(nil)
