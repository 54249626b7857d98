// Package transporttest provides a scriptable [transport.Handle] for
// testing code that drives exchanges.
package transporttest

import (
	"sync"
	"time"

	"github.com/adamwoolhether/xhr/headers"
	"github.com/adamwoolhether/xhr/transport"
)

// Fake records everything done to it and fires events only when the test
// asks. Event methods run callbacks on the calling goroutine.
type Fake struct {
	mu sync.Mutex

	method          string
	url             string
	async           bool
	responseType    string
	timeout         time.Duration
	withCredentials bool
	header          headers.Fields
	body            any
	sent            chan struct{}
	sendErr         error
	openErr         error
	aborts          int

	state      transport.ReadyState
	status     int
	statusText string
	rawHeaders string
	text       string
	response   any

	onReadyStateChange func()
	onError            func(error)
	onTimeout          func()
	onProgress         func(transport.Progress)
	onUploadProgress   func(transport.Progress)
}

// NewFake returns an unopened Fake.
func NewFake() *Fake {
	return &Fake{sent: make(chan struct{})}
}

// Opener hands out f. A Fake serves a single exchange.
func (f *Fake) Opener() transport.Opener {
	return transport.OpenerFunc(func() transport.Handle { return f })
}

// FailOpen makes Open return err.
func (f *Fake) FailOpen(err error) { f.openErr = err }

// FailSend makes Send return err.
func (f *Fake) FailSend(err error) { f.sendErr = err }

func (f *Fake) Open(method, url string, async bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.openErr != nil {
		return f.openErr
	}
	f.method, f.url, f.async = method, url, async
	f.state = transport.Opened
	return nil
}

func (f *Fake) SetResponseType(rt string) {
	f.mu.Lock()
	f.responseType = rt
	f.mu.Unlock()
}

func (f *Fake) SetTimeout(d time.Duration) {
	f.mu.Lock()
	f.timeout = d
	f.mu.Unlock()
}

func (f *Fake) SetWithCredentials(include bool) {
	f.mu.Lock()
	f.withCredentials = include
	f.mu.Unlock()
}

func (f *Fake) SetRequestHeader(name, value string) error {
	f.mu.Lock()
	f.header = append(f.header, headers.Field{Name: name, Value: value})
	f.mu.Unlock()
	return nil
}

func (f *Fake) OnReadyStateChange(fn func()) {
	f.mu.Lock()
	f.onReadyStateChange = fn
	f.mu.Unlock()
}

func (f *Fake) OnError(fn func(error)) {
	f.mu.Lock()
	f.onError = fn
	f.mu.Unlock()
}

func (f *Fake) OnTimeout(fn func()) {
	f.mu.Lock()
	f.onTimeout = fn
	f.mu.Unlock()
}

func (f *Fake) OnProgress(fn func(transport.Progress)) {
	f.mu.Lock()
	f.onProgress = fn
	f.mu.Unlock()
}

func (f *Fake) OnUploadProgress(fn func(transport.Progress)) {
	f.mu.Lock()
	f.onUploadProgress = fn
	f.mu.Unlock()
}

func (f *Fake) Send(body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}
	f.body = body
	close(f.sent)
	return nil
}

// Abort counts the call and, like a browser, moves the exchange to Done
// with status 0 and fires a ready-state change.
func (f *Fake) Abort() {
	f.mu.Lock()
	f.aborts++
	f.state = transport.Done
	f.status = 0
	fn := f.onReadyStateChange
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (f *Fake) ReadyState() transport.ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Fake) Status() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *Fake) StatusText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusText
}

func (f *Fake) AllResponseHeaders() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rawHeaders
}

func (f *Fake) Response() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.response != nil {
		return f.response
	}
	return f.text
}

func (f *Fake) ResponseText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

// Reply describes a completed response.
type Reply struct {
	Status     int
	StatusText string
	Headers    string
	Text       string
	// Response, if set, is returned by Response instead of Text.
	Response any
}

// Respond walks the exchange through HeadersReceived, Loading and Done,
// firing a ready-state change at each step.
func (f *Fake) Respond(r Reply) {
	f.mu.Lock()
	f.status, f.statusText, f.rawHeaders = r.Status, r.StatusText, r.Headers
	f.mu.Unlock()

	f.SetState(transport.HeadersReceived)
	f.SetState(transport.Loading)

	f.mu.Lock()
	f.text, f.response = r.Text, r.Response
	f.mu.Unlock()

	f.SetState(transport.Done)
}

// SetState moves to s and fires a ready-state change.
func (f *Fake) SetState(s transport.ReadyState) {
	f.mu.Lock()
	f.state = s
	fn := f.onReadyStateChange
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// CompleteWithStatus finishes the exchange with the given status and no
// body.
func (f *Fake) CompleteWithStatus(status int) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()

	f.SetState(transport.Done)
}

// Fail finishes with status 0 and fires the error callback.
func (f *Fake) Fail(err error) {
	f.CompleteWithStatus(0)

	f.mu.Lock()
	fn := f.onError
	f.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

// FireTimeout finishes with status 0 and fires the timeout callback.
func (f *Fake) FireTimeout() {
	f.CompleteWithStatus(0)

	f.mu.Lock()
	fn := f.onTimeout
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Progress fires the download progress callback, if any.
func (f *Fake) Progress(p transport.Progress) {
	f.mu.Lock()
	fn := f.onProgress
	f.mu.Unlock()

	if fn != nil {
		fn(p)
	}
}

// UploadProgress fires the upload progress callback, if any.
func (f *Fake) UploadProgress(p transport.Progress) {
	f.mu.Lock()
	fn := f.onUploadProgress
	f.mu.Unlock()

	if fn != nil {
		fn(p)
	}
}

// Sent is closed once Send succeeds.
func (f *Fake) Sent() <-chan struct{} { return f.sent }

// Body returns what was passed to Send.
func (f *Fake) Body() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body
}

// Header returns the headers set on the exchange, in order.
func (f *Fake) Header() headers.Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append(headers.Fields(nil), f.header...)
}

// Aborts returns how many times Abort was called.
func (f *Fake) Aborts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aborts
}

// Opened returns the arguments Open was called with.
func (f *Fake) Opened() (method, url string, async bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.method, f.url, f.async
}

// Settings returns what the exchange was configured with.
func (f *Fake) Settings() (responseType string, timeout time.Duration, withCredentials bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responseType, f.timeout, f.withCredentials
}

var _ transport.Handle = (*Fake)(nil)
