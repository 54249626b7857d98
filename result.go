package xhr

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// Result is the pending outcome of one exchange. It settles exactly once,
// either with a *Response or an error.
type Result struct {
	id      uuid.UUID
	settled atomic.Bool
	done    chan struct{}
	resp    *Response
	err     error
}

func newResult() *Result {
	return &Result{
		id:   uuid.New(),
		done: make(chan struct{}),
	}
}

// ID identifies the exchange in logs and traces.
func (r *Result) ID() uuid.UUID { return r.id }

// Done returns a channel that is closed once the result settles.
func (r *Result) Done() <-chan struct{} { return r.done }

// Response blocks until the result settles.
func (r *Result) Response() (*Response, error) {
	<-r.done
	return r.resp, r.err
}

// Err blocks until the result settles and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Wait is like Response but gives up when ctx ends. Giving up does not
// cancel the exchange.
func (r *Result) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-r.done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Result) resolve(resp *Response) bool {
	return r.settle(resp, nil)
}

func (r *Result) reject(err error) bool {
	return r.settle(nil, err)
}

// settle records the outcome if nothing has yet. Later calls are no-ops.
func (r *Result) settle(resp *Response, err error) bool {
	if !r.settled.CompareAndSwap(false, true) {
		return false
	}

	r.resp, r.err = resp, err
	close(r.done)

	return true
}
