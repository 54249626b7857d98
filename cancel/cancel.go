// Package cancel provides a cancellation signal that can be attached to a
// request before it is executed and fired later by the caller.
//
//	src := cancel.NewSource()
//	res := exec.Execute(ctx, xhr.Config{URL: u, CancelToken: src.Token()})
//	src.Cancel("user cancelled")
//	err := res.Err() // *cancel.Reason{Message: "user cancelled"}
package cancel

import (
	"errors"
	"sync"
)

// Reason is the value a Token carries once it has fired. It is returned
// as-is to whoever observes the cancellation.
type Reason struct {
	Message string
}

func (r *Reason) Error() string {
	if r.Message == "" {
		return "canceled"
	}
	return r.Message
}

// IsCancel reports whether err is, or wraps, a cancellation Reason.
func IsCancel(err error) bool {
	var r *Reason
	return errors.As(err, &r)
}

// Token is the read side of a cancellation signal. A Token fires at most
// once; there is no way to undo it.
type Token struct {
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	reason *Reason
	subs   map[uint64]func(*Reason)
	nextID uint64
}

func newToken() *Token {
	return &Token{
		done: make(chan struct{}),
		subs: make(map[uint64]func(*Reason)),
	}
}

// New returns a Token and hands its cancel func to executor, which may
// keep it and call it later.
func New(executor func(cancel func(message string))) *Token {
	t := newToken()
	executor(t.fire)
	return t
}

// Done returns a channel closed once the token fires.
func (t *Token) Done() <-chan struct{} { return t.done }

// Reason returns the cancellation reason, or nil if the token has not fired.
func (t *Token) Reason() *Reason {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Requested reports whether the token has fired.
func (t *Token) Requested() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Err returns the Reason as an error once fired, nil before.
func (t *Token) Err() error {
	if r := t.Reason(); r != nil {
		return r
	}
	return nil
}

// Subscribe registers fn to run when the token fires. If it already has,
// fn runs immediately on the calling goroutine. The returned func removes
// the subscription and is safe to call more than once.
func (t *Token) Subscribe(fn func(*Reason)) (unsubscribe func()) {
	t.mu.Lock()
	if t.reason != nil {
		r := t.reason
		t.mu.Unlock()
		fn(r)
		return func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *Token) fire(message string) {
	t.once.Do(func() {
		t.mu.Lock()
		t.reason = &Reason{Message: message}
		subs := make([]func(*Reason), 0, len(t.subs))
		for _, fn := range t.subs {
			subs = append(subs, fn)
		}
		clear(t.subs)
		r := t.reason
		t.mu.Unlock()

		close(t.done)

		for _, fn := range subs {
			fn(r)
		}
	})
}

// Source pairs a Token with the func that fires it.
type Source struct {
	token *Token
}

// NewSource returns a Source with a fresh Token.
func NewSource() *Source {
	return &Source{token: newToken()}
}

// Token returns the Token to attach to requests.
func (s *Source) Token() *Token { return s.token }

// Cancel fires the token with message. Only the first call has any effect.
func (s *Source) Cancel(message string) { s.token.fire(message) }
