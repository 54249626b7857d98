package throttle

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestNewRoundTripper_Validation(t *testing.T) {
	testCases := map[string]struct {
		rps    int
		burst  int
		expErr error
	}{
		"zeroRPS":       {rps: 0, burst: 10, expErr: ErrMustNotBeZero},
		"negativeRPS":   {rps: -5, burst: 10, expErr: ErrMustNotBeZero},
		"zeroBurst":     {rps: 10, burst: 0, expErr: ErrMustNotBeZero},
		"negativeBurst": {rps: 10, burst: -5, expErr: ErrMustNotBeZero},
		"valid":         {rps: 10, burst: 20},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			rt, err := NewRoundTripper(tc.rps, tc.burst, func() *slog.Logger { return nil }, http.DefaultTransport)

			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Errorf("exp err %v; got: %v", tc.expErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("exp nil err, got: %v", err)
			}
			if rt == nil {
				t.Error("exp non-nil RoundTripper")
			}
		})
	}
}

func TestThrottle_PerHostBuckets(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	hostA := httptest.NewServer(handler)
	defer hostA.Close()
	hostB := httptest.NewServer(handler)
	defer hostB.Close()

	rt, err := NewRoundTripper(1, 1, func() *slog.Logger { return nil }, http.DefaultTransport)
	if err != nil {
		t.Fatalf("creating round tripper: %v", err)
	}
	hc := &http.Client{Transport: rt}

	get := func(t *testing.T, url string) time.Duration {
		t.Helper()

		start := time.Now()
		resp, err := hc.Get(url)
		if err != nil {
			t.Fatalf("get %s: %v", url, err)
		}
		resp.Body.Close()
		return time.Since(start)
	}

	// Each host spends its single burst token without waiting.
	if d := get(t, hostA.URL); d > 200*time.Millisecond {
		t.Errorf("first request to host A took %v, expected no wait", d)
	}
	if d := get(t, hostB.URL); d > 200*time.Millisecond {
		t.Errorf("first request to host B took %v, expected no wait", d)
	}

	// A second request to host A has to wait for a refill.
	if d := get(t, hostA.URL); d < 500*time.Millisecond {
		t.Errorf("second request to host A took %v, expected to be throttled", d)
	}
}

func TestThrottle_ContextEnded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	rt, err := NewRoundTripper(1, 1, func() *slog.Logger { return slog.Default() }, http.DefaultTransport)
	if err != nil {
		t.Fatalf("creating round tripper: %v", err)
	}

	t.Run("early", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
		_, err := rt.RoundTrip(req)
		if !errors.Is(err, ErrContextEnded) {
			t.Fatalf("exp ErrContextEnded, got: %v", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("exp context.Canceled, got: %v", err)
		}
	})

	t.Run("whileWaiting", func(t *testing.T) {
		req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.URL, nil)
		resp, err := rt.RoundTrip(req)
		if err != nil {
			t.Fatalf("first request: %v", err)
		}
		resp.Body.Close()

		ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
		defer cancel()

		req, _ = http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
		_, err = rt.RoundTrip(req)
		if !errors.Is(err, ErrWaitingFailed) {
			t.Fatalf("exp ErrWaitingFailed, got: %v", err)
		}
	})
}

func TestThrottle_ConcurrentHosts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	rt, err := NewRoundTripper(100, 10, func() *slog.Logger { return nil }, http.DefaultTransport)
	if err != nil {
		t.Fatalf("creating round tripper: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Go(func() {
			req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.URL, nil)
			resp, err := rt.RoundTrip(req)
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestThrottle_EvictsIdleHosts(t *testing.T) {
	rt, err := NewRoundTripper(1, 1, func() *slog.Logger { return nil }, http.DefaultTransport)
	if err != nil {
		t.Fatalf("creating round tripper: %v", err)
	}
	thr := rt.(*throttle)
	thr.maxHosts = 2

	busy := thr.limiter("busy.example")
	if !busy.Allow() {
		t.Fatal("fresh limiter refused a request")
	}
	thr.limiter("idle.example")

	// Reaching the bound sweeps hosts whose bucket is full again.
	thr.limiter("new.example")

	thr.mu.Lock()
	defer thr.mu.Unlock()

	if _, ok := thr.limiters["idle.example"]; ok {
		t.Error("idle host was not evicted")
	}
	if got := thr.limiters["busy.example"]; got != busy {
		t.Error("busy host lost its limiter")
	}
	if _, ok := thr.limiters["new.example"]; !ok {
		t.Error("new host has no limiter")
	}
	if len(thr.limiters) != 2 {
		t.Errorf("limiters = %d, want 2", len(thr.limiters))
	}
}
