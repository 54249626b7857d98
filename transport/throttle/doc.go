// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound HTTP requests per destination host using a token-bucket
// algorithm from [golang.org/x/time/rate].
//
// # Usage
//
// Wrap an existing transport with [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		10,  // requests per second, per host
//		5,   // burst capacity, per host
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
//
// Each host gets its own bucket. When a host's limit is exceeded,
// requests to it block until a token becomes available or the request
// context ends; requests to other hosts are unaffected.
package throttle
