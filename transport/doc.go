// Package transport provides the callback-based exchange primitive that
// the xhr executor drives, along with a [net/http] implementation.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := transport.Build(
//		transport.WithUserAgent("myapp/1.0"),
//		transport.WithThrottle(10, 5),
//	)
//
// # Driving an Exchange
//
// A [Handle] mirrors the browser XMLHttpRequest surface. Open it, register
// callbacks, then Send. Events fire serially on a goroutine owned by the
// exchange:
//
//	h := c.NewHandle()
//	if err := h.Open(http.MethodGet, "https://api.example.com/v1", true); err != nil { ... }
//	h.OnReadyStateChange(func() {
//		if h.ReadyState() == transport.Done && h.Status() != 0 {
//			fmt.Println(h.Status(), h.ResponseText())
//		}
//	})
//	h.OnError(func(err error) { ... })
//	err = h.Send(nil)
//
// An aborted, failed or timed out exchange reaches [Done] with a status of
// 0 before its error or timeout callback fires.
//
// # Request Bodies
//
// Send accepts nil, string, []byte, [url.Values], [io.Reader] and
// *[FormData]. Strings, url.Values and FormData set a default Content-Type
// unless the caller already set one. Bodies reported by [IsEmptyBody] are
// sent as no body at all.
//
// With an upload progress callback, bodies that net/http can replay are
// still replayed when following a 307 or 308 redirect.
package transport
