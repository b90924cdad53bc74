// Package httpclient provides the HTTP transport for tide.
//
// [NewClient] builds one shared client tuned for load generation. Its Timeout
// is the per-attempt bound and is never changed after construction.
//
// A [Getter] wraps that client and a fixed target URL and performs a single
// attempt per call:
//
//	client := httpclient.NewClient(10 * time.Second)
//	getter, err := httpclient.NewGetter(client, "https://example.com",
//		httpclient.WithTracePropagation(true))
//	status, err := getter.Do(ctx)
//
// Any HTTP response counts as received, so 4xx and 5xx statuses come back
// with a nil error. Timeouts, refused connections and DNS failures are
// returned as errors for the retry layer to handle.
package httpclient
