package retry

import (
	"context"
	"net/http"
)

// Transport is an http.RoundTripper that retries retryable statuses.
// Requests with a body are replayed through GetBody; requests whose body
// cannot be replayed are sent once.
type Transport struct {
	Base   http.RoundTripper
	Policy Policy
}

// NewClient returns an HTTP client whose requests are retried by policy.
func NewClient(p Policy, base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &Transport{Base: base, Policy: p}}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return base.RoundTrip(req)
	}

	first := true
	return Execute(req.Context(), t.Policy, func(ctx context.Context) (*http.Response, error) {
		attempt := req
		if !first {
			attempt = req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				attempt.Body = body
			}
		}
		first = false
		return base.RoundTrip(attempt)
	})
}
