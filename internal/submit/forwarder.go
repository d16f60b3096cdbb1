// Package submit forwards a completed contract form to the backend endpoint
// as one standard form POST.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Receipt describes the backend's answer to a successful submission.
type Receipt struct {
	Status   int    `json:"status"`
	Location string `json:"location,omitempty"`
}

// BackendError is returned when the backend answers with a non-2xx status.
type BackendError struct {
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
}

// ErrNoBackend is returned when no backend URL is configured.
var ErrNoBackend = errors.New("no backend configured")

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// Forwarder posts the form to a fixed URL.
type Forwarder struct {
	url    string
	client *http.Client
}

// NewForwarder returns a Forwarder for endpoint with the given timeout.
func NewForwarder(endpoint string, timeout time.Duration) *Forwarder {
	return &Forwarder{
		url:    endpoint,
		client: &http.Client{Timeout: timeout},
	}
}

// WithClient replaces the HTTP client, keeping the endpoint.
func (f *Forwarder) WithClient(c *http.Client) *Forwarder {
	return &Forwarder{url: f.url, client: c}
}

// Submit sends form as application/x-www-form-urlencoded. The payload is
// not reshaped. Cancelling ctx aborts the request.
func (f *Forwarder) Submit(ctx context.Context, form url.Values) (Receipt, error) {
	if f.url == "" {
		return Receipt{}, ErrNoBackend
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, strings.NewReader(form.Encode()))
	if err != nil {
		return Receipt{}, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := f.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("submit contract: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Receipt{}, &BackendError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return Receipt{Status: resp.StatusCode, Location: resp.Header.Get("Location")}, nil
}
