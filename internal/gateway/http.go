package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

const maxErrorBody = 2048

// NewHTTPClient returns an HTTP client whose calls show up as external
// segments on the New Relic transaction carried by the request context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newrelic.NewRoundTripper(nil),
	}
}

// doJSON sends req and decodes a 2xx JSON response into out.
// It returns the raw response body alongside any error.
func doJSON(client *http.Client, req *http.Request, provider, op string, out any) (json.RawMessage, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Provider: provider, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: provider, Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &Error{Provider: provider, Op: op, StatusCode: resp.StatusCode, Body: truncate(body)}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return body, &Error{Provider: provider, Op: op, StatusCode: resp.StatusCode, Body: truncate(body), Err: err}
		}
	}

	return body, nil
}

func newJSONRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
