package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

var ErrBodyTooLarge = errors.New("httpclient: response body too large")

// Client wraps *http.Client with the JSON helpers the service adapters share.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{HTTP: &http.Client{Timeout: timeout}}
	if strings.TrimSpace(baseURL) == "" {
		return c, nil
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	c.BaseURL = strings.TrimRight(baseURL, "/")
	return c, nil
}

// APIError is a non-2xx response. Code and Message come from the
// {"error": ..., "details": ...} body when the upstream sends one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("upstream error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("upstream error: status=%d code=%s", e.StatusCode, e.Code)
	case e.Body != "":
		return fmt.Sprintf("upstream error: status=%d body=%s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("upstream error: status=%d", e.StatusCode)
	}
}

// Transient reports whether a retry later could succeed.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// AsAPIError unwraps err into an *APIError if it carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Do sends a JSON request and returns the raw response body on 2xx.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, in any) ([]byte, error) {
	if c == nil || c.HTTP == nil {
		return nil, errors.New("httpclient: nil client")
	}

	fullURL, err := c.resolveURL(path)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("httpclient: marshal json: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: new request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: do request: %w", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	tooLarge := len(raw) > maxBodyBytes
	if tooLarge {
		raw = raw[:maxBodyBytes]
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, raw)
	}

	// A partial 2xx body must not be mistaken for an empty result.
	if readErr != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", readErr)
	}
	if tooLarge {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, maxBodyBytes)
	}

	return raw, nil
}

func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Body:       strings.TrimSpace(string(raw)),
	}

	var payload struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Details string `json:"details"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return apiErr
	}

	apiErr.Code = payload.Code
	if apiErr.Code == "" {
		apiErr.Code = payload.Error
	}
	apiErr.Message = payload.Details
	if apiErr.Message == "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}

func (c *Client) resolveURL(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("httpclient: empty url")
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}

	if c.BaseURL == "" {
		return "", errors.New("httpclient: relative path requires BaseURL")
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path, nil
}
