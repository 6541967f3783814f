package port

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

const DefaultBaseURL = "https://api.port.io/v1"

// Doer abstracts the ability to execute HTTP requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials are the client id and secret exchanged for an access token.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Request describes a single call against the Port API.
type Request struct {
	Method string
	// Path is resolved against the client base URL unless it is absolute.
	Path  string
	Query url.Values
	// Token is sent as a bearer token when non-empty.
	Token string
	// Body is JSON encoded when non-nil.
	Body any
}

// Result represents a simplified HTTP response payload.
type Result struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Header     http.Header
}

// IsSuccess reports a 2xx status.
func (r *Result) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the response body into v. An empty body leaves v untouched.
func (r *Result) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", r.Method, r.URL, err)
	}
	return nil
}

// Client issues JSON requests against the Port API.
type Client struct {
	doer    Doer
	baseURL string
	headers http.Header
}

type Option func(*Client)

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if strings.TrimSpace(value) != "" {
			c.headers.Set(key, value)
		}
	}
}

// NewClient builds a client for baseURL. A nil doer falls back to http.DefaultClient.
func NewClient(baseURL string, doer Doer, opts ...Option) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		doer:    doer,
		baseURL: baseURL,
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client resolves paths against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes req and buffers the response. Non-2xx statuses are not errors at
// this level; callers map them onto AuthenticationError or RequestError.
func (c *Client) Do(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint, err := resolveEndpoint(c.baseURL, req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range c.headers {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", req.Method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Result{
		Method:     req.Method,
		URL:        endpoint,
		StatusCode: resp.StatusCode,
		Body:       data,
		Header:     resp.Header.Clone(),
	}, nil
}

func resolveEndpoint(baseURL, path string, query url.Values) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", fmt.Errorf("endpoint path cannot be empty")
	}

	endpoint := trimmedPath
	if !strings.HasPrefix(trimmedPath, "http://") && !strings.HasPrefix(trimmedPath, "https://") {
		if baseURL == "" {
			return "", fmt.Errorf("base URL cannot be empty")
		}
		endpoint = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(trimmedPath, "/")
	}

	if len(query) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + query.Encode()
	}
	return endpoint, nil
}
