package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kong/portpurge/internal/log"
)

const (
	DefaultTimeout = 60 * time.Second
	maxLoggedBody  = 1000
)

// LoggingHTTPClient wraps an HTTP client to add trace logging
type LoggingHTTPClient struct {
	wrapped *http.Client
	logger  *slog.Logger
}

// NewLoggingHTTPClient creates a logging client with its own http.Client.
// A non-positive timeout falls back to DefaultTimeout.
func NewLoggingHTTPClient(logger *slog.Logger, timeout time.Duration) *LoggingHTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewLoggingHTTPClientWithClient(&http.Client{Timeout: timeout}, logger)
}

// NewLoggingHTTPClientWithClient wraps an existing HTTP client
func NewLoggingHTTPClientWithClient(client *http.Client, logger *slog.Logger) *LoggingHTTPClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LoggingHTTPClient{
		wrapped: client,
		logger:  logger,
	}
}

// Do implements port.Doer with logging
func (c *LoggingHTTPClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if !c.logger.Enabled(ctx, log.LevelTrace) {
		return c.wrapped.Do(req)
	}

	start := time.Now()
	c.logRequest(req)

	resp, err := c.wrapped.Do(req)

	duration := time.Since(start)
	if err != nil {
		attrs := append(log.HTTPLogContextAttrs(ctx),
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		c.logger.LogAttrs(ctx, log.LevelTrace, "HTTP request failed", attrs...)
		return nil, err
	}

	c.logResponse(req, resp, duration)
	return resp, nil
}

func (c *LoggingHTTPClient) logRequest(req *http.Request) {
	attrs := append(log.HTTPLogContextAttrs(req.Context()),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Any("headers", redactHeaders(req.Header, isSensitiveRequestHeader)),
	)
	if req.ContentLength > 0 {
		attrs = append(attrs, slog.Int64("content_length", req.ContentLength))
	}
	c.logger.LogAttrs(req.Context(), log.LevelTrace, "HTTP request", attrs...)
}

func (c *LoggingHTTPClient) logResponse(req *http.Request, resp *http.Response, duration time.Duration) {
	attrs := append(log.HTTPLogContextAttrs(req.Context()),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
		slog.Any("headers", redactHeaders(resp.Header, isSensitiveResponseHeader)),
	)
	if resp.ContentLength > 0 {
		attrs = append(attrs, slog.Int64("content_length", resp.ContentLength))
	}

	if resp.StatusCode >= 400 {
		if body, err := peekResponseBody(resp); err == nil && body != "" {
			if len(body) > maxLoggedBody {
				body = fmt.Sprintf("%s... [truncated, total %d bytes]", body[:maxLoggedBody], len(body))
			}
			attrs = append(attrs, slog.String("error_body", body))
		}
	}

	c.logger.LogAttrs(req.Context(), log.LevelTrace, "HTTP response", attrs...)
}

// peekResponseBody reads the response body and puts an identical reader back.
func peekResponseBody(resp *http.Response) (string, error) {
	if resp.Body == nil {
		return "", nil
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	return string(bodyBytes), nil
}

func redactHeaders(h http.Header, sensitive func(string) bool) map[string]string {
	headers := make(map[string]string, len(h))
	for k, v := range h {
		if sensitive(strings.ToLower(k)) {
			headers[k] = "[REDACTED]"
			continue
		}
		headers[k] = strings.Join(v, ", ")
	}
	return headers
}

func isSensitiveRequestHeader(key string) bool {
	return key == "authorization" || key == "x-api-key" || strings.Contains(key, "token")
}

func isSensitiveResponseHeader(key string) bool {
	return key == "set-cookie" || strings.Contains(key, "token")
}
