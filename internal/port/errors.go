package port

import (
	"errors"
	"fmt"
	"strings"
)

const maxErrorBody = 512

// AuthenticationError is returned when credentials cannot be exchanged for an
// access token: the auth call failed, or the response carried no token.
type AuthenticationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthenticationError) Error() string {
	msg := "authentication failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s with status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	if body := trimBody(e.Body); body != "" {
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Attrs returns slog key/value pairs describing the failure.
func (e *AuthenticationError) Attrs() []any {
	attrs := []any{
		"operation", "authenticate",
		"suggestion", "verify the client id and client secret of your Port organization",
	}
	if e.StatusCode != 0 {
		attrs = append(attrs, "status", e.StatusCode)
	}
	return attrs
}

// RequestError is returned for any non-2xx response from an API call made
// after authentication.
type RequestError struct {
	// Operation names the step that failed, e.g. "search entities".
	Operation  string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func newRequestError(operation string, res *Result) *RequestError {
	return &RequestError{
		Operation:  operation,
		Method:     res.Method,
		URL:        res.URL,
		StatusCode: res.StatusCode,
		Body:       string(res.Body),
	}
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s failed: %s %s returned status %d", e.Operation, e.Method, e.URL, e.StatusCode)
	if body := trimBody(e.Body); body != "" {
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	return msg
}

// Attrs returns slog key/value pairs describing the failure.
func (e *RequestError) Attrs() []any {
	attrs := []any{
		"operation", e.Operation,
		"status", e.StatusCode,
		"method", e.Method,
		"url", e.URL,
	}
	if body := trimBody(e.Body); body != "" {
		attrs = append(attrs, "response", body)
	}
	return attrs
}

// StatusCode extracts the HTTP status from an AuthenticationError or
// RequestError anywhere in err's chain. Zero means no status is known.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}
	return 0
}

func trimBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBody {
		return fmt.Sprintf("%s... [truncated, total %d bytes]", body[:maxErrorBody], len(body))
	}
	return body
}
