package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kong/portpurge/internal/port"
)

const AccessTokenPath = "/auth/access_token" // #nosec G101

type accessTokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
	TokenType   string `json:"tokenType,omitempty"`
}

var (
	ErrMissingCredentials = errors.New("client id and client secret are required")
	ErrMissingToken       = errors.New("access token not found in response")
)

// Authenticate exchanges client credentials for a bearer token. The token is
// only returned to the caller, it is never cached or written to disk.
func Authenticate(ctx context.Context, client *port.Client, creds port.Credentials) (string, error) {
	if strings.TrimSpace(creds.ClientID) == "" || strings.TrimSpace(creds.ClientSecret) == "" {
		return "", &port.AuthenticationError{Err: ErrMissingCredentials}
	}

	res, err := client.Do(ctx, port.Request{
		Method: http.MethodPost,
		Path:   AccessTokenPath,
		Body: accessTokenRequest{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
		},
	})
	if err != nil {
		return "", &port.AuthenticationError{Err: err}
	}
	if !res.IsSuccess() {
		return "", &port.AuthenticationError{StatusCode: res.StatusCode, Body: string(res.Body)}
	}

	var tokenResponse AccessTokenResponse
	if err := res.Decode(&tokenResponse); err != nil {
		return "", &port.AuthenticationError{StatusCode: res.StatusCode, Err: err}
	}
	if strings.TrimSpace(tokenResponse.AccessToken) == "" {
		return "", &port.AuthenticationError{StatusCode: res.StatusCode, Err: ErrMissingToken}
	}

	return tokenResponse.AccessToken, nil
}
