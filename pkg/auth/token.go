package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TokenSource returns the bearer token to send with a call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken is a fixed token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrMissingToken
	}
	return string(s), nil
}

// FileToken reads the token from a file on every call, so rotated tokens are
// picked up without restarting.
type FileToken string

// Token implements TokenSource.
func (f FileToken) Token(context.Context) (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// AccessToken adapts src to the runtime's access token callback. The name and
// scopes arguments are ignored.
func AccessToken(src TokenSource) func(ctx context.Context, name string, scopes []string) (string, error) {
	return func(ctx context.Context, _ string, _ []string) (string, error) {
		return src.Token(ctx)
	}
}
