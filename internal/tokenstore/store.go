package tokenstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no token is stored.
var ErrNotFound = errors.New("token not found")

// Store holds the single access token for the agent.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}
