package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"agent-fleettrack/internal/tokenstore"
)

var (
	// ErrMalformedResponse marks server payloads missing required fields.
	ErrMalformedResponse = errors.New("malformed server response")

	ErrUnauthorized = errors.New("invalid credentials")
)

// Client talks to the external authentication API and keeps the single
// access token in the secure store.
type Client struct {
	baseURL string
	tokens  tokenstore.Store
}

func NewClient(baseURL string, tokens tokenstore.Store) *Client {
	return &Client{baseURL: baseURL, tokens: tokens}
}

// Login exchanges credentials for an access token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) error {
	agent := fiber.Post(c.baseURL + "/v1/user/login")
	agent.JSON(LoginRequest{Email: email, Password: password})
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("login request: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("login request: %w", errs[0])
	}
	if code == fiber.StatusUnauthorized || code == fiber.StatusForbidden {
		return ErrUnauthorized
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("login failed with status %d", code)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data.AccessToken == "" {
		return ErrMalformedResponse
	}
	return c.tokens.Set(ctx, resp.Data.AccessToken)
}

// Me fetches the authenticated user record.
func (c *Client) Me(ctx context.Context) (User, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return User{}, err
	}

	agent := fiber.Get(c.baseURL + "/v1/user/me")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	if err := agent.Parse(); err != nil {
		return User{}, fmt.Errorf("me request: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return User{}, fmt.Errorf("me request: %w", errs[0])
	}
	if code == fiber.StatusUnauthorized {
		return User{}, ErrUnauthorized
	}
	if code < 200 || code >= 300 {
		return User{}, fmt.Errorf("me failed with status %d", code)
	}

	var resp meResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data.ID == "" || resp.Data.Email == "" {
		return User{}, ErrMalformedResponse
	}
	return resp.Data, nil
}

// Logout drops the stored token.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Delete(ctx)
}

// TokenExpired inspects the exp claim without verifying the signature.
// Signature verification happens server side.
func TokenExpired(raw string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
