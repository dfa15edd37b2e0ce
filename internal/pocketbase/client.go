// Package pocketbase talks to a local PocketBase server: readiness
// checks, admin and user seeding over its REST API, and installing the
// version-pinned binary.
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
)

// ErrNotReady means the server never answered its health endpoint
// within the wait budget.
var ErrNotReady = errors.New("server not ready")

// Client wraps one environment's PocketBase HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL (e.g. http://127.0.0.1:8090).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Health checks the server's health endpoint once.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}

// WaitReady polls the health endpoint at one-second intervals until it
// answers or timeout elapses.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		if err := c.Health(ctx); err == nil {
			return nil
		} else if ctx.Err() != nil {
			return ctx.Err()
		} else {
			log.Debug("Health check failed", "url", c.baseURL, "attempt", attempt, "error", err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrNotReady, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

type adminParams struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// CreateAdmin creates the admin account. An admin that already exists
// (or an instance that refuses unauthenticated creation because one
// does) is treated as success.
func (c *Client) CreateAdmin(ctx context.Context, email, password string) error {
	status, body, err := c.postJSON(ctx, "/api/admins", "", adminParams{
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	})
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// An admin already exists; creation now requires auth.
		log.Debug("Admin already present", "email", email)
		return nil
	case gjson.GetBytes(body, "data.email.code").String() == "validation_not_unique":
		return nil
	default:
		return apiError("create admin", status, body)
	}
}

type authParams struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

// AuthAdmin exchanges admin credentials for an API token.
func (c *Client) AuthAdmin(ctx context.Context, email, password string) (string, error) {
	status, body, err := c.postJSON(ctx, "/api/admins/auth-with-password", "", authParams{
		Identity: email,
		Password: password,
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", apiError("admin auth", status, body)
	}
	token := gjson.GetBytes(body, "token").String()
	if token == "" {
		return "", fmt.Errorf("admin auth: no token in response")
	}
	return token, nil
}

// User is one record in the users collection.
type User struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name,omitempty"`
}

// CreateUser creates a record in the users collection. A user that
// already exists is treated as success.
func (c *Client) CreateUser(ctx context.Context, token string, user User) error {
	status, body, err := c.postJSON(ctx, "/api/collections/users/records", token, user)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	if gjson.GetBytes(body, "data.email.code").String() == "validation_not_unique" {
		log.Debug("User already present", "email", user.Email)
		return nil
	}
	return apiError("create user "+user.Email, status, body)
}

func (c *Client) postJSON(ctx context.Context, path, token string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func apiError(op string, status int, body []byte) error {
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("%s: %s (status %d)", op, msg, status)
}
