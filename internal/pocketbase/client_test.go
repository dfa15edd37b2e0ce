package pocketbase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePocketBase emulates the slices of the PocketBase API the seeder
// touches.
type fakePocketBase struct {
	healthy    bool
	admins     map[string]string
	users      map[string]bool
	adminToken string
}

func newFakePocketBase() *fakePocketBase {
	return &fakePocketBase{
		healthy:    true,
		admins:     map[string]string{},
		users:      map[string]bool{},
		adminToken: "test-token-abc123",
	}
}

func (f *fakePocketBase) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if !f.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"code":200,"message":"API is healthy."}`))
	})
	mux.HandleFunc("/api/admins", func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&params)
		if len(f.admins) > 0 {
			// Once an admin exists, creation requires auth.
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":401,"message":"The request requires admin authorization token to be set."}`))
			return
		}
		f.admins[params.Email] = params.Password
		w.Write([]byte(`{"id":"admin1","email":"` + params.Email + `"}`))
	})
	mux.HandleFunc("/api/admins/auth-with-password", func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Identity string `json:"identity"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&params)
		if f.admins[params.Identity] != params.Password {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":400,"message":"Failed to authenticate."}`))
			return
		}
		w.Write([]byte(`{"token":"` + f.adminToken + `","admin":{"id":"admin1"}}`))
	})
	mux.HandleFunc("/api/collections/users/records", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != f.adminToken {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"code":403,"message":"Only admins can perform this action."}`))
			return
		}
		var user User
		json.NewDecoder(r.Body).Decode(&user)
		if f.users[user.Email] {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":400,"message":"Failed to create record.","data":{"email":{"code":"validation_not_unique","message":"Value must be unique."}}}`))
			return
		}
		f.users[user.Email] = true
		w.Write([]byte(`{"id":"rec1","email":"` + user.Email + `"}`))
	})
	return mux
}

func TestHealth(t *testing.T) {
	fake := newFakePocketBase()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := NewClient(server.URL)
	assert.NoError(t, client.Health(context.Background()))

	fake.healthy = false
	assert.Error(t, client.Health(context.Background()))
}

func TestWaitReady(t *testing.T) {
	fake := newFakePocketBase()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := NewClient(server.URL)
	assert.NoError(t, client.WaitReady(context.Background(), 5*time.Second))
}

func TestWaitReadyTimeout(t *testing.T) {
	// Nothing listens here; the loop must give up, not hang.
	client := NewClient("http://127.0.0.1:1")

	start := time.Now()
	err := client.WaitReady(context.Background(), 1*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestWaitReadyCancelled(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := client.WaitReady(ctx, 30*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateAdmin(t *testing.T) {
	fake := newFakePocketBase()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	require.NoError(t, client.CreateAdmin(ctx, "admin@example.com", "changeme123"))
	assert.Equal(t, "changeme123", fake.admins["admin@example.com"])

	// Second create hits the auth-required path and is a no-op success.
	require.NoError(t, client.CreateAdmin(ctx, "admin@example.com", "changeme123"))
	assert.Len(t, fake.admins, 1)
}

func TestAuthAdmin(t *testing.T) {
	fake := newFakePocketBase()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()
	require.NoError(t, client.CreateAdmin(ctx, "admin@example.com", "changeme123"))

	token, err := client.AuthAdmin(ctx, "admin@example.com", "changeme123")
	require.NoError(t, err)
	assert.Equal(t, fake.adminToken, token)

	_, err = client.AuthAdmin(ctx, "admin@example.com", "wrong-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to authenticate")
}

func TestCreateUser(t *testing.T) {
	fake := newFakePocketBase()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()
	require.NoError(t, client.CreateAdmin(ctx, "admin@example.com", "changeme123"))
	token, err := client.AuthAdmin(ctx, "admin@example.com", "changeme123")
	require.NoError(t, err)

	user := User{Email: "alice@example.com", Password: "hunter22aa", PasswordConfirm: "hunter22aa", Name: "Alice"}
	require.NoError(t, client.CreateUser(ctx, token, user))
	assert.True(t, fake.users["alice@example.com"])

	// Duplicate create is a no-op success.
	require.NoError(t, client.CreateUser(ctx, token, user))

	// A bad token is a hard error.
	err = client.CreateUser(ctx, "bogus", user)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
