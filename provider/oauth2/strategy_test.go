package oauth2_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prasad83/radiowave"
	"github.com/prasad83/radiowave/provider/oauth2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifyRequest struct {
	Method        string
	Authorization string
	ContentType   string
	Body          string
}

func newVerifyServer(t *testing.T, status int, payload map[string]any) (*httptest.Server, *verifyRequest, *int32) {
	t.Helper()
	seen := &verifyRequest{}
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		body, _ := io.ReadAll(r.Body)
		seen.Method = r.Method
		seen.Authorization = r.Header.Get("Authorization")
		seen.ContentType = r.Header.Get("Content-Type")
		seen.Body = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if payload != nil {
			_ = json.NewEncoder(w).Encode(payload)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, seen, &calls
}

func newStrategy(t *testing.T, cfg oauth2.Config) *oauth2.Strategy {
	t.Helper()
	s, err := oauth2.New(cfg)
	require.NoError(t, err)
	return s
}

func TestNewAppliesDefaults(t *testing.T) {
	s := newStrategy(t, oauth2.Config{URL: "https://auth.example.net/verify"})

	cfg := s.Config()
	assert.Equal(t, "application/json", cfg.ContentType)
	assert.Equal(t, "Bearer", cfg.TokenType)
	assert.Equal(t, "login", cfg.UIDTag)
	assert.Equal(t, "oauth2", s.Name())
	assert.True(t, s.Match("X-OAUTH2"))
	assert.False(t, s.Match("PLAIN"))
}

func TestNewRejectsInvalidURL(t *testing.T) {
	for _, u := range []string{"", "   ", "not a url", "/relative/path"} {
		_, err := oauth2.New(oauth2.Config{URL: u})
		require.Error(t, err, u)
		assert.True(t, radiowave.IsValidation(err), u)
	}
}

func TestVerifyTokenSendsContract(t *testing.T) {
	srv, seen, calls := newVerifyServer(t, http.StatusOK, map[string]any{"login": "romeo"})
	s := newStrategy(t, oauth2.Config{URL: srv.URL, ContentType: "application/x-www-form-urlencoded", TokenType: "token"})

	body, err := s.VerifyToken(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "romeo", body["login"])

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, http.MethodPost, seen.Method)
	assert.Equal(t, "token abc123", seen.Authorization)
	assert.Equal(t, "application/x-www-form-urlencoded", seen.ContentType)
	assert.Equal(t, "{}", seen.Body)
}

func TestVerifyTokenSendsTokenTypeVerbatim(t *testing.T) {
	for _, tokenType := range []string{"bearer", "mac", "Bearer"} {
		t.Run(tokenType, func(t *testing.T) {
			srv, seen, _ := newVerifyServer(t, http.StatusOK, map[string]any{"login": "romeo"})
			s := newStrategy(t, oauth2.Config{URL: srv.URL, TokenType: tokenType})

			_, err := s.VerifyToken(context.Background(), "abc123")
			require.NoError(t, err)
			assert.Equal(t, tokenType+" abc123", seen.Authorization)
		})
	}
}

func TestVerifyTokenFailsOnNon200WithoutRetry(t *testing.T) {
	srv, _, calls := newVerifyServer(t, http.StatusUnauthorized, map[string]any{"error": "invalid_token"})
	s := newStrategy(t, oauth2.DefaultConfig(srv.URL))

	_, err := s.VerifyToken(context.Background(), "abc123")
	require.Error(t, err)
	assert.True(t, radiowave.IsAuth(err))
	assert.Contains(t, err.Error(), "oauth authentication failed")
	assert.NotContains(t, err.Error(), "abc123")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestVerifyTokenFailsOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := newStrategy(t, oauth2.DefaultConfig(url))
	_, err := s.VerifyToken(context.Background(), "abc123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oauth authentication failed")
}

func TestVerifyTokenHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	cfg := oauth2.DefaultConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	s := newStrategy(t, cfg)

	_, err := s.VerifyToken(context.Background(), "abc123")
	require.Error(t, err)
	assert.True(t, radiowave.IsAuth(err))
}

func TestVerifyUser(t *testing.T) {
	s := newStrategy(t, oauth2.Config{URL: "https://auth.example.net/verify", UIDTag: "uid"})
	body := map[string]any{"uid": "romeo", "email": "romeo@example.net"}

	got, ok := s.VerifyUser("", body)
	assert.True(t, ok)
	assert.Equal(t, body, got)

	got, ok = s.VerifyUser("romeo", body)
	assert.True(t, ok)
	assert.Equal(t, body, got)

	_, ok = s.VerifyUser("juliet", body)
	assert.False(t, ok)

	_, ok = s.VerifyUser("romeo", map[string]any{"login": "romeo"})
	assert.False(t, ok)
}

func TestAuthenticateMatchingUser(t *testing.T) {
	srv, seen, _ := newVerifyServer(t, http.StatusOK, map[string]any{"login": "romeo", "name": "Romeo"})
	s := newStrategy(t, oauth2.DefaultConfig(srv.URL))

	opts := &radiowave.AuthOptions{JID: "romeo@example.net/orchard", Token: "abc123"}
	identity, err := s.Authenticate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "romeo", identity.Username)
	assert.Equal(t, "romeo@example.net/orchard", identity.JID)
	assert.Equal(t, "Romeo", identity.Claims["name"])
	assert.Equal(t, "Bearer abc123", seen.Authorization)
	assert.Empty(t, opts.Token)
	assert.Equal(t, "romeo", opts.Username)
}

func TestAuthenticateMismatchingUser(t *testing.T) {
	srv, _, _ := newVerifyServer(t, http.StatusOK, map[string]any{"login": "juliet"})
	s := newStrategy(t, oauth2.DefaultConfig(srv.URL))

	opts := &radiowave.AuthOptions{JID: "romeo@example.net", Token: "abc123"}
	_, err := s.Authenticate(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, oauth2.ErrCouldNotAuthenticate)
	assert.Empty(t, opts.Token)
}

func TestAuthenticateInvalidTokenSurfacesSameRejection(t *testing.T) {
	srv, _, _ := newVerifyServer(t, http.StatusForbidden, nil)
	s := newStrategy(t, oauth2.DefaultConfig(srv.URL))

	_, err := s.Authenticate(context.Background(), &radiowave.AuthOptions{JID: "romeo@example.net", Token: "abc123"})
	assert.ErrorIs(t, err, oauth2.ErrCouldNotAuthenticate)
}

func TestAuthenticateTokenOnlyAcceptsResponse(t *testing.T) {
	srv, _, _ := newVerifyServer(t, http.StatusOK, map[string]any{"login": "service-account"})
	s := newStrategy(t, oauth2.DefaultConfig(srv.URL))

	identity, err := s.Authenticate(context.Background(), &radiowave.AuthOptions{Token: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "service-account", identity.Username)
	assert.Equal(t, "service-account", identity.Claims["login"])
}

func TestAuthenticateUsesUsernameWithoutJID(t *testing.T) {
	srv, _, _ := newVerifyServer(t, http.StatusOK, map[string]any{"login": "romeo"})
	s := newStrategy(t, oauth2.DefaultConfig(srv.URL))

	_, err := s.Authenticate(context.Background(), &radiowave.AuthOptions{Username: "juliet", Token: "abc123"})
	assert.ErrorIs(t, err, oauth2.ErrCouldNotAuthenticate)

	identity, err := s.Authenticate(context.Background(), &radiowave.AuthOptions{Username: "romeo", Token: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "romeo", identity.Username)
}

func TestAuthenticateWithoutTokenSkipsEndpoint(t *testing.T) {
	srv, _, calls := newVerifyServer(t, http.StatusOK, map[string]any{"login": "romeo"})
	s := newStrategy(t, oauth2.DefaultConfig(srv.URL))

	_, err := s.Authenticate(context.Background(), &radiowave.AuthOptions{JID: "romeo@example.net"})
	assert.ErrorIs(t, err, oauth2.ErrCouldNotAuthenticate)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}
