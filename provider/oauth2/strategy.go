package oauth2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/prasad83/radiowave"
	xoauth2 "golang.org/x/oauth2"
)

const (
	Name   = "oauth2"
	Method = "X-OAUTH2"
)

// ErrTokenRejected is returned by VerifyToken on a transport error or a
// non 200 response.
var ErrTokenRejected = goerrors.New("oauth authentication failed", goerrors.CategoryAuth).
	WithTextCode(radiowave.TextCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrCouldNotAuthenticate is the rejection Authenticate surfaces for both
// an invalid token and a token that belongs to another user.
var ErrCouldNotAuthenticate = goerrors.New("could not authenticate user", goerrors.CategoryAuth).
	WithTextCode(radiowave.TextCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// Strategy verifies bearer tokens against a remote endpoint.
type Strategy struct {
	config Config
	client *http.Client
	logger radiowave.Logger
}

var _ radiowave.Strategy = (*Strategy)(nil)

// New validates cfg and fills in the header defaults.
func New(cfg Config) (*Strategy, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Strategy{
		config: cfg,
		client: client,
		logger: radiowave.DefaultLogger(),
	}, nil
}

// WithLogger overrides the logger.
func (s *Strategy) WithLogger(logger radiowave.Logger) *Strategy {
	if logger == nil {
		logger = radiowave.DefaultLogger()
	}
	s.logger = logger
	return s
}

// Config returns the effective configuration
func (s *Strategy) Config() Config {
	return s.config
}

func (s *Strategy) Name() string {
	return Name
}

func (s *Strategy) Match(method string) bool {
	return method == Method
}

// Authenticate derives the username from the jid local part, or from
// opts.Username when no jid is given, and verifies opts.Token for it.
func (s *Strategy) Authenticate(ctx context.Context, opts *radiowave.AuthOptions) (*radiowave.Identity, error) {
	if opts == nil {
		return nil, radiowave.ErrMissingData
	}

	token := &xoauth2.Token{AccessToken: opts.Token, TokenType: s.config.TokenType}
	opts.StripCredentials()

	username := opts.Username
	if opts.JID != "" {
		local, err := radiowave.LocalPart(opts.JID)
		if err != nil {
			s.logger.Debug("oauth2 rejected jid", "jid", opts.JID, "error", err)
			return nil, ErrCouldNotAuthenticate
		}
		username = local
	}
	opts.Username = username

	if !token.Valid() {
		s.logger.Debug("oauth2 token missing", "username", username)
		return nil, ErrCouldNotAuthenticate
	}

	body, err := s.VerifyToken(ctx, token.AccessToken)
	if err != nil {
		s.logger.Info("oauth2 token verification failed", "username", username, "error", err)
		return nil, ErrCouldNotAuthenticate
	}

	claims, ok := s.VerifyUser(username, body)
	if !ok {
		s.logger.Info("oauth2 token does not match user", "username", username)
		return nil, ErrCouldNotAuthenticate
	}

	identity := &radiowave.Identity{
		JID:      opts.JID,
		Username: username,
		Claims:   claims,
	}
	if identity.Username == "" {
		if uid, ok := claims[s.config.UIDTag].(string); ok {
			identity.Username = uid
		}
	}

	s.logger.Debug("oauth2 token accepted", "username", identity.Username)
	return identity, nil
}

// VerifyToken POSTs an empty JSON object to the verification endpoint with
// "<TokenType> <token>" in the Authorization header, the token type sent
// exactly as configured, and decodes the JSON response. There is no retry.
func (s *Strategy) VerifyToken(ctx context.Context, token string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, tokenRejected(err)
	}
	req.Header.Set("Content-Type", s.config.ContentType)
	req.Header.Set("Authorization", s.config.TokenType+" "+token)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, tokenRejected(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, tokenRejected(fmt.Errorf("verification endpoint returned %d", res.StatusCode))
	}

	body := map[string]any{}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, tokenRejected(err)
	}

	return body, nil
}

// VerifyUser accepts body unconditionally when username is empty, which is
// the token only flow used by API clients. Otherwise body[UIDTag] must
// equal username.
func (s *Strategy) VerifyUser(username string, body map[string]any) (map[string]any, bool) {
	if body == nil {
		return nil, false
	}
	if username == "" {
		return body, true
	}
	uid, ok := body[s.config.UIDTag].(string)
	if !ok || uid != username {
		return nil, false
	}
	return body, true
}

func tokenRejected(cause error) error {
	clone := ErrTokenRejected.Clone()
	clone.Source = cause
	return clone
}
