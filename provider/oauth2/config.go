package oauth2

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	DefaultContentType = "application/json"
	DefaultTokenType   = "Bearer"
	DefaultUIDTag      = "login"
)

// Config holds the verification endpoint settings.
type Config struct {
	// URL is the verification endpoint the token is POSTed to.
	URL string

	// ContentType is sent as the request Content-Type.
	// Default: "application/json".
	ContentType string

	// TokenType prefixes the token in the Authorization header.
	// Default: "Bearer".
	TokenType string

	// UIDTag names the response field compared against the username.
	// Default: "login".
	UIDTag string

	// Timeout bounds a single verification call when set. Zero leaves
	// cancellation to the caller's context.
	Timeout time.Duration

	// Client overrides the HTTP client (optional).
	Client *http.Client
}

// DefaultConfig returns a Config for url with the default header values.
func DefaultConfig(url string) Config {
	return Config{
		URL:         url,
		ContentType: DefaultContentType,
		TokenType:   DefaultTokenType,
		UIDTag:      DefaultUIDTag,
	}
}

func (c Config) withDefaults() Config {
	c.URL = strings.TrimSpace(c.URL)
	if c.ContentType == "" {
		c.ContentType = DefaultContentType
	}
	if c.TokenType == "" {
		c.TokenType = DefaultTokenType
	}
	if c.UIDTag == "" {
		c.UIDTag = DefaultUIDTag
	}
	return c
}

func (c Config) validate() error {
	if c.URL == "" {
		return goerrors.New("oauth2: verification url is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "oauth2: invalid verification url").
			WithCode(goerrors.CodeBadRequest)
	}
	if u.Scheme == "" || u.Host == "" {
		return goerrors.New("oauth2: invalid verification url", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"url": c.URL})
	}
	return nil
}
