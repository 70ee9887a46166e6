package main

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/prasad83/radiowave"
)

const redacted = "********"

// Config is read from RADIOWAVE_* environment variables.
type Config struct {
	Dialect         string        `env:"RADIOWAVE_DB_DIALECT" envDefault:"sqlite" json:"dialect"`
	Host            string        `env:"RADIOWAVE_DB_HOST" envDefault:"localhost" json:"host"`
	Port            int           `env:"RADIOWAVE_DB_PORT" envDefault:"5432" json:"port"`
	Database        string        `env:"RADIOWAVE_DB_NAME" envDefault:"radiowave" json:"database"`
	User            string        `env:"RADIOWAVE_DB_USER" json:"user"`
	Password        string        `env:"RADIOWAVE_DB_PASSWORD" json:"password"`
	StoragePath     string        `env:"RADIOWAVE_DB_PATH" json:"storage_path"`
	MaxOpenConns    int           `env:"RADIOWAVE_DB_MAX_OPEN_CONNS" envDefault:"10" json:"max_open_conns"`
	MaxIdleConns    int           `env:"RADIOWAVE_DB_MAX_IDLE_CONNS" envDefault:"5" json:"max_idle_conns"`
	ConnMaxIdleTime time.Duration `env:"RADIOWAVE_DB_CONN_MAX_IDLE_TIME" envDefault:"5m" json:"conn_max_idle_time"`
	Debug           bool          `env:"RADIOWAVE_DEBUG" json:"debug"`

	// SimpleUsers registers PLAIN credentials as user:password pairs.
	SimpleUsers []string `env:"RADIOWAVE_SIMPLE_USERS" envSeparator:"," json:"simple_users"`

	OAuthURL         string        `env:"RADIOWAVE_OAUTH_URL" json:"oauth_url"`
	OAuthContentType string        `env:"RADIOWAVE_OAUTH_CONTENT_TYPE" envDefault:"application/json" json:"oauth_content_type"`
	OAuthTokenType   string        `env:"RADIOWAVE_OAUTH_TOKEN_TYPE" envDefault:"Bearer" json:"oauth_token_type"`
	OAuthUIDTag      string        `env:"RADIOWAVE_OAUTH_UID_TAG" envDefault:"login" json:"oauth_uid_tag"`
	OAuthTimeout     time.Duration `env:"RADIOWAVE_OAUTH_TIMEOUT" envDefault:"10s" json:"oauth_timeout"`

	RedisURL     string `env:"RADIOWAVE_REDIS_URL" json:"redis_url"`
	RedisChannel string `env:"RADIOWAVE_REDIS_CHANNEL" envDefault:"radiowave.events" json:"redis_channel"`

	EventBuffer int `env:"RADIOWAVE_EVENT_BUFFER" envDefault:"64" json:"event_buffer"`
}

var _ radiowave.StorageConfig = Config{}

// LoadConfig loads the given dotenv files, when present, and parses the
// environment. Files listed first win, and real environment variables
// win over all of them.
func LoadConfig(files ...string) (*Config, error) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to load env file").
				WithMetadata(map[string]any{"file": f})
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to parse environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Dialect,
			validation.Required,
			validation.In(radiowave.DialectSQLite, radiowave.DialectPostgres),
		),
		validation.Field(&c.Port, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.MaxOpenConns, validation.Min(0)),
		validation.Field(&c.MaxIdleConns, validation.Min(0)),
		validation.Field(&c.EventBuffer, validation.Min(0)),
		validation.Field(&c.OAuthURL, is.URL),
		validation.Field(&c.RedisURL, is.RequestURL),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration").
			WithCode(goerrors.CodeBadRequest)
	}

	if c.Dialect == radiowave.DialectPostgres && c.Database == "" {
		return goerrors.New("postgres requires a database name", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if _, err := c.SimpleCredentials(); err != nil {
		return err
	}
	return nil
}

// SimpleCredentials splits SimpleUsers into a username to password map.
func (c Config) SimpleCredentials() (map[string]string, error) {
	out := make(map[string]string, len(c.SimpleUsers))
	for _, entry := range c.SimpleUsers {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, pass, ok := strings.Cut(entry, ":")
		if !ok || user == "" {
			return nil, goerrors.New("simple users must be user:password pairs", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithMetadata(map[string]any{"username": user})
		}
		out[user] = pass
	}
	return out, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = redacted
	}

	users := make([]string, 0, len(c.SimpleUsers))
	for _, entry := range c.SimpleUsers {
		user, _, _ := strings.Cut(strings.TrimSpace(entry), ":")
		users = append(users, user+":"+redacted)
	}
	c.SimpleUsers = users

	if u, err := url.Parse(c.RedisURL); err == nil && u.User != nil {
		c.RedisURL = u.Redacted()
	}
	return c
}

func (c Config) GetDialect() string                { return c.Dialect }
func (c Config) GetHost() string                   { return c.Host }
func (c Config) GetPort() int                      { return c.Port }
func (c Config) GetDatabase() string               { return c.Database }
func (c Config) GetUser() string                   { return c.User }
func (c Config) GetPassword() string               { return c.Password }
func (c Config) GetStoragePath() string            { return c.StoragePath }
func (c Config) GetMaxOpenConns() int              { return c.MaxOpenConns }
func (c Config) GetMaxIdleConns() int              { return c.MaxIdleConns }
func (c Config) GetConnMaxIdleTime() time.Duration { return c.ConnMaxIdleTime }
func (c Config) GetDebug() bool                    { return c.Debug }
