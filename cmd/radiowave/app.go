package main

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/prasad83/radiowave"
	"github.com/prasad83/radiowave/eventsink/redissink"
	"github.com/prasad83/radiowave/provider/oauth2"
	"github.com/prasad83/radiowave/provider/simple"
	"github.com/prasad83/radiowave/repository"
	"github.com/prasad83/radiowave/roster"
)

// App owns every long lived component of the server.
type App struct {
	config  *Config
	logger  *glog.BaseLogger
	storage *radiowave.Storage
	repos   repository.Manager
	bus     *radiowave.EventBus
	redis   *redissink.Sink
	events  radiowave.EventSink
	auth    *radiowave.Dispatcher
	roster  *roster.Handler
	done    chan struct{}
}

// NewApp wires the components in dependency order. The returned App must
// be closed by the caller.
func NewApp(ctx context.Context, cfg *Config, lgr *glog.BaseLogger) (*App, error) {
	app := &App{
		config: cfg,
		logger: lgr,
		done:   make(chan struct{}),
	}

	steps := []func(context.Context, *App) error{
		WithEvents,
		WithPersistence,
		WithAuthentication,
		WithRoster,
	}
	for _, step := range steps {
		if err := step(ctx, app); err != nil {
			_ = app.Close()
			return nil, err
		}
	}
	return app, nil
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) Storage() *radiowave.Storage {
	return a.storage
}

func (a *App) Authenticator() *radiowave.Dispatcher {
	return a.auth
}

func (a *App) Roster() *roster.Handler {
	return a.roster
}

func (a *App) Events() *radiowave.EventBus {
	return a.bus
}

// Close stops the activity logger and releases connections.
func (a *App) Close() error {
	var errs []error
	if a.bus != nil {
		a.bus.Close()
		<-a.done
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}
	return goerrors.Join(errs...)
}

// WithEvents builds the in-process bus and, when configured, the Redis sink.
func WithEvents(ctx context.Context, app *App) error {
	app.bus = radiowave.NewEventBus().WithLogger(app.GetLogger("events"))
	sinks := radiowave.MultiSink{app.bus}

	activity, _ := app.bus.Subscribe(app.config.EventBuffer)
	logger := app.GetLogger("activity")
	go func() {
		defer close(app.done)
		for event := range activity {
			logger.Info("activity", "type", event.Type, "jid", event.JID, "strategy", event.Strategy)
		}
	}()

	if app.config.RedisURL != "" {
		sink, err := redissink.Dial(ctx, app.config.RedisURL, app.config.RedisChannel)
		if err != nil {
			return err
		}
		app.redis = sink.WithLogger(app.GetLogger("events:redis"))
		sinks = append(sinks, app.redis)
	}
	app.events = sinks
	return nil
}

// WithPersistence opens the database and synchronizes every table.
func WithPersistence(ctx context.Context, app *App) error {
	app.storage = radiowave.NewStorage(app.config).
		WithLogger(app.GetLogger("storage")).
		WithEventSink(app.events)

	if err := app.storage.Initialize(ctx); err != nil {
		return err
	}

	app.repos = repository.NewRepositoryManager(app.storage.DB())
	if err := app.repos.Validate(); err != nil {
		return err
	}
	return app.repos.SyncSchema(ctx)
}

// WithAuthentication registers the PLAIN strategy when users are configured
// and the X-OAUTH2 strategy when a verification url is set.
func WithAuthentication(ctx context.Context, app *App) error {
	app.auth = radiowave.NewDispatcher().
		WithUserResolver(app.storage).
		WithEventSink(app.events).
		WithLogger(app.GetLogger("auth"))

	credentials, err := app.config.SimpleCredentials()
	if err != nil {
		return err
	}
	if len(credentials) > 0 {
		strategy := simple.New().WithLogger(app.GetLogger("auth:simple"))
		for user, pass := range credentials {
			strategy.AddUser(user, pass)
		}
		app.auth.Register(strategy)
		app.GetLogger("auth").Warn("simple strategy enabled, do not use in production", "users", strategy.Users())
	}

	if app.config.OAuthURL != "" {
		strategy, err := oauth2.New(oauth2.Config{
			URL:         app.config.OAuthURL,
			ContentType: app.config.OAuthContentType,
			TokenType:   app.config.OAuthTokenType,
			UIDTag:      app.config.OAuthUIDTag,
			Timeout:     app.config.OAuthTimeout,
		})
		if err != nil {
			return err
		}
		app.auth.Register(strategy.WithLogger(app.GetLogger("auth:oauth2")))
	}

	if len(app.auth.Strategies()) == 0 {
		app.GetLogger("auth").Warn("no authentication strategy configured")
	}
	return nil
}

// WithRoster serves roster requests from the roster_items table.
func WithRoster(ctx context.Context, app *App) error {
	app.roster = roster.NewHandler(app.repos.RosterItems()).
		WithLogger(app.GetLogger("roster"))
	return nil
}
