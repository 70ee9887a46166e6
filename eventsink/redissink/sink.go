// Package redissink republishes membership and login events on a Redis
// pub/sub channel as JSON documents.
package redissink

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	goerrors "github.com/goliatone/go-errors"
	"github.com/prasad83/radiowave"
)

// DefaultChannel is used when no channel is configured
const DefaultChannel = "radiowave.events"

// Sink implements radiowave.EventSink over a Redis client.
type Sink struct {
	client  redis.UniversalClient
	channel string
	logger  radiowave.Logger
}

var _ radiowave.EventSink = (*Sink)(nil)

// New publishes to channel through client.
func New(client redis.UniversalClient, channel string) *Sink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Sink{
		client:  client,
		channel: channel,
		logger:  radiowave.DefaultLogger(),
	}
}

// Dial parses a redis:// url, connects and pings before returning the sink.
func Dial(ctx context.Context, url, channel string) (*Sink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid redis url").
			WithCode(goerrors.CodeBadRequest)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "redis connect failed").
			WithCode(goerrors.CodeInternal)
	}

	return New(client, channel), nil
}

// WithLogger overrides the logger.
func (s *Sink) WithLogger(logger radiowave.Logger) *Sink {
	if logger == nil {
		logger = radiowave.DefaultLogger()
	}
	s.logger = logger
	return s
}

// Channel returns the pub/sub channel events are published to
func (s *Sink) Channel() string {
	return s.channel
}

// Publish encodes event as JSON and publishes it.
func (s *Sink) Publish(ctx context.Context, event radiowave.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode event")
	}

	receivers, err := s.client.Publish(ctx, s.channel, payload).Result()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to publish event").
			WithMetadata(map[string]any{"channel": s.channel, "type": string(event.Type)})
	}

	s.logger.Debug("event published", "channel", s.channel, "type", event.Type, "receivers", receivers)
	return nil
}

// Close releases the underlying client.
func (s *Sink) Close() error {
	return s.client.Close()
}
