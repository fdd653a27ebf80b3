package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisPublisher fans events out over a Redis pub/sub channel.
type RedisPublisher struct {
	rdb     *goredis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisPublisher connects to redisURL (redis://[:password@]host:port/db)
// and verifies the connection with a ping.
func NewRedisPublisher(ctx context.Context, redisURL, channel string, logger zerolog.Logger) (*RedisPublisher, error) {
	if channel == "" {
		return nil, errors.New("events channel required")
	}
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		logger:  logger.With().Str("component", "events").Str("channel", channel).Logger(),
	}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}

// Subscribe delivers every event on the channel to fn until ctx is done.
// Undecodable messages are logged and skipped.
func (p *RedisPublisher) Subscribe(ctx context.Context, fn func(Event)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
				p.logger.Warn().Err(err).Msg("bad event payload")
				continue
			}
			fn(evt)
		}
	}
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
