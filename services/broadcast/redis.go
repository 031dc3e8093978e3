package broadcastsvc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/tmonsalve/aula/core"
)

// envelope is the wire format pushed on a topic: a named event plus its
// structured payload. Frontend subscribers fan it out per topic.
type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type redisBroadcaster struct {
	client *redis.Client
}

var _ core.Broadcaster = (*redisBroadcaster)(nil)

// NewRedisBroadcaster connects to Redis and verifies the connection; topics
// map to pub/sub channels.
func NewRedisBroadcaster(conf *core.Config) (*redisBroadcaster, error) {
	opts, err := redis.ParseURL(conf.Redis.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisBroadcaster{client: client}, nil
}

func (b *redisBroadcaster) Broadcast(ctx context.Context, topic, event string, payload interface{}) error {
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return errors.Wrap(err, "marshalling broadcast payload")
	}
	if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
		return errors.Wrapf(err, "publishing to %s", topic)
	}
	return nil
}

func (b *redisBroadcaster) Close() error {
	return b.client.Close()
}
