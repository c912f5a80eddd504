package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/yourorg/catalog-api/internal/redisx"
)

// DefaultChannel is the pub/sub channel snapshot events travel on.
const DefaultChannel = "catalog:snapshot:refreshed"

// Redis fans events out to every instance subscribed to the same channel,
// including the publisher itself.
type Redis struct {
	client  *redisx.Client
	channel string
	ch      chan SnapshotRefreshed
	log     *zap.Logger
}

// NewRedis subscribes to channel and forwards decoded events until ctx is
// cancelled.
func NewRedis(ctx context.Context, client *redisx.Client, channel string, buffer int, log *zap.Logger) (*Redis, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	if buffer <= 0 {
		buffer = 256
	}
	ps, err := client.Subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}
	r := &Redis{
		client:  client,
		channel: channel,
		ch:      make(chan SnapshotRefreshed, buffer),
		log:     log.With(zap.String("component", "events")),
	}
	go func() {
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt SnapshotRefreshed
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					r.log.Warn("dropping malformed event", zap.Error(err))
					continue
				}
				select {
				case r.ch <- evt:
				default:
					r.log.Warn("event buffer full", zap.String("scope", evt.Scope))
				}
			}
		}
	}()
	return r, nil
}

func (r *Redis) PublishSnapshotRefreshed(ctx context.Context, evt SnapshotRefreshed) {
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := r.client.Publish(ctx, r.channel, b); err != nil {
		r.log.Warn("publish failed", zap.String("scope", evt.Scope), zap.Error(err))
	}
}

func (r *Redis) SubscribeSnapshotRefreshed() <-chan SnapshotRefreshed { return r.ch }
