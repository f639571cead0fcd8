package notifications

import (
	"context"
	"encoding/json"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisNotifier publishes each event on the addressee's room channel so every
// API instance can forward it to its local websocket clients.
type RedisNotifier struct {
	pub Publisher
}

func NewRedisNotifier(pub Publisher) *RedisNotifier {
	return &RedisNotifier{pub: pub}
}

func (n *RedisNotifier) Notify(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.pub.Publish(ctx, Room(ev.UserID), b)
}
