package valkey

import (
	"context"

	valkeylib "github.com/valkey-io/valkey-go"
)

// Publish sends payload on the prefixed topic.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	cmd := c.inner.B().Publish().Channel(c.Key(topic)).Message(string(payload)).Build()
	return c.inner.Do(ctx, cmd).Error()
}

// Subscribe blocks delivering every message on the prefixed topic to fn until
// ctx is done or the connection fails.
func (c *Client) Subscribe(ctx context.Context, topic string, fn func(payload []byte)) error {
	cmd := c.inner.B().Subscribe().Channel(c.Key(topic)).Build()
	return c.inner.Receive(ctx, cmd, func(msg valkeylib.PubSubMessage) {
		fn([]byte(msg.Message))
	})
}

// HealthStatus reports "ok" or the ping error, for the status endpoint.
func (c *Client) HealthStatus(ctx context.Context) string {
	if err := c.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
