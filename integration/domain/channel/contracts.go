package channel

import (
	"context"
	"time"
)

// Validator performs the type specific connect check. A nil error means the
// attempt succeeded, otherwise the error text is the failure reason.
type Validator interface {
	Validate(ctx context.Context, cfg ChannelConfig) error
}

type ValidatorFunc func(ctx context.Context, cfg ChannelConfig) error

func (f ValidatorFunc) Validate(ctx context.Context, cfg ChannelConfig) error {
	return f(ctx, cfg)
}

// HealthCheck is the lighter health check run against a connected channel.
type HealthCheck interface {
	Check(ctx context.Context, ch Channel) error
}

type HealthCheckFunc func(ctx context.Context, ch Channel) error

func (f HealthCheckFunc) Check(ctx context.Context, ch Channel) error {
	return f(ctx, ch)
}

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationInfo    NotificationKind = "info"
)

type NotificationSink interface {
	Notify(kind NotificationKind, message string)
}

// ChangeEvent is emitted after every committed update.
type ChangeEvent struct {
	Previous ChannelStatus `json:"previous"`
	Channel  Channel       `json:"channel"`
}

type ChangeListener func(ev ChangeEvent)

// SnapshotRepository persists the latest state of each channel.
type SnapshotRepository interface {
	LoadChannels(ctx context.Context, chatbotID string) ([]Channel, error)
	SaveChannel(ctx context.Context, ch Channel) error
}

type TestRecord struct {
	ID          string      `json:"id"`
	ChatbotID   string      `json:"chatbot_id"`
	ChannelType ChannelType `json:"channel_type"`
	Passed      bool        `json:"passed"`
	Message     string      `json:"message,omitempty"`
	DurationMs  int64       `json:"duration_ms"`
	TestedAt    time.Time   `json:"tested_at"`
}

type TestHistoryRepository interface {
	Record(ctx context.Context, rec TestRecord) error
	List(ctx context.Context, chatbotID string, t ChannelType, limit int) ([]TestRecord, error)
}
