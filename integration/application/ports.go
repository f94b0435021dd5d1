package application

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
)

// ChannelStore is the atomic read/update surface the lifecycle services
// write through.
type ChannelStore interface {
	Initialize(ctx context.Context, chatbotID string) ([]channel.Channel, error)
	Get(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error)
	List(ctx context.Context, chatbotID string) ([]channel.Channel, error)
	Update(ctx context.Context, chatbotID string, t channel.ChannelType, fn func(*channel.Channel) error) (channel.Channel, error)
}

// Observer receives timing data for validations and tests.
type Observer interface {
	ObserveValidation(t channel.ChannelType, outcome string, d time.Duration)
	ObserveTest(t channel.ChannelType, passed bool, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveValidation(channel.ChannelType, string, time.Duration) {}
func (nopObserver) ObserveTest(channel.ChannelType, bool, time.Duration)         {}

type nopSink struct{}

func (nopSink) Notify(channel.NotificationKind, string) {}

// Validation outcomes reported to the Observer.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeTimeout   = "timeout"
	OutcomePanic     = "panic"
	OutcomeCancelled = "cancelled"
	OutcomeStale     = "stale"
)

// errStaleAttempt is returned from a mutator when the channel moved on since
// the async step started. Nothing is written in that case.
var errStaleAttempt = errors.New("stale attempt")

var errCheckPanicked = errors.New("check panicked")

// runBounded runs check in its own goroutine and waits at most until ctx is
// done. A check that ignores ctx is abandoned; its result is dropped.
func runBounded(ctx context.Context, check func(ctx context.Context) error) error {
	res := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				res <- errCheckPanicked
			}
		}()
		res <- check(ctx)
	}()

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
