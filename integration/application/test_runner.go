package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const testFailedMessage = "Connection test failed"

type TestRunnerOptions struct {
	Timeout  time.Duration
	History  channel.TestHistoryRepository
	Observer Observer
	Clock    func() time.Time
}

// TestRunner runs post connection health checks. A failing check moves the
// channel to Error through the same store update path the orchestrator uses.
type TestRunner struct {
	store      ChannelStore
	checks     map[channel.ChannelType]channel.HealthCheck
	validators map[channel.ChannelType]channel.Validator
	sink       channel.NotificationSink
	history    channel.TestHistoryRepository
	timeout    time.Duration
	observer   Observer
	now        func() time.Time
}

// NewTestRunner builds a runner. Types without a dedicated check are checked
// with their validator.
func NewTestRunner(store ChannelStore, checks map[channel.ChannelType]channel.HealthCheck, validators map[channel.ChannelType]channel.Validator, sink channel.NotificationSink, opts TestRunnerOptions) *TestRunner {
	if sink == nil {
		sink = nopSink{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &TestRunner{
		store:      store,
		checks:     checks,
		validators: validators,
		sink:       sink,
		history:    opts.History,
		timeout:    opts.Timeout,
		observer:   opts.Observer,
		now:        opts.Clock,
	}
}

func (r *TestRunner) checkFor(t channel.ChannelType) (channel.HealthCheck, bool) {
	if p, ok := r.checks[t]; ok {
		return p, true
	}
	if v, ok := r.validators[t]; ok {
		return channel.HealthCheckFunc(func(ctx context.Context, ch channel.Channel) error {
			return v.Validate(ctx, ch.Config)
		}), true
	}
	return nil, false
}

// RunTest checks a Connected channel and records the outcome.
func (r *TestRunner) RunTest(ctx context.Context, chatbotID string, t channel.ChannelType) (bool, error) {
	current, err := r.store.Get(ctx, chatbotID, t)
	if err != nil {
		return false, err
	}
	if current.Status != channel.StatusConnected {
		return false, pkgError.InvalidStateError(fmt.Sprintf("%s must be connected to run a test, it is %s", current.ID, current.Status))
	}
	check, ok := r.checkFor(t)
	if !ok {
		return false, pkgError.NotSupportedError(fmt.Sprintf("no health check registered for %s", t))
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	start := time.Now()
	perr := runBounded(checkCtx, func(ctx context.Context) error {
		return check.Check(ctx, current.Clone())
	})
	cancel()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		// The caller went away, the channel itself was not judged.
		return false, ctx.Err()
	}

	passed := perr == nil
	detail := ""
	switch {
	case passed:
	case errors.Is(perr, context.DeadlineExceeded):
		detail = "test timed out"
	case errors.Is(perr, errCheckPanicked):
		detail = "health check crashed"
	default:
		detail = perr.Error()
	}

	_, uerr := r.store.Update(ctx, chatbotID, t, func(ch *channel.Channel) error {
		if ch.Generation != current.Generation || ch.Status != channel.StatusConnected {
			return errStaleAttempt
		}
		tested := r.now()
		result := passed
		ch.LastTestResult = &result
		ch.LastTestedAt = &tested
		if !passed {
			ch.Status = channel.StatusError
			ch.ErrorMessage = testFailedMessage
			ch.ResetMetrics()
		}
		return nil
	})
	if errors.Is(uerr, errStaleAttempt) {
		logrus.Debugf("[TEST_RUNNER] Discarding test result for %s: channel changed during the test", current.ID)
		return false, pkgError.InvalidStateError(fmt.Sprintf("%s changed while the test was running", current.ID))
	}
	if uerr != nil {
		return false, uerr
	}

	r.observer.ObserveTest(t, passed, elapsed)
	r.record(ctx, chatbotID, t, passed, detail, elapsed)

	if passed {
		logrus.Infof("[TEST_RUNNER] %s passed in %s", current.ID, elapsed.Round(time.Millisecond))
		r.sink.Notify(channel.NotificationSuccess, fmt.Sprintf("%s connection test passed", displayName(t)))
	} else {
		logrus.Warnf("[TEST_RUNNER] %s failed: %s", current.ID, detail)
		r.sink.Notify(channel.NotificationError, fmt.Sprintf("%s connection test failed: %s", displayName(t), detail))
	}
	return passed, nil
}

func (r *TestRunner) record(ctx context.Context, chatbotID string, t channel.ChannelType, passed bool, detail string, elapsed time.Duration) {
	if r.history == nil {
		return
	}
	rec := channel.TestRecord{
		ID:          uuid.NewString(),
		ChatbotID:   chatbotID,
		ChannelType: t,
		Passed:      passed,
		Message:     detail,
		DurationMs:  elapsed.Milliseconds(),
		TestedAt:    r.now(),
	}
	if err := r.history.Record(ctx, rec); err != nil {
		logrus.WithError(err).Errorf("[TEST_RUNNER] Failed to record test history for %s", channel.ChannelID(chatbotID, t))
	}
}

// History returns the most recent test runs of a channel, newest first.
func (r *TestRunner) History(ctx context.Context, chatbotID string, t channel.ChannelType, limit int) ([]channel.TestRecord, error) {
	if r.history == nil {
		return []channel.TestRecord{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return r.history.List(ctx, chatbotID, t, limit)
}
