package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryHistory struct {
	mu      sync.Mutex
	records []channel.TestRecord
}

func (h *memoryHistory) Record(ctx context.Context, rec channel.TestRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

func (h *memoryHistory) List(ctx context.Context, chatbotID string, t channel.ChannelType, limit int) ([]channel.TestRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []channel.TestRecord
	for i := len(h.records) - 1; i >= 0 && len(out) < limit; i-- {
		if h.records[i].ChatbotID == chatbotID && h.records[i].ChannelType == t {
			out = append(out, h.records[i])
		}
	}
	return out, nil
}

func checksOf(t channel.ChannelType, p channel.HealthCheck) map[channel.ChannelType]channel.HealthCheck {
	return map[channel.ChannelType]channel.HealthCheck{t: p}
}

func TestRunTest_PassKeepsStatus(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	history := &memoryHistory{}
	runner := NewTestRunner(f.store, nil, allSucceed(), f.sink, TestRunnerOptions{Timeout: time.Second, History: history})
	f.connected(t, channel.ChannelTypeTelegram)

	passed, err := runner.RunTest(context.Background(), "bot-1", channel.ChannelTypeTelegram)
	require.NoError(t, err)
	assert.True(t, passed)

	ch := f.get(t, channel.ChannelTypeTelegram)
	assert.Equal(t, channel.StatusConnected, ch.Status)
	require.NotNil(t, ch.LastTestResult)
	assert.True(t, *ch.LastTestResult)
	assert.NotNil(t, ch.LastTestedAt)

	recs, err := runner.History(context.Background(), "bot-1", channel.ChannelTypeTelegram, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Passed)
}

func TestRunTest_FailureMovesToError(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	history := &memoryHistory{}
	check := channel.HealthCheckFunc(func(ctx context.Context, ch channel.Channel) error {
		return errors.New("webhook unreachable")
	})
	runner := NewTestRunner(f.store, checksOf(channel.ChannelTypeWhatsApp, check), allSucceed(), f.sink, TestRunnerOptions{Timeout: time.Second, History: history})
	f.connected(t, channel.ChannelTypeWhatsApp)

	_, err := f.store.Update(context.Background(), "bot-1", channel.ChannelTypeWhatsApp, func(ch *channel.Channel) error {
		ch.Metrics.TotalMessages = 10
		return nil
	})
	require.NoError(t, err)

	passed, err := runner.RunTest(context.Background(), "bot-1", channel.ChannelTypeWhatsApp)
	require.NoError(t, err)
	assert.False(t, passed)

	ch := f.get(t, channel.ChannelTypeWhatsApp)
	assert.Equal(t, channel.StatusError, ch.Status)
	assert.Equal(t, "Connection test failed", ch.ErrorMessage)
	assert.Zero(t, ch.Metrics.TotalMessages)
	require.NotNil(t, ch.LastTestResult)
	assert.False(t, *ch.LastTestResult)

	require.Len(t, history.records, 1)
	assert.Equal(t, "webhook unreachable", history.records[0].Message)
}

// Scenario D
func TestRunTest_RequiresConnected(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	runner := NewTestRunner(f.store, nil, allSucceed(), f.sink, TestRunnerOptions{Timeout: time.Second})
	before := f.get(t, channel.ChannelTypeSMS)

	passed, err := runner.RunTest(context.Background(), "bot-1", channel.ChannelTypeSMS)
	assert.False(t, passed)
	var is pkgError.InvalidStateError
	assert.ErrorAs(t, err, &is)

	after := f.get(t, channel.ChannelTypeSMS)
	assert.Equal(t, before, after)
}

func TestRunTest_TimeoutCountsAsFailure(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	block := make(chan struct{})
	defer close(block)
	check := channel.HealthCheckFunc(func(ctx context.Context, ch channel.Channel) error {
		<-block
		return nil
	})
	runner := NewTestRunner(f.store, checksOf(channel.ChannelTypeEmail, check), nil, f.sink, TestRunnerOptions{Timeout: 20 * time.Millisecond})
	f.connected(t, channel.ChannelTypeEmail)

	passed, err := runner.RunTest(context.Background(), "bot-1", channel.ChannelTypeEmail)
	require.NoError(t, err)
	assert.False(t, passed)
	assert.Equal(t, channel.StatusError, f.get(t, channel.ChannelTypeEmail).Status)
}

func TestRunTest_StaleResultDiscarded(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	entered := make(chan struct{})
	release := make(chan struct{})
	check := channel.HealthCheckFunc(func(ctx context.Context, ch channel.Channel) error {
		close(entered)
		<-release
		return errors.New("down")
	})
	runner := NewTestRunner(f.store, checksOf(channel.ChannelTypeMessenger, check), nil, f.sink, TestRunnerOptions{Timeout: 5 * time.Second})
	f.connected(t, channel.ChannelTypeMessenger)

	done := make(chan error, 1)
	go func() {
		_, err := runner.RunTest(context.Background(), "bot-1", channel.ChannelTypeMessenger)
		done <- err
	}()
	<-entered
	_, err := f.orch.Disconnect(context.Background(), "bot-1", channel.ChannelTypeMessenger)
	require.NoError(t, err)
	close(release)

	var is pkgError.InvalidStateError
	assert.ErrorAs(t, <-done, &is)

	ch := f.get(t, channel.ChannelTypeMessenger)
	assert.Equal(t, channel.StatusDisconnected, ch.Status)
	assert.Nil(t, ch.LastTestResult)
}

func TestRunTest_FallsBackToValidator(t *testing.T) {
	validators := allSucceed()
	f := newFixture(t, validators, time.Second)
	f.connected(t, channel.ChannelTypeInstagram)

	fallback := map[channel.ChannelType]channel.Validator{channel.ChannelTypeInstagram: fail("token expired")}
	runner := NewTestRunner(f.store, nil, fallback, f.sink, TestRunnerOptions{Timeout: time.Second})

	passed, err := runner.RunTest(context.Background(), "bot-1", channel.ChannelTypeInstagram)
	require.NoError(t, err)
	assert.False(t, passed)
}

func TestRunTest_NoCheck(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	runner := NewTestRunner(f.store, nil, nil, f.sink, TestRunnerOptions{})
	_, err := runner.RunTest(context.Background(), "bot-1", channel.ChannelTypeWebsite)
	var ns pkgError.NotSupportedError
	assert.ErrorAs(t, err, &ns)
}

func TestHistory_WithoutRepository(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	runner := NewTestRunner(f.store, nil, nil, nil, TestRunnerOptions{})
	recs, err := runner.History(context.Background(), "bot-1", channel.ChannelTypeWebsite, 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
