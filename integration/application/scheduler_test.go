package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_TestsConnectedOnly(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	f.connected(t, channel.ChannelTypeTelegram)
	f.connected(t, channel.ChannelTypeEmail)

	check := map[channel.ChannelType]channel.HealthCheck{
		channel.ChannelTypeEmail: channel.HealthCheckFunc(func(ctx context.Context, ch channel.Channel) error {
			return errors.New("smtp banner missing")
		}),
	}
	runner := NewTestRunner(f.store, check, allSucceed(), f.sink, TestRunnerOptions{Timeout: time.Second})
	sched := NewHealthScheduler(runner, f.store, f.store, 2)

	res, err := sched.Sweep(context.Background())
	require.NoError(t, err)
	// website starts connected
	assert.Equal(t, 3, res.Tested)
	assert.Equal(t, 1, res.Failed)

	assert.Equal(t, channel.StatusError, f.get(t, channel.ChannelTypeEmail).Status)
	assert.Equal(t, channel.StatusConnected, f.get(t, channel.ChannelTypeTelegram).Status)
	assert.Equal(t, channel.StatusDisconnected, f.get(t, channel.ChannelTypeSMS).Status)
}

func TestSweep_NoChatbots(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	runner := NewTestRunner(f.store, nil, allSucceed(), nil, TestRunnerOptions{})
	sched := NewHealthScheduler(runner, f.store, emptyLister{}, 0)

	res, err := sched.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
}

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	f := newFixture(t, allSucceed(), time.Second)
	runner := NewTestRunner(f.store, nil, allSucceed(), nil, TestRunnerOptions{})
	sched := NewHealthScheduler(runner, f.store, f.store, 1)

	assert.Error(t, sched.Start("not a schedule"))
	require.NoError(t, sched.Start("@every 1h"))
	sched.Stop()
}

type emptyLister struct{}

func (emptyLister) Chatbots() []string { return nil }
