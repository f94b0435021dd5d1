package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/AzielCF/az-connect/integration/registry"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	channels []channel.Channel
	err      error
}

func (f *fakeLoader) LoadChannels(ctx context.Context, chatbotID string) ([]channel.Channel, error) {
	return f.channels, f.err
}

func (f *fakeLoader) SaveChannel(ctx context.Context, ch channel.Channel) error { return nil }

func TestInitialize_Defaults(t *testing.T) {
	s := NewMemoryStore(registry.New())
	chans, err := s.Initialize(context.Background(), "bot-1")
	require.NoError(t, err)
	require.Len(t, chans, len(channel.AllTypes))

	for i, ch := range chans {
		assert.Equal(t, channel.AllTypes[i], ch.Type)
		if ch.Type == channel.ChannelTypeWebsite {
			assert.Equal(t, channel.StatusConnected, ch.Status)
			assert.NotNil(t, ch.LastSyncAt)
		} else {
			assert.Equal(t, channel.StatusDisconnected, ch.Status)
		}
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	s := NewMemoryStore(registry.New())
	ctx := context.Background()
	_, err := s.Initialize(ctx, "bot-1")
	require.NoError(t, err)

	_, err = s.Update(ctx, "bot-1", channel.ChannelTypeTelegram, func(ch *channel.Channel) error {
		ch.Config.AccessToken = "123:abc"
		return nil
	})
	require.NoError(t, err)

	again, err := s.Initialize(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "123:abc", again[3].Config.AccessToken)
	assert.Equal(t, []string{"bot-1"}, s.Chatbots())
}

func TestInitialize_RequiresChatbotID(t *testing.T) {
	_, err := NewMemoryStore(registry.New()).Initialize(context.Background(), "")
	var ve pkgError.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestGet_NotInitialized(t *testing.T) {
	_, err := NewMemoryStore(registry.New()).Get(context.Background(), "ghost", channel.ChannelTypeSMS)
	var nf pkgError.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUpdate_FailedMutatorCommitsNothing(t *testing.T) {
	s := NewMemoryStore(registry.New())
	ctx := context.Background()
	_, _ = s.Initialize(ctx, "bot-1")

	var events int
	s.Subscribe(func(ev channel.ChangeEvent) { events++ })

	boom := errors.New("boom")
	got, err := s.Update(ctx, "bot-1", channel.ChannelTypeEmail, func(ch *channel.Channel) error {
		ch.Status = channel.StatusPending
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, channel.StatusDisconnected, got.Status)

	stored, _ := s.Get(ctx, "bot-1", channel.ChannelTypeEmail)
	assert.Equal(t, channel.StatusDisconnected, stored.Status)
	assert.Zero(t, events)
}

func TestUpdate_EnforcesInvariants(t *testing.T) {
	s := NewMemoryStore(registry.New())
	ctx := context.Background()
	_, _ = s.Initialize(ctx, "bot-1")

	got, err := s.Update(ctx, "bot-1", channel.ChannelTypeWebsite, func(ch *channel.Channel) error {
		ch.ID = "hijack"
		ch.Status = channel.StatusError
		ch.Metrics.TotalMessages = 12
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "bot-1:website", got.ID)
	assert.Zero(t, got.Metrics.TotalMessages)
	assert.NotEmpty(t, got.ErrorMessage)

	got, err = s.Update(ctx, "bot-1", channel.ChannelTypeWebsite, func(ch *channel.Channel) error {
		ch.Status = channel.StatusConnected
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, got.ErrorMessage)
}

func TestUpdate_SameChannelSerialized(t *testing.T) {
	s := NewMemoryStore(registry.New())
	ctx := context.Background()
	_, _ = s.Initialize(ctx, "bot-1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, "bot-1", channel.ChannelTypeSMS, func(ch *channel.Channel) error {
				g := ch.Generation
				time.Sleep(time.Millisecond)
				ch.Generation = g + 1
				return nil
			})
		}()
	}
	wg.Wait()

	ch, _ := s.Get(ctx, "bot-1", channel.ChannelTypeSMS)
	assert.Equal(t, uint64(50), ch.Generation)
}

func TestUpdate_DifferentChannelsDoNotBlock(t *testing.T) {
	s := NewMemoryStore(registry.New())
	ctx := context.Background()
	_, _ = s.Initialize(ctx, "bot-1")

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = s.Update(ctx, "bot-1", channel.ChannelTypeWhatsApp, func(ch *channel.Channel) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_, _ = s.Update(ctx, "bot-1", channel.ChannelTypeTelegram, func(ch *channel.Channel) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("update of another channel was blocked")
	}
	close(release)
}

func TestSubscribe_ReceivesCommitsInOrder(t *testing.T) {
	s := NewMemoryStore(registry.New())
	ctx := context.Background()

	var mu sync.Mutex
	var seen []channel.ChannelStatus
	s.Subscribe(func(ev channel.ChangeEvent) {
		if ev.Channel.Type != channel.ChannelTypeSMS || ev.Previous == "" {
			return
		}
		mu.Lock()
		seen = append(seen, ev.Channel.Status)
		mu.Unlock()
	})
	_, _ = s.Initialize(ctx, "bot-1")

	for _, st := range []channel.ChannelStatus{channel.StatusPending, channel.StatusError, channel.StatusDisconnected} {
		st := st
		_, err := s.Update(ctx, "bot-1", channel.ChannelTypeSMS, func(ch *channel.Channel) error {
			ch.Status = st
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []channel.ChannelStatus{channel.StatusPending, channel.StatusError, channel.StatusDisconnected}, seen)
}

func TestInitialize_RestoresPersistedState(t *testing.T) {
	synced := time.Now().Add(-time.Hour)
	loader := &fakeLoader{channels: []channel.Channel{
		{Type: channel.ChannelTypeWhatsApp, Status: channel.StatusConnected, LastSyncAt: &synced, Generation: 4},
		{Type: channel.ChannelTypeTelegram, Status: channel.StatusPending, Generation: 2},
		{Type: channel.ChannelTypeWebsite, Status: channel.StatusDisconnected},
	}}
	s := NewMemoryStore(registry.New(), WithLoader(loader))

	chans, err := s.Initialize(context.Background(), "bot-9")
	require.NoError(t, err)

	byType := map[channel.ChannelType]channel.Channel{}
	for _, ch := range chans {
		byType[ch.Type] = ch
	}
	assert.Equal(t, channel.StatusConnected, byType[channel.ChannelTypeWhatsApp].Status)
	assert.Equal(t, "bot-9:whatsapp", byType[channel.ChannelTypeWhatsApp].ID)
	assert.Equal(t, channel.StatusError, byType[channel.ChannelTypeTelegram].Status)
	assert.Equal(t, interruptedMessage, byType[channel.ChannelTypeTelegram].ErrorMessage)
	assert.Equal(t, uint64(3), byType[channel.ChannelTypeTelegram].Generation)
	assert.Equal(t, channel.StatusDisconnected, byType[channel.ChannelTypeWebsite].Status)
	assert.Equal(t, channel.StatusDisconnected, byType[channel.ChannelTypeSMS].Status)
}

func TestInitialize_LoaderError(t *testing.T) {
	s := NewMemoryStore(registry.New(), WithLoader(&fakeLoader{err: errors.New("db down")}))
	_, err := s.Initialize(context.Background(), "bot-1")
	assert.Error(t, err)
	assert.Empty(t, s.Chatbots())
}

func TestListener_PanicDoesNotBreakCommit(t *testing.T) {
	s := NewMemoryStore(registry.New())
	ctx := context.Background()
	_, _ = s.Initialize(ctx, "bot-1")
	s.Subscribe(func(ev channel.ChangeEvent) { panic("listener bug") })

	got, err := s.Update(ctx, "bot-1", channel.ChannelTypeSMS, func(ch *channel.Channel) error {
		ch.Config.PhoneNumber = "+15550001111"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", got.Config.PhoneNumber)
}
