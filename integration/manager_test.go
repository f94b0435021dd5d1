package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/AzielCF/az-connect/pkg/eventworker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotRepo struct {
	mu    sync.Mutex
	saved map[string]channel.Channel
	saves int
}

func (r *snapshotRepo) LoadChannels(ctx context.Context, chatbotID string) ([]channel.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []channel.Channel
	for _, ch := range r.saved {
		if ch.ChatbotID == chatbotID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *snapshotRepo) SaveChannel(ctx context.Context, ch channel.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[ch.ID] = ch
	r.saves++
	return nil
}

func (r *snapshotRepo) get(id string) (channel.Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.saved[id]
	return ch, ok
}

func validators() map[channel.ChannelType]channel.Validator {
	out := map[channel.ChannelType]channel.Validator{}
	for _, t := range channel.AllTypes {
		out[t] = channel.ValidatorFunc(func(ctx context.Context, cfg channel.ChannelConfig) error { return nil })
	}
	return out
}

func newManager(t *testing.T, repo *snapshotRepo) *Manager {
	t.Helper()
	pool := eventworker.NewPool(2, 64)
	pool.Start(context.Background())
	m := NewManager(Options{
		ValidationTimeout: time.Second,
		TestTimeout:       time.Second,
		Validators:        validators(),
		Snapshots:         repo,
		Pool:              pool,
		EmbedScriptURL:    "https://cdn.example.com/w.js",
		EmbedVersion:      "v1",
	})
	t.Cleanup(func() {
		m.Close()
		pool.Stop()
	})
	return m
}

func TestManager_ConnectPersistsSnapshots(t *testing.T) {
	repo := &snapshotRepo{saved: map[string]channel.Channel{}}
	m := newManager(t, repo)
	ctx := context.Background()

	_, err := m.Initialize(ctx, "bot-1")
	require.NoError(t, err)
	_, err = m.Connect(ctx, "bot-1", channel.ChannelTypeTelegram)
	require.NoError(t, err)
	m.Orchestrator.Wait()

	require.Eventually(t, func() bool {
		ch, ok := repo.get(channel.ChannelID("bot-1", channel.ChannelTypeTelegram))
		return ok && ch.Status == channel.StatusConnected
	}, time.Second, 5*time.Millisecond)
}

type slowRepo struct {
	*snapshotRepo
	delay time.Duration
}

func (r slowRepo) SaveChannel(ctx context.Context, ch channel.Channel) error {
	time.Sleep(r.delay)
	return r.snapshotRepo.SaveChannel(ctx, ch)
}

func TestManager_SaturatedPoolKeepsLatestSnapshot(t *testing.T) {
	repo := &snapshotRepo{saved: map[string]channel.Channel{}}
	pool := eventworker.NewPool(1, 1)
	pool.Start(context.Background())
	defer pool.Stop()

	m := NewManager(Options{
		ValidationTimeout: time.Second,
		Validators:        validators(),
		Snapshots:         slowRepo{snapshotRepo: repo, delay: 10 * time.Millisecond},
		Pool:              pool,
	})
	ctx := context.Background()
	_, err := m.Initialize(ctx, "bot-1")
	require.NoError(t, err)
	for _, ct := range []channel.ChannelType{channel.ChannelTypeShopify, channel.ChannelTypeTelegram, channel.ChannelTypeSMS} {
		_, err = m.Connect(ctx, "bot-1", ct)
		require.NoError(t, err)
	}
	m.Orchestrator.Wait()
	m.Close()

	restored := NewManager(Options{Validators: validators(), Snapshots: repo})
	defer restored.Close()
	_, err = restored.Initialize(ctx, "bot-1")
	require.NoError(t, err)
	for _, ct := range []channel.ChannelType{channel.ChannelTypeShopify, channel.ChannelTypeTelegram, channel.ChannelTypeSMS} {
		ch, err := restored.Get(ctx, "bot-1", ct)
		require.NoError(t, err)
		assert.Equal(t, channel.StatusConnected, ch.Status, ct)
	}
}

func TestManager_RestoresFromSnapshots(t *testing.T) {
	repo := &snapshotRepo{saved: map[string]channel.Channel{}}
	pending := channel.New("bot-1", channel.ChannelTypeSMS, time.Now())
	pending.Status = channel.StatusPending
	pending.Generation = 4
	repo.saved[pending.ID] = pending

	m := newManager(t, repo)
	ch, err := func() (channel.Channel, error) {
		if _, err := m.Initialize(context.Background(), "bot-1"); err != nil {
			return channel.Channel{}, err
		}
		return m.Get(context.Background(), "bot-1", channel.ChannelTypeSMS)
	}()
	require.NoError(t, err)
	assert.Equal(t, channel.StatusError, ch.Status)
	assert.Greater(t, ch.Generation, uint64(4))
}

func TestManager_SummaryAndEmbed(t *testing.T) {
	m := newManager(t, &snapshotRepo{saved: map[string]channel.Channel{}})
	ctx := context.Background()
	_, err := m.Initialize(ctx, "bot-1")
	require.NoError(t, err)

	s, err := m.Summary(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.ConnectedCount)
	assert.Equal(t, 8, s.TotalChannels)

	b, err := m.Branding(ctx, "bot-1")
	require.NoError(t, err)
	b.Name = "Acme"
	_, err = m.SaveBranding(ctx, b)
	require.NoError(t, err)

	code, err := m.EmbedCode(ctx, "bot-1", channel.ChannelTypeWebsite)
	require.NoError(t, err)
	assert.Contains(t, code, `"name":"Acme"`)
	assert.Contains(t, code, `"chatbotId":"bot-1"`)

	_, err = m.EmbedCode(ctx, "bot-1", channel.ChannelTypeSMS)
	var ns pkgError.NotSupportedError
	assert.ErrorAs(t, err, &ns)
}

func TestManager_RejectsInvalidInput(t *testing.T) {
	m := newManager(t, &snapshotRepo{saved: map[string]channel.Channel{}})
	ctx := context.Background()
	_, err := m.Initialize(ctx, "bot-1")
	require.NoError(t, err)

	var ve pkgError.ValidationError
	_, err = m.UpdateConfig(ctx, "bot-1", channel.ChannelTypeSMS, channel.ChannelConfig{WebhookURL: "not a url"})
	assert.ErrorAs(t, err, &ve)

	b := channel.DefaultBranding("bot-1")
	b.PrimaryColor = "blue"
	_, err = m.SaveBranding(ctx, b)
	assert.ErrorAs(t, err, &ve)

	_, err = m.TestHistory(ctx, "missing", channel.ChannelTypeSMS, 10)
	var nf pkgError.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
