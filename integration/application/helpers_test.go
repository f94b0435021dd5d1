package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/AzielCF/az-connect/integration/registry"
	"github.com/AzielCF/az-connect/integration/store"
	"github.com/stretchr/testify/require"
)

type notification struct {
	kind    channel.NotificationKind
	message string
}

type recordingSink struct {
	mu   sync.Mutex
	sent []notification
}

func (s *recordingSink) Notify(kind channel.NotificationKind, message string) {
	s.mu.Lock()
	s.sent = append(s.sent, notification{kind, message})
	s.mu.Unlock()
}

func (s *recordingSink) kinds() []channel.NotificationKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]channel.NotificationKind, len(s.sent))
	for i, n := range s.sent {
		out[i] = n.kind
	}
	return out
}

// trace records the status sequence of every channel.
type trace struct {
	mu  sync.Mutex
	seq map[channel.ChannelType][]channel.ChannelStatus
}

func (tr *trace) listen(ev channel.ChangeEvent) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.seq == nil {
		tr.seq = map[channel.ChannelType][]channel.ChannelStatus{}
	}
	tr.seq[ev.Channel.Type] = append(tr.seq[ev.Channel.Type], ev.Channel.Status)
}

func (tr *trace) of(t channel.ChannelType) []channel.ChannelStatus {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]channel.ChannelStatus(nil), tr.seq[t]...)
}

func succeed() channel.Validator {
	return channel.ValidatorFunc(func(ctx context.Context, cfg channel.ChannelConfig) error { return nil })
}

func fail(reason string) channel.Validator {
	return channel.ValidatorFunc(func(ctx context.Context, cfg channel.ChannelConfig) error { return errors.New(reason) })
}

// gated blocks until release is closed, ignoring the context on purpose.
func gated(release <-chan struct{}, result error) channel.Validator {
	return channel.ValidatorFunc(func(ctx context.Context, cfg channel.ChannelConfig) error {
		<-release
		return result
	})
}

func allSucceed() map[channel.ChannelType]channel.Validator {
	out := map[channel.ChannelType]channel.Validator{}
	for _, t := range channel.AllTypes {
		out[t] = succeed()
	}
	return out
}

type fixture struct {
	store *store.MemoryStore
	sink  *recordingSink
	trace *trace
	orch  *Orchestrator
}

func newFixture(t *testing.T, validators map[channel.ChannelType]channel.Validator, timeout time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewMemoryStore(registry.New()),
		sink:  &recordingSink{},
		trace: &trace{},
	}
	f.store.Subscribe(f.trace.listen)
	_, err := f.store.Initialize(context.Background(), "bot-1")
	require.NoError(t, err)

	f.orch = NewOrchestrator(f.store, validators, f.sink, OrchestratorOptions{ValidationTimeout: timeout})
	t.Cleanup(f.orch.Shutdown)
	return f
}

func (f *fixture) get(t *testing.T, typ channel.ChannelType) channel.Channel {
	t.Helper()
	ch, err := f.store.Get(context.Background(), "bot-1", typ)
	require.NoError(t, err)
	return ch
}

// connected brings a channel to Connected with a succeeding validator.
func (f *fixture) connected(t *testing.T, typ channel.ChannelType) channel.Channel {
	t.Helper()
	_, err := f.orch.Connect(context.Background(), "bot-1", typ)
	require.NoError(t, err)
	f.orch.Wait()
	ch := f.get(t, typ)
	require.Equal(t, channel.StatusConnected, ch.Status)
	return ch
}
