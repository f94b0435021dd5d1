package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AzielCF/az-connect/integration/application"
	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/AzielCF/az-connect/integration/registry"
	"github.com/AzielCF/az-connect/integration/store"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/AzielCF/az-connect/pkg/eventworker"
	"github.com/AzielCF/az-connect/validations"
	"github.com/sirupsen/logrus"
)

// BrandingStore reads and writes chatbot branding.
type BrandingStore interface {
	channel.ChatbotConfigProvider
	Save(ctx context.Context, b channel.Branding) error
}

type Options struct {
	ValidationTimeout time.Duration
	TestTimeout       time.Duration
	Validators        map[channel.ChannelType]channel.Validator
	Checks            map[channel.ChannelType]channel.HealthCheck
	Sink              channel.NotificationSink
	Observer          application.Observer
	Snapshots         channel.SnapshotRepository
	History           channel.TestHistoryRepository
	Branding          BrandingStore
	Pool              *eventworker.Pool
	EmbedScriptURL    string
	EmbedVersion      string
	Listeners         []channel.ChangeListener
	HealthConcurrency int
}

// Manager is the entry point the transports talk to.
type Manager struct {
	Registry     *registry.Registry
	Store        *store.MemoryStore
	Orchestrator *application.Orchestrator
	Tests        *application.TestRunner
	Ingestor     *application.MetricsIngestor
	Embed        *application.EmbedGenerator
	Scheduler    *application.HealthScheduler

	branding BrandingStore
	writer   *snapshotWriter
}

func NewManager(opts Options) *Manager {
	reg := registry.New()

	var storeOpts []store.Option
	if opts.Snapshots != nil {
		storeOpts = append(storeOpts, store.WithLoader(opts.Snapshots))
	}
	st := store.NewMemoryStore(reg, storeOpts...)

	var writer *snapshotWriter
	if opts.Snapshots != nil {
		writer = newSnapshotWriter(opts.Snapshots, opts.Pool)
		st.Subscribe(writer.Listen)
	}
	for _, l := range opts.Listeners {
		st.Subscribe(l)
	}

	branding := opts.Branding
	if branding == nil {
		branding = newMemoryBranding()
	}

	orch := application.NewOrchestrator(st, opts.Validators, opts.Sink, application.OrchestratorOptions{
		ValidationTimeout: opts.ValidationTimeout,
		Observer:          opts.Observer,
	})
	runner := application.NewTestRunner(st, opts.Checks, opts.Validators, opts.Sink, application.TestRunnerOptions{
		Timeout:  opts.TestTimeout,
		History:  opts.History,
		Observer: opts.Observer,
	})

	return &Manager{
		Registry:     reg,
		Store:        st,
		Orchestrator: orch,
		Tests:        runner,
		Ingestor:     application.NewMetricsIngestor(st),
		Embed:        application.NewEmbedGenerator(reg, opts.EmbedScriptURL, opts.EmbedVersion),
		Scheduler:    application.NewHealthScheduler(runner, st, st, opts.HealthConcurrency),
		branding:     branding,
		writer:       writer,
	}
}

func (m *Manager) Types() []channel.ChannelTemplate {
	return m.Registry.Templates()
}

func (m *Manager) Initialize(ctx context.Context, chatbotID string) ([]channel.Channel, error) {
	return m.Store.Initialize(ctx, chatbotID)
}

func (m *Manager) List(ctx context.Context, chatbotID string) ([]channel.Channel, error) {
	return m.Store.List(ctx, chatbotID)
}

func (m *Manager) Get(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error) {
	return m.Store.Get(ctx, chatbotID, t)
}

func (m *Manager) UpdateConfig(ctx context.Context, chatbotID string, t channel.ChannelType, cfg channel.ChannelConfig) (channel.Channel, error) {
	if err := validations.ValidateChannelConfig(ctx, cfg); err != nil {
		return channel.Channel{}, err
	}
	return m.Orchestrator.UpdateConfig(ctx, chatbotID, t, cfg)
}

func (m *Manager) Connect(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error) {
	return m.Orchestrator.Connect(ctx, chatbotID, t)
}

// ConnectMany starts every given type. Channels that could start are returned
// together with the aggregated precondition errors of the others.
func (m *Manager) ConnectMany(ctx context.Context, chatbotID string, types ...channel.ChannelType) ([]channel.Channel, error) {
	return m.Orchestrator.ConnectMany(ctx, chatbotID, types...)
}

// AwaitSettled polls until the channel leaves Pending or ctx ends.
func (m *Manager) AwaitSettled(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error) {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		ch, err := m.Store.Get(ctx, chatbotID, t)
		if err != nil {
			return channel.Channel{}, err
		}
		if ch.Status != channel.StatusPending {
			return ch, nil
		}
		select {
		case <-ctx.Done():
			return ch, pkgError.TimeoutError(fmt.Sprintf("%s is still pending", ch.ID))
		case <-ticker.C:
		}
	}
}

func (m *Manager) Disconnect(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error) {
	return m.Orchestrator.Disconnect(ctx, chatbotID, t)
}

func (m *Manager) RunTest(ctx context.Context, chatbotID string, t channel.ChannelType) (bool, error) {
	return m.Tests.RunTest(ctx, chatbotID, t)
}

func (m *Manager) TestHistory(ctx context.Context, chatbotID string, t channel.ChannelType, limit int) ([]channel.TestRecord, error) {
	if _, err := m.Store.Get(ctx, chatbotID, t); err != nil {
		return nil, err
	}
	return m.Tests.History(ctx, chatbotID, t, limit)
}

func (m *Manager) IngestMetrics(ctx context.Context, chatbotID string, t channel.ChannelType, metrics channel.ChannelMetrics) (channel.Channel, error) {
	return m.Ingestor.Ingest(ctx, chatbotID, t, metrics)
}

func (m *Manager) Summary(ctx context.Context, chatbotID string) (application.Summary, error) {
	channels, err := m.Store.List(ctx, chatbotID)
	if err != nil {
		return application.Summary{}, err
	}
	return application.Summarize(channels), nil
}

func (m *Manager) EmbedCode(ctx context.Context, chatbotID string, t channel.ChannelType) (string, error) {
	ch, err := m.Store.Get(ctx, chatbotID, t)
	if err != nil {
		return "", err
	}
	b, err := m.branding.Branding(ctx, chatbotID)
	if err != nil {
		return "", fmt.Errorf("load branding: %w", err)
	}
	return m.Embed.Generate(ch, b)
}

func (m *Manager) Branding(ctx context.Context, chatbotID string) (channel.Branding, error) {
	return m.branding.Branding(ctx, chatbotID)
}

func (m *Manager) SaveBranding(ctx context.Context, b channel.Branding) (channel.Branding, error) {
	if err := validations.ValidateBranding(ctx, b); err != nil {
		return channel.Branding{}, err
	}
	if err := m.branding.Save(ctx, b); err != nil {
		return channel.Branding{}, err
	}
	return b, nil
}

// Close stops the scheduler and cancels in-flight connect attempts.
func (m *Manager) Close() {
	m.Scheduler.Stop()
	m.Orchestrator.Shutdown()
	if m.writer != nil {
		m.writer.Flush()
	}
	logrus.Info("[INTEGRATION] Manager stopped")
}

type memoryBranding struct {
	mu sync.RWMutex
	m  map[string]channel.Branding
}

func newMemoryBranding() *memoryBranding {
	return &memoryBranding{m: map[string]channel.Branding{}}
}

func (b *memoryBranding) Branding(_ context.Context, chatbotID string) (channel.Branding, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := b.m[chatbotID]; ok {
		return v, nil
	}
	return channel.DefaultBranding(chatbotID), nil
}

func (b *memoryBranding) Save(_ context.Context, v channel.Branding) error {
	b.mu.Lock()
	b.m[v.ChatbotID] = v
	b.mu.Unlock()
	return nil
}
