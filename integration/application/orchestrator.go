package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

const (
	reasonTimeout   = "Connection attempt timed out"
	reasonCrashed   = "Validator crashed"
	reasonCancelled = "Connection attempt cancelled"
	reasonDefault   = "Validation failed"
)

type OrchestratorOptions struct {
	ValidationTimeout time.Duration
	Observer          Observer
	Clock             func() time.Time
}

type inflight struct {
	generation uint64
	cancel     context.CancelFunc
}

// Orchestrator drives the connect/disconnect lifecycle of every channel.
// Each connect attempt carries the channel generation it was started with and
// its result is only applied while that generation is still current.
type Orchestrator struct {
	store      ChannelStore
	validators map[channel.ChannelType]channel.Validator
	sink       channel.NotificationSink
	timeout    time.Duration
	observer   Observer
	now        func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc
	closed  atomic.Bool
	wg      sync.WaitGroup

	// lifecycleMu orders wg.Add in Connect against Shutdown's wg.Wait.
	lifecycleMu sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]inflight
}

func NewOrchestrator(store ChannelStore, validators map[channel.ChannelType]channel.Validator, sink channel.NotificationSink, opts OrchestratorOptions) *Orchestrator {
	if sink == nil {
		sink = nopSink{}
	}
	if opts.ValidationTimeout <= 0 {
		opts.ValidationTimeout = 10 * time.Second
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:      store,
		validators: validators,
		sink:       sink,
		timeout:    opts.ValidationTimeout,
		observer:   opts.Observer,
		now:        opts.Clock,
		baseCtx:    ctx,
		stop:       cancel,
		inflight:   make(map[string]inflight),
	}
}

// Connect moves the channel to Pending and validates it in the background.
// The returned snapshot is the Pending state.
func (o *Orchestrator) Connect(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error) {
	if !o.begin() {
		return channel.Channel{}, pkgError.InvalidStateError("orchestrator is shutting down")
	}
	started := false
	defer func() {
		if !started {
			o.wg.Done()
		}
	}()

	validator, ok := o.validators[t]
	if !ok {
		return channel.Channel{}, pkgError.NotSupportedError(fmt.Sprintf("no validator registered for %s", t))
	}

	var (
		generation uint64
		cfg        channel.ChannelConfig
	)
	pending, err := o.store.Update(ctx, chatbotID, t, func(ch *channel.Channel) error {
		if !ch.Status.CanConnect() {
			return pkgError.InvalidTransitionError(fmt.Sprintf("cannot connect %s while it is %s", ch.ID, ch.Status))
		}
		ch.Generation++
		ch.Status = channel.StatusPending
		ch.ErrorMessage = ""
		generation = ch.Generation
		cfg = ch.Config.Clone()
		return nil
	})
	if err != nil {
		return channel.Channel{}, err
	}

	attemptCtx, cancel := context.WithTimeout(o.baseCtx, o.timeout)
	o.trackAttempt(pending.ID, generation, cancel)

	logrus.Infof("[ORCHESTRATOR] Connecting %s (generation %d)", pending.ID, generation)
	o.sink.Notify(channel.NotificationInfo, fmt.Sprintf("Connecting %s...", displayName(t)))

	started = true
	go o.validate(attemptCtx, cancel, pending, generation, cfg, validator)

	return pending, nil
}

func (o *Orchestrator) validate(ctx context.Context, cancel context.CancelFunc, pending channel.Channel, generation uint64, cfg channel.ChannelConfig, v channel.Validator) {
	defer o.wg.Done()
	defer cancel()
	defer o.untrackAttempt(pending.ID, generation)

	start := time.Now()
	err := runBounded(ctx, func(ctx context.Context) error {
		return v.Validate(ctx, cfg)
	})
	elapsed := time.Since(start)

	outcome, reason := classify(ctx, err)

	_, uerr := o.store.Update(context.Background(), pending.ChatbotID, pending.Type, func(ch *channel.Channel) error {
		if ch.Generation != generation || ch.Status != channel.StatusPending {
			return errStaleAttempt
		}
		if outcome == OutcomeSuccess {
			synced := o.now()
			ch.Status = channel.StatusConnected
			ch.LastSyncAt = &synced
			ch.ResetMetrics()
			ch.ErrorMessage = ""
			ch.LastTestResult = nil
			ch.LastTestedAt = nil
			return nil
		}
		ch.Status = channel.StatusError
		ch.ErrorMessage = reason
		return nil
	})

	switch {
	case errors.Is(uerr, errStaleAttempt):
		o.observer.ObserveValidation(pending.Type, OutcomeStale, elapsed)
		logrus.Debugf("[ORCHESTRATOR] Discarding %s result for %s: generation %d is no longer current", outcome, pending.ID, generation)
		return
	case uerr != nil:
		logrus.WithError(uerr).Errorf("[ORCHESTRATOR] Failed to apply validation result for %s", pending.ID)
		return
	}

	o.observer.ObserveValidation(pending.Type, outcome, elapsed)

	if outcome == OutcomeSuccess {
		logrus.Infof("[ORCHESTRATOR] %s connected in %s", pending.ID, elapsed.Round(time.Millisecond))
		o.sink.Notify(channel.NotificationSuccess, fmt.Sprintf("%s connected successfully", displayName(pending.Type)))
		return
	}
	logrus.Warnf("[ORCHESTRATOR] %s failed to connect (%s): %s", pending.ID, outcome, reason)
	o.sink.Notify(channel.NotificationError, fmt.Sprintf("%s connection failed: %s", displayName(pending.Type), reason))
}

// classify turns the raw validator result into an outcome and the message
// stored on the channel.
func classify(ctx context.Context, err error) (string, string) {
	switch {
	case err == nil:
		return OutcomeSuccess, ""
	case errors.Is(err, errCheckPanicked):
		return OutcomePanic, reasonCrashed
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout, reasonTimeout
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return OutcomeCancelled, reasonCancelled
	}
	reason := err.Error()
	if reason == "" {
		reason = reasonDefault
	}
	return OutcomeFailure, reason
}

// Disconnect moves the channel to Disconnected. A Pending attempt is
// cancelled: its generation is superseded so its result is discarded.
func (o *Orchestrator) Disconnect(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error) {
	var generation uint64
	updated, err := o.store.Update(ctx, chatbotID, t, func(ch *channel.Channel) error {
		if !ch.Status.CanDisconnect() {
			return pkgError.InvalidTransitionError(fmt.Sprintf("cannot disconnect %s while it is %s", ch.ID, ch.Status))
		}
		ch.Generation++
		ch.Status = channel.StatusDisconnected
		ch.ResetMetrics()
		ch.LastSyncAt = nil
		ch.ErrorMessage = ""
		ch.LastTestResult = nil
		ch.LastTestedAt = nil
		generation = ch.Generation
		return nil
	})
	if err != nil {
		return channel.Channel{}, err
	}

	o.cancelAttemptsBefore(updated.ID, generation)

	logrus.Infof("[ORCHESTRATOR] Disconnected %s (generation %d)", updated.ID, generation)
	o.sink.Notify(channel.NotificationInfo, fmt.Sprintf("%s disconnected", displayName(t)))
	return updated, nil
}

// UpdateConfig replaces the channel configuration. Only allowed while the
// channel is not connected or connecting.
func (o *Orchestrator) UpdateConfig(ctx context.Context, chatbotID string, t channel.ChannelType, cfg channel.ChannelConfig) (channel.Channel, error) {
	return o.store.Update(ctx, chatbotID, t, func(ch *channel.Channel) error {
		if !ch.Status.Editable() {
			return pkgError.InvalidTransitionError(fmt.Sprintf("disconnect %s before changing its configuration", ch.ID))
		}
		ch.Config = cfg.Clone()
		return nil
	})
}

// ConnectMany starts several connects at once. Every precondition failure is
// reported; the channels that could start keep going.
func (o *Orchestrator) ConnectMany(ctx context.Context, chatbotID string, types ...channel.ChannelType) ([]channel.Channel, error) {
	var (
		mu      sync.Mutex
		started []channel.Channel
		g       multierror.Group
	)
	for _, t := range types {
		t := t
		g.Go(func() error {
			ch, err := o.Connect(ctx, chatbotID, t)
			if err != nil {
				return fmt.Errorf("%s: %w", t, err)
			}
			mu.Lock()
			started = append(started, ch)
			mu.Unlock()
			return nil
		})
	}
	return started, g.Wait().ErrorOrNil()
}

// Wait blocks until every in-flight validation has been applied or discarded.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown refuses new connects, cancels the in-flight ones and waits for
// them to settle.
func (o *Orchestrator) Shutdown() {
	o.lifecycleMu.Lock()
	already := o.closed.Swap(true)
	o.lifecycleMu.Unlock()
	if already {
		return
	}
	o.stop()
	o.wg.Wait()
	logrus.Info("[ORCHESTRATOR] Stopped")
}

// begin registers a connect with the wait group unless shutdown has started.
func (o *Orchestrator) begin() bool {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()
	if o.closed.Load() {
		return false
	}
	o.wg.Add(1)
	return true
}

func (o *Orchestrator) trackAttempt(id string, generation uint64, cancel context.CancelFunc) {
	o.inflightMu.Lock()
	o.inflight[id] = inflight{generation: generation, cancel: cancel}
	o.inflightMu.Unlock()
}

func (o *Orchestrator) untrackAttempt(id string, generation uint64) {
	o.inflightMu.Lock()
	if cur, ok := o.inflight[id]; ok && cur.generation == generation {
		delete(o.inflight, id)
	}
	o.inflightMu.Unlock()
}

func (o *Orchestrator) cancelAttemptsBefore(id string, generation uint64) {
	o.inflightMu.Lock()
	cur, ok := o.inflight[id]
	if ok && cur.generation < generation {
		delete(o.inflight, id)
	}
	o.inflightMu.Unlock()
	if ok && cur.generation < generation {
		cur.cancel()
	}
}

func displayName(t channel.ChannelType) string {
	switch t {
	case channel.ChannelTypeWebsite:
		return "Website"
	case channel.ChannelTypeWhatsApp:
		return "WhatsApp"
	case channel.ChannelTypeMessenger:
		return "Messenger"
	case channel.ChannelTypeTelegram:
		return "Telegram"
	case channel.ChannelTypeInstagram:
		return "Instagram"
	case channel.ChannelTypeShopify:
		return "Shopify"
	case channel.ChannelTypeEmail:
		return "Email"
	case channel.ChannelTypeSMS:
		return "SMS"
	}
	return string(t)
}
