package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/sirupsen/logrus"
)

const interruptedMessage = "Connection attempt interrupted by restart"

// TypeLister is the part of the registry the store needs.
type TypeLister interface {
	Types() []channel.ChannelType
}

// slot guards a single channel. Its mutex is the only thing that serializes
// writers of that channel.
type slot struct {
	mu sync.Mutex
	ch channel.Channel
}

type chatbotSlots struct {
	slots map[channel.ChannelType]*slot
}

// MemoryStore keeps every chatbot's channel set in memory. The top level lock
// only protects the chatbot map; channel updates never take it for writing.
type MemoryStore struct {
	types []channel.ChannelType

	mu       sync.RWMutex
	chatbots map[string]*chatbotSlots

	listenersMu sync.RWMutex
	listeners   []channel.ChangeListener

	loader channel.SnapshotRepository
	now    func() time.Time
}

type Option func(*MemoryStore)

// WithLoader hydrates a chatbot from persisted snapshots on Initialize.
func WithLoader(repo channel.SnapshotRepository) Option {
	return func(s *MemoryStore) { s.loader = repo }
}

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(reg TypeLister, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		types:    reg.Types(),
		chatbots: make(map[string]*chatbotSlots),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener called after every committed change. It runs
// while the channel is still locked, so it must not call back into the store
// for the same channel and must not block.
func (s *MemoryStore) Subscribe(l channel.ChangeListener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// Initialize creates the full channel set for a chatbot. Calling it again
// returns the existing set untouched.
func (s *MemoryStore) Initialize(ctx context.Context, chatbotID string) ([]channel.Channel, error) {
	if chatbotID == "" {
		return nil, pkgError.ValidationError("chatbot id is required")
	}

	if existing := s.lookup(chatbotID); existing != nil {
		return s.snapshot(existing), nil
	}

	built, restored, err := s.build(ctx, chatbotID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.chatbots[chatbotID]; ok {
		s.mu.Unlock()
		return s.snapshot(existing), nil
	}
	s.chatbots[chatbotID] = built
	s.mu.Unlock()

	logrus.Infof("[STORE] Initialized %d channels for chatbot %s (restored=%t)", len(s.types), chatbotID, restored)

	for _, t := range s.types {
		sl := built.slots[t]
		sl.mu.Lock()
		s.emit("", sl.ch)
		sl.mu.Unlock()
	}

	return s.snapshot(built), nil
}

func (s *MemoryStore) build(ctx context.Context, chatbotID string) (*chatbotSlots, bool, error) {
	persisted := map[channel.ChannelType]channel.Channel{}
	if s.loader != nil {
		loaded, err := s.loader.LoadChannels(ctx, chatbotID)
		if err != nil {
			return nil, false, fmt.Errorf("load channels of %s: %w", chatbotID, err)
		}
		for _, ch := range loaded {
			persisted[ch.Type] = ch
		}
	}

	now := s.now()
	cs := &chatbotSlots{slots: make(map[channel.ChannelType]*slot, len(s.types))}
	for _, t := range s.types {
		ch, ok := persisted[t]
		if ok && ch.Status.Valid() {
			ch = restore(ch, chatbotID, t, now)
		} else {
			ch = channel.New(chatbotID, t, now)
		}
		cs.slots[t] = &slot{ch: ch}
	}
	return cs, len(persisted) > 0, nil
}

// restore brings a persisted channel back. An attempt that was in flight when
// the process stopped cannot be resumed, so it surfaces as an error.
func restore(ch channel.Channel, chatbotID string, t channel.ChannelType, now time.Time) channel.Channel {
	ch.ID = channel.ChannelID(chatbotID, t)
	ch.ChatbotID = chatbotID
	ch.Type = t
	if ch.Status == channel.StatusPending {
		ch.Generation++
		ch.Status = channel.StatusError
		ch.ErrorMessage = interruptedMessage
		ch.UpdatedAt = now
	}
	normalize(&ch)
	return ch
}

func (s *MemoryStore) Get(_ context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error) {
	sl, err := s.slot(chatbotID, t)
	if err != nil {
		return channel.Channel{}, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.ch.Clone(), nil
}

// List returns the chatbot's channels in registry order.
func (s *MemoryStore) List(_ context.Context, chatbotID string) ([]channel.Channel, error) {
	cs := s.lookup(chatbotID)
	if cs == nil {
		return nil, pkgError.NotFoundError(fmt.Sprintf("chatbot %s has no channels", chatbotID))
	}
	return s.snapshot(cs), nil
}

// Update runs fn against a private copy of the channel while holding the
// channel's lock. When fn fails nothing is committed and the error is
// returned together with the unchanged channel.
func (s *MemoryStore) Update(_ context.Context, chatbotID string, t channel.ChannelType, fn func(*channel.Channel) error) (channel.Channel, error) {
	sl, err := s.slot(chatbotID, t)
	if err != nil {
		return channel.Channel{}, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	draft := sl.ch.Clone()
	if err := fn(&draft); err != nil {
		return sl.ch.Clone(), err
	}

	draft.ID = sl.ch.ID
	draft.ChatbotID = sl.ch.ChatbotID
	draft.Type = sl.ch.Type
	if !draft.Status.Valid() {
		return sl.ch.Clone(), pkgError.InvalidTransitionError(fmt.Sprintf("unknown status %q", string(draft.Status)))
	}
	normalize(&draft)
	draft.UpdatedAt = s.now()

	prev := sl.ch.Status
	sl.ch = draft
	s.emit(prev, draft)

	return draft.Clone(), nil
}

// Chatbots lists the initialized chatbot ids in a stable order.
func (s *MemoryStore) Chatbots() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.chatbots))
	for id := range s.chatbots {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (s *MemoryStore) lookup(chatbotID string) *chatbotSlots {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatbots[chatbotID]
}

func (s *MemoryStore) slot(chatbotID string, t channel.ChannelType) (*slot, error) {
	cs := s.lookup(chatbotID)
	if cs == nil {
		return nil, pkgError.NotFoundError(fmt.Sprintf("chatbot %s has no channels", chatbotID))
	}
	sl, ok := cs.slots[t]
	if !ok {
		return nil, pkgError.NotFoundError(fmt.Sprintf("channel %s not found", channel.ChannelID(chatbotID, t)))
	}
	return sl, nil
}

func (s *MemoryStore) snapshot(cs *chatbotSlots) []channel.Channel {
	out := make([]channel.Channel, 0, len(s.types))
	for _, t := range s.types {
		sl := cs.slots[t]
		sl.mu.Lock()
		out = append(out, sl.ch.Clone())
		sl.mu.Unlock()
	}
	return out
}

func (s *MemoryStore) emit(prev channel.ChannelStatus, ch channel.Channel) {
	s.listenersMu.RLock()
	listeners := s.listeners
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logrus.Errorf("[STORE] Change listener panic for %s: %v", ch.ID, r)
				}
			}()
			l(channel.ChangeEvent{Previous: prev, Channel: ch.Clone()})
		}()
	}
}

// normalize enforces the invariants that hold for every committed channel.
func normalize(ch *channel.Channel) {
	if ch.Status != channel.StatusConnected {
		ch.ResetMetrics()
	}
	if ch.Status != channel.StatusError {
		ch.ErrorMessage = ""
	} else if ch.ErrorMessage == "" {
		ch.ErrorMessage = "Unknown error"
	}
}
