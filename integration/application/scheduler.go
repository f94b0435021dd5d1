package application

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ChatbotLister enumerates the chatbots the store knows about.
type ChatbotLister interface {
	Chatbots() []string
}

type SweepResult struct {
	Tested  int `json:"tested"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// HealthScheduler periodically tests every connected channel. It never
// reconnects anything; a failed test leaves the channel in Error.
type HealthScheduler struct {
	runner      *TestRunner
	store       ChannelStore
	chatbots    ChatbotLister
	concurrency int
	cron        *cron.Cron
}

func NewHealthScheduler(runner *TestRunner, store ChannelStore, chatbots ChatbotLister, concurrency int) *HealthScheduler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &HealthScheduler{
		runner:      runner,
		store:       store,
		chatbots:    chatbots,
		concurrency: concurrency,
		cron:        cron.New(),
	}
}

// Start schedules the sweep with a cron spec such as "@every 10m".
func (s *HealthScheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		res, err := s.Sweep(context.Background())
		if err != nil {
			logrus.WithError(err).Error("[SCHEDULER] Health sweep failed")
			return
		}
		logrus.Infof("[SCHEDULER] Health sweep done: tested=%d failed=%d skipped=%d", res.Tested, res.Failed, res.Skipped)
	}); err != nil {
		return err
	}
	s.cron.Start()
	logrus.Infof("[SCHEDULER] Health checks scheduled (%s)", spec)
	return nil
}

func (s *HealthScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep tests every connected channel of every chatbot once.
func (s *HealthScheduler) Sweep(ctx context.Context) (SweepResult, error) {
	var tested, failed, skipped int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, chatbotID := range s.chatbots.Chatbots() {
		channels, err := s.store.List(gctx, chatbotID)
		if err != nil {
			return SweepResult{}, err
		}
		for _, ch := range channels {
			if ch.Status != channel.StatusConnected {
				continue
			}
			ch := ch
			g.Go(func() error {
				passed, err := s.runner.RunTest(gctx, ch.ChatbotID, ch.Type)
				if err != nil {
					var invalid pkgError.InvalidStateError
					if errors.As(err, &invalid) {
						atomic.AddInt64(&skipped, 1)
						return nil
					}
					return err
				}
				atomic.AddInt64(&tested, 1)
				if !passed {
					atomic.AddInt64(&failed, 1)
				}
				return nil
			})
		}
	}

	err := g.Wait()
	return SweepResult{Tested: int(tested), Failed: int(failed), Skipped: int(skipped)}, err
}
