package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/AzielCF/az-connect/pkg/crypto"
	"github.com/AzielCF/az-connect/pkg/eventworker"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	EventStatusChanged = "channel.status_changed"
	SignatureHeader    = "X-Az-Signature"
)

type Payload struct {
	ID         string                `json:"id"`
	Event      string                `json:"event"`
	Previous   channel.ChannelStatus `json:"previous"`
	Channel    channel.Channel       `json:"channel"`
	OccurredAt time.Time             `json:"occurred_at"`
}

type Options struct {
	URLs        []string
	Secret      string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	Client      *fasthttp.Client
}

// Forwarder posts status changes to the configured webhook URLs. Deliveries
// run on the event worker pool keyed by chatbot, so each endpoint sees the
// changes of one chatbot in commit order.
type Forwarder struct {
	opts   Options
	pool   *eventworker.Pool
	client *fasthttp.Client
	now    func() time.Time
}

func NewForwarder(pool *eventworker.Pool, opts Options) *Forwarder {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	client := opts.Client
	if client == nil {
		client = &fasthttp.Client{Name: "az-connect-webhook"}
	}
	return &Forwarder{opts: opts, pool: pool, client: client, now: func() time.Time { return time.Now().UTC() }}
}

// Listen queues a delivery for every status change.
func (f *Forwarder) Listen(ev channel.ChangeEvent) {
	if len(f.opts.URLs) == 0 || ev.Previous == "" || ev.Previous == ev.Channel.Status {
		return
	}
	ch := ev.Channel
	ch.Config = ch.Config.Redacted()
	payload := Payload{
		ID:         uuid.NewString(),
		Event:      EventStatusChanged,
		Previous:   ev.Previous,
		Channel:    ch,
		OccurredAt: f.now(),
	}
	f.pool.Dispatch(eventworker.Job{
		Key:  ch.ChatbotID,
		Kind: "webhook",
		Handler: func(ctx context.Context) error {
			return f.Deliver(ctx, payload)
		},
	})
}

// Deliver sends payload to every URL. It fails only when no URL accepted it.
func (f *Forwarder) Deliver(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var (
		result    *multierror.Error
		successes int
	)
	for _, url := range f.opts.URLs {
		if err := f.submit(ctx, url, body); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", url, err))
			continue
		}
		successes++
	}

	total := len(f.opts.URLs)
	switch {
	case successes == 0 && total > 0:
		return result.ErrorOrNil()
	case result != nil:
		logrus.Warnf("[WEBHOOK] %s delivered to %d/%d endpoints: %v", payload.Event, successes, total, result)
	default:
		logrus.Debugf("[WEBHOOK] %s delivered to %d endpoint(s)", payload.Event, total)
	}
	return nil
}

func (f *Forwarder) submit(ctx context.Context, url string, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if f.opts.Secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+crypto.Sign(body, f.opts.Secret))
	}
	req.SetBody(body)

	backoff := f.opts.Backoff
	var err error
	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		err = f.client.DoTimeout(req, resp, f.opts.Timeout)
		if err == nil {
			if sc := resp.StatusCode(); sc >= 200 && sc < 300 {
				return nil
			}
			err = fmt.Errorf("webhook returned status %d", resp.StatusCode())
		}
		logrus.Warnf("[WEBHOOK] Attempt %d to %s failed: %v", attempt, url, err)
		if attempt == f.opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("gave up after %d attempts: %w", f.opts.MaxAttempts, err)
}
