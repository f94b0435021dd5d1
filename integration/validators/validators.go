package validators

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/valyala/fasthttp"
)

// Options carries the endpoints the remote checks talk to. Tests point them
// at local servers.
type Options struct {
	GraphAPIBaseURL string
	TelegramAPIURL  string
	Client          *fasthttp.Client
}

// Set is the validator registry handed to the orchestrator.
type Set map[channel.ChannelType]channel.Validator

// Default builds a validator for every supported channel type.
func Default(opts Options) Set {
	if opts.GraphAPIBaseURL == "" {
		opts.GraphAPIBaseURL = "https://graph.facebook.com/v19.0"
	}
	if opts.TelegramAPIURL == "" {
		opts.TelegramAPIURL = "https://api.telegram.org"
	}
	hc := newHTTPClient(opts.Client)

	return Set{
		channel.ChannelTypeWebsite:   Noop(),
		channel.ChannelTypeShopify:   Noop(),
		channel.ChannelTypeWhatsApp:  &WhatsApp{baseURL: opts.GraphAPIBaseURL, http: hc},
		channel.ChannelTypeMessenger: &GraphObject{kind: "messenger", settingKey: "page_id", baseURL: opts.GraphAPIBaseURL, http: hc},
		channel.ChannelTypeInstagram: &GraphObject{kind: "instagram", settingKey: "instagram_account_id", baseURL: opts.GraphAPIBaseURL, http: hc},
		channel.ChannelTypeTelegram:  &Telegram{baseURL: opts.TelegramAPIURL, http: hc},
		channel.ChannelTypeEmail:     &Email{},
		channel.ChannelTypeSMS:       &SMS{http: hc},
	}
}

// Noop accepts any configuration. Used by channels that have no remote
// handshake, such as the embeddable widgets.
func Noop() channel.Validator {
	return channel.ValidatorFunc(func(ctx context.Context, cfg channel.ChannelConfig) error {
		return ctx.Err()
	})
}

// shapeError flattens an ozzo error into a single reason line.
func shapeError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		return errors.New(errs.Error())
	}
	return err
}

func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(10 * time.Second)
}
