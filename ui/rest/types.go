package rest

import (
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/dustin/go-humanize"
)

// channelView is the read model served to dashboards. Credentials are
// masked.
type channelView struct {
	channel.Channel
	DisplayName    string `json:"display_name"`
	LastSyncHuman  string `json:"last_sync_human,omitempty"`
	LastTestHuman  string `json:"last_tested_human,omitempty"`
	TotalMsgsHuman string `json:"total_messages_human"`
}

func toView(ch channel.Channel, names map[channel.ChannelType]string, now time.Time) channelView {
	ch.Config = ch.Config.Redacted()
	v := channelView{
		Channel:        ch,
		DisplayName:    names[ch.Type],
		TotalMsgsHuman: humanize.Comma(ch.Metrics.TotalMessages),
	}
	if ch.LastSyncAt != nil {
		v.LastSyncHuman = humanize.RelTime(*ch.LastSyncAt, now, "ago", "from now")
	}
	if ch.LastTestedAt != nil {
		v.LastTestHuman = humanize.RelTime(*ch.LastTestedAt, now, "ago", "from now")
	}
	return v
}

type configRequest struct {
	APIKey      string            `json:"api_key"`
	AccessToken string            `json:"access_token"`
	PhoneNumber string            `json:"phone_number"`
	WebhookURL  string            `json:"webhook_url"`
	Settings    map[string]string `json:"settings"`
}

func (r configRequest) toConfig() channel.ChannelConfig {
	return channel.ChannelConfig{
		APIKey:      r.APIKey,
		AccessToken: r.AccessToken,
		PhoneNumber: r.PhoneNumber,
		WebhookURL:  r.WebhookURL,
		Settings:    r.Settings,
	}
}

type connectManyRequest struct {
	Types []string `json:"types"`
}

type testResult struct {
	Passed  bool        `json:"passed"`
	Channel channelView `json:"channel"`
}

type embedResult struct {
	ChatbotID   string              `json:"chatbot_id"`
	ChannelType channel.ChannelType `json:"channel_type"`
	Version     string              `json:"version"`
	Code        string              `json:"code"`
}
