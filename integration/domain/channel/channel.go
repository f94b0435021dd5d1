package channel

import (
	"fmt"
	"strings"
	"time"

	pkgError "github.com/AzielCF/az-connect/pkg/error"
)

type ChannelType string

const (
	ChannelTypeWebsite   ChannelType = "website"
	ChannelTypeWhatsApp  ChannelType = "whatsapp"
	ChannelTypeMessenger ChannelType = "messenger"
	ChannelTypeTelegram  ChannelType = "telegram"
	ChannelTypeInstagram ChannelType = "instagram"
	ChannelTypeShopify   ChannelType = "shopify"
	ChannelTypeEmail     ChannelType = "email"
	ChannelTypeSMS       ChannelType = "sms"
)

// AllTypes is the catalog order used everywhere a full channel set is listed.
var AllTypes = []ChannelType{
	ChannelTypeWebsite,
	ChannelTypeWhatsApp,
	ChannelTypeMessenger,
	ChannelTypeTelegram,
	ChannelTypeInstagram,
	ChannelTypeShopify,
	ChannelTypeEmail,
	ChannelTypeSMS,
}

func (t ChannelType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseType resolves a user supplied channel type name.
func ParseType(raw string) (ChannelType, error) {
	t := ChannelType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", pkgError.NotFoundError(fmt.Sprintf("unknown channel type %q", raw))
	}
	return t, nil
}

type ChannelConfig struct {
	APIKey      string            `json:"api_key,omitempty"`
	AccessToken string            `json:"access_token,omitempty"`
	PhoneNumber string            `json:"phone_number,omitempty"`
	WebhookURL  string            `json:"webhook_url,omitempty"`
	Settings    map[string]string `json:"settings,omitempty"`
}

// Setting returns a trimmed free-form setting, empty when absent.
func (c ChannelConfig) Setting(key string) string {
	if c.Settings == nil {
		return ""
	}
	return strings.TrimSpace(c.Settings[key])
}

func (c ChannelConfig) Clone() ChannelConfig {
	out := c
	if c.Settings != nil {
		out.Settings = make(map[string]string, len(c.Settings))
		for k, v := range c.Settings {
			out.Settings[k] = v
		}
	}
	return out
}

// Redacted hides credentials for read models.
func (c ChannelConfig) Redacted() ChannelConfig {
	out := c.Clone()
	out.APIKey = mask(out.APIKey)
	out.AccessToken = mask(out.AccessToken)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

type ChannelMetrics struct {
	TotalMessages              int64      `json:"total_messages"`
	ResponseRate               float64    `json:"response_rate"`
	AverageResponseTimeSeconds float64    `json:"average_response_time_seconds"`
	ActiveUsers                int64      `json:"active_users"`
	ConversionRate             float64    `json:"conversion_rate"`
	LastMessageAt              *time.Time `json:"last_message_at,omitempty"`
}

// Channel is the connection slot of one chatbot for one platform.
type Channel struct {
	ID             string         `json:"id"`
	ChatbotID      string         `json:"chatbot_id"`
	Type           ChannelType    `json:"type"`
	Status         ChannelStatus  `json:"status"`
	Config         ChannelConfig  `json:"config"`
	Metrics        ChannelMetrics `json:"metrics"`
	LastSyncAt     *time.Time     `json:"last_sync_at,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	LastTestResult *bool          `json:"last_test_result,omitempty"`
	LastTestedAt   *time.Time     `json:"last_tested_at,omitempty"`
	Generation     uint64         `json:"generation"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func ChannelID(chatbotID string, t ChannelType) string {
	return chatbotID + ":" + string(t)
}

// New builds the initial slot for a chatbot. Website needs no external
// approval and starts connected.
func New(chatbotID string, t ChannelType, now time.Time) Channel {
	ch := Channel{
		ID:        ChannelID(chatbotID, t),
		ChatbotID: chatbotID,
		Type:      t,
		Status:    StatusDisconnected,
		UpdatedAt: now,
	}
	if t == ChannelTypeWebsite {
		ch.Status = StatusConnected
		synced := now
		ch.LastSyncAt = &synced
	}
	return ch
}

// Clone deep copies every pointer and map so snapshots never alias store state.
func (c Channel) Clone() Channel {
	out := c
	out.Config = c.Config.Clone()
	out.Metrics.LastMessageAt = cloneTime(c.Metrics.LastMessageAt)
	out.LastSyncAt = cloneTime(c.LastSyncAt)
	out.LastTestedAt = cloneTime(c.LastTestedAt)
	if c.LastTestResult != nil {
		v := *c.LastTestResult
		out.LastTestResult = &v
	}
	return out
}

// ResetMetrics zeroes the telemetry. Called whenever the channel leaves Connected.
func (c *Channel) ResetMetrics() {
	c.Metrics = ChannelMetrics{}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
