package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/AzielCF/az-connect/pkg/crypto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChannelModel struct {
	ID             string `gorm:"primaryKey;column:id"`
	ChatbotID      string `gorm:"column:chatbot_id;index"`
	Type           string `gorm:"column:type"`
	Status         string `gorm:"column:status"`
	APIKey         string `gorm:"column:api_key"`
	AccessToken    string `gorm:"column:access_token"`
	PhoneNumber    string `gorm:"column:phone_number"`
	WebhookURL     string `gorm:"column:webhook_url"`
	Settings       string `gorm:"column:settings;type:text"`
	TotalMessages  int64
	ResponseRate   float64
	AvgResponseSec float64 `gorm:"column:avg_response_seconds"`
	ActiveUsers    int64
	ConversionRate float64
	LastMessageAt  *time.Time
	LastSyncAt     *time.Time
	ErrorMessage   string
	LastTestResult *bool
	LastTestedAt   *time.Time
	Generation     uint64
	UpdatedAt      time.Time
}

func (ChannelModel) TableName() string {
	return "integration_channels"
}

// ChannelRepository keeps the last committed snapshot of every channel.
// Credentials are sealed before they touch the database.
type ChannelRepository struct {
	db     *gorm.DB
	sealer *crypto.Sealer
}

func NewChannelRepository(db *gorm.DB, sealer *crypto.Sealer) *ChannelRepository {
	return &ChannelRepository{db: db, sealer: sealer}
}

func (r *ChannelRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&ChannelModel{})
}

func (r *ChannelRepository) LoadChannels(ctx context.Context, chatbotID string) ([]channel.Channel, error) {
	var models []ChannelModel
	if err := r.db.WithContext(ctx).Where("chatbot_id = ?", chatbotID).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]channel.Channel, 0, len(models))
	for _, m := range models {
		ch, err := r.fromChannelModel(m)
		if err != nil {
			return nil, fmt.Errorf("load channel %s: %w", m.ID, err)
		}
		out = append(out, ch)
	}
	return out, nil
}

func (r *ChannelRepository) SaveChannel(ctx context.Context, ch channel.Channel) error {
	m, err := r.toChannelModel(ch)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
}

func (r *ChannelRepository) toChannelModel(ch channel.Channel) (ChannelModel, error) {
	apiKey, err := r.sealer.Seal(ch.Config.APIKey)
	if err != nil {
		return ChannelModel{}, err
	}
	token, err := r.sealer.Seal(ch.Config.AccessToken)
	if err != nil {
		return ChannelModel{}, err
	}
	settings := "{}"
	if len(ch.Config.Settings) > 0 {
		raw, err := json.Marshal(ch.Config.Settings)
		if err != nil {
			return ChannelModel{}, err
		}
		settings = string(raw)
	}
	return ChannelModel{
		ID:             ch.ID,
		ChatbotID:      ch.ChatbotID,
		Type:           string(ch.Type),
		Status:         string(ch.Status),
		APIKey:         apiKey,
		AccessToken:    token,
		PhoneNumber:    ch.Config.PhoneNumber,
		WebhookURL:     ch.Config.WebhookURL,
		Settings:       settings,
		TotalMessages:  ch.Metrics.TotalMessages,
		ResponseRate:   ch.Metrics.ResponseRate,
		AvgResponseSec: ch.Metrics.AverageResponseTimeSeconds,
		ActiveUsers:    ch.Metrics.ActiveUsers,
		ConversionRate: ch.Metrics.ConversionRate,
		LastMessageAt:  ch.Metrics.LastMessageAt,
		LastSyncAt:     ch.LastSyncAt,
		ErrorMessage:   ch.ErrorMessage,
		LastTestResult: ch.LastTestResult,
		LastTestedAt:   ch.LastTestedAt,
		Generation:     ch.Generation,
		UpdatedAt:      ch.UpdatedAt,
	}, nil
}

func (r *ChannelRepository) fromChannelModel(m ChannelModel) (channel.Channel, error) {
	apiKey, err := r.sealer.Open(m.APIKey)
	if err != nil {
		return channel.Channel{}, err
	}
	token, err := r.sealer.Open(m.AccessToken)
	if err != nil {
		return channel.Channel{}, err
	}
	var settings map[string]string
	if m.Settings != "" && m.Settings != "{}" {
		if err := json.Unmarshal([]byte(m.Settings), &settings); err != nil {
			return channel.Channel{}, err
		}
	}
	return channel.Channel{
		ID:        m.ID,
		ChatbotID: m.ChatbotID,
		Type:      channel.ChannelType(m.Type),
		Status:    channel.ChannelStatus(m.Status),
		Config: channel.ChannelConfig{
			APIKey:      apiKey,
			AccessToken: token,
			PhoneNumber: m.PhoneNumber,
			WebhookURL:  m.WebhookURL,
			Settings:    settings,
		},
		Metrics: channel.ChannelMetrics{
			TotalMessages:              m.TotalMessages,
			ResponseRate:               m.ResponseRate,
			AverageResponseTimeSeconds: m.AvgResponseSec,
			ActiveUsers:                m.ActiveUsers,
			ConversionRate:             m.ConversionRate,
			LastMessageAt:              m.LastMessageAt,
		},
		LastSyncAt:     m.LastSyncAt,
		ErrorMessage:   m.ErrorMessage,
		LastTestResult: m.LastTestResult,
		LastTestedAt:   m.LastTestedAt,
		Generation:     m.Generation,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}
