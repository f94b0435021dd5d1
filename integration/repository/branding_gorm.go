package repository

import (
	"context"
	"errors"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BrandingModel struct {
	ChatbotID      string `gorm:"primaryKey;column:chatbot_id"`
	Name           string
	PrimaryColor   string
	SecondaryColor string
	WelcomeMessage string
	Position       string
	AvatarURL      string
}

func (BrandingModel) TableName() string {
	return "chatbot_branding"
}

type BrandingRepository struct {
	db *gorm.DB
}

func NewBrandingRepository(db *gorm.DB) *BrandingRepository {
	return &BrandingRepository{db: db}
}

func (r *BrandingRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&BrandingModel{})
}

// Branding returns the stored branding, or the defaults when none was saved.
func (r *BrandingRepository) Branding(ctx context.Context, chatbotID string) (channel.Branding, error) {
	var m BrandingModel
	if err := r.db.WithContext(ctx).First(&m, "chatbot_id = ?", chatbotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return channel.DefaultBranding(chatbotID), nil
		}
		return channel.Branding{}, err
	}
	return channel.Branding{
		ChatbotID:      m.ChatbotID,
		Name:           m.Name,
		PrimaryColor:   m.PrimaryColor,
		SecondaryColor: m.SecondaryColor,
		WelcomeMessage: m.WelcomeMessage,
		Position:       m.Position,
		AvatarURL:      m.AvatarURL,
	}, nil
}

func (r *BrandingRepository) Save(ctx context.Context, b channel.Branding) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chatbot_id"}},
		UpdateAll: true,
	}).Create(&BrandingModel{
		ChatbotID:      b.ChatbotID,
		Name:           b.Name,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		WelcomeMessage: b.WelcomeMessage,
		Position:       b.Position,
		AvatarURL:      b.AvatarURL,
	}).Error
}
