package validations

import (
	"context"
	"regexp"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var (
	hexColor     = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	settingKey   = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)
	positions    = []any{"bottom-right", "bottom-left", "top-right", "top-left"}
	maxSettings  = 32
	maxFreeText  = 500
	maxSettingSz = 2048
)

// ValidateChannelConfig checks the shape of a config update. Platform rules
// such as which keys are required are left to the connect validators.
func ValidateChannelConfig(ctx context.Context, cfg channel.ChannelConfig) error {
	err := validation.ValidateStructWithContext(ctx, &cfg,
		validation.Field(&cfg.APIKey, validation.Length(0, maxSettingSz)),
		validation.Field(&cfg.AccessToken, validation.Length(0, maxSettingSz)),
		validation.Field(&cfg.PhoneNumber, validation.Length(0, 32)),
		validation.Field(&cfg.WebhookURL, is.URL),
		validation.Field(&cfg.Settings, validation.Length(0, maxSettings), validation.By(validSettings)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func validSettings(value any) error {
	settings, _ := value.(map[string]string)
	for k, v := range settings {
		if !settingKey.MatchString(k) {
			return validation.NewError("validation_setting_key", "invalid setting key "+k)
		}
		if len(v) > maxSettingSz {
			return validation.NewError("validation_setting_value", "setting "+k+" is too long")
		}
	}
	return nil
}

func ValidateBranding(ctx context.Context, b channel.Branding) error {
	err := validation.ValidateStructWithContext(ctx, &b,
		validation.Field(&b.ChatbotID, validation.Required),
		validation.Field(&b.Name, validation.Required, validation.Length(1, 80)),
		validation.Field(&b.PrimaryColor, validation.Required, validation.Match(hexColor)),
		validation.Field(&b.SecondaryColor, validation.Required, validation.Match(hexColor)),
		validation.Field(&b.WelcomeMessage, validation.Length(0, maxFreeText)),
		validation.Field(&b.Position, validation.Required, validation.In(positions...)),
		validation.Field(&b.AvatarURL, is.URL),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateMetrics(ctx context.Context, m channel.ChannelMetrics) error {
	err := validation.ValidateStructWithContext(ctx, &m,
		validation.Field(&m.TotalMessages, validation.Min(int64(0))),
		validation.Field(&m.ResponseRate, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&m.AverageResponseTimeSeconds, validation.Min(0.0)),
		validation.Field(&m.ActiveUsers, validation.Min(int64(0))),
		validation.Field(&m.ConversionRate, validation.Min(0.0), validation.Max(100.0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
