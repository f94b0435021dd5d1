package validations

import (
	"context"
	"strings"
	"testing"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/stretchr/testify/assert"
)

func TestValidateChannelConfig(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateChannelConfig(ctx, channel.ChannelConfig{
		AccessToken: "tok",
		WebhookURL:  "https://hooks.example.com/in",
		Settings:    map[string]string{"phone_number_id": "111"},
	}))

	err := ValidateChannelConfig(ctx, channel.ChannelConfig{WebhookURL: "not a url"})
	var ve pkgError.ValidationError
	assert.ErrorAs(t, err, &ve)

	err = ValidateChannelConfig(ctx, channel.ChannelConfig{Settings: map[string]string{"Bad Key": "x"}})
	assert.ErrorAs(t, err, &ve)

	err = ValidateChannelConfig(ctx, channel.ChannelConfig{Settings: map[string]string{"site_url": strings.Repeat("a", 3000)}})
	assert.ErrorAs(t, err, &ve)
}

func TestValidateBranding(t *testing.T) {
	ctx := context.Background()
	b := channel.DefaultBranding("bot-1")
	assert.NoError(t, ValidateBranding(ctx, b))

	bad := b
	bad.PrimaryColor = "red"
	assert.Error(t, ValidateBranding(ctx, bad))

	bad = b
	bad.Position = "middle"
	assert.Error(t, ValidateBranding(ctx, bad))

	bad = b
	bad.Name = ""
	assert.Error(t, ValidateBranding(ctx, bad))
}

func TestValidateMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateMetrics(ctx, channel.ChannelMetrics{TotalMessages: 5, ResponseRate: 100}))
	assert.Error(t, ValidateMetrics(ctx, channel.ChannelMetrics{ResponseRate: 100.1}))
	assert.Error(t, ValidateMetrics(ctx, channel.ChannelMetrics{ActiveUsers: -1}))
}
