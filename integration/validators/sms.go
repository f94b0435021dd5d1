package validators

import (
	"context"
	"fmt"
	"regexp"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var (
	e164Pattern     = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	botTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]{20,}$`)
)

type smsSettings struct {
	APIKey      string `json:"api_key"`
	PhoneNumber string `json:"phone_number"`
	VerifyURL   string `json:"verify_url"`
}

// SMS calls the provider's verification URL with the API key as bearer.
type SMS struct {
	http *httpClient
}

func (v *SMS) Validate(ctx context.Context, cfg channel.ChannelConfig) error {
	s := smsSettings{APIKey: cfg.APIKey, PhoneNumber: cfg.PhoneNumber, VerifyURL: cfg.Setting("verify_url")}
	if err := shapeError(validation.ValidateStruct(&s,
		validation.Field(&s.APIKey, validation.Required),
		validation.Field(&s.PhoneNumber, validation.Required, validation.Match(e164Pattern).Error("must be in E.164 format")),
		validation.Field(&s.VerifyURL, validation.Required, is.URL),
	)); err != nil {
		return err
	}

	status, err := v.http.getJSON(ctx, s.VerifyURL, s.APIKey, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("sms provider rejected the credentials (status %d)", status)
	}
	return nil
}
