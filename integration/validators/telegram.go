package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Telegram asks the Bot API who the token belongs to.
type Telegram struct {
	baseURL string
	http    *httpClient
}

func (v *Telegram) Validate(ctx context.Context, cfg channel.ChannelConfig) error {
	token := cfg.AccessToken
	if err := validation.Validate(token,
		validation.Required.Error("bot token is required"),
		validation.Match(botTokenPattern).Error("bot token has an invalid format"),
	); err != nil {
		return err
	}

	var body struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Result      struct {
			Username string `json:"username"`
			IsBot    bool   `json:"is_bot"`
		} `json:"result"`
	}
	target := strings.TrimRight(v.baseURL, "/") + "/bot" + token + "/getMe"
	status, err := v.http.getJSON(ctx, target, "", &body)
	if err != nil {
		return err
	}
	if !body.OK {
		if body.Description != "" {
			return errors.New(body.Description)
		}
		return fmt.Errorf("telegram returned status %d", status)
	}
	if !body.Result.IsBot {
		return errors.New("token does not belong to a bot")
	}
	return nil
}
