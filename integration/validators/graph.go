package validators

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type graphError struct {
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (g graphError) reason(status int) error {
	if g.Error != nil && g.Error.Message != "" {
		return errors.New(g.Error.Message)
	}
	return fmt.Errorf("graph api returned status %d", status)
}

type graphCredentials struct {
	ObjectID    string `json:"object_id"`
	AccessToken string `json:"access_token"`
}

func graphRules(objectKey string, cfg channel.ChannelConfig) error {
	c := graphCredentials{ObjectID: cfg.Setting(objectKey), AccessToken: cfg.AccessToken}
	err := validation.ValidateStruct(&c,
		validation.Field(&c.ObjectID, validation.Required.Error(objectKey+" is required")),
		validation.Field(&c.AccessToken, validation.Required.Error("access token is required")),
	)
	return shapeError(err)
}

func graphURL(base, object string, fields ...string) string {
	u := strings.TrimRight(base, "/") + "/" + url.PathEscape(object)
	if len(fields) > 0 {
		u += "?fields=" + url.QueryEscape(strings.Join(fields, ","))
	}
	return u
}

// WhatsApp checks a Cloud API phone number: the token must be accepted and the
// number verified.
type WhatsApp struct {
	baseURL string
	http    *httpClient
}

func (v *WhatsApp) Validate(ctx context.Context, cfg channel.ChannelConfig) error {
	if err := graphRules("phone_number_id", cfg); err != nil {
		return err
	}

	var body struct {
		graphError
		ID                     string `json:"id"`
		DisplayPhoneNumber     string `json:"display_phone_number"`
		CodeVerificationStatus string `json:"code_verification_status"`
	}
	target := graphURL(v.baseURL, cfg.Setting("phone_number_id"), "id", "display_phone_number", "code_verification_status")
	status, err := v.http.getJSON(ctx, target, cfg.AccessToken, &body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return body.reason(status)
	}
	if body.CodeVerificationStatus != "VERIFIED" {
		return fmt.Errorf("phone number %s is not verified", firstNonEmpty(body.DisplayPhoneNumber, cfg.Setting("phone_number_id")))
	}
	return nil
}

// GraphObject checks that the token can read a Graph object, used for
// Messenger pages and Instagram business accounts.
type GraphObject struct {
	kind       string
	settingKey string
	baseURL    string
	http       *httpClient
}

func (v *GraphObject) Validate(ctx context.Context, cfg channel.ChannelConfig) error {
	if err := graphRules(v.settingKey, cfg); err != nil {
		return err
	}

	var body struct {
		graphError
		ID string `json:"id"`
	}
	id := cfg.Setting(v.settingKey)
	status, err := v.http.getJSON(ctx, graphURL(v.baseURL, id, "id"), cfg.AccessToken, &body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return body.reason(status)
	}
	if body.ID != id {
		return fmt.Errorf("%s account %s is not reachable with this token", v.kind, id)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
