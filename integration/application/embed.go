package application

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/AzielCF/az-connect/integration/registry"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
)

// TemplateSource yields the catalog entry of a channel type.
type TemplateSource interface {
	Template(t channel.ChannelType) (channel.ChannelTemplate, error)
}

// EmbedGenerator renders the snippet customers paste into their site or theme.
type EmbedGenerator struct {
	templates TemplateSource
	scriptURL string
	version   string
}

func NewEmbedGenerator(templates TemplateSource, scriptURL, version string) *EmbedGenerator {
	if version == "" {
		version = "v1"
	}
	return &EmbedGenerator{templates: templates, scriptURL: scriptURL, version: version}
}

// embedConfig is the public widget configuration object. Field names are part
// of the snippet contract.
type embedConfig struct {
	ChatbotID      string `json:"chatbotId"`
	Channel        string `json:"channel"`
	Version        string `json:"version"`
	Name           string `json:"name"`
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	WelcomeMessage string `json:"welcomeMessage"`
	Position       string `json:"position"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	ShopDomain     string `json:"shopDomain,omitempty"`
}

// Generate renders the embed snippet of ch. Every substituted value is JSON
// encoded with HTML escaping, so nothing can close the surrounding script tag.
func (g *EmbedGenerator) Generate(ch channel.Channel, b channel.Branding) (string, error) {
	tpl, err := g.templates.Template(ch.Type)
	if err != nil {
		return "", err
	}
	if !tpl.HasEmbed() {
		return "", pkgError.NotSupportedError(fmt.Sprintf("%s does not provide an embed code", ch.Type))
	}

	cfg := embedConfig{
		ChatbotID:      ch.ChatbotID,
		Channel:        string(ch.Type),
		Version:        g.version,
		Name:           b.Name,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		WelcomeMessage: b.WelcomeMessage,
		Position:       b.Position,
		AvatarURL:      b.AvatarURL,
	}
	if ch.Type == channel.ChannelTypeShopify {
		cfg.ShopDomain = ch.Config.Setting("shop_domain")
	}

	// encoding/json escapes <, >, & and U+2028/U+2029 by default.
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode embed config: %w", err)
	}

	versionJSON, _ := json.Marshal(g.version)
	version := strings.Trim(string(versionJSON), `"`)
	version = strings.ReplaceAll(version, "--", "")

	r := strings.NewReplacer(
		registry.PlaceholderConfig, string(raw),
		registry.PlaceholderScriptURL, html.EscapeString(g.scriptURL),
		registry.PlaceholderVersion, version,
	)
	return r.Replace(tpl.EmbedCodeTemplate), nil
}
