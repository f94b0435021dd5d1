package registry

import (
	"fmt"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	pkgError "github.com/AzielCF/az-connect/pkg/error"
)

// Placeholders understood by the embed generator.
const (
	PlaceholderConfig    = "%%CONFIG%%"
	PlaceholderScriptURL = "%%SCRIPT_URL%%"
	PlaceholderVersion   = "%%VERSION%%"
)

const websiteEmbed = `<!-- AzConnect chat widget %%VERSION%% -->
<script>
  window.AzConnectConfig = %%CONFIG%%;
</script>
<script src="%%SCRIPT_URL%%" data-azconnect-widget async defer></script>`

const shopifyEmbed = `<!-- AzConnect chat widget %%VERSION%% for Shopify: paste into theme.liquid before </body> -->
<script>
  window.AzConnectConfig = %%CONFIG%%;
</script>
<script src="%%SCRIPT_URL%%" data-azconnect-widget async defer></script>`

// Registry is the immutable catalog of supported channel types.
type Registry struct {
	order     []channel.ChannelType
	templates map[channel.ChannelType]channel.ChannelTemplate
}

// New builds the catalog. It is safe for concurrent use since nothing mutates
// it after construction.
func New() *Registry {
	r := &Registry{templates: make(map[channel.ChannelType]channel.ChannelTemplate, len(channel.AllTypes))}
	for _, tpl := range builtinTemplates() {
		r.order = append(r.order, tpl.Type)
		r.templates[tpl.Type] = tpl
	}
	return r
}

func (r *Registry) Template(t channel.ChannelType) (channel.ChannelTemplate, error) {
	tpl, ok := r.templates[t]
	if !ok {
		return channel.ChannelTemplate{}, pkgError.NotFoundError(fmt.Sprintf("no template for channel type %q", string(t)))
	}
	return tpl.Clone(), nil
}

// Types returns the supported types in catalog order.
func (r *Registry) Types() []channel.ChannelType {
	return append([]channel.ChannelType(nil), r.order...)
}

func (r *Registry) Templates() []channel.ChannelTemplate {
	out := make([]channel.ChannelTemplate, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.templates[t].Clone())
	}
	return out
}

func builtinTemplates() []channel.ChannelTemplate {
	return []channel.ChannelTemplate{
		{
			Type:        channel.ChannelTypeWebsite,
			Name:        "Website Widget",
			Description: "Embed the chat widget on any website.",
			Icon:        "globe",
			SetupSteps: []string{
				"Copy the embed code",
				"Paste it before the closing </body> tag of your site",
				"Publish your site and open it to see the widget",
			},
			Requirements:      []string{"Access to the website HTML"},
			Features:          []string{"Live chat", "Custom branding", "Mobile friendly", "Proactive greetings"},
			EmbedCodeTemplate: websiteEmbed,
		},
		{
			Type:        channel.ChannelTypeWhatsApp,
			Name:        "WhatsApp Business",
			Description: "Answer customers on WhatsApp through the Cloud API.",
			Icon:        "whatsapp",
			SetupSteps: []string{
				"Create a Meta business app",
				"Add a phone number and complete verification",
				"Generate a permanent access token",
				"Enter the phone number ID and token",
			},
			Requirements: []string{"Verified Meta business account", "Verified phone number", "Cloud API access token"},
			Features:     []string{"Rich media", "Message templates", "Read receipts"},
		},
		{
			Type:        channel.ChannelTypeMessenger,
			Name:        "Facebook Messenger",
			Description: "Reply to messages sent to your Facebook page.",
			Icon:        "messenger",
			SetupSteps: []string{
				"Connect your Facebook page",
				"Generate a page access token",
				"Enter the page ID and token",
			},
			Requirements: []string{"Facebook page admin role", "Page access token"},
			Features:     []string{"Quick replies", "Persistent menu", "Rich cards"},
		},
		{
			Type:        channel.ChannelTypeTelegram,
			Name:        "Telegram",
			Description: "Run the chatbot as a Telegram bot.",
			Icon:        "telegram",
			SetupSteps: []string{
				"Talk to @BotFather and create a bot",
				"Copy the bot token",
				"Paste the token here",
			},
			Requirements: []string{"Telegram bot token"},
			Features:     []string{"Inline keyboards", "Group chats", "File sharing"},
		},
		{
			Type:        channel.ChannelTypeInstagram,
			Name:        "Instagram",
			Description: "Handle Instagram direct messages.",
			Icon:        "instagram",
			SetupSteps: []string{
				"Switch to an Instagram professional account",
				"Link it to a Facebook page",
				"Enter the Instagram account ID and access token",
			},
			Requirements: []string{"Instagram professional account", "Linked Facebook page", "Access token"},
			Features:     []string{"Direct messages", "Story replies", "Quick replies"},
		},
		{
			Type:        channel.ChannelTypeShopify,
			Name:        "Shopify",
			Description: "Add the chat widget to a Shopify storefront.",
			Icon:        "shopify",
			SetupSteps: []string{
				"Open Online Store > Themes > Edit code",
				"Open layout/theme.liquid",
				"Paste the embed code before </body> and save",
			},
			Requirements:      []string{"Shopify store admin access"},
			Features:          []string{"Storefront chat", "Order questions", "Product recommendations"},
			EmbedCodeTemplate: shopifyEmbed,
		},
		{
			Type:        channel.ChannelTypeEmail,
			Name:        "Email",
			Description: "Reply to inbound email with the chatbot.",
			Icon:        "mail",
			SetupSteps: []string{
				"Enter the SMTP host and port",
				"Set the sender address",
				"Forward your support inbox to the webhook URL",
			},
			Requirements: []string{"Reachable SMTP server", "Sender address"},
			Features:     []string{"Threaded replies", "Attachments", "Signatures"},
		},
		{
			Type:        channel.ChannelTypeSMS,
			Name:        "SMS",
			Description: "Send and receive text messages.",
			Icon:        "sms",
			SetupSteps: []string{
				"Create an account with your SMS provider",
				"Buy or port a phone number",
				"Enter the API key, number and verify URL",
			},
			Requirements: []string{"SMS provider API key", "Phone number in E.164 format"},
			Features:     []string{"Two-way SMS", "Delivery reports"},
		},
	}
}
