package channel

import "context"

// Branding is the per chatbot look and copy rendered into embed snippets.
type Branding struct {
	ChatbotID      string `json:"chatbot_id"`
	Name           string `json:"name"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	WelcomeMessage string `json:"welcome_message"`
	Position       string `json:"position"`
	AvatarURL      string `json:"avatar_url,omitempty"`
}

func DefaultBranding(chatbotID string) Branding {
	return Branding{
		ChatbotID:      chatbotID,
		Name:           "Assistant",
		PrimaryColor:   "#4F46E5",
		SecondaryColor: "#EEF2FF",
		WelcomeMessage: "Hi! How can I help you today?",
		Position:       "bottom-right",
	}
}

type ChatbotConfigProvider interface {
	Branding(ctx context.Context, chatbotID string) (Branding, error)
}
