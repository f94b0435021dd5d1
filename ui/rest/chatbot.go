package rest

import (
	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/gofiber/fiber/v2"
)

type Chatbot struct {
	Service ChannelService
}

func InitRestChatbot(app fiber.Router, service ChannelService) *Chatbot {
	rest := &Chatbot{Service: service}
	app.Get("/chatbots/:chatbot/summary", rest.Summary)
	app.Get("/chatbots/:chatbot/branding", rest.GetBranding)
	app.Put("/chatbots/:chatbot/branding", rest.UpdateBranding)
	return rest
}

func (h *Chatbot) Summary(c *fiber.Ctx) error {
	s, err := h.Service.Summary(c.UserContext(), c.Params("chatbot"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Summary fetched", s)
}

func (h *Chatbot) GetBranding(c *fiber.Ctx) error {
	b, err := h.Service.Branding(c.UserContext(), c.Params("chatbot"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Branding fetched", b)
}

func (h *Chatbot) UpdateBranding(c *fiber.Ctx) error {
	var b channel.Branding
	if err := c.BodyParser(&b); err != nil {
		return badRequest(c, err)
	}
	b.ChatbotID = c.Params("chatbot")
	saved, err := h.Service.SaveBranding(c.UserContext(), b)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Branding updated", saved)
}
