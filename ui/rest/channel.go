package rest

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-connect/integration/application"
	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/AzielCF/az-connect/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// ChannelService is what the handlers need from the integration manager.
type ChannelService interface {
	Types() []channel.ChannelTemplate
	Initialize(ctx context.Context, chatbotID string) ([]channel.Channel, error)
	List(ctx context.Context, chatbotID string) ([]channel.Channel, error)
	Get(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error)
	UpdateConfig(ctx context.Context, chatbotID string, t channel.ChannelType, cfg channel.ChannelConfig) (channel.Channel, error)
	Connect(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error)
	ConnectMany(ctx context.Context, chatbotID string, types ...channel.ChannelType) ([]channel.Channel, error)
	AwaitSettled(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error)
	Disconnect(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error)
	RunTest(ctx context.Context, chatbotID string, t channel.ChannelType) (bool, error)
	TestHistory(ctx context.Context, chatbotID string, t channel.ChannelType, limit int) ([]channel.TestRecord, error)
	IngestMetrics(ctx context.Context, chatbotID string, t channel.ChannelType, m channel.ChannelMetrics) (channel.Channel, error)
	EmbedCode(ctx context.Context, chatbotID string, t channel.ChannelType) (string, error)
	Summary(ctx context.Context, chatbotID string) (application.Summary, error)
	Branding(ctx context.Context, chatbotID string) (channel.Branding, error)
	SaveBranding(ctx context.Context, b channel.Branding) (channel.Branding, error)
}

type Channel struct {
	Service      ChannelService
	EmbedVersion string
	WaitTimeout  time.Duration

	names map[channel.ChannelType]string
	now   func() time.Time
}

func InitRestChannel(app fiber.Router, service ChannelService, embedVersion string, waitTimeout time.Duration) *Channel {
	rest := &Channel{
		Service:      service,
		EmbedVersion: embedVersion,
		WaitTimeout:  waitTimeout,
		names:        map[channel.ChannelType]string{},
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, tpl := range service.Types() {
		rest.names[tpl.Type] = tpl.Name
	}

	app.Get("/channel-types", rest.ListTypes)

	g := app.Group("/chatbots/:chatbot/channels")
	g.Post("/init", rest.Initialize)
	g.Get("/", rest.List)
	g.Post("/connect", rest.ConnectMany)
	g.Get("/:type", rest.Get)
	g.Put("/:type/config", rest.UpdateConfig)
	g.Post("/:type/connect", rest.Connect)
	g.Post("/:type/disconnect", rest.Disconnect)
	g.Post("/:type/test", rest.Test)
	g.Get("/:type/tests", rest.TestHistory)
	g.Put("/:type/metrics", rest.IngestMetrics)
	g.Get("/:type/embed", rest.Embed)
	return rest
}

func respondError(c *fiber.Ctx, err error) error {
	res := utils.ErrorResponse(err)
	return c.Status(res.Status).JSON(res)
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(utils.ResponseData{
		Status:  fiber.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: err.Error(),
	})
}

func success(c *fiber.Ctx, status int, message string, results any) error {
	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    "SUCCESS",
		Message: message,
		Results: results,
	})
}

func (h *Channel) views(list []channel.Channel) []channelView {
	now := h.now()
	out := make([]channelView, len(list))
	for i, ch := range list {
		out[i] = toView(ch, h.names, now)
	}
	return out
}

func (h *Channel) view(ch channel.Channel) channelView {
	return toView(ch, h.names, h.now())
}

func channelType(c *fiber.Ctx) (channel.ChannelType, error) {
	return channel.ParseType(c.Params("type"))
}

func (h *Channel) ListTypes(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, "Channel types fetched", h.Service.Types())
}

func (h *Channel) Initialize(c *fiber.Ctx) error {
	list, err := h.Service.Initialize(c.UserContext(), c.Params("chatbot"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Channels initialized", h.views(list))
}

func (h *Channel) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.UserContext(), c.Params("chatbot"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Channels fetched", h.views(list))
}

func (h *Channel) Get(c *fiber.Ctx) error {
	t, err := channelType(c)
	if err != nil {
		return respondError(c, err)
	}
	ch, err := h.Service.Get(c.UserContext(), c.Params("chatbot"), t)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Channel fetched", h.view(ch))
}

func (h *Channel) UpdateConfig(c *fiber.Ctx) error {
	t, err := channelType(c)
	if err != nil {
		return respondError(c, err)
	}
	var req configRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	ch, err := h.Service.UpdateConfig(c.UserContext(), c.Params("chatbot"), t, req.toConfig())
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Channel configuration updated", h.view(ch))
}

// Connect answers 202 with the Pending snapshot. With ?wait=true it holds the
// request until the attempt settles.
func (h *Channel) Connect(c *fiber.Ctx) error {
	t, err := channelType(c)
	if err != nil {
		return respondError(c, err)
	}
	chatbotID := c.Params("chatbot")
	ch, err := h.Service.Connect(c.UserContext(), chatbotID, t)
	if err != nil {
		return respondError(c, err)
	}
	if !c.QueryBool("wait") {
		return success(c, fiber.StatusAccepted, "Connection attempt started", h.view(ch))
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.WaitTimeout)
	defer cancel()
	settled, err := h.Service.AwaitSettled(ctx, chatbotID, t)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Connection attempt finished", h.view(settled))
}

// ConnectMany starts several channels at once. It answers 202 when at least one
// attempt started, listing the rejected types in the message.
func (h *Channel) ConnectMany(c *fiber.Ctx) error {
	var req connectManyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	types := make([]channel.ChannelType, 0, len(req.Types))
	for _, raw := range req.Types {
		t, err := channel.ParseType(raw)
		if err != nil {
			return respondError(c, err)
		}
		types = append(types, t)
	}
	if len(types) == 0 {
		return badRequest(c, errors.New("types is required"))
	}

	started, err := h.Service.ConnectMany(c.UserContext(), c.Params("chatbot"), types...)
	if len(started) == 0 && err != nil {
		return respondError(c, err)
	}
	message := "Connection attempts started"
	if err != nil {
		message = err.Error()
	}
	return success(c, fiber.StatusAccepted, message, h.views(started))
}

func (h *Channel) Disconnect(c *fiber.Ctx) error {
	t, err := channelType(c)
	if err != nil {
		return respondError(c, err)
	}
	ch, err := h.Service.Disconnect(c.UserContext(), c.Params("chatbot"), t)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Channel disconnected", h.view(ch))
}

func (h *Channel) Test(c *fiber.Ctx) error {
	t, err := channelType(c)
	if err != nil {
		return respondError(c, err)
	}
	chatbotID := c.Params("chatbot")
	passed, err := h.Service.RunTest(c.UserContext(), chatbotID, t)
	if err != nil {
		return respondError(c, err)
	}
	ch, err := h.Service.Get(c.UserContext(), chatbotID, t)
	if err != nil {
		return respondError(c, err)
	}
	message := "Connection test passed"
	if !passed {
		message = "Connection test failed"
	}
	return success(c, fiber.StatusOK, message, testResult{Passed: passed, Channel: h.view(ch)})
}

func (h *Channel) TestHistory(c *fiber.Ctx) error {
	t, err := channelType(c)
	if err != nil {
		return respondError(c, err)
	}
	recs, err := h.Service.TestHistory(c.UserContext(), c.Params("chatbot"), t, c.QueryInt("limit", 20))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Test history fetched", recs)
}

func (h *Channel) IngestMetrics(c *fiber.Ctx) error {
	t, err := channelType(c)
	if err != nil {
		return respondError(c, err)
	}
	var m channel.ChannelMetrics
	if err := c.BodyParser(&m); err != nil {
		return badRequest(c, err)
	}
	ch, err := h.Service.IngestMetrics(c.UserContext(), c.Params("chatbot"), t, m)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Metrics recorded", h.view(ch))
}

func (h *Channel) Embed(c *fiber.Ctx) error {
	t, err := channelType(c)
	if err != nil {
		return respondError(c, err)
	}
	chatbotID := c.Params("chatbot")
	code, err := h.Service.EmbedCode(c.UserContext(), chatbotID, t)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Embed code generated", embedResult{
		ChatbotID:   chatbotID,
		ChannelType: t,
		Version:     h.EmbedVersion,
		Code:        code,
	})
}
