package mcp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/AzielCF/az-connect/integration/application"
	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ChannelService is the subset of the integration manager exposed as tools.
type ChannelService interface {
	Initialize(ctx context.Context, chatbotID string) ([]channel.Channel, error)
	List(ctx context.Context, chatbotID string) ([]channel.Channel, error)
	Connect(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error)
	AwaitSettled(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error)
	Disconnect(ctx context.Context, chatbotID string, t channel.ChannelType) (channel.Channel, error)
	RunTest(ctx context.Context, chatbotID string, t channel.ChannelType) (bool, error)
	Summary(ctx context.Context, chatbotID string) (application.Summary, error)
	EmbedCode(ctx context.Context, chatbotID string, t channel.ChannelType) (string, error)
}

type ChannelHandler struct {
	service     ChannelService
	waitTimeout time.Duration
}

func InitMcpChannel(service ChannelService, waitTimeout time.Duration) *ChannelHandler {
	return &ChannelHandler{service: service, waitTimeout: waitTimeout}
}

func (h *ChannelHandler) AddChannelTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(h.toolListChannels(), h.handleListChannels)
	mcpServer.AddTool(h.toolConnect(), h.handleConnect)
	mcpServer.AddTool(h.toolDisconnect(), h.handleDisconnect)
	mcpServer.AddTool(h.toolTest(), h.handleTest)
	mcpServer.AddTool(h.toolSummary(), h.handleSummary)
	mcpServer.AddTool(h.toolEmbedCode(), h.handleEmbedCode)
}

func chatbotArg() mcp.ToolOption {
	return mcp.WithString("chatbot_id",
		mcp.Description("Identifier of the chatbot that owns the channels."),
		mcp.Required(),
	)
}

func typeArg() mcp.ToolOption {
	names := make([]string, len(channel.AllTypes))
	for i, t := range channel.AllTypes {
		names[i] = string(t)
	}
	return mcp.WithString("channel_type",
		mcp.Description("Platform of the channel."),
		mcp.Enum(names...),
		mcp.Required(),
	)
}

func target(request mcp.CallToolRequest) (string, channel.ChannelType, error) {
	chatbotID, err := request.RequireString("chatbot_id")
	if err != nil {
		return "", "", err
	}
	raw, err := request.RequireString("channel_type")
	if err != nil {
		return "", "", err
	}
	t, err := channel.ParseType(raw)
	if err != nil {
		return "", "", err
	}
	return chatbotID, t, nil
}

func redact(ch channel.Channel) channel.Channel {
	ch.Config = ch.Config.Redacted()
	return ch
}

func (h *ChannelHandler) toolListChannels() mcp.Tool {
	return mcp.NewTool(
		"channels_list",
		mcp.WithDescription("List every integration channel of a chatbot with its connection status. Channels are created on first use."),
		mcp.WithTitleAnnotation("List Channels"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		chatbotArg(),
	)
}

func (h *ChannelHandler) handleListChannels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chatbotID, err := request.RequireString("chatbot_id")
	if err != nil {
		return nil, err
	}
	list, err := h.service.Initialize(ctx, chatbotID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = redact(list[i])
	}
	fallback := fmt.Sprintf("Found %d channels for chatbot %s", len(list), chatbotID)
	return mcp.NewToolResultStructured(map[string]any{"channels": list}, fallback), nil
}

func (h *ChannelHandler) toolConnect() mcp.Tool {
	return mcp.NewTool(
		"channel_connect",
		mcp.WithDescription("Start connecting a channel. The credentials are validated in the background unless wait is set."),
		mcp.WithTitleAnnotation("Connect Channel"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		chatbotArg(),
		typeArg(),
		mcp.WithBoolean("wait",
			mcp.Description("Block until the connection attempt settles."),
		),
	)
}

func (h *ChannelHandler) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chatbotID, t, err := target(request)
	if err != nil {
		return nil, err
	}
	wait := false
	if raw, ok := request.GetArguments()["wait"]; ok {
		if wait, err = toBool(raw); err != nil {
			return nil, err
		}
	}

	ch, err := h.service.Connect(ctx, chatbotID, t)
	if err != nil {
		return nil, err
	}
	if wait {
		waitCtx, cancel := context.WithTimeout(ctx, h.waitTimeout)
		defer cancel()
		if ch, err = h.service.AwaitSettled(waitCtx, chatbotID, t); err != nil {
			return nil, err
		}
	}

	fallback := fmt.Sprintf("Channel %s is %s", ch.ID, ch.Status)
	if ch.ErrorMessage != "" {
		fallback += ": " + ch.ErrorMessage
	}
	return mcp.NewToolResultStructured(redact(ch), fallback), nil
}

func (h *ChannelHandler) toolDisconnect() mcp.Tool {
	return mcp.NewTool(
		"channel_disconnect",
		mcp.WithDescription("Disconnect a channel, cancelling any pending connection attempt."),
		mcp.WithTitleAnnotation("Disconnect Channel"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		chatbotArg(),
		typeArg(),
	)
}

func (h *ChannelHandler) handleDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chatbotID, t, err := target(request)
	if err != nil {
		return nil, err
	}
	ch, err := h.service.Disconnect(ctx, chatbotID, t)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultStructured(redact(ch), fmt.Sprintf("Channel %s disconnected", ch.ID)), nil
}

func (h *ChannelHandler) toolTest() mcp.Tool {
	return mcp.NewTool(
		"channel_test",
		mcp.WithDescription("Run a live connection test against a connected channel."),
		mcp.WithTitleAnnotation("Test Channel"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		chatbotArg(),
		typeArg(),
	)
}

func (h *ChannelHandler) handleTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chatbotID, t, err := target(request)
	if err != nil {
		return nil, err
	}
	passed, err := h.service.RunTest(ctx, chatbotID, t)
	if err != nil {
		return nil, err
	}
	fallback := fmt.Sprintf("Connection test for %s %s", t, map[bool]string{true: "passed", false: "failed"}[passed])
	return mcp.NewToolResultStructured(map[string]any{"passed": passed}, fallback), nil
}

func (h *ChannelHandler) toolSummary() mcp.Tool {
	return mcp.NewTool(
		"chatbot_channel_summary",
		mcp.WithDescription("Aggregate connection counts and metrics across a chatbot's channels."),
		mcp.WithTitleAnnotation("Channel Summary"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		chatbotArg(),
	)
}

func (h *ChannelHandler) handleSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chatbotID, err := request.RequireString("chatbot_id")
	if err != nil {
		return nil, err
	}
	s, err := h.service.Summary(ctx, chatbotID)
	if err != nil {
		return nil, err
	}
	fallback := fmt.Sprintf("%d of %d channels connected", s.ConnectedCount, s.TotalChannels)
	return mcp.NewToolResultStructured(s, fallback), nil
}

func (h *ChannelHandler) toolEmbedCode() mcp.Tool {
	return mcp.NewTool(
		"channel_embed_code",
		mcp.WithDescription("Generate the HTML snippet that installs the chat widget. Only website and shopify channels have one."),
		mcp.WithTitleAnnotation("Embed Code"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		chatbotArg(),
		typeArg(),
	)
}

func (h *ChannelHandler) handleEmbedCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chatbotID, t, err := target(request)
	if err != nil {
		return nil, err
	}
	code, err := h.service.EmbedCode(ctx, chatbotID, t)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(code), nil
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("unable to parse boolean value %q", v)
		}
		return parsed, nil
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, fmt.Errorf("unsupported boolean value type %T", value)
	}
}
