package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/AzielCF/az-connect/core/config"
	"github.com/AzielCF/az-connect/ui/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the channel MCP server using SSE",
	Long:  `Start a Model Context Protocol server over Server-Sent Events so AI agents can list, connect, test and embed chatbot channels.`,
	Run:   mcpServer,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("host", "", "Host for the SSE MCP server")
	mcpCmd.Flags().String("mcp-port", "", "Port for the SSE MCP server")
}

func mcpServer(cmd *cobra.Command, _ []string) {
	initApp()
	cfg := coreconfig.Global
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.MCP.Host = v
	}
	if v, _ := cmd.Flags().GetString("mcp-port"); v != "" {
		cfg.MCP.Port = v
	}

	mcpServer := server.NewMCPServer(
		"Az-Connect Channel MCP Server",
		cfg.App.Version,
		server.WithToolCapabilities(true),
	)

	channelHandler := mcp.InitMcpChannel(manager, cfg.Integration.ValidationTimeout+5*time.Second)
	channelHandler.AddChannelTools(mcpServer)

	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(fmt.Sprintf("http://%s:%s", cfg.MCP.Host, cfg.MCP.Port)),
		server.WithKeepAlive(true),
	)

	addr := fmt.Sprintf("%s:%s", cfg.MCP.Host, cfg.MCP.Port)
	logrus.Printf("Starting channel MCP SSE server on %s", addr)
	logrus.Printf("SSE endpoint: http://%s/sse", addr)
	logrus.Printf("Message endpoint: http://%s/message", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[MCP] Reception of termination signal, shutting down gracefully...")
		StopApp()
		os.Exit(0)
	}()

	if err := sseServer.Start(addr); err != nil {
		logrus.Fatalf("Failed to start SSE server: %v", err)
	}
}
