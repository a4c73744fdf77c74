package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/claim-assistant/internal/bootstrap"
	"github.com/kirillkom/claim-assistant/internal/config"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/claim-assistant/internal/observability/logging"
)

const (
	serviceName = "claim-mcp"
	version     = "1.0.0"
)

// claim-mcp exposes the pipeline as MCP tools over stdio. Logs go to stderr
// so stdout stays reserved for the protocol.
func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewLoggerTo(os.Stderr, serviceName, cfg.LogLevel, cfg.LogFormat))

	app, err := bootstrap.New(context.Background(), cfg, nil)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	files := localfs.New("", cfg.MaxUploadBytes())

	mcpServer := server.NewMCPServer(serviceName, version, server.WithToolCapabilities(true))
	mcpServer.AddTool(processClaimTool(), handleProcessClaim(app.Claims, files))
	mcpServer.AddTool(classifyDocumentsTool(), handleClassifyDocuments(app.Claims, files))

	if err := server.ServeStdio(mcpServer); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
