package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/readshelf/internal/adapters/mcp"
	"github.com/kirillkom/readshelf/internal/bootstrap"
	"github.com/kirillkom/readshelf/internal/config"
	"github.com/kirillkom/readshelf/internal/observability/logging"
)

var version = "dev"

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(app.ProcessUC, app.LibraryUC).MCPServer(version)
	logger.Info("mcp_stdio_serving", "storage_driver", cfg.StorageDriver, "enrichment_enabled", cfg.EnrichmentEnabled)
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		app.Close()
		os.Exit(1)
	}
}
