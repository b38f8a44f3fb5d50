package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/rpggio/evtrack/internal/domain/timelog"
)

// TaskListService defines task list operations needed by MCP.
type TaskListService interface {
	List() []tasklist.Summary
	ImportYAML(ctx context.Context, data []byte) (*tasklist.Info, error)
	AddFile(ctx context.Context, path string) (*tasklist.Info, error)
	Delete(ctx context.Context, name string) error
	LogTime(ctx context.Context, req tasklist.LogTimeRequest) (*timelog.Entry, error)
	TimeLog(ctx context.Context, name string, filter timelog.Filter) ([]timelog.Entry, error)
	Recalculate(ctx context.Context, name string, includeCost bool) (*tasklist.Snapshot, error)
}

// Config contains server configuration.
type Config struct {
	Service TaskListService
	Version string
	Logger  *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "evtrack",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(metricsMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Service, cfg.Logger)

	return server
}
