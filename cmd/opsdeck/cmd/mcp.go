package cmd

import (
	"context"
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"

	mcpserver "github.com/opsdeck/opsdeck/internal/adapter/inbound/mcp"
	"github.com/opsdeck/opsdeck/internal/adapter/outbound/memory"
	"github.com/opsdeck/opsdeck/internal/adapter/outbound/sqlite"
	"github.com/opsdeck/opsdeck/internal/config"
	"github.com/opsdeck/opsdeck/internal/domain/cache"
	"github.com/opsdeck/opsdeck/internal/service"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve dashboard data over MCP on stdio",
	Long: `Serve dashboard data to AI copilots over the Model Context Protocol.

The MCP server reads the same SQLite database as the API server and
exposes read-only tools: list_incidents, get_incident, service_health,
and recent_errors. Logs go to stderr; stdout carries the protocol.

Example Claude Desktop / editor configuration:
  { "command": "opsdeck", "args": ["mcp"] }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()

	logger := newLogger(cfg)

	db, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Reads are served from a process-local cache; the MCP process is
	// short-lived and read-only, so shared invalidation does not apply.
	c := cache.New(memory.NewKVStore(), cache.WithLogger(logger))

	serviceStore := sqlite.NewServiceStore(db)
	incidentStore := sqlite.NewIncidentStore(db)

	catalog := service.NewCatalogService(serviceStore, c, logger)
	incidents := service.NewIncidentService(incidentStore, serviceStore, c, logger)
	logs := service.NewLogService(sqlite.NewLogStore(db), serviceStore, incidents, nil, c, logger)
	actions := service.NewActionService(sqlite.NewActionStore(db), incidentStore, c, logger)

	srv := mcpserver.NewServer(catalog, incidents, logs, actions, Version, logger)
	return srv.Run(ctx)
}
